package keybinds

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError represents a keybinding validation error
type ValidationError struct {
	Type    string // "conflict", "invalid", "warning"
	Context Context
	Key     string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s in context '%s': %s", e.Type, e.Key, e.Context, e.Message)
}

type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// String returns a human-readable summary of validation results
func (r *ValidationResult) String() string {
	var sb strings.Builder

	if len(r.Errors) > 0 {
		fmt.Fprintf(&sb, "Errors (%d):\n", len(r.Errors))
		for _, err := range r.Errors {
			fmt.Fprintf(&sb, "  - %s\n", err.Error())
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&sb, "Warnings (%d):\n", len(r.Warnings))
		for _, warn := range r.Warnings {
			fmt.Fprintf(&sb, "  - %s\n", warn.Error())
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// Validator checks a registry for bindings that would lock the user out or
// hide each other.
type Validator struct {
	// reservedKeys must keep their action in the listed contexts.
	reservedKeys map[string]Action
}

func NewValidator() *Validator {
	return &Validator{
		reservedKeys: map[string]Action{
			"ctrl+c": ActionQuitForce,
		},
	}
}

// ValidateRegistry validates an entire registry
func (v *Validator) ValidateRegistry(registry *Registry) *ValidationResult {
	result := &ValidationResult{}

	v.checkReservedKeys(registry, result)
	v.checkEscapeHatches(registry, result)
	v.checkKeys(registry, result)
	v.checkShadowing(registry, result)

	sortErrors(result.Errors)
	sortErrors(result.Warnings)
	return result
}

// ValidateConfig applies config to the defaults and validates the result.
func (v *Validator) ValidateConfig(config Config) *ValidationResult {
	registry := NewDefaultRegistry()
	if err := ApplyConfig(registry, config); err != nil {
		return &ValidationResult{Errors: []ValidationError{{Type: "invalid", Message: err.Error()}}}
	}
	return v.ValidateRegistry(registry)
}

func (v *Validator) checkReservedKeys(registry *Registry, result *ValidationResult) {
	for key, want := range v.reservedKeys {
		for _, context := range []Context{ContextGlobal, ContextInput} {
			if got, ok := registry.bindings[context][key]; !ok || got != want {
				result.Errors = append(result.Errors, ValidationError{
					Type:    "conflict",
					Context: context,
					Key:     key,
					Message: fmt.Sprintf("reserved key must stay bound to %s", want),
				})
			}
		}
	}
}

// checkEscapeHatches makes sure modals can still be left.
func (v *Validator) checkEscapeHatches(registry *Registry, result *ValidationResult) {
	required := map[Context][]Action{
		ContextConfirm: {ActionConfirm, ActionCancel},
		ContextInput:   {ActionSubmit, ActionCancel},
		ContextViewer:  {ActionClose},
	}
	for context, actions := range required {
		for _, action := range actions {
			if len(registry.Keys(context, action)) == 0 {
				result.Errors = append(result.Errors, ValidationError{
					Type:    "invalid",
					Context: context,
					Message: fmt.Sprintf("no key bound to %s", action),
				})
			}
		}
	}
}

func (v *Validator) checkKeys(registry *Registry, result *ValidationResult) {
	for context, bindings := range registry.bindings {
		for key := range bindings {
			if err := ValidateKey(key); err != nil {
				result.Errors = append(result.Errors, ValidationError{
					Type:    "invalid",
					Context: context,
					Key:     key,
					Message: err.Error(),
				})
			}
		}
	}
}

// checkShadowing warns about screen bindings that hide a global binding
// the user customized. Default overlaps are intentional.
func (v *Validator) checkShadowing(registry *Registry, result *ValidationResult) {
	defaults := NewDefaultRegistry()
	globals := registry.bindings[ContextGlobal]

	for context, bindings := range registry.bindings {
		if context == ContextGlobal {
			continue
		}
		for key, action := range bindings {
			globalAction, ok := globals[key]
			if !ok || globalAction == action {
				continue
			}
			if defaults.bindings[context][key] == action && defaults.bindings[ContextGlobal][key] == globalAction {
				continue
			}
			result.Warnings = append(result.Warnings, ValidationError{
				Type:    "warning",
				Context: context,
				Key:     key,
				Message: fmt.Sprintf("shadows global binding (%s -> %s)", globalAction, action),
			})
		}
	}
}

func sortErrors(errs []ValidationError) {
	sort.Slice(errs, func(i, j int) bool {
		if errs[i].Context != errs[j].Context {
			return errs[i].Context < errs[j].Context
		}
		return errs[i].Key < errs[j].Key
	})
}

// ValidateKey checks if a key string is valid
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	for _, mod := range []string{"ctrl+", "alt+", "shift+", "super+"} {
		if key == mod {
			return fmt.Errorf("modifier without key: %s", key)
		}
	}
	return nil
}
