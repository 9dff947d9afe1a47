package keybinds

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Config is the user's keybinds.json: context name to key to action.
// An empty action unbinds the key.
//
//	{
//	  // vim users
//	  "data": { "ctrl+n": "next_page" },
//	  "global": { "y": "" }
//	}
type Config map[Context]map[string]Action

// LoadConfig reads a keybinds file. Comments and trailing commas are
// allowed.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(jsonc.ToJSON(data), &config); err != nil {
		return nil, fmt.Errorf("invalid keybinds.json format: %w", err)
	}
	return config, nil
}

// ApplyConfig applies user configuration to a registry. Unknown contexts
// and actions are rejected so a typo does not silently drop a binding.
func ApplyConfig(registry *Registry, config Config) error {
	known := make(map[Context]bool)
	for _, c := range Contexts() {
		known[c] = true
	}

	for context, bindings := range config {
		if !known[context] {
			return fmt.Errorf("unknown context %q", context)
		}
		for key, action := range bindings {
			if key == "" {
				return fmt.Errorf("%s: empty key", context)
			}
			if action == "" {
				registry.Unregister(context, key)
				continue
			}
			if !action.Known() {
				return fmt.Errorf("%s: key %q: unknown action %q", context, key, action)
			}
			registry.Register(context, key, action)
		}
	}
	return nil
}

// LoadOrDefault returns the default registry with the user file at path
// applied over it, when the file exists.
func LoadOrDefault(path string) (*Registry, error) {
	registry := NewDefaultRegistry()

	if _, err := os.Stat(path); err != nil {
		return registry, nil
	}
	config, err := LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keybinds.json: %w", err)
	}
	if err := ApplyConfig(registry, config); err != nil {
		return nil, fmt.Errorf("failed to apply keybinds config: %w", err)
	}

	result := NewValidator().ValidateRegistry(registry)
	if result.HasErrors() {
		return nil, fmt.Errorf("invalid keybindings:\n%s", result)
	}
	return registry, nil
}
