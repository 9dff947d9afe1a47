package keybinds

import (
	"fmt"
	"sort"
	"strings"
)

// Binding represents a keybinding mapping
type Binding struct {
	Key     string
	Action  Action
	Context Context
}

// Registry maps keys to actions per context.
type Registry struct {
	bindings map[Context]map[string]Action

	// pending holds the first key of a multi-key sequence such as "gg".
	pending string
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[Context]map[string]Action)}
}

// Register adds a keybinding to the registry
func (r *Registry) Register(context Context, key string, action Action) {
	if r.bindings[context] == nil {
		r.bindings[context] = make(map[string]Action)
	}
	r.bindings[context][key] = action
}

func (r *Registry) RegisterMultiple(context Context, keys []string, action Action) {
	for _, key := range keys {
		r.Register(context, key, action)
	}
}

// Unregister removes key from context.
func (r *Registry) Unregister(context Context, key string) {
	delete(r.bindings[context], key)
}

// Match looks key up in contexts in order, then in the global context.
func (r *Registry) Match(key string, contexts ...Context) (Action, bool) {
	for _, c := range append(contexts, ContextGlobal) {
		if action, ok := r.bindings[c][key]; ok {
			return action, true
		}
	}
	return "", false
}

// Lookup checks context alone, without the global fallback. Modals use it
// so typed characters are not taken as screen shortcuts.
func (r *Registry) Lookup(context Context, key string) (Action, bool) {
	action, ok := r.bindings[context][key]
	return action, ok
}

// MatchSequence is Match with support for two-key sequences. A key that
// only starts a sequence reports partial and no action.
func (r *Registry) MatchSequence(key string, contexts ...Context) (action Action, ok, partial bool) {
	if r.pending != "" {
		seq := r.pending + key
		r.pending = ""
		if action, ok := r.Match(seq, contexts...); ok {
			return action, true, false
		}
	}

	action, ok = r.Match(key, contexts...)
	if ok && action == ActionTopPrepare {
		r.pending = key
		return "", false, true
	}
	return action, ok, false
}

// Reset drops a pending sequence.
func (r *Registry) Reset() {
	r.pending = ""
}

// Keys returns the keys bound to action in context, sorted.
func (r *Registry) Keys(context Context, action Action) []string {
	var keys []string
	for key, act := range r.bindings[context] {
		if act == action {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// KeyString is a human-readable list of the keys for action, falling back
// to the global context.
func (r *Registry) KeyString(context Context, action Action) string {
	keys := r.Keys(context, action)
	if len(keys) == 0 && context != ContextGlobal {
		keys = r.Keys(ContextGlobal, action)
	}
	if len(keys) == 0 {
		return "unbound"
	}
	return strings.Join(keys, "/")
}

// ListBindings returns the bindings of context sorted by key.
func (r *Registry) ListBindings(context Context) []Binding {
	var out []Binding
	for key, action := range r.bindings[context] {
		if action == ActionTopPrepare {
			continue
		}
		out = append(out, Binding{Key: key, Action: action, Context: context})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// HasBinding checks if a key is bound in a context
func (r *Registry) HasBinding(context Context, key string) bool {
	_, ok := r.bindings[context][key]
	return ok
}

func (r *Registry) String() string {
	var sb strings.Builder
	for _, c := range Contexts() {
		for _, b := range r.ListBindings(c) {
			fmt.Fprintf(&sb, "%s\t%s\t%s\n", c, b.Key, b.Action)
		}
	}
	return sb.String()
}
