package daemon

import (
	"encoding/json"
	"sync"

	"github.com/cuemby/harness/pkg/herrors"
)

// ActionInfo describes one host-registered action for ListActions.
type ActionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ActionFunc implements one host-registered action. It receives the raw
// JSON params from an InvokeAction request and returns a raw JSON result.
type ActionFunc func(params json.RawMessage) (json.RawMessage, error)

// ActionRegistry is the map name -> (ActionInfo, ActionFunc) spec §4.J
// describes: it lets the host application extend the daemon with domain
// operations beyond the built-in service calls. Action names are unique;
// invoking an unregistered name is an error.
type ActionRegistry struct {
	mu      sync.RWMutex
	infos   map[string]ActionInfo
	actions map[string]ActionFunc
}

// NewActionRegistry returns an empty ActionRegistry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{
		infos:   make(map[string]ActionInfo),
		actions: make(map[string]ActionFunc),
	}
}

// Register adds a new action. It is an error to register a name twice.
func (r *ActionRegistry) Register(info ActionInfo, fn ActionFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[info.Name]; exists {
		return herrors.New(herrors.Config, "action already registered: "+info.Name)
	}
	r.infos[info.Name] = info
	r.actions[info.Name] = fn
	return nil
}

// Invoke calls name with params, returning herrors.Unsupported if name is
// not registered (the daemon surfaces this as Error{not_found} per spec).
func (r *ActionRegistry) Invoke(name string, params json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	fn, ok := r.actions[name]
	r.mu.RUnlock()
	if !ok {
		return nil, herrors.New(herrors.Unsupported, "not_found: unknown action "+name)
	}
	return fn(params)
}

// List returns every registered action's info, for ListActions.
func (r *ActionRegistry) List() []ActionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ActionInfo, 0, len(r.infos))
	for _, info := range r.infos {
		out = append(out, info)
	}
	return out
}
