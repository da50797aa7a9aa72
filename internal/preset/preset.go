// Package preset implements the named filter presets referenced by
// spec.md §4.8's HandlerContext ("the preset manager"): save the shell's
// current filter expression under a name and recall it later.
package preset

import (
	"fmt"
	"sort"
	"sync"
)

// Manager stores named filter expression strings. It does not parse or
// validate them — that is the filter package's job when a saved preset is
// applied back through Filter.Where.
type Manager struct {
	mu    sync.RWMutex
	exprs map[string]string
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{exprs: make(map[string]string)}
}

// Save records expr under name, overwriting any existing preset of the
// same name.
func (m *Manager) Save(name, expr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exprs[name] = expr
}

// Load returns the expression saved under name.
func (m *Manager) Load(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	expr, ok := m.exprs[name]
	if !ok {
		return "", fmt.Errorf("preset %q not found", name)
	}
	return expr, nil
}

// Delete removes a preset. It is a no-op if name is unknown.
func (m *Manager) Delete(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.exprs, name)
}

// List returns preset names in sorted order.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.exprs))
	for n := range m.exprs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
