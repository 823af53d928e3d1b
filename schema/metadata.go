package schema

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Reflector produces a descriptor snapshot from a live engine catalog.
// The databases connectors implement it.
type Reflector interface {
	Reflect(ctx context.Context, table string) (*Table, error)
}

// Metadata is a process-wide registry of table descriptors keyed by table
// name. Registered descriptors stay whatever they were when added: the
// registry does not watch the database, so DDL performed outside of it
// (notably a rename) silently invalidates the stored entry until Refresh
// or Remove is called.
type Metadata struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

func NewMetadata() *Metadata {
	return &Metadata{tables: make(map[string]*Table)}
}

// Add registers a descriptor. Registering a second descriptor under the same
// name is an error: replacing an entry must go through Refresh or an explicit
// Remove so that stale snapshots are discarded deliberately.
func (m *Metadata) Add(t *Table) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("descriptor must have a table name")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[t.Name]; ok {
		return fmt.Errorf("table %s is already registered", t.Name)
	}
	m.tables[t.Name] = t
	return nil
}

// Table returns the registered descriptor for name.
func (m *Metadata) Table(name string) (*Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[name]
	return t, ok
}

// Remove discards the descriptor for name, if any.
func (m *Metadata) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, name)
}

// Names returns the registered table names, sorted.
func (m *Metadata) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Refresh replaces the registered descriptor for name with a fresh snapshot
// reflected from the live catalog and returns it. The previous entry, if
// any, is discarded even if it was never registered under that name before.
func (m *Metadata) Refresh(ctx context.Context, r Reflector, name string) (*Table, error) {
	t, err := r.Reflect(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to reflect table %s: %w", name, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = t
	return t, nil
}
