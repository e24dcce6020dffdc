package payee

import (
	"context"
	"sort"
	"sync"
)

type memoryDirectory struct {
	mu      sync.RWMutex
	storage map[string]Payee
}

// NewMemoryDirectory constructs an in-memory directory for tests, seeded
// with the provided payees.
func NewMemoryDirectory(payees ...Payee) Directory {
	dir := &memoryDirectory{storage: make(map[string]Payee)}
	for _, p := range payees {
		dir.storage[p.ID] = p
	}
	return dir
}

func (d *memoryDirectory) Get(_ context.Context, id string) (Payee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.storage[id]
	if !ok {
		return Payee{}, ErrNotFound
	}
	return p, nil
}

func (d *memoryDirectory) ListActive(_ context.Context) ([]Payee, error) {
	return d.filter(func(p Payee) bool { return p.Status == StatusActive }), nil
}

func (d *memoryDirectory) ListByCategory(_ context.Context, category string) ([]Payee, error) {
	return d.filter(func(p Payee) bool {
		return p.Status == StatusActive && p.Category == category
	}), nil
}

func (d *memoryDirectory) filter(keep func(Payee) bool) []Payee {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var payees []Payee
	for _, p := range d.storage {
		if keep(p) {
			payees = append(payees, p)
		}
	}
	sort.Slice(payees, func(i, j int) bool { return payees[i].Name < payees[j].Name })
	return payees
}
