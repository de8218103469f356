// Package diag exposes the running kernel's address spaces over HTTP for
// inspection: page-table dumps and per-process fault/write counters, per
// spec.md §4's diagnostics surface.
//
// Grounded on the teacher's utils/http_server.go and utils/http_client.go
// (a per-module net/http.ServeMux with a health endpoint and a small
// typed-message dispatch table), generalized from a cross-module RPC
// transport into a read-only diagnostics endpoint.
package diag

import (
	"sync"

	"github.com/utnfrba-so/go-nachos-vm/internal/vm"
)

// Registry tracks the address spaces currently live in the kernel, keyed
// by space id, so the diagnostics server can look one up by id without
// the vm package needing to know diag exists.
type Registry struct {
	mu     sync.RWMutex
	spaces map[int]*vm.AddressSpace
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{spaces: make(map[int]*vm.AddressSpace)}
}

// Register adds as under its own space id. Callers typically do this
// right after a successful vm.NewAddressSpace.
func (r *Registry) Register(as *vm.AddressSpace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spaces[as.SpaceID()] = as
}

// Unregister removes the address space with the given id, typically
// right before calling its Destroy.
func (r *Registry) Unregister(spaceID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.spaces, spaceID)
}

// Get returns the address space registered under spaceID, if any.
func (r *Registry) Get(spaceID int) (*vm.AddressSpace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	as, ok := r.spaces[spaceID]
	return as, ok
}

// IDs returns the space ids currently registered, in no particular order.
func (r *Registry) IDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, 0, len(r.spaces))
	for id := range r.spaces {
		ids = append(ids, id)
	}
	return ids
}
