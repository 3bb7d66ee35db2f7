package nodectl

import "sync"

// registry is the concurrent map from tablespace name to its live manager
// (C5). Structure and collaborator startup/shutdown share one general lock,
// held by the Manager (see manager.go's generalLock), so that a manager
// only becomes reachable through the registry strictly after its Start call
// returns successfully.
//
// lookup/snapshot/names are called under the shared (read) side of the
// general lock; insert/remove require the exclusive (write) side. insert
// additionally takes its own mutex because a single reconciliation pass
// boots several tablespaces concurrently (bounded fan-out), all while the
// Activator holds the one exclusive general lock — the inner mutex
// serializes those sibling writers against each other, not against readers.
type registry struct {
	mu       sync.Mutex
	managers map[TableSpaceName]TableSpaceManager
}

func newRegistry() *registry {
	return &registry{
		managers: make(map[TableSpaceName]TableSpaceManager),
	}
}

// lookup returns the manager for name, if present. Caller must hold at
// least the shared general lock.
func (r *registry) lookup(name TableSpaceName) (TableSpaceManager, bool) {
	m, ok := r.managers[name]
	return m, ok
}

// insert adds manager under name. Caller must hold the exclusive general
// lock and must only call this after manager.Start has completed
// successfully, per the registry invariant.
func (r *registry) insert(name TableSpaceName, manager TableSpaceManager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.managers[name] = manager
}

// remove deletes the manager for name, if present. Caller must hold the
// exclusive general lock.
func (r *registry) remove(name TableSpaceName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.managers, name)
}

// snapshot copies the registry's current values into a slice. Caller must
// hold at least the shared general lock; the returned slice needs no
// further locking to iterate.
func (r *registry) snapshot() []TableSpaceManager {
	out := make([]TableSpaceManager, 0, len(r.managers))
	for _, m := range r.managers {
		out = append(out, m)
	}
	return out
}

// names returns the set of tablespace names currently present. Caller must
// hold at least the shared general lock.
func (r *registry) names() map[TableSpaceName]struct{} {
	out := make(map[TableSpaceName]struct{}, len(r.managers))
	for name := range r.managers {
		out[name] = struct{}{}
	}
	return out
}
