package ecss

// EntityHandle is a convenience wrapper pairing an entity id with the
// registry that owns it, letting call sites chain component operations
// without re-threading the registry through every call.
//
// Supplemented from original_source/EntityHandle.h: the source offers this
// as sugar over the registry's per-id operations; it carries no state the
// registry doesn't already expose, so Destroy/Exists here simply forward.
type EntityHandle struct {
	id  EntityID
	reg *Registry
}

// NewEntityHandle allocates a fresh entity id from reg and wraps it.
func NewEntityHandle(reg *Registry) EntityHandle {
	return EntityHandle{id: reg.TakeEntity(), reg: reg}
}

// WrapEntity wraps an already-allocated id without taking a new one.
func WrapEntity(reg *Registry, id EntityID) EntityHandle {
	return EntityHandle{id: id, reg: reg}
}

// ID returns the wrapped entity id.
func (h EntityHandle) ID() EntityID { return h.id }

// Exists reports whether the wrapped id is still live in the registry.
func (h EntityHandle) Exists() bool { return h.reg.Contains(h.id) }

// Destroy removes the wrapped entity from every registered array.
func (h EntityHandle) Destroy() { h.reg.DestroyEntity(h.id) }

// Set1 sets T0 on the handle's entity via arr, returning the new value's
// pointer.
func Set1[T0 any](h EntityHandle, arr *Array1[T0], value T0) *T0 {
	return arr.Insert(h.id, value)
}

// Get1 fetches T0 for the handle's entity via arr, or nil if absent.
func Get1[T0 any](h EntityHandle, arr *Array1[T0]) *T0 {
	return arr.Get(h.id)
}
