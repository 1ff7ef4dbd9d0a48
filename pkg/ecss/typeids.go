package ecss

import "reflect"

// typeIDs assigns each component type a dense ComponentTypeID the first
// time it's mentioned to a registry, in reference order. Grounded on spec
// §4.6's "type id assignment" operation and the source's one-shot
// initializer per (registry flavor, type); a registry field takes the
// place of the source's process-global table, since Go generics give each
// Registry value its own independent map rather than a shared static per
// instantiation -- see the registry entry in DESIGN.md's ledger.
type typeIDs struct {
	ids map[reflect.Type]ComponentTypeID
}

func (t *typeIDs) assign(typ reflect.Type) ComponentTypeID {
	if t.ids == nil {
		t.ids = make(map[reflect.Type]ComponentTypeID)
	}
	if id, ok := t.ids[typ]; ok {
		return id
	}
	id := ComponentTypeID(len(t.ids))
	t.ids[typ] = id
	return id
}

// TypeID returns T's ComponentTypeID within r, assigning one on first
// mention.
func TypeID[T any](r *Registry) ComponentTypeID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.types.assign(reflect.TypeFor[T]())
}
