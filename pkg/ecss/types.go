// Package ecss implements a sector-based entity-component-system storage
// engine: a sparse-dense store (SectorsArray) that co-locates one or more
// component values per entity in a single record, pin counters that block
// structural mutation of a record while readers observe it, a view/iterator
// layer for projected iteration, and a registry that ties component arrays
// and entity id allocation together.
package ecss

import "math"

// EntityID identifies an entity (and, interchangeably, the sector record
// that holds its components). Ids are dense and reused after destruction.
type EntityID uint32

// InvalidEntityID is the reserved sentinel meaning "no entity".
const InvalidEntityID EntityID = math.MaxUint32

// ComponentTypeID is a process-local small integer assigned the first time
// a component type is mentioned to a Registry. It is stable for the life of
// the process but carries no meaning across processes.
type ComponentTypeID uint16

// MaxComponentsPerSector bounds how many component types may be co-located
// in a single sector: aliveBits is a 32-bit mask, one bit per component.
const MaxComponentsPerSector = 32
