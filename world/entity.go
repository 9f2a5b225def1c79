// Package world implements the in-memory, snapshot-oriented store of
// entities, typed components, and bidirectional relationships. Every
// mutating operation on a World returns a new, immutable World whose
// previous snapshot remains live as long as any handle references it —
// grounded on the teacher's (gloudx-ues) repository.Repository head/prev
// commit chain, reshaped from content-addressed commits to reference-
// counted in-memory sub-store bundles.
package world

import (
	"fmt"

	"github.com/gloudx/longtable/langerr"
)

// EntityID is the value-level handle to an entity: a dense slot index
// plus the generation the holder observed it at. An id is live iff its
// generation matches the store's current generation for that index and
// that generation is odd (destroyed slots carry an even generation).
type EntityID struct {
	Index      uint64
	Generation uint32
}

func (e EntityID) String() string {
	return fmt.Sprintf("#entity[%d:%d]", e.Index, e.Generation)
}

// EntityStore is a persistent value: Clone is O(1) (it only copies the
// two backing slices' headers, sharing their backing arrays). Spawn and
// Destroy never write into a shared array: each copies the slices it
// changes in full before writing.
type EntityStore struct {
	generations []uint32 // generation[i]; odd = alive, even = free
	freeList    []uint64 // indices available for reuse, most-recently-freed last
}

func NewEntityStore() *EntityStore {
	return &EntityStore{}
}

// Clone returns a shallow copy sharing the backing slices; callers must
// treat the slices as immutable until Spawn/Destroy perform their own
// copy-on-write.
func (s *EntityStore) Clone() *EntityStore {
	return &EntityStore{
		generations: s.generations,
		freeList:    s.freeList,
	}
}

// Spawn allocates a new EntityID, preferring to reuse a freed slot over
// extending the generation vector.
func (s *EntityStore) Spawn() EntityID {
	if len(s.freeList) > 0 {
		idx := s.freeList[len(s.freeList)-1]
		s.freeList = append([]uint64{}, s.freeList[:len(s.freeList)-1]...)
		gens := append([]uint32{}, s.generations...)
		gens[idx]++ // even -> next odd
		s.generations = gens
		return EntityID{Index: idx, Generation: gens[idx]}
	}

	idx := uint64(len(s.generations))
	gens := append([]uint32{}, s.generations...)
	gens = append(gens, 1)
	s.generations = gens
	return EntityID{Index: idx, Generation: 1}
}

// Destroy bumps the slot's generation from odd to even (freed) and adds
// it to the free list. Returns EntityNotFound if the index was never
// allocated or its slot is currently free, or StaleEntity if the slot
// is live under a different generation.
func (s *EntityStore) Destroy(id EntityID) error {
	if err := s.Validate(id); err != nil {
		return err
	}
	gens := append([]uint32{}, s.generations...)
	gens[id.Index]++ // odd -> even
	s.generations = gens
	s.freeList = append(append([]uint64{}, s.freeList...), id.Index)
	return nil
}

// Exists reports whether id refers to a currently-live slot.
func (s *EntityStore) Exists(id EntityID) bool {
	return s.Validate(id) == nil
}

// Validate distinguishes "never existed / already freed" (EntityNotFound)
// from "stale reference, slot reused" (StaleEntity).
func (s *EntityStore) Validate(id EntityID) error {
	if id.Index >= uint64(len(s.generations)) {
		return langerr.EntityNotFound(id)
	}
	current := s.generations[id.Index]
	if current%2 == 0 {
		return langerr.EntityNotFound(id)
	}
	if current != id.Generation {
		return langerr.StaleEntity(id)
	}
	return nil
}

// Iter returns every currently-live entity id, in index order.
func (s *EntityStore) Iter() []EntityID {
	out := make([]EntityID, 0, len(s.generations))
	for i, gen := range s.generations {
		if gen%2 == 1 {
			out = append(out, EntityID{Index: uint64(i), Generation: gen})
		}
	}
	return out
}
