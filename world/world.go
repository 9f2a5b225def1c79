package world

import (
	"github.com/google/uuid"

	"github.com/gloudx/longtable/value"
)

// Snapshot is the immutable bundle a World wraps: entity store,
// component store, relationship store, a shared interner handle, the
// tick counter, the PRNG seed, and an optional pointer chaining back to
// the snapshot it was derived from. Grounded directly on the teacher's
// repository.Repository Commit/LoadHead head/prev chain, reshaped from
// CID-addressed commits to reference-counted in-memory sub-store
// bundles.
type Snapshot struct {
	Entities      *EntityStore
	Components    *ComponentStore
	Relationships *RelationshipStore
	Interner      *value.Interner
	Tick          uint64
	Seed          uint64
	Previous      *Snapshot
}

// World is a handle to the current snapshot plus the instance id the
// caller can use to correlate operations across a session in logs and
// error context. Every mutating method returns a new World; the
// receiver is left untouched, so callers holding an older World keep
// observing the state as of that snapshot.
type World struct {
	id       uuid.UUID
	snapshot *Snapshot
}

// NewWorld constructs an empty World with a fresh instance id and a
// zero-generation Snapshot whose Previous is nil, seeded with seed for
// any PRNG-backed operation (e.g. a future `random` builtin).
func NewWorld(seed uint64) *World {
	interner := value.NewInterner()
	return &World{
		id: uuid.New(),
		snapshot: &Snapshot{
			Entities:      NewEntityStore(),
			Components:    NewComponentStore(interner),
			Relationships: NewRelationshipStore(),
			Interner:      interner,
			Tick:          0,
			Seed:          seed,
			Previous:      nil,
		},
	}
}

// ID returns the world's instance identifier, stable across every
// snapshot produced from it.
func (w *World) ID() uuid.UUID { return w.id }

// Snapshot returns the World's current immutable snapshot.
func (w *World) Snapshot() *Snapshot { return w.snapshot }

// Interner returns the shared Interner handle. The interner is process
// local and grows monotonically; it is never cloned along with a
// snapshot, only referenced by it.
func (w *World) Interner() *value.Interner { return w.snapshot.Interner }

// derive builds the next World by cloning every sub-store, applying
// mutate to the clones, and chaining Previous back to the current
// snapshot. The entity store clones in O(1); the component and
// relationship stores copy all their maps, so each derive takes time
// proportional to the stored components and edges.
func (w *World) derive(mutate func(s *Snapshot)) *World {
	next := &Snapshot{
		Entities:      w.snapshot.Entities.Clone(),
		Components:    w.snapshot.Components.Clone(),
		Relationships: w.snapshot.Relationships.Clone(),
		Interner:      w.snapshot.Interner,
		Tick:          w.snapshot.Tick,
		Seed:          w.snapshot.Seed,
		Previous:      w.snapshot,
	}
	mutate(next)
	return &World{id: w.id, snapshot: next}
}

// AdvanceTick increments the tick counter and links history, returning
// the new World.
func (w *World) AdvanceTick() *World {
	return w.derive(func(s *Snapshot) {
		s.Tick++
	})
}

// Spawn allocates a new entity in a derived World.
func (w *World) Spawn() (*World, EntityID) {
	var id EntityID
	next := w.derive(func(s *Snapshot) {
		id = s.Entities.Spawn()
	})
	return next, id
}

// Destroy removes entity and cascades per every relationship's
// on-target-delete policy, destroying each cascade victim exactly once.
// Returns the derived World and the full list of entities actually
// destroyed (entity first, then victims in the order they were
// discovered).
func (w *World) Destroy(entity EntityID) (*World, []EntityID, error) {
	var destroyed []EntityID
	var outErr error

	next := w.derive(func(s *Snapshot) {
		processed := make(map[EntityID]bool)
		queue := []EntityID{entity}

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if processed[cur] {
				continue
			}
			if err := s.Entities.Validate(cur); err != nil {
				if cur == entity {
					outErr = err
					return
				}
				processed[cur] = true
				continue
			}
			processed[cur] = true

			victims := s.Relationships.OnEntityDestroyed(cur)
			if err := s.Entities.Destroy(cur); err != nil {
				outErr = err
				return
			}
			s.Components.RemoveEntity(cur)
			destroyed = append(destroyed, cur)

			for _, v := range victims {
				if !processed[v] {
					queue = append(queue, v)
				}
			}
		}
	})

	if outErr != nil {
		return w, nil, outErr
	}
	return next, destroyed, nil
}

// SetComponent sets component on entity in a derived World.
func (w *World) SetComponent(entity EntityID, component string, val value.Value) (*World, error) {
	var outErr error
	next := w.derive(func(s *Snapshot) {
		outErr = s.Components.Set(entity, component, val)
	})
	if outErr != nil {
		return w, outErr
	}
	return next, nil
}

// SetField updates one field of component on entity in a derived World.
func (w *World) SetField(entity EntityID, component, field string, val value.Value) (*World, error) {
	var outErr error
	next := w.derive(func(s *Snapshot) {
		outErr = s.Components.SetField(entity, component, field, val)
	})
	if outErr != nil {
		return w, outErr
	}
	return next, nil
}

// Link establishes (source, rel, target) in a derived World.
func (w *World) Link(source EntityID, rel string, target EntityID, attrs value.Value) (*World, error) {
	var outErr error
	next := w.derive(func(s *Snapshot) {
		outErr = s.Relationships.Link(source, rel, target, attrs)
	})
	if outErr != nil {
		return w, outErr
	}
	return next, nil
}

// Unlink removes (source, rel, target) in a derived World.
func (w *World) Unlink(source EntityID, rel string, target EntityID) (*World, error) {
	var outErr error
	next := w.derive(func(s *Snapshot) {
		outErr = s.Relationships.Unlink(source, rel, target)
	})
	if outErr != nil {
		return w, outErr
	}
	return next, nil
}

// GetComponent, GetField, Has, Exists, Targets, Sources, and the
// archetype queries are reads: they consult the current snapshot
// through shared references and never clone.

func (w *World) GetComponent(entity EntityID, component string) (value.Value, bool) {
	return w.snapshot.Components.Get(entity, component)
}

func (w *World) GetField(entity EntityID, component, field string) (value.Value, error) {
	return w.snapshot.Components.GetField(entity, component, field)
}

func (w *World) HasComponent(entity EntityID, component string) bool {
	return w.snapshot.Components.Has(entity, component)
}

func (w *World) Exists(entity EntityID) bool {
	return w.snapshot.Entities.Exists(entity)
}

// Validate distinguishes EntityNotFound (index never allocated, or
// freed and not reused) from StaleEntity (index reused, generation has
// moved on) for callers that need to report which one occurred rather
// than a bare bool.
func (w *World) Validate(entity EntityID) error {
	return w.snapshot.Entities.Validate(entity)
}

func (w *World) WithComponent(component string) []EntityID {
	return w.snapshot.Components.WithComponent(component)
}

func (w *World) WithArchetype(required []string) []EntityID {
	return w.snapshot.Components.WithArchetype(required)
}

func (w *World) Targets(source EntityID, rel string) []EntityID {
	return w.snapshot.Relationships.Targets(source, rel)
}

func (w *World) Sources(target EntityID, rel string) []EntityID {
	return w.snapshot.Relationships.Sources(target, rel)
}

func (w *World) FindRelationships(entity EntityID) []string {
	return w.snapshot.Relationships.FindRelationships(entity)
}

// RegisterComponent registers a component schema against the current
// snapshot's ComponentStore. Schema registration is treated as a
// structural change to the world definition rather than a per-tick
// mutation, so (unlike Spawn/SetComponent/Link) it mutates the current
// snapshot in place instead of deriving a new one — mirroring how the
// teacher's LexiconRegistry registers schemas once, up front, against a
// single long-lived registry rather than versioning the registry itself.
func (w *World) RegisterComponent(schema *ComponentSchema) error {
	return w.snapshot.Components.Register(schema)
}

// RegisterRelationship registers a relationship schema against the
// current snapshot's RelationshipStore, same rationale as
// RegisterComponent.
func (w *World) RegisterRelationship(schema *RelationshipSchema) error {
	return w.snapshot.Relationships.Register(schema)
}
