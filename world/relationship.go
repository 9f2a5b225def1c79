package world

import (
	"github.com/gloudx/longtable/langerr"
	"github.com/gloudx/longtable/value"
)

// Edge is one (source, relationship, target) tuple, with optional
// attribute payload for relationships that carry edge data.
type Edge struct {
	Source EntityID
	Target EntityID
	Attrs  value.Value
}

// RelationshipStore maintains registered relationship schemas and a pair
// of indices — forward source->rel->targets and reverse
// target->rel->sources — grounded on the teacher's mstindex.Index dual
// forward/reverse wrapping idea, generalized from collection+rkey
// indexing to relationship-name indexing.
type RelationshipStore struct {
	schemas map[string]*RelationshipSchema
	forward map[string]map[EntityID]map[EntityID]value.Value
	reverse map[string]map[EntityID]map[EntityID]value.Value
}

func NewRelationshipStore() *RelationshipStore {
	return &RelationshipStore{
		schemas: make(map[string]*RelationshipSchema),
		forward: make(map[string]map[EntityID]map[EntityID]value.Value),
		reverse: make(map[string]map[EntityID]map[EntityID]value.Value),
	}
}

// Clone copies the outer maps and every inner per-entity edge map, so
// Link/Unlink on one snapshot never reach another.
func (r *RelationshipStore) Clone() *RelationshipStore {
	schemas := make(map[string]*RelationshipSchema, len(r.schemas))
	for k, v := range r.schemas {
		schemas[k] = v
	}
	forward := cloneIndex(r.forward)
	reverse := cloneIndex(r.reverse)
	return &RelationshipStore{schemas: schemas, forward: forward, reverse: reverse}
}

func cloneIndex(idx map[string]map[EntityID]map[EntityID]value.Value) map[string]map[EntityID]map[EntityID]value.Value {
	out := make(map[string]map[EntityID]map[EntityID]value.Value, len(idx))
	for rel, byEntity := range idx {
		inner := make(map[EntityID]map[EntityID]value.Value, len(byEntity))
		for e, edges := range byEntity {
			edgeCopy := make(map[EntityID]value.Value, len(edges))
			for t, attrs := range edges {
				edgeCopy[t] = attrs
			}
			inner[e] = edgeCopy
		}
		out[rel] = inner
	}
	return out
}

// Register adds a new relationship schema. Re-registering an existing
// name is an error.
func (r *RelationshipStore) Register(schema *RelationshipSchema) error {
	if _, exists := r.schemas[schema.Name]; exists {
		return langerr.AlreadyRegistered("relationship", schema.Name)
	}
	r.schemas[schema.Name] = schema
	r.forward[schema.Name] = make(map[EntityID]map[EntityID]value.Value)
	r.reverse[schema.Name] = make(map[EntityID]map[EntityID]value.Value)
	return nil
}

func (r *RelationshipStore) Schema(name string) (*RelationshipSchema, bool) {
	s, ok := r.schemas[name]
	return s, ok
}

// Link inserts the (source, rel, target) edge. Re-linking an existing
// edge is a no-op (idempotent). A cardinality violation either errors
// or replaces the conflicting edge(s), per the schema's OnViolation
// policy.
func (r *RelationshipStore) Link(source EntityID, rel string, target EntityID, attrs value.Value) error {
	schema, ok := r.schemas[rel]
	if !ok {
		return langerr.RelationshipViolation("unregistered relationship: " + rel)
	}

	if existing, ok := r.forward[rel][source]; ok {
		if _, ok := existing[target]; ok {
			return nil // already linked, idempotent
		}
	}

	if err := r.enforceCardinality(schema, source, target); err != nil {
		return err
	}

	r.insertEdge(rel, source, target, attrs)
	return nil
}

// enforceCardinality checks whether adding (source, target) would
// violate schema's cardinality; on ViolationReplace it removes the
// conflicting edge(s) in place, on ViolationError it returns a
// RelationshipViolation without mutating anything.
func (r *RelationshipStore) enforceCardinality(schema *RelationshipSchema, source, target EntityID) error {
	var conflictingSources []EntityID
	var conflictingTargets []EntityID

	switch schema.Cardinality {
	case OneToOne:
		for t := range r.forward[schema.Name][source] {
			conflictingTargets = append(conflictingTargets, t)
		}
		for s := range r.reverse[schema.Name][target] {
			conflictingSources = append(conflictingSources, s)
		}
	case OneToMany:
		// many targets per source, but each target has at most one source
		for s := range r.reverse[schema.Name][target] {
			conflictingSources = append(conflictingSources, s)
		}
	case ManyToOne:
		// many sources per target, but each source has at most one target
		for t := range r.forward[schema.Name][source] {
			conflictingTargets = append(conflictingTargets, t)
		}
	case ManyToMany:
		return nil
	}

	if len(conflictingSources) == 0 && len(conflictingTargets) == 0 {
		return nil
	}
	if schema.OnViolation == ViolationError {
		return langerr.RelationshipViolation("cardinality violated for relationship: " + schema.Name)
	}

	for _, s := range conflictingSources {
		r.removeEdge(schema.Name, s, target)
	}
	for _, t := range conflictingTargets {
		r.removeEdge(schema.Name, source, t)
	}
	return nil
}

func (r *RelationshipStore) insertEdge(rel string, source, target EntityID, attrs value.Value) {
	if r.forward[rel][source] == nil {
		r.forward[rel][source] = make(map[EntityID]value.Value)
	}
	r.forward[rel][source][target] = attrs

	if r.reverse[rel][target] == nil {
		r.reverse[rel][target] = make(map[EntityID]value.Value)
	}
	r.reverse[rel][target][source] = attrs
}

func (r *RelationshipStore) removeEdge(rel string, source, target EntityID) {
	if edges, ok := r.forward[rel][source]; ok {
		delete(edges, target)
	}
	if edges, ok := r.reverse[rel][target]; ok {
		delete(edges, source)
	}
}

// Unlink removes the (source, rel, target) edge if present; a no-op
// when the edge does not exist (idempotent).
func (r *RelationshipStore) Unlink(source EntityID, rel string, target EntityID) error {
	if _, ok := r.schemas[rel]; !ok {
		return langerr.RelationshipViolation("unregistered relationship: " + rel)
	}
	r.removeEdge(rel, source, target)
	return nil
}

// Targets returns every target t such that (source, rel, t) exists.
func (r *RelationshipStore) Targets(source EntityID, rel string) []EntityID {
	edges, ok := r.forward[rel][source]
	if !ok {
		return nil
	}
	out := make([]EntityID, 0, len(edges))
	for t := range edges {
		out = append(out, t)
	}
	return out
}

// Sources returns every source s such that (s, rel, target) exists.
func (r *RelationshipStore) Sources(target EntityID, rel string) []EntityID {
	edges, ok := r.reverse[rel][target]
	if !ok {
		return nil
	}
	out := make([]EntityID, 0, len(edges))
	for s := range edges {
		out = append(out, s)
	}
	return out
}

// Has reports whether the (source, rel, target) edge exists.
func (r *RelationshipStore) Has(source EntityID, rel string, target EntityID) bool {
	edges, ok := r.forward[rel][source]
	if !ok {
		return false
	}
	_, ok = edges[target]
	return ok
}

// FindRelationships returns the names of every registered relationship
// in which entity participates as either source or target.
func (r *RelationshipStore) FindRelationships(entity EntityID) []string {
	seen := make(map[string]bool)
	for rel, byEntity := range r.forward {
		if edges, ok := byEntity[entity]; ok && len(edges) > 0 {
			seen[rel] = true
		}
	}
	for rel, byEntity := range r.reverse {
		if edges, ok := byEntity[entity]; ok && len(edges) > 0 {
			seen[rel] = true
		}
	}
	out := make([]string, 0, len(seen))
	for rel := range seen {
		out = append(out, rel)
	}
	return out
}

// OnEntityDestroyed processes every index entry touching e: reverse
// edges (s, r, e) are dropped (Remove/Nullify) or additionally mark s
// as a cascade victim (Cascade); all forward edges (e, r, t) and their
// reverse twins are dropped outright. It returns the list of cascade
// victims for the caller to destroy transitively, deduplicated so each
// entity appears at most once regardless of how many relationships
// implicated it.
func (r *RelationshipStore) OnEntityDestroyed(e EntityID) []EntityID {
	victimSet := make(map[EntityID]bool)

	for relName, byTarget := range r.reverse {
		schema := r.schemas[relName]
		sources, ok := byTarget[e]
		if !ok {
			continue
		}
		for s := range sources {
			r.removeEdge(relName, s, e)
			if schema != nil && schema.OnTargetDelete == DeleteCascade {
				victimSet[s] = true
			}
		}
	}

	for relName, byEntity := range r.forward {
		targets, ok := byEntity[e]
		if !ok {
			continue
		}
		for t := range targets {
			r.removeEdge(relName, e, t)
		}
	}

	victims := make([]EntityID, 0, len(victimSet))
	for v := range victimSet {
		victims = append(victims, v)
	}
	return victims
}
