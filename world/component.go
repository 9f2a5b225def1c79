package world

import (
	"sort"
	"strings"

	"github.com/gloudx/longtable/langerr"
	"github.com/gloudx/longtable/value"
)

// ComponentStore holds registered component schemas, per-component
// entity->value maps, and a per-entity archetype (sorted component-name
// set) index. Grounded on the teacher's lexicon.LexiconRegistry
// registration-with-rejection pattern (a name is registered exactly
// once; re-registration is an error) repurposed from IPLD schemas to
// component field schemas.
type ComponentStore struct {
	interner *value.Interner
	schemas  map[string]*ComponentSchema
	// data[component][entity] = value (a Map for record components, a
	// Bool or Map for tag components per spec.md §4.2.2).
	data map[string]map[EntityID]value.Value
	// archetype[entity] is the sorted list of component names currently
	// present on that entity.
	archetype map[EntityID][]string
}

// NewComponentStore takes the world's shared Interner so that field
// keywords it constructs internally (for defaults and SetField) carry
// the same id space every other Keyword value in the system uses —
// Keyword equality is by interned id, so a keyword minted outside the
// shared interner would silently fail to match.
func NewComponentStore(interner *value.Interner) *ComponentStore {
	return &ComponentStore{
		interner:  interner,
		schemas:   make(map[string]*ComponentSchema),
		data:      make(map[string]map[EntityID]value.Value),
		archetype: make(map[EntityID][]string),
	}
}

// Clone copies the outer maps and every inner per-entity map (so a
// write to one snapshot never appears in another); only the archetype
// slices are shared.
func (c *ComponentStore) Clone() *ComponentStore {
	schemas := make(map[string]*ComponentSchema, len(c.schemas))
	for k, v := range c.schemas {
		schemas[k] = v
	}
	data := make(map[string]map[EntityID]value.Value, len(c.data))
	for comp, m := range c.data {
		inner := make(map[EntityID]value.Value, len(m))
		for e, v := range m {
			inner[e] = v
		}
		data[comp] = inner
	}
	archetype := make(map[EntityID][]string, len(c.archetype))
	for e, names := range c.archetype {
		archetype[e] = names // slices are append-then-replace, safe to share until rewritten
	}
	return &ComponentStore{interner: c.interner, schemas: schemas, data: data, archetype: archetype}
}

// Register adds a new component schema. Re-registering an existing name
// is an error.
func (c *ComponentStore) Register(schema *ComponentSchema) error {
	if _, exists := c.schemas[schema.Name]; exists {
		return langerr.AlreadyRegistered("component", schema.Name)
	}
	c.schemas[schema.Name] = schema
	c.data[schema.Name] = make(map[EntityID]value.Value)
	return nil
}

func (c *ComponentStore) Schema(name string) (*ComponentSchema, bool) {
	s, ok := c.schemas[name]
	return s, ok
}

// Set validates val against the component's schema and stores it,
// updating the entity's archetype. For non-tag components val must be a
// Map containing every required field; for tag components val must be a
// Bool or a Map.
func (c *ComponentStore) Set(entity EntityID, component string, val value.Value) error {
	schema, ok := c.schemas[component]
	if !ok {
		return langerr.ComponentNotFound(component)
	}
	if err := c.validateComponentValue(schema, val); err != nil {
		return err
	}

	withDefaults := c.applyDefaults(schema, val)

	c.data[component][entity] = withDefaults
	c.addToArchetype(entity, component)
	return nil
}

func (c *ComponentStore) validateComponentValue(schema *ComponentSchema, val value.Value) error {
	if schema.IsTag {
		if val.Kind() != value.KindBool && val.Kind() != value.KindMap {
			return langerr.TypeMismatch("bool or map", val.TypeName())
		}
		return nil
	}
	if val.Kind() != value.KindMap {
		return langerr.TypeMismatch("map", val.TypeName())
	}
	m := val.AsMap()
	for _, f := range schema.Fields {
		if !f.Required {
			continue
		}
		if _, ok := m.Get(c.interner.Kw(f.Name)); ok {
			continue
		}
		if _, ok := lookupByFieldName(m, f.Name); !ok {
			return langerr.AttributeNotFound(schema.Name, f.Name)
		}
	}
	return nil
}

// lookupByFieldName finds a map entry keyed by a keyword whose name
// (not id) matches field, since keyword values constructed outside the
// compiler's interner may carry a different id for the same text.
func lookupByFieldName(m *value.Map, field string) (value.Value, bool) {
	var found value.Value
	var ok bool
	m.ForEach(func(k, v value.Value) bool {
		if k.Kind() == value.KindKeyword && k.SymbolName() == field {
			found, ok = v, true
			return false
		}
		return true
	})
	return found, ok
}

func (c *ComponentStore) applyDefaults(schema *ComponentSchema, val value.Value) value.Value {
	if schema.IsTag || val.Kind() != value.KindMap {
		return val
	}
	m := val.AsMap()
	for _, f := range schema.Fields {
		if !f.HasDefault {
			continue
		}
		if _, ok := lookupByFieldName(m, f.Name); ok {
			continue
		}
		m = m.Insert(c.interner.Kw(f.Name), f.Default)
	}
	return value.MapVal(m)
}

// SetField ensures component exists on entity (creating it with schema
// defaults if absent) and updates exactly one field.
func (c *ComponentStore) SetField(entity EntityID, component, field string, val value.Value) error {
	schema, ok := c.schemas[component]
	if !ok {
		return langerr.ComponentNotFound(component)
	}
	current, exists := c.data[component][entity]
	if !exists {
		current = c.applyDefaults(schema, value.MapVal(value.EmptyMap()))
	}
	m := current.AsMap()
	if m == nil {
		m = value.EmptyMap()
	}
	m = m.Insert(c.interner.Kw(field), val)
	c.data[component][entity] = value.MapVal(m)
	c.addToArchetype(entity, component)
	return nil
}

func (c *ComponentStore) Get(entity EntityID, component string) (value.Value, bool) {
	m, ok := c.data[component]
	if !ok {
		return value.Nil, false
	}
	v, ok := m[entity]
	return v, ok
}

func (c *ComponentStore) GetField(entity EntityID, component, field string) (value.Value, error) {
	v, ok := c.Get(entity, component)
	if !ok {
		return value.Nil, langerr.ComponentNotFound(component)
	}
	m := v.AsMap()
	if m == nil {
		return value.Nil, langerr.AttributeNotFound(component, field)
	}
	fv, ok := lookupByFieldName(m, field)
	if !ok {
		return value.Nil, langerr.AttributeNotFound(component, field)
	}
	return fv, nil
}

func (c *ComponentStore) Has(entity EntityID, component string) bool {
	_, ok := c.Get(entity, component)
	return ok
}

// Remove deletes component from entity, updating the archetype index.
func (c *ComponentStore) Remove(entity EntityID, component string) {
	if m, ok := c.data[component]; ok {
		delete(m, entity)
	}
	c.removeFromArchetype(entity, component)
}

// RemoveEntity scrubs entity from every component map and the archetype
// index, used when an entity is destroyed.
func (c *ComponentStore) RemoveEntity(entity EntityID) {
	for _, m := range c.data {
		delete(m, entity)
	}
	delete(c.archetype, entity)
}

func (c *ComponentStore) addToArchetype(entity EntityID, component string) {
	names := c.archetype[entity]
	for _, n := range names {
		if n == component {
			return
		}
	}
	next := append(append([]string{}, names...), component)
	sort.Strings(next)
	c.archetype[entity] = next
}

func (c *ComponentStore) removeFromArchetype(entity EntityID, component string) {
	names := c.archetype[entity]
	next := make([]string, 0, len(names))
	for _, n := range names {
		if n != component {
			next = append(next, n)
		}
	}
	c.archetype[entity] = next
}

func (c *ComponentStore) Archetype(entity EntityID) []string {
	return c.archetype[entity]
}

// WithComponent returns every entity currently carrying component.
func (c *ComponentStore) WithComponent(component string) []EntityID {
	m, ok := c.data[component]
	if !ok {
		return nil
	}
	out := make([]EntityID, 0, len(m))
	for e := range m {
		out = append(out, e)
	}
	return out
}

// WithArchetype returns every entity whose archetype is a superset of
// required.
func (c *ComponentStore) WithArchetype(required []string) []EntityID {
	want := archetypeKey(required)
	var out []EntityID
	for e, names := range c.archetype {
		if isSubset(required, names) {
			_ = want
			out = append(out, e)
		}
	}
	return out
}

func isSubset(required, present []string) bool {
	presentSet := make(map[string]bool, len(present))
	for _, p := range present {
		presentSet[p] = true
	}
	for _, r := range required {
		if !presentSet[r] {
			return false
		}
	}
	return true
}

func archetypeKey(names []string) string {
	sorted := append([]string{}, names...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
