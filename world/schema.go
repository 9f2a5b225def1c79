package world

import "github.com/gloudx/longtable/value"

// FieldType names the legal scalar/collection type tags a component
// field schema may declare.
type FieldType int

const (
	FieldAny FieldType = iota
	FieldInt
	FieldFloat
	FieldString
	FieldBool
	FieldEntityRef
	FieldVec
	FieldMap
	FieldSet
)

// FieldSchema describes one field of a non-tag component.
type FieldSchema struct {
	Name     string
	Type     FieldType
	Default  value.Value
	HasDefault bool
	Required bool
}

// ComponentSchema is a registered component definition: a name, whether
// it is a tag (fieldless, presence-only) component, and its ordered
// field list.
type ComponentSchema struct {
	Name   string
	IsTag  bool
	Fields []FieldSchema
}

func (c *ComponentSchema) FieldByName(name string) (FieldSchema, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSchema{}, false
}

// Cardinality constrains how many entities may stand on each side of a
// relationship edge.
type Cardinality int

const (
	OneToOne Cardinality = iota
	OneToMany
	ManyToOne
	ManyToMany
)

// OnTargetDelete names what happens to edges pointing at a destroyed
// target.
type OnTargetDelete int

const (
	DeleteRemove OnTargetDelete = iota
	DeleteCascade
	DeleteNullify
)

// OnViolation names what happens when a link would violate cardinality.
type OnViolation int

const (
	ViolationError OnViolation = iota
	ViolationReplace
)

// RelationshipSchema is a registered relationship definition.
type RelationshipSchema struct {
	Name           string
	Cardinality    Cardinality
	OnTargetDelete OnTargetDelete
	OnViolation    OnViolation
	Attributes     []FieldSchema
}
