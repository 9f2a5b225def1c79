package vm

import (
	"github.com/gloudx/longtable/value"
	"github.com/gloudx/longtable/world"
)

// componentSchemaFromValue decodes the Value map the compiler pooled
// for a `component:` declaration (see compiler/decl_lower.go's
// componentToValue) back into a world.ComponentSchema the World can
// register.
func componentSchemaFromValue(interner *value.Interner, m *value.Map) *world.ComponentSchema {
	name, _ := m.Get(interner.Kw("name"))
	isTag, _ := m.Get(interner.Kw("is-tag"))
	fieldsV, _ := m.Get(interner.Kw("fields"))

	schema := &world.ComponentSchema{
		Name:  name.AsString(),
		IsTag: isTag.Kind() == value.KindBool && isTag.AsBool(),
	}
	if fieldsV.Kind() == value.KindVec {
		fieldsV.AsVec().ForEach(func(fv value.Value) bool {
			schema.Fields = append(schema.Fields, fieldSchemaFromValue(interner, fv.AsMap()))
			return true
		})
	}
	return schema
}

func fieldSchemaFromValue(interner *value.Interner, m *value.Map) world.FieldSchema {
	name, _ := m.Get(interner.Kw("name"))
	typ, _ := m.Get(interner.Kw("type"))
	required, _ := m.Get(interner.Kw("required"))
	hasDefault, _ := m.Get(interner.Kw("has-default"))
	def, _ := m.Get(interner.Kw("default"))

	f := world.FieldSchema{
		Name:       name.AsString(),
		Type:       fieldTypeFromName(typ.AsString()),
		Required:   required.Kind() == value.KindBool && required.AsBool(),
		HasDefault: hasDefault.Kind() == value.KindBool && hasDefault.AsBool(),
	}
	if f.HasDefault {
		f.Default = def
	}
	return f
}

func fieldTypeFromName(name string) world.FieldType {
	switch name {
	case "int":
		return world.FieldInt
	case "float":
		return world.FieldFloat
	case "string":
		return world.FieldString
	case "bool":
		return world.FieldBool
	case "entity-ref":
		return world.FieldEntityRef
	case "vec":
		return world.FieldVec
	case "map":
		return world.FieldMap
	case "set":
		return world.FieldSet
	default:
		return world.FieldAny
	}
}

// relationshipSchemaFromValue decodes a `relationship:` declaration's
// pooled map (relationshipToValue) into a world.RelationshipSchema.
func relationshipSchemaFromValue(interner *value.Interner, m *value.Map) *world.RelationshipSchema {
	name, _ := m.Get(interner.Kw("name"))
	cardinality, _ := m.Get(interner.Kw("cardinality"))
	onDelete, _ := m.Get(interner.Kw("on-target-delete"))
	onViolation, _ := m.Get(interner.Kw("on-violation"))
	attrsV, _ := m.Get(interner.Kw("attributes"))

	schema := &world.RelationshipSchema{
		Name:           name.AsString(),
		Cardinality:    cardinalityFromName(cardinality.AsString()),
		OnTargetDelete: onTargetDeleteFromName(onDelete.AsString()),
		OnViolation:    onViolationFromName(onViolation.AsString()),
	}
	if attrsV.Kind() == value.KindVec {
		attrsV.AsVec().ForEach(func(av value.Value) bool {
			schema.Attributes = append(schema.Attributes, fieldSchemaFromValue(interner, av.AsMap()))
			return true
		})
	}
	return schema
}

func cardinalityFromName(name string) world.Cardinality {
	switch name {
	case "one-to-one":
		return world.OneToOne
	case "one-to-many":
		return world.OneToMany
	case "many-to-one":
		return world.ManyToOne
	default:
		return world.ManyToMany
	}
}

func onTargetDeleteFromName(name string) world.OnTargetDelete {
	switch name {
	case "cascade":
		return world.DeleteCascade
	case "nullify":
		return world.DeleteNullify
	default:
		return world.DeleteRemove
	}
}

func onViolationFromName(name string) world.OnViolation {
	switch name {
	case "replace":
		return world.ViolationReplace
	default:
		return world.ViolationError
	}
}
