package compiler

import (
	"sort"

	"github.com/gloudx/longtable/ast"
	"github.com/gloudx/longtable/decl"
	"github.com/gloudx/longtable/value"
)

// compileDecl lowers an already-analyzed declaration into bytecode.
// `component:`..`load` serialize to a Value map pooled as a constant
// followed by the matching Register* opcode; `spawn:`/`link:` are
// pure sugar over the Spawn (carrying its component map) and Link
// opcodes, per SPEC_FULL.md §4.10.
func (c *Compiler) compileDecl(d *decl.Decl) error {
	switch {
	case d.Component != nil:
		c.pushDeclMap(componentToValue(d.Component, c))
		c.cur.emit(OpRegisterComponent, 0, 0)
		return nil
	case d.Relationship != nil:
		c.pushDeclMap(relationshipToValue(d.Relationship, c))
		c.cur.emit(OpRegisterRelationship, 0, 0)
		return nil
	case d.Rule != nil:
		c.pushDeclMap(ruleToValue(d.Rule, c))
		c.cur.emit(OpRegisterRule, 0, 0)
		return nil
	case d.Derived != nil:
		c.pushDeclMap(derivedToValue(d.Derived, c))
		c.cur.emit(OpRegisterAction, 0, 0)
		return nil
	case d.Constraint != nil:
		c.pushDeclMap(constraintToValue(d.Constraint, c))
		c.cur.emit(OpRegisterAction, 0, 0)
		return nil
	case d.Query != nil:
		c.pushDeclMap(queryToValue(d.Query, c))
		c.cur.emit(OpRegisterAction, 0, 0)
		return nil
	case d.Namespace != nil:
		c.session.Namespaces[d.Namespace.Name] = true
		c.session.CurrentNamespace = d.Namespace.Name
		c.pushDeclMap(value.EmptyMap().Insert(c.session.Interner.Kw("name"), value.Str(d.Namespace.Name)))
		c.cur.emit(OpRegisterScope, 0, 0)
		return nil
	case d.Load != nil:
		c.pushDeclMap(value.EmptyMap().Insert(c.session.Interner.Kw("namespace"), value.Str(d.Load.Namespace)))
		c.cur.emit(OpRegisterScope, 0, 0)
		return nil
	case d.Spawn != nil:
		return c.compileSpawnDecl(d.Spawn)
	case d.Link != nil:
		return c.compileLinkDecl(d.Link)
	default:
		c.cur.emit(OpConst, int32(c.addConst(value.Nil)), 0)
		return nil
	}
}

func (c *Compiler) pushDeclMap(m *value.Map) {
	c.cur.emit(OpConst, int32(c.addConst(value.MapVal(m))), 0)
}

func kw(c *Compiler, name string) value.Value { return c.session.Interner.Kw(name) }

func fieldsToValue(fields []decl.ComponentField, c *Compiler) []value.Value {
	out := make([]value.Value, len(fields))
	for i, f := range fields {
		m := value.EmptyMap()
		m = m.Insert(kw(c, "name"), value.Str(f.Name))
		m = m.Insert(kw(c, "type"), value.Str(f.Type))
		m = m.Insert(kw(c, "required"), value.Bool(f.Required))
		m = m.Insert(kw(c, "has-default"), value.Bool(f.HasDefault))
		if f.HasDefault {
			m = m.Insert(kw(c, "default"), astToValue(f.Default, c.session.Interner))
		}
		out[i] = value.MapVal(m)
	}
	return out
}

func componentToValue(d *decl.ComponentDecl, c *Compiler) *value.Map {
	m := value.EmptyMap()
	m = m.Insert(kw(c, "name"), value.Str(d.Name))
	m = m.Insert(kw(c, "is-tag"), value.Bool(d.IsTag))
	m = m.Insert(kw(c, "fields"), value.VecVal(value.VecOf(fieldsToValue(d.Fields, c)...)))
	return m
}

func relationshipToValue(d *decl.RelationshipDecl, c *Compiler) *value.Map {
	m := value.EmptyMap()
	m = m.Insert(kw(c, "name"), value.Str(d.Name))
	m = m.Insert(kw(c, "storage"), value.Str(d.Storage))
	m = m.Insert(kw(c, "cardinality"), value.Str(d.Cardinality))
	m = m.Insert(kw(c, "on-target-delete"), value.Str(d.OnTargetDelete))
	m = m.Insert(kw(c, "on-violation"), value.Str(d.OnViolation))
	m = m.Insert(kw(c, "required"), value.Bool(d.Required))
	m = m.Insert(kw(c, "attributes"), value.VecVal(value.VecOf(fieldsToValue(d.Attributes, c)...)))
	return m
}

func nodesToVec(nodes []ast.Node, interner *value.Interner) value.Value {
	items := make([]value.Value, len(nodes))
	for i, n := range nodes {
		items[i] = astToValue(n, interner)
	}
	return value.VecVal(value.VecOf(items...))
}

func ruleToValue(d *decl.RuleDecl, c *Compiler) *value.Map {
	m := value.EmptyMap()
	m = m.Insert(kw(c, "name"), value.Str(d.Name))
	m = m.Insert(kw(c, "salience"), value.Int(d.Salience))
	m = m.Insert(kw(c, "once"), value.Bool(d.Once))
	m = m.Insert(kw(c, "enabled"), value.Bool(d.Enabled))
	m = m.Insert(kw(c, "where"), nodesToVec(d.Where, c.session.Interner))
	m = m.Insert(kw(c, "let"), nodesToVec(d.Let, c.session.Interner))
	m = m.Insert(kw(c, "guard"), nodesToVec(d.Guard, c.session.Interner))
	m = m.Insert(kw(c, "then"), nodesToVec(d.Then, c.session.Interner))
	return m
}

func derivedToValue(d *decl.DerivedDecl, c *Compiler) *value.Map {
	m := value.EmptyMap()
	m = m.Insert(kw(c, "name"), value.Str(d.Name))
	m = m.Insert(kw(c, "for"), value.Str(d.For))
	m = m.Insert(kw(c, "where"), nodesToVec(d.Where, c.session.Interner))
	m = m.Insert(kw(c, "let"), nodesToVec(d.Let, c.session.Interner))
	m = m.Insert(kw(c, "has-aggregate"), value.Bool(d.HasAgg))
	if d.HasAgg {
		m = m.Insert(kw(c, "aggregate"), astToValue(d.Aggregate, c.session.Interner))
	}
	if d.Value.Kind != ast.KindNil || d.Value.String != "" {
		m = m.Insert(kw(c, "value"), astToValue(d.Value, c.session.Interner))
	}
	return m
}

func constraintToValue(d *decl.ConstraintDecl, c *Compiler) *value.Map {
	m := value.EmptyMap()
	m = m.Insert(kw(c, "check"), astToValue(d.Check, c.session.Interner))
	m = m.Insert(kw(c, "on-violation"), value.Str(d.OnViolation))
	return m
}

func queryToValue(d *decl.QueryDecl, c *Compiler) *value.Map {
	m := value.EmptyMap()
	m = m.Insert(kw(c, "where"), nodesToVec(d.Where, c.session.Interner))
	m = m.Insert(kw(c, "let"), nodesToVec(d.Let, c.session.Interner))
	m = m.Insert(kw(c, "has-aggregate"), value.Bool(d.HasAgg))
	if d.HasAgg {
		m = m.Insert(kw(c, "aggregate"), astToValue(d.Agg, c.session.Interner))
	}
	m = m.Insert(kw(c, "group-by"), nodesToVec(d.GroupBy, c.session.Interner))
	m = m.Insert(kw(c, "guard"), nodesToVec(d.Guard, c.session.Interner))
	m = m.Insert(kw(c, "order-by"), nodesToVec(d.OrderBy, c.session.Interner))
	m = m.Insert(kw(c, "has-limit"), value.Bool(d.HasLim))
	if d.HasLim {
		m = m.Insert(kw(c, "limit"), value.Int(d.Limit))
	}
	if d.Return.Kind != ast.KindNil || d.Return.String != "" {
		m = m.Insert(kw(c, "return"), astToValue(d.Return, c.session.Interner))
	}
	return m
}

// compileSpawnDecl lowers `(spawn: binding {component-map})` into a
// Spawn opcode call over the same component-map shape the `spawn`
// expression form accepts, storing the resulting entity ref into the
// binding's global slot so a later `link:` can resolve it.
func (c *Compiler) compileSpawnDecl(d *decl.SpawnDecl) error {
	names := make([]string, 0, len(d.Components))
	for name := range d.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]ast.Node, 0, len(names)*2)
	for _, name := range names {
		items = append(items, ast.Keyword(name, ast.Span{}))
		items = append(items, d.Components[name])
	}
	mapNode := ast.Map(items, ast.Span{})
	if err := c.compileExpr(mapNode); err != nil {
		return err
	}
	c.cur.emit(OpSpawn, 1, 0)
	idx := c.session.globalSlot(d.Binding)
	c.cur.emit(OpDup, 0, 0)
	c.cur.emit(OpStoreGlobal, int32(idx), 0)
	return nil
}

// compileLinkDecl lowers `(link: source :rel target)` into a Link
// call over the source/target entity refs bound by earlier spawn:
// declarations in this session.
func (c *Compiler) compileLinkDecl(d *decl.LinkDecl) error {
	srcIdx := c.session.globalSlot(d.Source)
	tgtIdx := c.session.globalSlot(d.Target)
	c.cur.emit(OpLoadGlobal, int32(srcIdx), 0)
	c.cur.emit(OpConst, int32(c.addConst(kw(c, d.Relationship))), 0)
	c.cur.emit(OpLoadGlobal, int32(tgtIdx), 0)
	c.cur.emit(OpLink, 3, 0)
	return nil
}
