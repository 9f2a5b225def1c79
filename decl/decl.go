// Package decl analyzes top-level list forms whose head is one of the
// declaration markers (component:, relationship:, rule:, derived:,
// constraint:, query, namespace, load, spawn:, link:) into typed
// records, per spec.md §4.6 supplemented with namespace/load/spawn:/
// link: per SPEC_FULL.md §4.10. Missing required keys produce parse
// errors carrying the offending span; keyword arguments a declaration
// does not use are ignored, not rejected.
package decl

import (
	"strings"

	"github.com/gloudx/longtable/ast"
	"github.com/gloudx/longtable/langerr"
)

// Markers names every recognized declaration head.
var Markers = map[string]bool{
	"component:": true, "relationship:": true, "rule:": true,
	"derived:": true, "constraint:": true, "query": true,
	"namespace": true, "load": true, "spawn:": true, "link:": true,
}

// ComponentField is one (:field :type [:default v]) triple, or the
// single implicit field of a shorthand tag-like component.
type ComponentField struct {
	Name       string
	Type       string
	Default    ast.Node
	HasDefault bool
	Required   bool
}

// ComponentDecl is the typed record for `(component: name ...)`.
type ComponentDecl struct {
	Name   string
	IsTag  bool
	Fields []ComponentField
}

// RelationshipDecl is the typed record for `(relationship: name ...)`.
type RelationshipDecl struct {
	Name           string
	Storage        string // "field" or "entity"
	Cardinality    string
	OnTargetDelete string
	OnViolation    string
	Required       bool
	Attributes     []ComponentField
}

// RuleDecl is the typed record for `(rule: name ...)`.
type RuleDecl struct {
	Name     string
	Salience int64
	Once     bool
	Enabled  bool
	Where    []ast.Node
	Let      []ast.Node
	Guard    []ast.Node
	Then     []ast.Node
}

// DerivedDecl is the typed record for `(derived: name ...)`.
type DerivedDecl struct {
	Name      string
	For       string
	Where     []ast.Node
	Let       []ast.Node
	Aggregate ast.Node
	HasAgg    bool
	Value     ast.Node
}

// ConstraintDecl is the typed record for `(constraint: ...)`.
type ConstraintDecl struct {
	Check       ast.Node
	OnViolation string // "rollback" or "warn"
}

// QueryDecl is the typed record for `(query ...)`.
type QueryDecl struct {
	Where   []ast.Node
	Let     []ast.Node
	Agg     ast.Node
	HasAgg  bool
	GroupBy []ast.Node
	Guard   []ast.Node
	OrderBy []ast.Node
	Limit   int64
	HasLim  bool
	Return  ast.Node
}

// NamespaceDecl registers a namespace name, per SPEC_FULL §4.10.
type NamespaceDecl struct {
	Name string
}

// LoadDecl names a namespace to import; the file-system mechanism is
// left to the host.
type LoadDecl struct {
	Namespace string
}

// SpawnDecl is sugar lowering to one Spawn opcode carrying its
// component map: an
// entity binding name and a map of component-name -> component value
// forms to set on it at world-seed time.
type SpawnDecl struct {
	Binding    string
	Components map[string]ast.Node
}

// LinkDecl is sugar lowering to the Link opcode: source/target
// binding names (resolved against prior spawn: bindings at compile
// time) and the relationship name.
type LinkDecl struct {
	Source       string
	Relationship string
	Target       string
}

// Decl is the tagged result of analyzing one declaration form.
type Decl struct {
	Component    *ComponentDecl
	Relationship *RelationshipDecl
	Rule         *RuleDecl
	Derived      *DerivedDecl
	Constraint   *ConstraintDecl
	Query        *QueryDecl
	Namespace    *NamespaceDecl
	Load         *LoadDecl
	Spawn        *SpawnDecl
	Link         *LinkDecl
}

func parseErr(n ast.Node, msg string) error {
	return langerr.ParseError(msg, n.Span.Line, n.Span.Column, "")
}

// keywordArgs splits a flat argument list into positional leading
// forms (before the first Keyword) and a keyword->value map for the
// remainder, which must come in :key value pairs.
func keywordArgs(args []ast.Node) (positional []ast.Node, kv map[string]ast.Node, err error) {
	kv = make(map[string]ast.Node)
	i := 0
	for ; i < len(args); i++ {
		if args[i].Kind == ast.KindKeyword {
			break
		}
		positional = append(positional, args[i])
	}
	for ; i < len(args); i++ {
		if args[i].Kind != ast.KindKeyword {
			return nil, nil, parseErr(args[i], "expected keyword argument")
		}
		if i+1 >= len(args) {
			return nil, nil, parseErr(args[i], "keyword argument missing value: "+args[i].String)
		}
		kv[":"+args[i].String] = args[i+1]
		i++
	}
	return positional, kv, nil
}

func keywordName(n ast.Node) (string, bool) {
	if n.Kind != ast.KindKeyword {
		return "", false
	}
	return n.String, true
}

// Analyze inspects a top-level list form and, if its head names a
// declaration marker, parses it into a Decl. ok is false when form is
// not a declaration (the caller should fall through to ordinary
// compilation).
func Analyze(form ast.Node) (decl *Decl, ok bool, err error) {
	head, isHeadSym := form.HeadSymbol()
	if !isHeadSym || !Markers[head] {
		return nil, false, nil
	}
	args := form.Items[1:]

	switch head {
	case "component:":
		d, err := analyzeComponent(form, args)
		if err != nil {
			return nil, true, err
		}
		return &Decl{Component: d}, true, nil
	case "relationship:":
		d, err := analyzeRelationship(form, args)
		if err != nil {
			return nil, true, err
		}
		return &Decl{Relationship: d}, true, nil
	case "rule:":
		d, err := analyzeRule(form, args)
		if err != nil {
			return nil, true, err
		}
		return &Decl{Rule: d}, true, nil
	case "derived:":
		d, err := analyzeDerived(form, args)
		if err != nil {
			return nil, true, err
		}
		return &Decl{Derived: d}, true, nil
	case "constraint:":
		d, err := analyzeConstraint(form, args)
		if err != nil {
			return nil, true, err
		}
		return &Decl{Constraint: d}, true, nil
	case "query":
		d, err := analyzeQuery(form, args)
		if err != nil {
			return nil, true, err
		}
		return &Decl{Query: d}, true, nil
	case "namespace":
		d, err := analyzeNamespace(form, args)
		if err != nil {
			return nil, true, err
		}
		return &Decl{Namespace: d}, true, nil
	case "load":
		d, err := analyzeLoad(form, args)
		if err != nil {
			return nil, true, err
		}
		return &Decl{Load: d}, true, nil
	case "spawn:":
		d, err := analyzeSpawn(form, args)
		if err != nil {
			return nil, true, err
		}
		return &Decl{Spawn: d}, true, nil
	case "link:":
		d, err := analyzeLink(form, args)
		if err != nil {
			return nil, true, err
		}
		return &Decl{Link: d}, true, nil
	default:
		return nil, false, nil
	}
}

func analyzeComponent(form ast.Node, args []ast.Node) (*ComponentDecl, error) {
	if len(args) == 0 {
		return nil, parseErr(form, "component: requires a name")
	}
	name := args[0].String
	rest := args[1:]

	if len(rest) == 1 && rest[0].Kind == ast.KindMap {
		// shorthand `{:type :default v}` form: a single-field tag-like component.
		kv, err := mapToKV(rest[0])
		if err != nil {
			return nil, err
		}
		typeName := ""
		if t, ok := kv[":type"]; ok {
			typeName, _ = keywordName(t)
		}
		field := ComponentField{Name: "value", Type: typeName}
		if d, ok := kv[":default"]; ok {
			field.Default = d
			field.HasDefault = true
		}
		return &ComponentDecl{Name: name, IsTag: false, Fields: []ComponentField{field}}, nil
	}

	if len(rest) == 0 {
		return &ComponentDecl{Name: name, IsTag: true}, nil
	}

	// Tag shorthand, e.g. `(component: tag/player :bool :default true)`:
	// only taken when the leading keyword actually names a type, so a
	// flat field-name keyword like :current falls through to the full
	// form below instead of being swallowed here.
	if rest[0].Kind == ast.KindKeyword && isComponentTypeKeyword(rest[0].String) {
		_, kv, err := keywordArgs(rest[1:])
		if err != nil {
			return nil, err
		}
		field := ComponentField{Name: "value", Type: rest[0].String}
		if d, ok := kv[":default"]; ok {
			field.Default = d
			field.HasDefault = true
		}
		return &ComponentDecl{Name: name, IsTag: true, Fields: []ComponentField{field}}, nil
	}

	// Sequence of `(:field :type [:default v])` triples.
	if rest[0].Kind == ast.KindList {
		var fields []ComponentField
		for _, triple := range rest {
			if triple.Kind != ast.KindList || len(triple.Items) < 2 {
				return nil, parseErr(triple, "component: field must be (:field :type [:default v])")
			}
			fname, ok := keywordName(triple.Items[0])
			if !ok {
				return nil, parseErr(triple, "component: field name must be a keyword")
			}
			ftype, ok := keywordName(triple.Items[1])
			if !ok {
				return nil, parseErr(triple, "component: field type must be a keyword")
			}
			field := ComponentField{Name: fname, Type: ftype, Required: true}
			if len(triple.Items) >= 4 {
				if k, ok := keywordName(triple.Items[2]); ok && k == "default" {
					field.Default = triple.Items[3]
					field.HasDefault = true
					field.Required = false
				}
			}
			fields = append(fields, field)
		}
		return &ComponentDecl{Name: name, Fields: fields}, nil
	}

	// Full flat form: `:field :type [:default v] :field :type ...`, e.g.
	// `(component: health :current :int :max :int :default 100)`.
	var fields []ComponentField
	i := 0
	for i < len(rest) {
		fname, ok := keywordName(rest[i])
		if !ok {
			return nil, parseErr(rest[i], "component: expected field name keyword")
		}
		i++
		if i >= len(rest) {
			return nil, parseErr(form, "component: missing type for field :"+fname)
		}
		ftype, ok := keywordName(rest[i])
		if !ok {
			return nil, parseErr(rest[i], "component: expected type keyword for field :"+fname)
		}
		i++

		field := ComponentField{Name: fname, Type: ftype, Required: true}
		if i < len(rest) {
			if k, ok := keywordName(rest[i]); ok && k == "default" {
				i++
				if i >= len(rest) {
					return nil, parseErr(form, "component: missing value for :default")
				}
				field.Default = rest[i]
				field.HasDefault = true
				field.Required = false
				i++
			}
		}
		fields = append(fields, field)
	}
	return &ComponentDecl{Name: name, Fields: fields}, nil
}

// componentTypeKeywords are the recognized scalar/collection type names
// that trigger the tag-shorthand component form; any other leading
// keyword starts the flat field-list form instead.
var componentTypeKeywords = map[string]bool{
	"bool": true, "int": true, "float": true, "string": true,
	"keyword": true, "symbol": true, "entity-ref": true,
	"map": true, "vec": true, "set": true, "any": true,
}

func isComponentTypeKeyword(k string) bool {
	return componentTypeKeywords[k] || strings.HasPrefix(k, "option<")
}

func mapToKV(m ast.Node) (map[string]ast.Node, error) {
	if len(m.Items)%2 != 0 {
		return nil, parseErr(m, "map literal must have an even number of forms")
	}
	out := make(map[string]ast.Node, len(m.Items)/2)
	for i := 0; i+1 < len(m.Items); i += 2 {
		k := m.Items[i]
		if k.Kind != ast.KindKeyword {
			continue
		}
		out[":"+k.String] = m.Items[i+1]
	}
	return out, nil
}

func analyzeRelationship(form ast.Node, args []ast.Node) (*RelationshipDecl, error) {
	if len(args) == 0 {
		return nil, parseErr(form, "relationship: requires a name")
	}
	name := args[0].String
	_, kv, err := keywordArgs(args[1:])
	if err != nil {
		return nil, err
	}
	d := &RelationshipDecl{Name: name, Storage: "entity"}
	if v, ok := kv[":storage"]; ok {
		d.Storage, _ = keywordName(v)
	}
	if v, ok := kv[":cardinality"]; ok {
		d.Cardinality, _ = keywordName(v)
	}
	if v, ok := kv[":on-target-delete"]; ok {
		d.OnTargetDelete, _ = keywordName(v)
	}
	if v, ok := kv[":on-violation"]; ok {
		d.OnViolation, _ = keywordName(v)
	}
	if v, ok := kv[":required"]; ok {
		d.Required = v.Kind == ast.KindBool && v.Bool
	}
	if v, ok := kv[":attributes"]; ok && v.Kind == ast.KindVector {
		for _, triple := range v.Items {
			if triple.Kind != ast.KindList || len(triple.Items) < 2 {
				continue
			}
			fname, _ := keywordName(triple.Items[0])
			ftype, _ := keywordName(triple.Items[1])
			d.Attributes = append(d.Attributes, ComponentField{Name: fname, Type: ftype})
		}
	}
	return d, nil
}

func analyzeRule(form ast.Node, args []ast.Node) (*RuleDecl, error) {
	if len(args) == 0 {
		return nil, parseErr(form, "rule: requires a name")
	}
	name := args[0].String
	_, kv, err := keywordArgs(args[1:])
	if err != nil {
		return nil, err
	}
	d := &RuleDecl{Name: name, Enabled: true}
	if v, ok := kv[":salience"]; ok {
		d.Salience = v.Int
	}
	if v, ok := kv[":once"]; ok {
		d.Once = v.Kind == ast.KindBool && v.Bool
	}
	if v, ok := kv[":enabled"]; ok {
		d.Enabled = v.Kind == ast.KindBool && v.Bool
	}
	if v, ok := kv[":where"]; ok {
		d.Where = v.Items
	}
	if v, ok := kv[":let"]; ok {
		d.Let = v.Items
	}
	if v, ok := kv[":guard"]; ok {
		d.Guard = v.Items
	}
	if v, ok := kv[":then"]; ok {
		d.Then = v.Items
	}
	return d, nil
}

func analyzeDerived(form ast.Node, args []ast.Node) (*DerivedDecl, error) {
	if len(args) == 0 {
		return nil, parseErr(form, "derived: requires a name")
	}
	name := args[0].String
	_, kv, err := keywordArgs(args[1:])
	if err != nil {
		return nil, err
	}
	d := &DerivedDecl{Name: name}
	if v, ok := kv[":for"]; ok {
		d.For = v.String
	}
	if v, ok := kv[":where"]; ok {
		d.Where = v.Items
	}
	if v, ok := kv[":let"]; ok {
		d.Let = v.Items
	}
	if v, ok := kv[":aggregate"]; ok {
		d.Aggregate = v
		d.HasAgg = true
	}
	if v, ok := kv[":value"]; ok {
		d.Value = v
	}
	return d, nil
}

func analyzeConstraint(form ast.Node, args []ast.Node) (*ConstraintDecl, error) {
	_, kv, err := keywordArgs(args)
	if err != nil {
		return nil, err
	}
	check, ok := kv[":check"]
	if !ok {
		return nil, parseErr(form, "constraint: requires :check")
	}
	d := &ConstraintDecl{Check: check, OnViolation: "rollback"}
	if v, ok := kv[":on-violation"]; ok {
		d.OnViolation, _ = keywordName(v)
	}
	return d, nil
}

func analyzeQuery(form ast.Node, args []ast.Node) (*QueryDecl, error) {
	_, kv, err := keywordArgs(args)
	if err != nil {
		return nil, err
	}
	d := &QueryDecl{}
	if v, ok := kv[":where"]; ok {
		d.Where = v.Items
	}
	if v, ok := kv[":let"]; ok {
		d.Let = v.Items
	}
	if v, ok := kv[":aggregate"]; ok {
		d.Agg = v
		d.HasAgg = true
	}
	if v, ok := kv[":group-by"]; ok {
		d.GroupBy = v.Items
	}
	if v, ok := kv[":guard"]; ok {
		d.Guard = v.Items
	}
	if v, ok := kv[":order-by"]; ok {
		d.OrderBy = v.Items
	}
	if v, ok := kv[":limit"]; ok {
		d.Limit = v.Int
		d.HasLim = true
	}
	if v, ok := kv[":return"]; ok {
		d.Return = v
	}
	return d, nil
}

func analyzeNamespace(form ast.Node, args []ast.Node) (*NamespaceDecl, error) {
	if len(args) == 0 {
		return nil, parseErr(form, "namespace requires a name")
	}
	return &NamespaceDecl{Name: args[0].String}, nil
}

func analyzeLoad(form ast.Node, args []ast.Node) (*LoadDecl, error) {
	if len(args) == 0 {
		return nil, parseErr(form, "load requires a namespace")
	}
	return &LoadDecl{Namespace: args[0].String}, nil
}

func analyzeSpawn(form ast.Node, args []ast.Node) (*SpawnDecl, error) {
	if len(args) == 0 {
		return nil, parseErr(form, "spawn: requires a binding name")
	}
	binding := args[0].String
	d := &SpawnDecl{Binding: binding, Components: make(map[string]ast.Node)}
	if len(args) > 1 && args[1].Kind == ast.KindMap {
		kv, err := mapToKV(args[1])
		if err != nil {
			return nil, err
		}
		for k, v := range kv {
			d.Components[k[1:]] = v // strip leading ':'
		}
	}
	return d, nil
}

func analyzeLink(form ast.Node, args []ast.Node) (*LinkDecl, error) {
	if len(args) < 3 {
		return nil, parseErr(form, "link: requires source, relationship, target")
	}
	rel, ok := keywordName(args[1])
	if !ok {
		return nil, parseErr(args[1], "link: relationship must be a keyword")
	}
	return &LinkDecl{Source: args[0].String, Relationship: rel, Target: args[2].String}, nil
}
