// Package macro implements the top-down, fixed-point macro expander:
// a registry mapping macro name to definition, and an Expand pass that
// rewrites list heads naming a registered macro until no head is a
// macro call, bounded by a configurable maximum number of steps.
package macro

import (
	"fmt"

	"github.com/gloudx/longtable/ast"
	"github.com/gloudx/longtable/langerr"
)

// reserved holds every special form, built-in operator name, and
// declaration marker that must never be shadowed by a macro — they are
// dispatched by the compiler/declaration analyzer directly and are
// never candidates for macro expansion, matching spec.md's "Special
// forms and built-in operators are never treated as macro calls".
var reserved = map[string]bool{
	"if": true, "let": true, "do": true, "fn": true, "def": true, "fn:": true,
	"quote": true, "and*": true, "or*": true, "cond*": true,
	"thread-first": true, "thread-last": true, "doto*": true,

	"map": true, "filter": true, "reduce": true, "every?": true, "some": true,
	"take-while": true, "drop-while": true, "remove": true, "group-by": true,
	"zip-with": true, "repeatedly": true,

	"get-component": true, "get-field": true, "with-component": true,
	"find-relationships": true, "targets": true, "sources": true,
	"entity-ref": true, "spawn": true, "destroy": true, "set-component": true,
	"set-field": true, "link": true, "unlink": true,

	"component:": true, "relationship:": true, "rule:": true, "derived:": true,
	"constraint:": true, "query": true, "namespace": true, "load": true,
	"spawn:": true, "link:": true,

	"print": true, "not": true,
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"=": true, "==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

// IsReserved reports whether name can never be a macro (and so is
// never shadowed by Register).
func IsReserved(name string) bool { return reserved[name] }

// Def is a registered macro: a positional parameter list and a
// syntax-quoted template body. Expansion binds each call argument
// (already-parsed, unexpanded AST) to its parameter name and
// instantiates the template, substituting at every Unquote/
// UnquoteSplice site and at every bare symbol naming a parameter.
type Def struct {
	Name   string
	Params []string
	Body   ast.Node
}

// Registry maps macro name to definition.
type Registry struct {
	macros map[string]*Def
}

func NewRegistry() *Registry {
	return &Registry{macros: make(map[string]*Def)}
}

// Register adds def. Registering over a reserved name is an error;
// registering the same name twice replaces the previous definition,
// matching a REPL's ability to redefine a macro it authored.
func (r *Registry) Register(def *Def) error {
	if IsReserved(def.Name) {
		return langerr.New(langerr.KindParseError, "cannot redefine special form or built-in as macro: "+def.Name)
	}
	r.macros[def.Name] = def
	return nil
}

func (r *Registry) Lookup(name string) (*Def, bool) {
	d, ok := r.macros[name]
	return d, ok
}

// Expand rewrites node and its children to a fixed point, expanding
// every macro call encountered. maxSteps bounds the number of
// expansion steps applied to any single call site, guarding against
// runaway recursive macros.
func Expand(node ast.Node, registry *Registry, maxSteps int) (ast.Node, error) {
	if node.Kind == ast.KindList && len(node.Items) > 0 {
		if head, ok := node.HeadSymbol(); ok && !IsReserved(head) {
			if def, ok := registry.Lookup(head); ok {
				return expandCall(node, def, registry, maxSteps)
			}
		}
	}
	return expandChildren(node, registry, maxSteps)
}

func expandCall(call ast.Node, def *Def, registry *Registry, maxSteps int) (ast.Node, error) {
	current := call
	curDef := def
	for step := 0; ; step++ {
		if step >= maxSteps {
			return ast.Node{}, langerr.LimitExceeded(langerr.LimitMaxMacroExpansions, curDef.Name)
		}
		args := current.Items[1:]
		if len(args) != len(curDef.Params) {
			return ast.Node{}, langerr.ArityMismatch(len(curDef.Params), len(args))
		}
		bindings := make(map[string]ast.Node, len(args))
		for i, p := range curDef.Params {
			bindings[p] = args[i]
		}
		expanded := instantiate(curDef.Body, bindings)

		if expanded.Kind == ast.KindList && len(expanded.Items) > 0 {
			if head, ok := expanded.HeadSymbol(); ok && !IsReserved(head) {
				if nextDef, ok := registry.Lookup(head); ok {
					current = expanded
					curDef = nextDef
					continue
				}
			}
		}
		return expandChildren(expanded, registry, maxSteps)
	}
}

// expandChildren recursively expands every child of node without
// treating node itself as a macro call (the caller already decided
// that).
func expandChildren(node ast.Node, registry *Registry, maxSteps int) (ast.Node, error) {
	switch node.Kind {
	case ast.KindList, ast.KindVector, ast.KindSet, ast.KindMap:
		items := make([]ast.Node, len(node.Items))
		for i, item := range node.Items {
			ex, err := Expand(item, registry, maxSteps)
			if err != nil {
				return ast.Node{}, err
			}
			items[i] = ex
		}
		out := node
		out.Items = items
		return out, nil
	case ast.KindQuote, ast.KindSyntaxQuote, ast.KindUnquote, ast.KindUnquoteSplice, ast.KindTagged:
		ex, err := Expand(*node.Inner, registry, maxSteps)
		if err != nil {
			return ast.Node{}, err
		}
		out := node
		out.Inner = &ex
		return out, nil
	default:
		return node, nil
	}
}

// instantiate substitutes macro parameter bindings into a
// syntax-quoted template: literal forms pass through unchanged;
// `~name` is replaced by the argument bound to name; `~@name`
// splices the sequence bound to name into the enclosing list/vector/
// set. A bare symbol naming a parameter is also replaced by its
// argument wherever it appears in the template, unquoted or not.
func instantiate(node ast.Node, bindings map[string]ast.Node) ast.Node {
	switch node.Kind {
	case ast.KindSyntaxQuote:
		inner := instantiate(*node.Inner, bindings)
		return inner
	case ast.KindUnquote:
		if node.Inner.Kind == ast.KindSymbol {
			if bound, ok := bindings[node.Inner.String]; ok {
				return bound
			}
		}
		sub := instantiate(*node.Inner, bindings)
		return sub
	case ast.KindList, ast.KindVector, ast.KindSet:
		var items []ast.Node
		for _, item := range node.Items {
			if item.Kind == ast.KindUnquoteSplice && item.Inner.Kind == ast.KindSymbol {
				if bound, ok := bindings[item.Inner.String]; ok {
					items = append(items, bound.Items...)
					continue
				}
			}
			items = append(items, instantiate(item, bindings))
		}
		out := node
		out.Items = items
		return out
	case ast.KindMap:
		items := make([]ast.Node, len(node.Items))
		for i, item := range node.Items {
			items[i] = instantiate(item, bindings)
		}
		out := node
		out.Items = items
		return out
	case ast.KindQuote:
		inner := instantiate(*node.Inner, bindings)
		out := node
		out.Inner = &inner
		return out
	case ast.KindTagged:
		inner := instantiate(*node.Inner, bindings)
		out := node
		out.Inner = &inner
		return out
	case ast.KindSymbol:
		if bound, ok := bindings[node.String]; ok {
			return bound
		}
		return node
	default:
		return node
	}
}

// String renders a Def for diagnostics.
func (d *Def) String() string {
	return fmt.Sprintf("macro %s%v", d.Name, d.Params)
}
