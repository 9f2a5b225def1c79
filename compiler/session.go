package compiler

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gloudx/longtable/macro"
	"github.com/gloudx/longtable/value"
)

// GlobalSlot records one top-level `def`/`fn:` binding in the
// persistent global slot table: its index, the name it was last bound
// under, and (for the three-shape `fn:` form) its retained docstring,
// per SPEC_FULL.md §4.10.
type GlobalSlot struct {
	Index int
	Name  string
	Doc   string
}

// Session is the compiler state that persists across repeated
// Compile calls in a REPL: the global slot table, the macro registry,
// and namespace/alias/refer resolution tables. It is grounded on the
// teacher's lexicon.LexiconRegistry, whose definitions/schemas/
// dependencies maps outlive any one registration call the same way
// this state outlives any one compiled form.
type Session struct {
	Interner *value.Interner
	Macros   *macro.Registry

	Globals      map[string]int
	GlobalSlots  []GlobalSlot
	globalsCount int

	// CurrentNamespace is the namespace new `namespace` declarations
	// register under; Aliases maps a local alias to the namespace it
	// refers to (`alias/name` lookup); Refers maps a namespace to the
	// names resolved unqualified through it. Nothing in this package
	// fills Aliases or Refers: `namespace` and `load` declarations
	// leave both empty.
	CurrentNamespace string
	Namespaces       map[string]bool
	Aliases          map[string]string
	Refers           map[string][]string

	// formCache is an LRU of compiled Programs keyed by a uint64 form
	// hash, reached through cacheGet/cachePut. Compile neither reads
	// nor fills it, so every submitted form is compiled afresh.
	// Grounded on the teacher's blockstore.go `lru.New[string,
	// blocks.Block](1000)` block cache.
	formCache *lru.Cache[uint64, *Program]

	MaxMacroExpansions int
}

// NewSession constructs a fresh, empty persistent compiler session
// sharing interner with the rest of the runtime.
func NewSession(interner *value.Interner) *Session {
	cache, _ := lru.New[uint64, *Program](1000)
	return &Session{
		Interner:           interner,
		Macros:             macro.NewRegistry(),
		Globals:            make(map[string]int),
		Namespaces:         make(map[string]bool),
		Aliases:            make(map[string]string),
		Refers:             make(map[string][]string),
		formCache:          cache,
		MaxMacroExpansions: 512,
	}
}

// globalSlot returns the slot index for name, allocating one on first
// sight; the slot persists across every later Compile call on this
// Session.
func (s *Session) globalSlot(name string) int {
	if idx, ok := s.Globals[name]; ok {
		return idx
	}
	idx := s.globalsCount
	s.globalsCount++
	s.Globals[name] = idx
	s.GlobalSlots = append(s.GlobalSlots, GlobalSlot{Index: idx, Name: name})
	return idx
}

// resolveQualified splits `alias/name` into its namespace-qualified
// form, if alias is registered; otherwise returns ok=false so the
// caller falls through to refer resolution or a plain global lookup.
func (s *Session) resolveQualified(alias, name string) (string, bool) {
	ns, ok := s.Aliases[alias]
	if !ok {
		return "", false
	}
	return ns + "/" + name, true
}

// resolveRefer reports whether name was `refer`red from some loaded
// namespace, returning its fully qualified form.
func (s *Session) resolveRefer(name string) (string, bool) {
	for ns, names := range s.Refers {
		for _, n := range names {
			if n == name {
				return ns + "/" + name, true
			}
		}
	}
	return "", false
}

// cacheGet/cachePut read and fill the formCache; Compile calls neither.
func (s *Session) cacheGet(key uint64) (*Program, bool) {
	return s.formCache.Get(key)
}

func (s *Session) cachePut(key uint64, p *Program) {
	s.formCache.Add(key, p)
}
