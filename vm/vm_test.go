package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloudx/longtable/compiler"
	"github.com/gloudx/longtable/parser"
	"github.com/gloudx/longtable/value"
	"github.com/gloudx/longtable/world"
)

// runForms compiles and runs every form in src in order against one
// shared Session/VM pair, returning the final form's result.
func runForms(t *testing.T, m *VM, session *compiler.Session, src string) value.Value {
	t.Helper()
	forms, err := parser.ParseAll(src)
	require.NoError(t, err)
	require.NotEmpty(t, forms)

	var last value.Value
	for _, form := range forms {
		prog, err := compiler.Compile(session, form)
		require.NoError(t, err)
		last, err = m.Run(prog)
		require.NoError(t, err)
	}
	return last
}

func newTestVM() (*VM, *compiler.Session) {
	w := world.NewWorld(1)
	return New(w), compiler.NewSession(w.Interner())
}

func TestScenarioArithmetic(t *testing.T) {
	m, s := newTestVM()
	got := runForms(t, m, s, `(+ (* 2 3) (- 10 5))`)
	require.Equal(t, value.KindInt, got.Kind())
	assert.Equal(t, int64(11), got.AsInt())
}

func TestScenarioConditional(t *testing.T) {
	m, s := newTestVM()
	got := runForms(t, m, s, `(if (< 1 2) "yes" "no")`)
	require.Equal(t, value.KindString, got.Kind())
	assert.Equal(t, "yes", got.AsString())
}

func TestScenarioClosureCapture(t *testing.T) {
	m, s := newTestVM()
	got := runForms(t, m, s, `((let [y 10] (fn [x] (+ x y))) 5)`)
	require.Equal(t, value.KindInt, got.Kind())
	assert.Equal(t, int64(15), got.AsInt())
}

func TestScenarioRecursiveLetClosure(t *testing.T) {
	m, s := newTestVM()
	got := runForms(t, m, s, `(let [f (fn [n] (if (< n 2) n (+ (f (- n 1)) (f (- n 2)))))] (f 6))`)
	require.Equal(t, value.KindInt, got.Kind())
	assert.Equal(t, int64(8), got.AsInt())
}

func TestScenarioSpawnAndRead(t *testing.T) {
	m, s := newTestVM()
	got := runForms(t, m, s, `
(component: health :current :int :default 100)
(let [e (spawn {:health {:current 50}})] (get-field e :health :current))
`)
	require.Equal(t, value.KindInt, got.Kind())
	assert.Equal(t, int64(50), got.AsInt())
}

func TestScenarioCascadeDestroy(t *testing.T) {
	m, s := newTestVM()
	runForms(t, m, s, `
(relationship: parent :cardinality :many-to-many :on-target-delete :cascade)
(spawn: p {})
(spawn: c {})
(link: c :parent p)
`)
	// Find the child's current entity ref via the global slot the
	// spawn: declaration bound it to, then destroy the parent and
	// confirm the cascade removed it.
	cIdx, ok := s.Globals["c"]
	require.True(t, ok)
	pIdx, ok := s.Globals["p"]
	require.True(t, ok)
	require.Less(t, cIdx, len(m.Globals))
	require.Less(t, pIdx, len(m.Globals))

	childRef := m.Globals[cIdx].AsEntity()
	parentRef := m.Globals[pIdx].AsEntity()
	childID := world.EntityID{Index: childRef.Index, Generation: childRef.Generation}
	parentID := world.EntityID{Index: parentRef.Index, Generation: parentRef.Generation}

	require.True(t, m.World.Exists(childID))
	next, destroyed, err := m.World.Destroy(parentID)
	require.NoError(t, err)
	m.World = next

	assert.False(t, m.World.Exists(childID))
	assert.Contains(t, destroyed, childID)
}

func TestDivisionByZeroReportsError(t *testing.T) {
	m, s := newTestVM()
	forms, err := parser.ParseAll(`(/ 1 0)`)
	require.NoError(t, err)
	prog, err := compiler.Compile(s, forms[0])
	require.NoError(t, err)
	_, err = m.Run(prog)
	assert.Error(t, err)
}

func TestUndefinedSymbolReportsErrorAtRunTime(t *testing.T) {
	m, s := newTestVM()
	forms, err := parser.ParseAll(`never-defined`)
	require.NoError(t, err)
	prog, err := compiler.Compile(s, forms[0])
	require.NoError(t, err)
	_, err = m.Run(prog)
	assert.Error(t, err)
}

func TestStaleEntityAfterDestroy(t *testing.T) {
	m, s := newTestVM()
	runForms(t, m, s, `(spawn: e {})`)
	idx := s.Globals["e"]
	ref := m.Globals[idx].AsEntity()
	id := world.EntityID{Index: ref.Index, Generation: ref.Generation}

	next, _, err := m.World.Destroy(id)
	require.NoError(t, err)
	m.World = next

	assert.False(t, m.World.Exists(id))
	err = m.World.Validate(id)
	assert.Error(t, err)
}

func TestHOFMapFilterReduce(t *testing.T) {
	m, s := newTestVM()
	// Arithmetic operators compile to dedicated opcodes, not callable
	// values, so a HOF callback needs an explicit fn wrapper around
	// one — there is no bare `+` to pass by reference.
	got := runForms(t, m, s, `(reduce (fn [a b] (+ a b)) [1 2 3 4])`)
	require.Equal(t, value.KindInt, got.Kind())
	assert.Equal(t, int64(10), got.AsInt())
}
