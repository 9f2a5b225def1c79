package decl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloudx/longtable/parser"
)

func analyzeSrc(t *testing.T, src string) (*Decl, bool, error) {
	t.Helper()
	forms, err := parser.ParseAll(src)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	return Analyze(forms[0])
}

func TestAnalyzeComponentFieldTriples(t *testing.T) {
	d, ok, err := analyzeSrc(t, `(component: health (:current :int) (:max :int :default 100))`)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, d.Component)
	assert.Equal(t, "health", d.Component.Name)
	require.Len(t, d.Component.Fields, 2)
	assert.Equal(t, "current", d.Component.Fields[0].Name)
	assert.True(t, d.Component.Fields[0].Required)
	assert.Equal(t, "max", d.Component.Fields[1].Name)
	assert.True(t, d.Component.Fields[1].HasDefault)
}

func TestAnalyzeComponentFlatFields(t *testing.T) {
	d, ok, err := analyzeSrc(t, `(component: health :current :int :max :int :default 100)`)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, d.Component)
	assert.Equal(t, "health", d.Component.Name)
	require.Len(t, d.Component.Fields, 2)
	assert.Equal(t, "current", d.Component.Fields[0].Name)
	assert.True(t, d.Component.Fields[0].Required)
	assert.False(t, d.Component.Fields[0].HasDefault)
	assert.Equal(t, "max", d.Component.Fields[1].Name)
	assert.True(t, d.Component.Fields[1].HasDefault)
}

func TestAnalyzeComponentTagShorthand(t *testing.T) {
	d, ok, err := analyzeSrc(t, `(component: tag/player :bool :default true)`)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, d.Component)
	require.Len(t, d.Component.Fields, 1)
	assert.True(t, d.Component.Fields[0].HasDefault)
}

func TestAnalyzeComponentBareTag(t *testing.T) {
	d, ok, err := analyzeSrc(t, `(component: visible)`)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, d.Component.IsTag)
}

func TestAnalyzeRelationship(t *testing.T) {
	d, ok, err := analyzeSrc(t, `(relationship: contains :cardinality :many-to-many :on-target-delete :cascade)`)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, d.Relationship)
	assert.Equal(t, "contains", d.Relationship.Name)
	assert.Equal(t, "many-to-many", d.Relationship.Cardinality)
	assert.Equal(t, "cascade", d.Relationship.OnTargetDelete)
}

func TestAnalyzeRule(t *testing.T) {
	d, ok, err := analyzeSrc(t, `(rule: dmg :salience 10 :where [[?e :damage ?d]] :then [(set-field ?e :health :current 1)])`)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, d.Rule)
	assert.Equal(t, "dmg", d.Rule.Name)
	assert.Equal(t, int64(10), d.Rule.Salience)
	require.Len(t, d.Rule.Where, 1)
	require.Len(t, d.Rule.Then, 1)
}

func TestAnalyzeNamespaceAndLoad(t *testing.T) {
	d, ok, err := analyzeSrc(t, `(namespace combat)`)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "combat", d.Namespace.Name)

	d2, ok2, err := analyzeSrc(t, `(load combat)`)
	require.NoError(t, err)
	require.True(t, ok2)
	assert.Equal(t, "combat", d2.Load.Namespace)
}

func TestAnalyzeSpawnAndLink(t *testing.T) {
	d, ok, err := analyzeSrc(t, `(spawn: hero {:health {:current 100}})`)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hero", d.Spawn.Binding)
	assert.Contains(t, d.Spawn.Components, "health")

	d2, ok2, err := analyzeSrc(t, `(link: hero :contains sword)`)
	require.NoError(t, err)
	require.True(t, ok2)
	assert.Equal(t, "hero", d2.Link.Source)
	assert.Equal(t, "contains", d2.Link.Relationship)
	assert.Equal(t, "sword", d2.Link.Target)
}

func TestAnalyzeNonDeclarationFormReturnsFalse(t *testing.T) {
	_, ok, err := analyzeSrc(t, `(+ 1 2)`)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAnalyzeMissingNameIsError(t *testing.T) {
	_, _, err := analyzeSrc(t, `(component:)`)
	require.Error(t, err)
}
