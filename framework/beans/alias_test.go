package beans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAlias_ResolvesThroughChain verifies lookups, registration and alias
// chains all land on the canonical name.
func TestAlias_ResolvesThroughChain(t *testing.T) {
	t.Parallel()

	reg := New()
	require.NoError(t, reg.RegisterAlias("dataSource", "ds"))
	require.NoError(t, reg.RegisterAlias("ds", "db"))

	assert.Equal(t, "dataSource", reg.CanonicalName("db"))
	assert.Equal(t, "dataSource", reg.CanonicalName("ds"))

	require.NoError(t, reg.RegisterSingleton("db", "the-pool"))

	got, ok := reg.Get("dataSource")
	require.True(t, ok)
	assert.Equal(t, "the-pool", got)
	assert.True(t, reg.Contains("ds"))
	assert.Equal(t, []string{"dataSource"}, reg.Names())
}

// TestAlias_ConflictRejected verifies an alias cannot be rebound to a second
// name, while re-registering the same mapping is fine.
func TestAlias_ConflictRejected(t *testing.T) {
	t.Parallel()

	reg := New()
	require.NoError(t, reg.RegisterAlias("cache", "store"))
	require.NoError(t, reg.RegisterAlias("cache", "store"))

	err := reg.RegisterAlias("mailer", "store")
	var aerr AliasError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "store", aerr.Alias)
}

// TestAlias_CircularRejected verifies circular alias definitions fail.
func TestAlias_CircularRejected(t *testing.T) {
	t.Parallel()

	reg := New()
	require.NoError(t, reg.RegisterAlias("a", "b"))

	err := reg.RegisterAlias("b", "a")
	var aerr AliasError
	require.ErrorAs(t, err, &aerr)
}

// TestAlias_SelfAliasRemoves verifies aliasing a name to itself drops the
// existing alias, and RemoveAlias reports presence.
func TestAlias_SelfAliasRemoves(t *testing.T) {
	t.Parallel()

	reg := New()
	require.NoError(t, reg.RegisterAlias("svc", "shortcut"))
	assert.True(t, reg.IsAlias("shortcut"))

	require.NoError(t, reg.RegisterAlias("shortcut", "shortcut"))
	assert.False(t, reg.IsAlias("shortcut"))

	require.NoError(t, reg.RegisterAlias("svc", "other"))
	assert.True(t, reg.RemoveAlias("other"))
	assert.False(t, reg.RemoveAlias("other"))
}

// TestAlias_TransitiveAliases verifies Aliases walks the chain upward.
func TestAlias_TransitiveAliases(t *testing.T) {
	t.Parallel()

	reg := New()
	require.NoError(t, reg.RegisterAlias("svc", "one"))
	require.NoError(t, reg.RegisterAlias("one", "two"))

	aliases := reg.Aliases("svc")
	assert.ElementsMatch(t, []string{"one", "two"}, aliases)
}

// TestAlias_DependencyEdgesCanonicalized verifies graph edges registered
// through an alias attach to the canonical name.
func TestAlias_DependencyEdgesCanonicalized(t *testing.T) {
	t.Parallel()

	reg := New()
	require.NoError(t, reg.RegisterAlias("db", "dataSource"))
	reg.RegisterDependency("repo", "dataSource")

	assert.Equal(t, []string{"repo"}, reg.DependentsOf("db"))
	assert.Equal(t, []string{"db"}, reg.DependenciesOf("repo"))
	assert.True(t, reg.IsDependent("dataSource", "repo"))
}
