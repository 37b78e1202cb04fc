package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clihub/internal/app/catalog"
	"clihub/internal/domain"
)

func TestResolve_Explore(t *testing.T) {
	set, err := Resolve("explore")
	require.NoError(t, err)
	assert.Equal(t, domain.VisibilitySet{catalog.GroupFilesystem, catalog.GroupSearch, catalog.GroupGit}, set)
}

// TestResolve_Aliases verifies case folding and "-"/"_" equivalence.
func TestResolve_Aliases(t *testing.T) {
	want, err := Resolve("dev-deploy")
	require.NoError(t, err)
	for _, name := range []string{"dev_deploy", "DevDeploy", "deploy", " DEV-DEPLOY "} {
		got, err := Resolve(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	gen, err := Lookup("gen")
	require.NoError(t, err)
	assert.Equal(t, Generator, gen.Name)
}

func TestResolve_FullAndNone(t *testing.T) {
	full, err := Resolve("all")
	require.NoError(t, err)
	assert.Len(t, full, len(catalog.DefaultGroups()))

	none, err := Resolve("none")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestResolve_Unknown(t *testing.T) {
	_, err := Resolve("wizard")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownProfile)
	assert.Contains(t, err.Error(), "explore")
}

// TestProfiles_KnownGroups verifies every profile references registered groups.
func TestProfiles_KnownGroups(t *testing.T) {
	reg, err := catalog.Default()
	require.NoError(t, err)
	for _, p := range Profiles() {
		for _, id := range p.Groups {
			assert.True(t, reg.HasGroup(id), "%s references %s", p.Name, id)
		}
	}
	assert.Equal(t, string(Full), Names()[len(Names())-2])
}
