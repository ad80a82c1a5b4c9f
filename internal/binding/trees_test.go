package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crossbind/internal/testutil"
)

func TestBuildTrees_MatchesLoadedRuntime(t *testing.T) {
	f := newFixture(t)

	trees, err := BuildTrees(testutil.WidgetLibrary().Model)
	require.NoError(t, err)

	loaded := f.rt.Trees()
	require.Len(t, trees, len(loaded))
	for name, tree := range trees {
		require.Contains(t, loaded, name)
		assert.Equal(t, loaded[name].Hash, tree.Hash, name)
		assert.Equal(t, loaded[name].Rendered, tree.Rendered, name)
	}
}

func TestBuildTrees_MissingConvertingConstructor(t *testing.T) {
	lib := testutil.WidgetLibrary()
	point, ok := lib.Model.Type("Point")
	require.True(t, ok)
	point.ImplicitFrom = append(point.ImplicitFrom, "std::string")

	_, err := BuildTrees(lib.Model)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no constructor Point.Point(std::string)")
}
