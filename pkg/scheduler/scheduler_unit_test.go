package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLayersSingleNode(t *testing.T) {
	g, err := Build([]Node{{Name: "web"}})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"web"}}, g.Layers())
}

func TestBuildLayersDiamond(t *testing.T) {
	g, err := Build([]Node{
		{Name: "web", DependsOn: []string{"api"}},
		{Name: "api", DependsOn: []string{"db", "cache"}},
		{Name: "db"},
		{Name: "cache"},
	})
	require.NoError(t, err)

	layers := g.Layers()
	require.Len(t, layers, 3)
	assert.Equal(t, []string{"cache", "db"}, layers[0])
	assert.Equal(t, []string{"api"}, layers[1])
	assert.Equal(t, []string{"web"}, layers[2])
}

func TestBuildDetectsDirectCycle(t *testing.T) {
	_, err := Build([]Node{
		{Name: "a", DependsOn: []string{"b"}},
		{Name: "b", DependsOn: []string{"a"}},
	})
	assert.Error(t, err)
}

func TestBuildDetectsSelfCycle(t *testing.T) {
	_, err := Build([]Node{
		{Name: "a", DependsOn: []string{"a"}},
	})
	assert.Error(t, err)
}

func TestBuildRejectsUnknownDependency(t *testing.T) {
	_, err := Build([]Node{
		{Name: "web", DependsOn: []string{"ghost"}},
	})
	assert.Error(t, err)
}

func TestBuildRejectsDuplicateName(t *testing.T) {
	_, err := Build([]Node{
		{Name: "web"},
		{Name: "web"},
	})
	assert.Error(t, err)
}

func TestReverseLayersMirrorsForward(t *testing.T) {
	g, err := Build([]Node{
		{Name: "web", DependsOn: []string{"db"}},
		{Name: "db"},
	})
	require.NoError(t, err)

	forward := g.Layers()
	reverse := g.ReverseLayers()
	require.Len(t, reverse, len(forward))
	for i := range forward {
		assert.Equal(t, forward[i], reverse[len(reverse)-1-i])
	}
}

func TestNodeLookup(t *testing.T) {
	g, err := Build([]Node{{Name: "web", DependsOn: []string{"db"}}, {Name: "db"}})
	require.NoError(t, err)

	n, ok := g.Node("web")
	require.True(t, ok)
	assert.Equal(t, []string{"db"}, n.DependsOn)

	_, ok = g.Node("ghost")
	assert.False(t, ok)
}
