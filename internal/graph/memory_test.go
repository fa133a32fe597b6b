package graph

import (
	"testing"

	"github.com/passbi/passbi_netex/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryGraph(t *testing.T) {
	m := NewInMemoryGraph()
	assert.False(t, m.IsLoaded())
	stats, _ := m.Stats()
	assert.Nil(t, stats)
	assert.Nil(t, m.SearchNodes("", 10))

	m.Load(compile(t, 2))
	require.True(t, m.IsLoaded())

	stats, loadedAt := m.Stats()
	assert.Equal(t, 4, stats.Nodes)
	assert.Equal(t, 3, stats.Edges)
	assert.Equal(t, 5, stats.Journeys)
	assert.False(t, loadedAt.IsZero())

	idx, node, ok := m.Node("CTL")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "CTL", node.ShortName)

	_, _, ok = m.Node("XYZ")
	assert.False(t, ok)

	n, ok := m.NodeAt(3)
	require.True(t, ok)
	assert.Equal(t, "WST", n.ShortName)
	_, ok = m.NodeAt(4)
	assert.False(t, ok)

	out := m.Outgoing(0)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].EndNode)
	assert.Empty(t, m.Outgoing(2))

	edge, ok := m.Edge(3, 0)
	require.True(t, ok)
	assert.Len(t, edge.Timetable.Journeys, 1)
	_, ok = m.Edge(0, 3)
	assert.False(t, ok)
}

func TestSearchNodes(t *testing.T) {
	m := NewInMemoryGraph()
	m.Load(&models.Graph{Nodes: []models.Node{
		{ShortName: "Bern"}, {ShortName: "Basel SBB"}, {ShortName: "Biel"}, {ShortName: "Zurich HB"},
	}})

	tests := []struct {
		prefix string
		limit  int
		want   []string
	}{
		{"b", 0, []string{"Basel SBB", "Bern", "Biel"}},
		{"BE", 0, []string{"Bern"}},
		{"", 2, []string{"Basel SBB", "Bern"}},
		{"geneva", 5, nil},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			var got []string
			for _, n := range m.SearchNodes(tt.prefix, tt.limit) {
				got = append(got, n.ShortName)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
