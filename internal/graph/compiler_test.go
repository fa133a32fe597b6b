package graph

import (
	"context"
	"testing"

	"github.com/passbi/passbi_netex/internal/calendar"
	"github.com/passbi/passbi_netex/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, workers int) *models.Graph {
	t.Helper()
	g, stats, err := NewCompiler(workers).Compile(context.Background(), testDatasets())
	require.NoError(t, err)
	require.NotNil(t, stats)
	return g
}

func TestCompileNodeDedup(t *testing.T) {
	g := compile(t, 2)

	ctl := 0
	for _, n := range g.Nodes {
		if n.ShortName == "CTL" {
			ctl++
			assert.Equal(t, float32(0), n.Longitude)
			assert.Equal(t, float32(0), n.Latitude)
		}
	}
	assert.Equal(t, 1, ctl)
	assert.Len(t, g.Nodes, 4)
}

func TestCompileGraphInvariants(t *testing.T) {
	datasets := testDatasets()
	g, stats, err := NewCompiler(3).Compile(context.Background(), datasets)
	require.NoError(t, err)

	assert.Equal(t, windowCount(datasets), g.JourneyCount())
	assert.Equal(t, g.JourneyCount(), stats.Journeys)
	assert.Equal(t, len(g.Edges), stats.Edges)
	assert.Equal(t, 2, stats.Datasets)

	seen := make(map[models.EdgeKey]bool)
	for _, edge := range g.Edges {
		assert.False(t, seen[edge.Key()], "duplicate edge %v", edge.Key())
		seen[edge.Key()] = true

		assert.Less(t, edge.StartNode, len(g.Nodes))
		assert.Less(t, edge.EndNode, len(g.Nodes))

		used := make(map[int]bool)
		for _, j := range edge.Timetable.Journeys {
			assert.GreaterOrEqual(t, j.OperatingPeriod, 0)
			assert.Less(t, j.OperatingPeriod, len(edge.Timetable.Periods))
			used[j.OperatingPeriod] = true
		}
		assert.Len(t, used, len(edge.Timetable.Periods))

		for _, p := range edge.Timetable.Periods {
			raw, err := calendar.Decode(p.ValidDayBits)
			require.NoError(t, err)
			assert.Equal(t, p.ValidDay, raw)
		}
	}
}

func TestCompileEdgesAreOrdered(t *testing.T) {
	g := compile(t, 4)
	keys := make([]models.EdgeKey, 0, len(g.Edges))
	for _, edge := range g.Edges {
		keys = append(keys, edge.Key())
	}
	assert.Equal(t, []models.EdgeKey{{Start: 0, End: 1}, {Start: 1, End: 2}, {Start: 3, End: 0}}, keys)
}

// journeyView is a journey with its local period resolved back to dates so
// journeys compare equal across different local numberings
type journeyView struct {
	models.Journey
	From uint32
	To   uint32
}

func journeyMultiset(g *models.Graph) map[models.EdgeKey][]journeyView {
	result := make(map[models.EdgeKey][]journeyView)
	for _, edge := range g.Edges {
		for _, j := range edge.Timetable.Journeys {
			p := edge.Timetable.Periods[j.OperatingPeriod]
			j.OperatingPeriod = 0
			result[edge.Key()] = append(result[edge.Key()], journeyView{Journey: j, From: p.From, To: p.To})
		}
	}
	return result
}

func TestCompileIdempotentAcrossWorkerCounts(t *testing.T) {
	base := compile(t, 1)
	baseJourneys := journeyMultiset(base)

	for _, workers := range []int{1, 2, 5} {
		g := compile(t, workers)
		assert.Equal(t, base.Nodes, g.Nodes)

		journeys := journeyMultiset(g)
		require.Len(t, journeys, len(baseJourneys))
		for key, expected := range baseJourneys {
			assert.ElementsMatch(t, expected, journeys[key], "edge %v workers %d", key, workers)
		}
	}
}

func TestCompileMissingCalendarAssignment(t *testing.T) {
	datasets := testDatasets()
	datasets[0].DayTypeAssignments = datasets[0].DayTypeAssignments[:1]

	g, stats, err := NewCompiler(2).Compile(context.Background(), datasets)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMissingCalendarAssignment)
	assert.Contains(t, err.Error(), "DT:A2")
	assert.Nil(t, g)
	assert.Nil(t, stats)
}

func TestCompileUnresolvedStop(t *testing.T) {
	datasets := testDatasets()
	datasets[0].StopPoints = datasets[0].StopPoints[:2]

	g, _, err := NewCompiler(2).Compile(context.Background(), datasets)
	assert.ErrorIs(t, err, models.ErrUnresolvedStopReference)
	assert.Nil(t, g)
}

func TestCompileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewCompiler(2).Compile(ctx, testDatasets())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatsOf(t *testing.T) {
	g := compile(t, 2)
	stats := StatsOf(g)
	assert.Equal(t, 4, stats.Nodes)
	assert.Equal(t, 3, stats.Edges)
	assert.Equal(t, 5, stats.Journeys)
	// CTL->NTH references two periods, the other edges one each
	assert.Equal(t, 4, stats.Periods)
}

func TestBusiestEdges(t *testing.T) {
	g := compile(t, 1)

	top := BusiestEdges(g, 2)
	require.Len(t, top, 2)
	assert.Equal(t, models.EdgeKey{Start: 0, End: 1}, top[0].Key())
	assert.Len(t, top[0].Timetable.Journeys, 3)
	assert.Equal(t, models.EdgeKey{Start: 1, End: 2}, top[1].Key())

	assert.Len(t, BusiestEdges(g, 10), len(g.Edges))
}
