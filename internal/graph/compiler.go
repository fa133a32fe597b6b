package graph

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sort"
	"time"

	"github.com/passbi/passbi_netex/internal/models"
)

// Stats summarizes one compilation
type Stats struct {
	Datasets int           `json:"datasets"`
	Nodes    int           `json:"nodes"`
	Edges    int           `json:"edges"`
	Journeys int           `json:"journeys"`
	Periods  int           `json:"periods"`
	Duration time.Duration `json:"duration"`
}

// Compiler compiles parsed NeTEx datasets into a graph
type Compiler struct {
	Workers int
}

// NewCompiler creates a compiler using up to workers goroutines per parallel
// step. Zero or less uses GOMAXPROCS.
func NewCompiler(workers int) *Compiler {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Compiler{Workers: workers}
}

// Compile resolves identities, builds edges and compacts their calendars.
// Any unresolved reference aborts the whole compilation and no graph is returned.
//
// Journey order inside an edge, and therefore local period numbering, depends
// on the worker count. The sets of edges, journeys and periods do not.
func (c *Compiler) Compile(ctx context.Context, datasets []models.Dataset) (*models.Graph, *Stats, error) {
	startTime := time.Now()
	log.Printf("Starting graph compilation of %d datasets (%d workers)...", len(datasets), c.Workers)

	log.Println("Step 1/3: Resolving identities...")
	resolver, err := NewResolver(datasets)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve identities: %w", err)
	}
	log.Printf("Resolved %d nodes and %d operating periods", len(resolver.Nodes()), resolver.PeriodCount())

	log.Println("Step 2/3: Building edges...")
	edgeSet, err := NewEdgeBuilder(resolver, c.Workers).Build(ctx, datasets)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build edges: %w", err)
	}
	log.Printf("Created %d edges", len(edgeSet))

	edges := sortedEdges(edgeSet)

	log.Println("Step 3/3: Compacting calendars...")
	if err := NewCompactor(datasets, c.Workers).Compact(ctx, edges); err != nil {
		return nil, nil, fmt.Errorf("failed to compact calendars: %w", err)
	}

	g := &models.Graph{
		Nodes: resolver.Nodes(),
		Edges: make([]models.Edge, len(edges)),
	}
	stats := &Stats{Datasets: len(datasets), Nodes: len(g.Nodes), Edges: len(edges)}
	for i, edge := range edges {
		g.Edges[i] = *edge
		stats.Journeys += len(edge.Timetable.Journeys)
		stats.Periods += len(edge.Timetable.Periods)
	}
	stats.Duration = time.Since(startTime)

	log.Printf("Graph compiled in %v (%d nodes, %d edges, %d journeys, %d edge periods)",
		stats.Duration, stats.Nodes, stats.Edges, stats.Journeys, stats.Periods)
	return g, stats, nil
}

// sortedEdges orders edges by (start, end) so output does not depend on map
// iteration order
func sortedEdges(set EdgeSet) []*models.Edge {
	edges := make([]*models.Edge, 0, len(set))
	for _, edge := range set {
		edges = append(edges, edge)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].StartNode != edges[j].StartNode {
			return edges[i].StartNode < edges[j].StartNode
		}
		return edges[i].EndNode < edges[j].EndNode
	})
	return edges
}

// StatsOf computes Stats for an already compiled graph
func StatsOf(g *models.Graph) *Stats {
	stats := &Stats{Nodes: len(g.Nodes), Edges: len(g.Edges)}
	for i := range g.Edges {
		stats.Journeys += len(g.Edges[i].Timetable.Journeys)
		stats.Periods += len(g.Edges[i].Timetable.Periods)
	}
	return stats
}

// BusiestEdges returns up to n edges with the most journeys. Ties keep graph
// order.
func BusiestEdges(g *models.Graph, n int) []models.Edge {
	edges := append([]models.Edge(nil), g.Edges...)
	sort.SliceStable(edges, func(i, j int) bool {
		return len(edges[i].Timetable.Journeys) > len(edges[j].Timetable.Journeys)
	})
	if n < len(edges) {
		edges = edges[:n]
	}
	return edges
}
