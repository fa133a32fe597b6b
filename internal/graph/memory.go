package graph

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/passbi/passbi_netex/internal/models"
)

// InMemoryGraph holds a compiled graph with lookup indices for the API
type InMemoryGraph struct {
	mu         sync.RWMutex
	graph      *models.Graph
	nodeByName map[string]int         // short name -> node index
	outgoing   map[int][]int          // start node -> edge indices
	edgeByKey  map[models.EdgeKey]int // (start, end) -> edge index
	loadedAt   time.Time
	stats      *Stats
}

var (
	globalGraph     *InMemoryGraph
	globalGraphOnce sync.Once
)

// GetGraph returns the singleton in-memory graph
func GetGraph() *InMemoryGraph {
	globalGraphOnce.Do(func() {
		globalGraph = NewInMemoryGraph()
	})
	return globalGraph
}

// NewInMemoryGraph creates an empty graph holder
func NewInMemoryGraph() *InMemoryGraph {
	return &InMemoryGraph{
		nodeByName: make(map[string]int),
		outgoing:   make(map[int][]int),
		edgeByKey:  make(map[models.EdgeKey]int),
	}
}

// Load indexes g and swaps it in
func (m *InMemoryGraph) Load(g *models.Graph) {
	nodeByName := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		nodeByName[n.ShortName] = i
	}

	outgoing := make(map[int][]int)
	edgeByKey := make(map[models.EdgeKey]int, len(g.Edges))
	for i := range g.Edges {
		edge := &g.Edges[i]
		outgoing[edge.StartNode] = append(outgoing[edge.StartNode], i)
		edgeByKey[edge.Key()] = i
	}

	stats := StatsOf(g)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.graph = g
	m.nodeByName = nodeByName
	m.outgoing = outgoing
	m.edgeByKey = edgeByKey
	m.stats = stats
	m.loadedAt = time.Now()

	log.Printf("Graph loaded into memory (%d nodes, %d edges, %d journeys)", stats.Nodes, stats.Edges, stats.Journeys)
}

// LoadFromStore reads the persisted graph and swaps it in
func (m *InMemoryGraph) LoadFromStore(ctx context.Context, store *Store) error {
	startTime := time.Now()
	log.Println("Loading graph from database...")

	g, err := store.LoadGraph(ctx)
	if err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}
	m.Load(g)

	log.Printf("Graph loaded in %v", time.Since(startTime))
	return nil
}

// IsLoaded returns true if a graph has been loaded
func (m *InMemoryGraph) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graph != nil
}

// Stats returns the statistics of the loaded graph and when it was loaded
func (m *InMemoryGraph) Stats() (*Stats, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats, m.loadedAt
}

// Node returns a node by short name
func (m *InMemoryGraph) Node(name string) (int, models.Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.nodeByName[name]
	if !ok {
		return 0, models.Node{}, false
	}
	return idx, m.graph.Nodes[idx], true
}

// NodeAt returns a node by index
func (m *InMemoryGraph) NodeAt(idx int) (models.Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.graph == nil || idx < 0 || idx >= len(m.graph.Nodes) {
		return models.Node{}, false
	}
	return m.graph.Nodes[idx], true
}

// SearchNodes returns up to limit nodes whose short name starts with prefix
// (case-insensitive), ordered by name
func (m *InMemoryGraph) SearchNodes(prefix string, limit int) []models.Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.graph == nil {
		return nil
	}

	prefix = strings.ToUpper(prefix)
	var result []models.Node
	for _, n := range m.graph.Nodes {
		if strings.HasPrefix(strings.ToUpper(n.ShortName), prefix) {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ShortName < result[j].ShortName })

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Outgoing returns the edges starting at node
func (m *InMemoryGraph) Outgoing(node int) []models.Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idxs := m.outgoing[node]
	edges := make([]models.Edge, 0, len(idxs))
	for _, i := range idxs {
		edges = append(edges, m.graph.Edges[i])
	}
	return edges
}

// Edge returns the edge from start to end
func (m *InMemoryGraph) Edge(start, end int) (models.Edge, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.edgeByKey[models.EdgeKey{Start: start, End: end}]
	if !ok {
		return models.Edge{}, false
	}
	return m.graph.Edges[idx], true
}
