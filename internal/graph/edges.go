package graph

import (
	"context"
	"fmt"
	"runtime"

	"github.com/passbi/passbi_netex/internal/models"
	"golang.org/x/sync/errgroup"
)

// EdgeSet is a partial or complete set of edges keyed by node pair
type EdgeSet map[models.EdgeKey]*models.Edge

// add appends j to the edge (start, end), creating the edge on first use
func (s EdgeSet) add(start, end int, j models.Journey) {
	key := models.EdgeKey{Start: start, End: end}
	edge, ok := s[key]
	if !ok {
		edge = &models.Edge{StartNode: start, EndNode: end}
		s[key] = edge
	}
	edge.Timetable.Journeys = append(edge.Timetable.Journeys, j)
}

// mergeEdges folds b into a: edge keys are unioned and journey lists of
// shared edges concatenated, a's journeys first.
func mergeEdges(a, b EdgeSet) EdgeSet {
	if len(a) == 0 {
		return b
	}
	for key, edge := range b {
		existing, ok := a[key]
		if !ok {
			a[key] = edge
			continue
		}
		existing.Timetable.Journeys = append(existing.Timetable.Journeys, edge.Timetable.Journeys...)
	}
	return a
}

// EdgeBuilder turns service journeys into edges. Operating periods on the
// produced journeys are still global indices.
type EdgeBuilder struct {
	resolver *Resolver
	workers  int
}

// NewEdgeBuilder creates an edge builder reading from resolver
func NewEdgeBuilder(resolver *Resolver, workers int) *EdgeBuilder {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &EdgeBuilder{resolver: resolver, workers: workers}
}

// chunkBounds returns the half-open range of chunk c when n items are split
// into chunks contiguous pieces
func chunkBounds(n, chunks, c int) (lo, hi int) {
	return c * n / chunks, (c + 1) * n / chunks
}

// journeyRef points at a service journey inside the dataset slice
type journeyRef struct {
	dataset int
	journey int
}

// Build splits all service journeys into contiguous chunks, builds one private
// EdgeSet per chunk and merges the partials in chunk order. The first error
// cancels the remaining chunks.
func (b *EdgeBuilder) Build(ctx context.Context, datasets []models.Dataset) (EdgeSet, error) {
	var refs []journeyRef
	for di := range datasets {
		for ji := range datasets[di].ServiceJourneys {
			refs = append(refs, journeyRef{dataset: di, journey: ji})
		}
	}
	if len(refs) == 0 {
		return EdgeSet{}, nil
	}

	chunks := min(b.workers, len(refs))
	partials := make([]EdgeSet, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for c := 0; c < chunks; c++ {
		// chunk sizes differ by at most one and every chunk is non-empty
		c := c
		lo, hi := chunkBounds(len(refs), chunks, c)
		g.Go(func() error {
			partial := make(EdgeSet)
			for i, ref := range refs[lo:hi] {
				// check for cancellation every few hundred journeys
				if i%256 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				ds := &datasets[ref.dataset]
				if err := b.addJourney(partial, &ds.ServiceJourneys[ref.journey]); err != nil {
					return fmt.Errorf("dataset %s: %w", ds.Name, err)
				}
			}
			partials[c] = partial
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	edges := make(EdgeSet)
	for _, partial := range partials {
		edges = mergeEdges(edges, partial)
	}
	return edges, nil
}

// addJourney emits one journey record per adjacent pair of passing times
func (b *EdgeBuilder) addJourney(edges EdgeSet, sj *models.ServiceJourney) error {
	if len(sj.PassingTimes) < 2 {
		return nil
	}

	period, err := b.resolver.GlobalPeriodOf(sj.DayTypeRef)
	if err != nil {
		return fmt.Errorf("service journey %s: %w", sj.ID, err)
	}
	line, err := b.resolver.LineOf(sj.PatternRef)
	if err != nil {
		return fmt.Errorf("service journey %s: %w", sj.ID, err)
	}
	authority, err := b.resolver.Authority(line.AuthorityRef)
	if err != nil {
		return fmt.Errorf("service journey %s: line %s: %w", sj.ID, line.ID, err)
	}

	prev := sj.PassingTimes[0]
	start, err := b.resolver.NodeOfPatternPoint(prev.PatternPointRef)
	if err != nil {
		return fmt.Errorf("service journey %s: %w", sj.ID, err)
	}
	for _, current := range sj.PassingTimes[1:] {
		end, err := b.resolver.NodeOfPatternPoint(current.PatternPointRef)
		if err != nil {
			return fmt.Errorf("service journey %s: %w", sj.ID, err)
		}
		edges.add(start, end, models.Journey{
			Departure:       prev.Departure,
			Arrival:         current.Arrival,
			TransportMode:   sj.TransportMode,
			OperatingPeriod: period,
			Line:            line.ShortName,
			Controller:      authority.ShortName,
		})
		prev, start = current, end
	}
	return nil
}
