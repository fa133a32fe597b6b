package graph

import (
	"context"
	"fmt"
	"runtime"

	"github.com/passbi/passbi_netex/internal/calendar"
	"github.com/passbi/passbi_netex/internal/models"
	"golang.org/x/sync/errgroup"
)

// Compactor renumbers each edge's operating periods locally and attaches the
// packed calendars they refer to.
type Compactor struct {
	datasets []models.Dataset
	workers  int
}

// NewCompactor creates a compactor resolving global periods against datasets
func NewCompactor(datasets []models.Dataset, workers int) *Compactor {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Compactor{datasets: datasets, workers: workers}
}

// Compact rewrites every edge in parallel. Each edge is handled by exactly
// one goroutine.
func (c *Compactor) Compact(ctx context.Context, edges []*models.Edge) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, edge := range edges {
		edge := edge
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := c.CompactEdge(edge); err != nil {
				return fmt.Errorf("edge %d->%d: %w", edge.StartNode, edge.EndNode, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// CompactEdge assigns local period indices in first-encounter order, builds
// the edge-local period table and rewrites the journeys to local indices.
func (c *Compactor) CompactEdge(edge *models.Edge) error {
	globalToLocal := make(map[int]int)
	var order []int
	for _, j := range edge.Timetable.Journeys {
		if _, ok := globalToLocal[j.OperatingPeriod]; ok {
			continue
		}
		globalToLocal[j.OperatingPeriod] = len(order)
		order = append(order, j.OperatingPeriod)
	}

	periods := make([]models.OperatingPeriod, len(order))
	for local, global := range order {
		op, _, _, ok := LookupOperatingPeriod(c.datasets, global)
		if !ok {
			return models.NewCompileError(models.ErrMissingOperatingPeriod, "", fmt.Sprintf("global index %d", global))
		}
		validDay := make([]byte, len(op.ValidDayBits))
		copy(validDay, op.ValidDayBits)
		periods[local] = models.OperatingPeriod{
			From:         op.From,
			To:           op.To,
			ValidDayBits: calendar.Encode(validDay),
			ValidDay:     validDay,
		}
	}

	for i := range edge.Timetable.Journeys {
		j := &edge.Timetable.Journeys[i]
		j.OperatingPeriod = globalToLocal[j.OperatingPeriod]
	}
	edge.Timetable.Periods = periods
	return nil
}
