package graph

import (
	"fmt"

	"github.com/passbi/passbi_netex/internal/models"
)

// Resolver holds the cross-dataset lookup tables. It is built once, single
// threaded, and only read afterwards, so it is safe for concurrent use.
//
// Stop aliases use first-write-wins per short name, while lines, authorities,
// pattern lines and day types are last-write-wins across datasets.
type Resolver struct {
	nodes []models.Node

	nodeByName   map[string]int
	stopNode     map[string]int                      // stop point id -> node index
	pointStop    map[string]string                   // pattern point id -> stop point id
	patternLine  map[string]string                   // pattern id -> line id
	lines        map[string]models.Line              // line id -> line
	authorities  map[string]models.Authority         // authority id -> authority
	dayTypes     map[string]models.DayTypeAssignment // day type id -> assignment
	periodGlobal map[string]int                      // period id -> global index
	periodCount  int
}

// NewResolver builds every lookup table from datasets in order. It fails
// when a journey pattern references an unknown stop point.
func NewResolver(datasets []models.Dataset) (*Resolver, error) {
	r := &Resolver{
		nodeByName:   make(map[string]int),
		stopNode:     make(map[string]int),
		pointStop:    make(map[string]string),
		patternLine:  make(map[string]string),
		lines:        make(map[string]models.Line),
		authorities:  make(map[string]models.Authority),
		dayTypes:     make(map[string]models.DayTypeAssignment),
		periodGlobal: make(map[string]int),
	}

	r.indexNodes(datasets)
	if err := r.indexPatterns(datasets); err != nil {
		return nil, err
	}
	r.indexLines(datasets)
	r.indexCalendars(datasets)

	return r, nil
}

// indexNodes deduplicates stop points by short name. The first stop seen with
// a name defines the node index and its coordinates, later ones only alias it.
func (r *Resolver) indexNodes(datasets []models.Dataset) {
	for di := range datasets {
		for _, stop := range datasets[di].StopPoints {
			node, seen := r.nodeByName[stop.ShortName]
			if !seen {
				node = len(r.nodes)
				r.nodeByName[stop.ShortName] = node
				r.nodes = append(r.nodes, models.Node{
					ShortName: stop.ShortName,
					Longitude: stop.Longitude,
					Latitude:  stop.Latitude,
				})
			}
			r.stopNode[stop.ID] = node
		}
	}
}

func (r *Resolver) indexPatterns(datasets []models.Dataset) error {
	for di := range datasets {
		for _, jp := range datasets[di].JourneyPatterns {
			for _, point := range jp.Points {
				if _, ok := r.stopNode[point.StopPointRef]; !ok {
					return models.NewCompileError(models.ErrUnresolvedStopReference, datasets[di].Name, point.StopPointRef)
				}
				// first writer wins, duplicates only occur in malformed input
				if _, ok := r.pointStop[point.ID]; !ok {
					r.pointStop[point.ID] = point.StopPointRef
				}
			}
			r.patternLine[jp.ID] = jp.LineRef
		}
	}
	return nil
}

func (r *Resolver) indexLines(datasets []models.Dataset) {
	for di := range datasets {
		for _, line := range datasets[di].Lines {
			r.lines[line.ID] = line
		}
		for _, authority := range datasets[di].Authorities {
			r.authorities[authority.ID] = authority
		}
	}
}

// indexCalendars numbers operating periods densely over the concatenation of
// all datasets. LookupOperatingPeriod walks the same order.
func (r *Resolver) indexCalendars(datasets []models.Dataset) {
	for di := range datasets {
		for _, period := range datasets[di].OperatingPeriods {
			r.periodGlobal[period.ID] = r.periodCount
			r.periodCount++
		}
		for _, dta := range datasets[di].DayTypeAssignments {
			r.dayTypes[dta.DayTypeRef] = dta
		}
	}
}

// Nodes returns the canonical nodes in index order
func (r *Resolver) Nodes() []models.Node {
	return r.nodes
}

// PeriodCount returns the number of globally indexed operating periods
func (r *Resolver) PeriodCount() int {
	return r.periodCount
}

// NodeOf maps a stop point id to its canonical node index
func (r *Resolver) NodeOf(stopRef string) (int, bool) {
	node, ok := r.stopNode[stopRef]
	return node, ok
}

// StopOf maps a pattern point id to the stop point it references
func (r *Resolver) StopOf(patternPoint string) (string, bool) {
	stop, ok := r.pointStop[patternPoint]
	return stop, ok
}

// NodeOfPatternPoint resolves pattern point -> stop point -> node
func (r *Resolver) NodeOfPatternPoint(patternPoint string) (int, error) {
	stop, ok := r.StopOf(patternPoint)
	if !ok {
		return 0, models.NewCompileError(models.ErrUnresolvedStopReference, "", patternPoint)
	}
	node, ok := r.NodeOf(stop)
	if !ok {
		return 0, models.NewCompileError(models.ErrUnresolvedStopReference, "", stop)
	}
	return node, nil
}

// LineOf resolves a journey pattern to its line
func (r *Resolver) LineOf(patternRef string) (models.Line, error) {
	lineRef, ok := r.patternLine[patternRef]
	if !ok {
		return models.Line{}, models.NewCompileError(models.ErrUnresolvedLineReference, "", patternRef)
	}
	line, ok := r.lines[lineRef]
	if !ok {
		return models.Line{}, models.NewCompileError(models.ErrUnresolvedLineReference, "", lineRef)
	}
	return line, nil
}

// Authority returns the authority with the given id
func (r *Resolver) Authority(id string) (models.Authority, error) {
	authority, ok := r.authorities[id]
	if !ok {
		return models.Authority{}, models.NewCompileError(models.ErrUnresolvedLineReference, "", id)
	}
	return authority, nil
}

// PeriodOf resolves a day type to its operating period assignment
func (r *Resolver) PeriodOf(dayTypeRef string) (models.DayTypeAssignment, error) {
	dta, ok := r.dayTypes[dayTypeRef]
	if !ok {
		return models.DayTypeAssignment{}, models.NewCompileError(models.ErrMissingCalendarAssignment, "", dayTypeRef)
	}
	return dta, nil
}

// GlobalPeriodIndex returns the dense global index of an operating period id
func (r *Resolver) GlobalPeriodIndex(periodRef string) (int, error) {
	idx, ok := r.periodGlobal[periodRef]
	if !ok {
		return 0, models.NewCompileError(models.ErrMissingOperatingPeriod, "", periodRef)
	}
	return idx, nil
}

// GlobalPeriodOf resolves day type -> assignment -> global period index
func (r *Resolver) GlobalPeriodOf(dayTypeRef string) (int, error) {
	dta, err := r.PeriodOf(dayTypeRef)
	if err != nil {
		return 0, err
	}
	return r.GlobalPeriodIndex(dta.OperatingPeriodRef)
}

func (r *Resolver) String() string {
	return fmt.Sprintf("resolver{nodes: %d, stops: %d, pattern points: %d, lines: %d, periods: %d}",
		len(r.nodes), len(r.stopNode), len(r.pointStop), len(r.lines), r.periodCount)
}
