package models

import "time"

// TransportMode is the NeTEx transport mode of a service journey (bus, rail, tram, ...)
type TransportMode = string

// Dataset input records
//
// These are produced by the NeTEx parser, one Dataset per input file. All
// identifiers are dataset-local strings as they appear in the source XML.

// StopPoint represents a ScheduledStopPoint
type StopPoint struct {
	ID        string
	ShortName string
	Longitude float32
	Latitude  float32
}

// PatternPoint represents a StopPointInJourneyPattern
type PatternPoint struct {
	ID           string
	StopPointRef string
}

// JourneyPattern represents an ordered sequence of stop references served by a line
type JourneyPattern struct {
	ID      string
	LineRef string
	Points  []PatternPoint
}

// PassingTime represents a TimetabledPassingTime, times are minutes of day
type PassingTime struct {
	PatternPointRef string
	Arrival         uint16
	Departure       uint16
}

// ServiceJourney represents one scheduled trip following a journey pattern
type ServiceJourney struct {
	ID            string
	PatternRef    string
	DayTypeRef    string
	TransportMode TransportMode
	PassingTimes  []PassingTime
}

// UICOperatingPeriod represents a UicOperatingPeriod with its packed day bitmap
type UICOperatingPeriod struct {
	ID           string
	From         uint32 // YYMMDD
	To           uint32 // YYMMDD
	ValidDayBits []byte
}

// DayTypeAssignment binds a day type to an operating period
type DayTypeAssignment struct {
	DayTypeRef         string
	OperatingPeriodRef string
	IsAvailable        bool
}

// Line represents a transit line
type Line struct {
	ID           string
	ShortName    string
	AuthorityRef string
}

// Authority represents the organisation controlling a line
type Authority struct {
	ID        string
	ShortName string
}

// Dataset is everything parsed from one NeTEx source
type Dataset struct {
	Name               string
	StopPoints         []StopPoint
	JourneyPatterns    []JourneyPattern
	ServiceJourneys    []ServiceJourney
	OperatingPeriods   []UICOperatingPeriod
	DayTypeAssignments []DayTypeAssignment
	Lines              []Line
	Authorities        []Authority
}

// Compiled graph
//
// Short serialization keys keep the per-edge payload small.

// Node represents a physical stop, deduplicated by short name across datasets
type Node struct {
	ShortName string  `json:"n" msgpack:"n"`
	Longitude float32 `json:"x" msgpack:"x"`
	Latitude  float32 `json:"y" msgpack:"y"`
}

// Journey represents a single scheduled trip between two adjacent stops
type Journey struct {
	Departure       uint16        `json:"d" msgpack:"d"`
	Arrival         uint16        `json:"a" msgpack:"a"`
	TransportMode   TransportMode `json:"t" msgpack:"t"`
	OperatingPeriod int           `json:"o" msgpack:"o"`
	Line            string        `json:"l" msgpack:"l"`
	Controller      string        `json:"c" msgpack:"c"`
}

// OperatingPeriod is an edge-local calendar entry
type OperatingPeriod struct {
	From         uint32 `json:"f" msgpack:"f"`
	To           uint32 `json:"t" msgpack:"t"`
	ValidDayBits string `json:"v" msgpack:"v"`
	ValidDay     []byte `json:"-" msgpack:"b"`
}

// Timetable holds the journeys of one edge and the periods they reference
type Timetable struct {
	Journeys []Journey         `json:"j" msgpack:"j"`
	Periods  []OperatingPeriod `json:"p" msgpack:"p"`
}

// Edge connects two nodes in travel direction
type Edge struct {
	StartNode int       `json:"s" msgpack:"s"`
	EndNode   int       `json:"e" msgpack:"e"`
	Timetable Timetable `json:"tt" msgpack:"tt"`
}

// EdgeKey identifies an edge by its ordered node pair
type EdgeKey struct {
	Start int
	End   int
}

// Key returns the edge's ordered node pair
func (e *Edge) Key() EdgeKey {
	return EdgeKey{Start: e.StartNode, End: e.EndNode}
}

// Graph is the compiled product: ordered nodes and self-contained edges
type Graph struct {
	Nodes []Node `json:"nodes" msgpack:"nodes"`
	Edges []Edge `json:"edges" msgpack:"edges"`
}

// JourneyCount returns the number of journey records over all edges
func (g *Graph) JourneyCount() int {
	n := 0
	for i := range g.Edges {
		n += len(g.Edges[i].Timetable.Journeys)
	}
	return n
}

// CompileLog represents a graph compilation run
type CompileLog struct {
	ID            string
	StartedAt     time.Time
	CompletedAt   *time.Time
	Status        string
	DatasetsCount int
	NodesCount    int
	EdgesCount    int
	JourneysCount int
	ErrorMsg      string
}
