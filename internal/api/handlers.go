package api

import (
	"fmt"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/passbi/passbi_netex/internal/calendar"
	"github.com/passbi/passbi_netex/internal/graph"
	"github.com/passbi/passbi_netex/internal/models"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// NodeResponse is a node with its index in the graph
type NodeResponse struct {
	Index     int     `json:"index"`
	Name      string  `json:"name"`
	Longitude float32 `json:"lon"`
	Latitude  float32 `json:"lat"`
}

// EdgeSummary describes an outgoing edge without its timetable
type EdgeSummary struct {
	To       NodeResponse `json:"to"`
	Journeys int          `json:"journeys"`
	Periods  int          `json:"periods"`
}

// JourneyResponse is a journey with readable times
type JourneyResponse struct {
	Departure       string `json:"departure"`
	Arrival         string `json:"arrival"`
	TransportMode   string `json:"transport_mode"`
	Line            string `json:"line"`
	Controller      string `json:"controller"`
	OperatingPeriod int    `json:"operating_period"`
}

// PeriodResponse is an edge-local operating period with its days spelled out
type PeriodResponse struct {
	From      string `json:"from"`
	To        string `json:"to"`
	ValidDays string `json:"valid_days"`
}

// EdgeResponse is the full timetable of one edge
type EdgeResponse struct {
	From     NodeResponse      `json:"from"`
	To       NodeResponse      `json:"to"`
	Journeys []JourneyResponse `json:"journeys"`
	Periods  []PeriodResponse  `json:"periods"`
}

// DeparturesResponse lists the journeys of an edge running on one date
type DeparturesResponse struct {
	From       NodeResponse      `json:"from"`
	To         NodeResponse      `json:"to"`
	Date       string            `json:"date"`
	Departures []JourneyResponse `json:"departures"`
}

// Handler serves read-only queries over an in-memory graph
type Handler struct {
	graph *graph.InMemoryGraph
}

// NewHandler creates a handler over g
func NewHandler(g *graph.InMemoryGraph) *Handler {
	return &Handler{graph: g}
}

// Register mounts the routes on app
func (h *Handler) Register(app fiber.Router) {
	app.Get("/health", h.Health)
	v1 := app.Group("/v1")
	v1.Get("/graph/stats", h.GraphStats)
	v1.Get("/nodes", h.SearchNodes)
	v1.Get("/nodes/:name", h.GetNode)
	v1.Get("/nodes/:name/edges", h.NodeEdges)
	v1.Get("/edges/:from/:to", h.GetEdge)
	v1.Get("/edges/:from/:to/departures", h.EdgeDepartures)
}

// Health handles GET /health
func (h *Handler) Health(c *fiber.Ctx) error {
	status := "ok"
	code := fiber.StatusOK
	if !h.graph.IsLoaded() {
		status = "graph not loaded"
		code = fiber.StatusServiceUnavailable
	}
	_, loadedAt := h.graph.Stats()

	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"loaded_at": loadedAt,
	})
}

// GraphStats handles GET /v1/graph/stats
func (h *Handler) GraphStats(c *fiber.Ctx) error {
	stats, loadedAt := h.graph.Stats()
	if stats == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "graph not loaded")
	}
	return c.JSON(fiber.Map{
		"nodes":     stats.Nodes,
		"edges":     stats.Edges,
		"journeys":  stats.Journeys,
		"periods":   stats.Periods,
		"loaded_at": loadedAt.Format(time.RFC3339),
	})
}

// SearchNodes handles GET /v1/nodes?q=&limit=
func (h *Handler) SearchNodes(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultSearchLimit)
	if limit <= 0 || limit > maxSearchLimit {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxSearchLimit))
	}

	nodes := h.graph.SearchNodes(c.Query("q"), limit)
	result := make([]NodeResponse, 0, len(nodes))
	for _, n := range nodes {
		idx, _, _ := h.graph.Node(n.ShortName)
		result = append(result, nodeResponse(idx, n))
	}

	return c.JSON(fiber.Map{
		"nodes": result,
		"count": len(result),
	})
}

// GetNode handles GET /v1/nodes/:name
func (h *Handler) GetNode(c *fiber.Ctx) error {
	idx, node, err := h.lookupNode(c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"node":     nodeResponse(idx, node),
		"outgoing": len(h.graph.Outgoing(idx)),
	})
}

// NodeEdges handles GET /v1/nodes/:name/edges
func (h *Handler) NodeEdges(c *fiber.Ctx) error {
	idx, node, err := h.lookupNode(c.Params("name"))
	if err != nil {
		return err
	}

	edges := h.graph.Outgoing(idx)
	result := make([]EdgeSummary, 0, len(edges))
	for _, e := range edges {
		to, _ := h.graph.NodeAt(e.EndNode)
		result = append(result, EdgeSummary{
			To:       nodeResponse(e.EndNode, to),
			Journeys: len(e.Timetable.Journeys),
			Periods:  len(e.Timetable.Periods),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].To.Name < result[j].To.Name })

	return c.JSON(fiber.Map{
		"from":  nodeResponse(idx, node),
		"edges": result,
	})
}

// GetEdge handles GET /v1/edges/:from/:to
func (h *Handler) GetEdge(c *fiber.Ctx) error {
	from, to, edge, err := h.lookupEdge(c)
	if err != nil {
		return err
	}

	resp := EdgeResponse{
		From:     from,
		To:       to,
		Journeys: make([]JourneyResponse, 0, len(edge.Timetable.Journeys)),
		Periods:  make([]PeriodResponse, 0, len(edge.Timetable.Periods)),
	}
	for _, j := range edge.Timetable.Journeys {
		resp.Journeys = append(resp.Journeys, journeyResponse(j))
	}
	for _, p := range edge.Timetable.Periods {
		resp.Periods = append(resp.Periods, periodResponse(p))
	}

	return c.JSON(resp)
}

// EdgeDepartures handles GET /v1/edges/:from/:to/departures?date=YYYY-MM-DD
func (h *Handler) EdgeDepartures(c *fiber.Ctx) error {
	dateStr := c.Query("date")
	if dateStr == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required parameter: date")
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
	}

	from, to, edge, err := h.lookupEdge(c)
	if err != nil {
		return err
	}

	departures := make([]JourneyResponse, 0)
	journeys := append([]models.Journey(nil), edge.Timetable.Journeys...)
	sort.SliceStable(journeys, func(i, j int) bool { return journeys[i].Departure < journeys[j].Departure })
	for _, j := range journeys {
		if j.OperatingPeriod < 0 || j.OperatingPeriod >= len(edge.Timetable.Periods) {
			continue
		}
		p := edge.Timetable.Periods[j.OperatingPeriod]
		if calendar.ActiveOn(p.From, p.To, p.ValidDay, date) {
			departures = append(departures, journeyResponse(j))
		}
	}

	return c.JSON(DeparturesResponse{
		From:       from,
		To:         to,
		Date:       dateStr,
		Departures: departures,
	})
}

func (h *Handler) lookupNode(name string) (int, models.Node, error) {
	if !h.graph.IsLoaded() {
		return 0, models.Node{}, fiber.NewError(fiber.StatusServiceUnavailable, "graph not loaded")
	}
	idx, node, ok := h.graph.Node(name)
	if !ok {
		return 0, models.Node{}, fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("node %q not found", name))
	}
	return idx, node, nil
}

func (h *Handler) lookupEdge(c *fiber.Ctx) (NodeResponse, NodeResponse, models.Edge, error) {
	fromIdx, fromNode, err := h.lookupNode(c.Params("from"))
	if err != nil {
		return NodeResponse{}, NodeResponse{}, models.Edge{}, err
	}
	toIdx, toNode, err := h.lookupNode(c.Params("to"))
	if err != nil {
		return NodeResponse{}, NodeResponse{}, models.Edge{}, err
	}
	edge, ok := h.graph.Edge(fromIdx, toIdx)
	if !ok {
		return NodeResponse{}, NodeResponse{}, models.Edge{}, fiber.NewError(fiber.StatusNotFound,
			fmt.Sprintf("no edge from %q to %q", fromNode.ShortName, toNode.ShortName))
	}
	return nodeResponse(fromIdx, fromNode), nodeResponse(toIdx, toNode), edge, nil
}

func nodeResponse(idx int, n models.Node) NodeResponse {
	return NodeResponse{Index: idx, Name: n.ShortName, Longitude: n.Longitude, Latitude: n.Latitude}
}

func journeyResponse(j models.Journey) JourneyResponse {
	return JourneyResponse{
		Departure:       formatMinutes(j.Departure),
		Arrival:         formatMinutes(j.Arrival),
		TransportMode:   j.TransportMode,
		Line:            j.Line,
		Controller:      j.Controller,
		OperatingPeriod: j.OperatingPeriod,
	}
}

// periodResponse spells out one bit per day from From through To, bounded by
// the bitmap length
func periodResponse(p models.OperatingPeriod) PeriodResponse {
	days := calendar.DayOffset(p.From, calendar.FromYYMMDD(p.To)) + 1
	if limit := len(p.ValidDay) * 8; days > limit {
		days = limit
	}
	if days < 0 {
		days = 0
	}
	return PeriodResponse{
		From:      calendar.FromYYMMDD(p.From).Format("2006-01-02"),
		To:        calendar.FromYYMMDD(p.To).Format("2006-01-02"),
		ValidDays: calendar.Unpack(p.ValidDay, days),
	}
}

func formatMinutes(m uint16) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
