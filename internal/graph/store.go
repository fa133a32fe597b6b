package graph

import (
	"context"
	"fmt"
	"log"
	"time"

	"fortio.org/safecast"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/passbi/passbi_netex/internal/calendar"
	"github.com/passbi/passbi_netex/internal/models"
)

const batchSize = 1000 // batch insert size

const schema = `
CREATE TABLE IF NOT EXISTS graph_node (
	id         INTEGER PRIMARY KEY,
	short_name TEXT NOT NULL UNIQUE,
	lon        REAL NOT NULL,
	lat        REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS graph_edge (
	id         INTEGER PRIMARY KEY,
	start_node INTEGER NOT NULL REFERENCES graph_node(id),
	end_node   INTEGER NOT NULL REFERENCES graph_node(id),
	UNIQUE (start_node, end_node)
);
CREATE TABLE IF NOT EXISTS graph_period (
	edge_id   INTEGER NOT NULL REFERENCES graph_edge(id) ON DELETE CASCADE,
	local_idx INTEGER NOT NULL,
	from_date INTEGER NOT NULL,
	to_date   INTEGER NOT NULL,
	valid_day BYTEA NOT NULL,
	PRIMARY KEY (edge_id, local_idx)
);
CREATE TABLE IF NOT EXISTS graph_journey (
	edge_id          INTEGER NOT NULL REFERENCES graph_edge(id) ON DELETE CASCADE,
	seq              INTEGER NOT NULL,
	departure        SMALLINT NOT NULL,
	arrival          SMALLINT NOT NULL,
	transport_mode   TEXT NOT NULL,
	operating_period INTEGER NOT NULL,
	line             TEXT NOT NULL,
	controller       TEXT NOT NULL,
	PRIMARY KEY (edge_id, seq)
);
CREATE TABLE IF NOT EXISTS compile_log (
	id             UUID PRIMARY KEY,
	started_at     TIMESTAMPTZ NOT NULL,
	completed_at   TIMESTAMPTZ,
	status         TEXT NOT NULL,
	datasets_count INTEGER NOT NULL DEFAULT 0,
	nodes_count    INTEGER NOT NULL DEFAULT 0,
	edges_count    INTEGER NOT NULL DEFAULT 0,
	journeys_count INTEGER NOT NULL DEFAULT 0,
	error_msg      TEXT
);
`

// Store persists compiled graphs in PostgreSQL
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a new graph store
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Migrate creates the graph tables if they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create graph schema: %w", err)
	}
	return nil
}

// SaveGraph replaces the stored graph with g in a single transaction
func (s *Store) SaveGraph(ctx context.Context, g *models.Graph) error {
	log.Println("Saving graph to database...")
	startTime := time.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := writeGraph(ctx, tx, g); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit graph: %w", err)
	}

	log.Printf("Graph saved in %v", time.Since(startTime))
	return nil
}

// writeGraph replaces the graph tables' contents inside tx
func writeGraph(ctx context.Context, tx pgx.Tx, g *models.Graph) error {
	if _, err := tx.Exec(ctx, "TRUNCATE TABLE graph_journey, graph_period, graph_edge, graph_node CASCADE"); err != nil {
		return fmt.Errorf("failed to clear graph: %w", err)
	}

	w := &batchWriter{tx: tx, batch: &pgx.Batch{}}
	for i, n := range g.Nodes {
		w.queue(`INSERT INTO graph_node (id, short_name, lon, lat) VALUES ($1, $2, $3, $4)`,
			i, n.ShortName, n.Longitude, n.Latitude)
		if err := w.maybeFlush(ctx); err != nil {
			return fmt.Errorf("failed to insert nodes: %w", err)
		}
	}
	if err := w.flush(ctx); err != nil {
		return fmt.Errorf("failed to insert nodes: %w", err)
	}
	log.Printf("  Saved %d nodes", len(g.Nodes))

	for i := range g.Edges {
		edge := &g.Edges[i]
		w.queue(`INSERT INTO graph_edge (id, start_node, end_node) VALUES ($1, $2, $3)`,
			i, edge.StartNode, edge.EndNode)
		if err := w.maybeFlush(ctx); err != nil {
			return fmt.Errorf("failed to insert edges: %w", err)
		}
	}
	if err := w.flush(ctx); err != nil {
		return fmt.Errorf("failed to insert edges: %w", err)
	}
	log.Printf("  Saved %d edges", len(g.Edges))

	journeys := 0
	for i := range g.Edges {
		tt := &g.Edges[i].Timetable
		for local, p := range tt.Periods {
			validDay := p.ValidDay
			if validDay == nil {
				validDay = []byte{}
			}
			w.queue(`INSERT INTO graph_period (edge_id, local_idx, from_date, to_date, valid_day)
				VALUES ($1, $2, $3, $4, $5)`, i, local, int64(p.From), int64(p.To), validDay)
			if err := w.maybeFlush(ctx); err != nil {
				return fmt.Errorf("failed to insert periods: %w", err)
			}
		}
		for seq, j := range tt.Journeys {
			w.queue(`INSERT INTO graph_journey
				(edge_id, seq, departure, arrival, transport_mode, operating_period, line, controller)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				i, seq, int32(j.Departure), int32(j.Arrival), j.TransportMode, j.OperatingPeriod, j.Line, j.Controller)
			if err := w.maybeFlush(ctx); err != nil {
				return fmt.Errorf("failed to insert journeys: %w", err)
			}
			journeys++
		}
	}
	if err := w.flush(ctx); err != nil {
		return fmt.Errorf("failed to insert timetables: %w", err)
	}
	log.Printf("  Saved %d journeys", journeys)
	return nil
}

// LoadGraph reads the stored graph back
func (s *Store) LoadGraph(ctx context.Context) (*models.Graph, error) {
	g := &models.Graph{}

	nodeRows, err := s.db.Query(ctx, `SELECT short_name, lon, lat FROM graph_node ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}
	g.Nodes, err = pgx.CollectRows(nodeRows, func(row pgx.CollectableRow) (models.Node, error) {
		var n models.Node
		err := row.Scan(&n.ShortName, &n.Longitude, &n.Latitude)
		return n, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan nodes: %w", err)
	}

	edgeRows, err := s.db.Query(ctx, `SELECT start_node, end_node FROM graph_edge ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}
	g.Edges, err = pgx.CollectRows(edgeRows, func(row pgx.CollectableRow) (models.Edge, error) {
		var e models.Edge
		err := row.Scan(&e.StartNode, &e.EndNode)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan edges: %w", err)
	}

	if err := s.loadPeriods(ctx, g); err != nil {
		return nil, err
	}
	if err := s.loadJourneys(ctx, g); err != nil {
		return nil, err
	}

	return g, nil
}

func (s *Store) loadPeriods(ctx context.Context, g *models.Graph) error {
	rows, err := s.db.Query(ctx, `
		SELECT edge_id, from_date, to_date, valid_day
		FROM graph_period
		ORDER BY edge_id, local_idx
	`)
	if err != nil {
		return fmt.Errorf("failed to load periods: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			edgeID   int
			from, to int64
			validDay []byte
		)
		if err := rows.Scan(&edgeID, &from, &to, &validDay); err != nil {
			return fmt.Errorf("failed to scan period: %w", err)
		}
		if edgeID < 0 || edgeID >= len(g.Edges) {
			return fmt.Errorf("period references unknown edge %d", edgeID)
		}
		p := models.OperatingPeriod{ValidDay: validDay, ValidDayBits: calendar.Encode(validDay)}
		if p.From, err = safecast.Conv[uint32](from); err != nil {
			return fmt.Errorf("edge %d: from date: %w", edgeID, err)
		}
		if p.To, err = safecast.Conv[uint32](to); err != nil {
			return fmt.Errorf("edge %d: to date: %w", edgeID, err)
		}
		tt := &g.Edges[edgeID].Timetable
		tt.Periods = append(tt.Periods, p)
	}
	return rows.Err()
}

func (s *Store) loadJourneys(ctx context.Context, g *models.Graph) error {
	rows, err := s.db.Query(ctx, `
		SELECT edge_id, departure, arrival, transport_mode, operating_period, line, controller
		FROM graph_journey
		ORDER BY edge_id, seq
	`)
	if err != nil {
		return fmt.Errorf("failed to load journeys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			edgeID             int
			departure, arrival int32
			j                  models.Journey
		)
		if err := rows.Scan(&edgeID, &departure, &arrival, &j.TransportMode, &j.OperatingPeriod, &j.Line, &j.Controller); err != nil {
			return fmt.Errorf("failed to scan journey: %w", err)
		}
		if edgeID < 0 || edgeID >= len(g.Edges) {
			return fmt.Errorf("journey references unknown edge %d", edgeID)
		}
		if j.Departure, err = safecast.Conv[uint16](departure); err != nil {
			return fmt.Errorf("edge %d: departure: %w", edgeID, err)
		}
		if j.Arrival, err = safecast.Conv[uint16](arrival); err != nil {
			return fmt.Errorf("edge %d: arrival: %w", edgeID, err)
		}
		tt := &g.Edges[edgeID].Timetable
		tt.Journeys = append(tt.Journeys, j)
	}
	return rows.Err()
}

// LogCompile records a finished compilation run and returns its id
func (s *Store) LogCompile(ctx context.Context, startedAt time.Time, datasets int, stats *Stats, compileErr error) (string, error) {
	id := uuid.New().String()
	status := "success"
	var errMsg *string
	if compileErr != nil {
		status = "failed"
		msg := compileErr.Error()
		errMsg = &msg
	}
	var nodes, edges, journeys int
	if stats != nil {
		nodes, edges, journeys = stats.Nodes, stats.Edges, stats.Journeys
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO compile_log (id, started_at, completed_at, status, datasets_count,
		                         nodes_count, edges_count, journeys_count, error_msg)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, startedAt, time.Now(), status, datasets, nodes, edges, journeys, errMsg)
	if err != nil {
		return "", fmt.Errorf("failed to write compile log: %w", err)
	}
	return id, nil
}

// RecentCompileLogs returns the latest compile runs, newest first
func (s *Store) RecentCompileLogs(ctx context.Context, limit int) ([]models.CompileLog, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, started_at, completed_at, status, datasets_count,
		       nodes_count, edges_count, journeys_count, COALESCE(error_msg, '')
		FROM compile_log
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query compile logs: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CompileLog, error) {
		var l models.CompileLog
		err := row.Scan(&l.ID, &l.StartedAt, &l.CompletedAt, &l.Status, &l.DatasetsCount,
			&l.NodesCount, &l.EdgesCount, &l.JourneysCount, &l.ErrorMsg)
		return l, err
	})
}

// batchWriter queues statements and sends them in batches of batchSize
type batchWriter struct {
	tx    pgx.Tx
	batch *pgx.Batch
}

func (w *batchWriter) queue(query string, args ...any) {
	w.batch.Queue(query, args...)
}

func (w *batchWriter) maybeFlush(ctx context.Context) error {
	if w.batch.Len() < batchSize {
		return nil
	}
	return w.flush(ctx)
}

func (w *batchWriter) flush(ctx context.Context) error {
	if w.batch.Len() == 0 {
		return nil
	}
	results := w.tx.SendBatch(ctx, w.batch)
	for i := 0; i < w.batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("batch execution failed at query %d: %w", i, err)
		}
	}
	w.batch = &pgx.Batch{}
	return results.Close()
}
