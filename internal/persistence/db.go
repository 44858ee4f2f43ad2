// Package persistence records simulation runs to SQLite: one row per run,
// one per stats record and one per intervention. Runs are write-once; the
// recorded data feeds plotting and analysis, not resumption.
package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/lemonad/outbreak-simulation/internal/engine"
)

// DB wraps a SQLite connection for run recording.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single writer keeps SQLite from returning SQLITE_BUSY between the
	// step loop and API readers.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		population INTEGER NOT NULL,
		regions INTEGER NOT NULL,
		edges INTEGER NOT NULL,
		transmission_rate REAL NOT NULL,
		dwell TEXT NOT NULL,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stats (
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		susceptible INTEGER NOT NULL,
		infected INTEGER NOT NULL,
		recovered INTEGER NOT NULL,
		cumulative_infected INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS interventions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		kind TEXT NOT NULL,
		rate REAL NOT NULL,
		edges_before INTEGER NOT NULL,
		edges_removed INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_interventions_run ON interventions(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run describes one recorded simulation run.
type Run struct {
	ID               string  `db:"id" json:"id"`
	Seed             int64   `db:"seed" json:"seed"`
	Width            int     `db:"width" json:"width"`
	Height           int     `db:"height" json:"height"`
	Population       int     `db:"population" json:"population"`
	Regions          int     `db:"regions" json:"regions"`
	Edges            int     `db:"edges" json:"edges"`
	TransmissionRate float64 `db:"transmission_rate" json:"transmission_rate"`
	Dwell            string  `db:"dwell" json:"dwell"`
	StartedAt        string  `db:"started_at" json:"started_at"`
}

// StartRun registers a new run for sim and returns its ID.
func (db *DB) StartRun(sim *engine.Simulation, cfg engine.Config) (string, error) {
	run := Run{
		ID:               uuid.NewString(),
		Seed:             sim.Seed,
		Width:            cfg.Width,
		Height:           cfg.Height,
		Population:       sim.Population(),
		Regions:          len(sim.Graph.Regions),
		Edges:            sim.Graph.EdgeCount(),
		TransmissionRate: cfg.TransmissionRate,
		Dwell:            cfg.Dwell,
		StartedAt:        time.Now().UTC().Format(time.RFC3339),
	}

	_, err := db.conn.NamedExec(`INSERT INTO runs
		(id, seed, width, height, population, regions, edges, transmission_rate, dwell, started_at)
		VALUES (:id, :seed, :width, :height, :population, :regions, :edges, :transmission_rate, :dwell, :started_at)`,
		run)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	slog.Info("run recorded", "run_id", run.ID, "seed", run.Seed, "population", run.Population)
	return run.ID, nil
}

// RecordStats appends stats records for a run.
func (db *DB) RecordStats(runID string, records ...engine.StatsRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO stats
		(run_id, tick, susceptible, infected, recovered, cumulative_infected)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(runID, r.Tick, r.Susceptible, r.Infected, r.Recovered, r.CumulativeInfected); err != nil {
			return fmt.Errorf("insert stats tick %d: %w", r.Tick, err)
		}
	}

	return tx.Commit()
}

// RecordIntervention stores a policy change for a run.
func (db *DB) RecordIntervention(runID string, iv engine.Intervention) error {
	_, err := db.conn.Exec(`INSERT INTO interventions
		(run_id, tick, kind, rate, edges_before, edges_removed)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, iv.Tick, iv.Kind, iv.Rate, iv.EdgesBefore, iv.EdgesRemoved,
	)
	if err != nil {
		return fmt.Errorf("insert intervention: %w", err)
	}
	return nil
}

// LoadRun returns the run with the given ID.
func (db *DB) LoadRun(runID string) (Run, error) {
	var run Run
	err := db.conn.Get(&run, "SELECT * FROM runs WHERE id = ?", runID)
	return run, err
}

// ListRuns returns the recorded runs, most recent first.
func (db *DB) ListRuns() ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs, `SELECT * FROM runs ORDER BY started_at DESC, id`)
	return runs, err
}

// LoadStats returns a run's stats records with from <= tick <= to, oldest first.
func (db *DB) LoadStats(runID string, from, to uint64, limit int) ([]engine.StatsRecord, error) {
	var records []engine.StatsRecord
	err := db.conn.Select(&records,
		`SELECT tick, susceptible, infected, recovered, cumulative_infected
		FROM stats WHERE run_id = ? AND tick >= ? AND tick <= ?
		ORDER BY tick ASC LIMIT ?`,
		runID, from, to, limit,
	)
	return records, err
}

// LoadInterventions returns a run's interventions in tick order.
func (db *DB) LoadInterventions(runID string) ([]engine.Intervention, error) {
	var ivs []engine.Intervention
	err := db.conn.Select(&ivs,
		`SELECT tick, kind, rate, edges_before, edges_removed
		FROM interventions WHERE run_id = ? ORDER BY tick ASC, id ASC`,
		runID,
	)
	return ivs, err
}
