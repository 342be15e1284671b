// Package store keeps per-turn statistics and genome archives of
// simulation runs in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/Gordon-from-Blumberg/evo-cell/world"
)

var log = commonlog.GetLogger("evocell.store")

// ErrNotFound indicates the requested row doesn't exist.
var ErrNotFound = errors.New("not found")

var schema = []string{`CREATE TABLE IF NOT EXISTS statistics (
	seed       INTEGER NOT NULL,
	turn       INTEGER NOT NULL,
	alive      INTEGER NOT NULL,
	born       INTEGER NOT NULL,
	died       INTEGER NOT NULL,
	avg_energy REAL NOT NULL,
	avg_genes  REAL NOT NULL,
	actions    INTEGER NOT NULL,
	decoded    INTEGER NOT NULL,
	PRIMARY KEY (seed, turn)
)`, `CREATE TABLE IF NOT EXISTS genomes (
	seed   INTEGER NOT NULL,
	turn   INTEGER NOT NULL,
	bot_id INTEGER NOT NULL,
	genes  JSON NOT NULL,
	PRIMARY KEY (seed, turn, bot_id)
)`}

// Store handles SQLite storage for simulation runs. Runs are told apart by
// their seed.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating tables: %w", err)
		}
	}

	log.Infof("store opened at %s", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordStatistic saves the statistic of one turn, replacing an earlier
// record of the same turn.
func (s *Store) RecordStatistic(seed int64, st world.Statistic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO statistics
		(seed, turn, alive, born, died, avg_energy, avg_genes, actions, decoded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seed, st.Turn, st.Alive, st.Born, st.Died, st.AvgEnergy, st.AvgGenes, st.Actions, st.Decoded,
	)
	if err != nil {
		return fmt.Errorf("saving statistic of turn %d: %w", st.Turn, err)
	}
	return nil
}

// Statistics returns the recorded turns of a run in [from, to], ordered
// by turn. A negative to means no upper bound.
func (s *Store) Statistics(seed int64, from, to int) ([]world.Statistic, error) {
	if to < 0 {
		to = math.MaxInt
	}
	rows, err := s.db.Query(
		`SELECT turn, alive, born, died, avg_energy, avg_genes, actions, decoded
		FROM statistics WHERE seed = ? AND turn BETWEEN ? AND ? ORDER BY turn`,
		seed, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("querying statistics: %w", err)
	}
	defer rows.Close()

	var out []world.Statistic
	for rows.Next() {
		var st world.Statistic
		if err := rows.Scan(&st.Turn, &st.Alive, &st.Born, &st.Died,
			&st.AvgEnergy, &st.AvgGenes, &st.Actions, &st.Decoded); err != nil {
			return nil, fmt.Errorf("reading statistic: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading statistics: %w", err)
	}
	return out, nil
}

// ArchiveGenomes saves the genes of every bot at a turn in one
// transaction.
func (s *Store) ArchiveGenomes(seed int64, turn int, bots []world.BotState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("archiving genomes: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO genomes (seed, turn, bot_id, genes) VALUES (?, ?, ?, json(?))")
	if err != nil {
		return fmt.Errorf("archiving genomes: %w", err)
	}
	defer stmt.Close()

	for _, b := range bots {
		data, err := json.Marshal(b.Genes)
		if err != nil {
			return fmt.Errorf("encoding genes of bot %d: %w", b.ID, err)
		}
		if _, err := stmt.Exec(seed, turn, b.ID, string(data)); err != nil {
			return fmt.Errorf("saving genes of bot %d: %w", b.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archiving genomes: %w", err)
	}
	log.Debugf("archived %d genomes of turn %d", len(bots), turn)
	return nil
}

// Genome retrieves archived genes of a bot.
func (s *Store) Genome(seed int64, turn int, botID int64) ([][]int8, error) {
	var data string
	err := s.db.QueryRow(
		"SELECT genes FROM genomes WHERE seed = ? AND turn = ? AND bot_id = ?",
		seed, turn, botID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("genome of bot %d at turn %d: %w", botID, turn, ErrNotFound)
		}
		return nil, fmt.Errorf("querying genome: %w", err)
	}

	var genes [][]int8
	if err := json.Unmarshal([]byte(data), &genes); err != nil {
		return nil, fmt.Errorf("parsing genome JSON: %w", err)
	}
	return genes, nil
}

// ArchivedTurns lists the turns of a run with archived genomes.
func (s *Store) ArchivedTurns(seed int64) ([]int, error) {
	rows, err := s.db.Query("SELECT DISTINCT turn FROM genomes WHERE seed = ? ORDER BY turn", seed)
	if err != nil {
		return nil, fmt.Errorf("querying archived turns: %w", err)
	}
	defer rows.Close()

	var turns []int
	for rows.Next() {
		var turn int
		if err := rows.Scan(&turn); err != nil {
			return nil, fmt.Errorf("reading archived turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}
