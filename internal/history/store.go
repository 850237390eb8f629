// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists discovery outcomes per itinerary and derives
// price movement between observations.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/fare-scout/pkg/types"
)

const (
	dbFile = "fare-scout.db"

	defaultDataDir = "data"
	defaultKeep    = 100

	// timeLayout is fixed width so stored timestamps sort as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Observation is one stored discovery outcome.
type Observation struct {
	ID        int64                `json:"id" yaml:"id"`
	Key       string               `json:"itinerary" yaml:"itinerary"`
	Found     bool                 `json:"found" yaml:"found"`
	Amount    float64              `json:"amount,omitempty" yaml:"amount,omitempty"`
	Tier      types.Tier           `json:"tier" yaml:"tier"`
	Site      string               `json:"site,omitempty" yaml:"site,omitempty"`
	Strategy  string               `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Signals   types.SignalSet      `json:"matched_signals" yaml:"matched_signals"`
	Reason    types.NotFoundReason `json:"reason,omitempty" yaml:"reason,omitempty"`
	Detail    string               `json:"detail,omitempty" yaml:"detail,omitempty"`
	CheckedAt time.Time            `json:"checked_at" yaml:"checked_at"`
}

// Store manages the history SQLite database.
type Store struct {
	db   *sql.DB
	dir  string
	keep int
}

// NewStore opens or creates the history database at cfg.DataDir/fare-scout.db
// and creates the schema if it does not exist.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	dir := cfg.DataDir
	if dir == "" {
		dir = defaultDataDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	keep := cfg.KeepPerItinerary
	if keep <= 0 {
		keep = defaultKeep
	}

	s := &Store{db: db, dir: dir, keep: keep}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS itineraries (
			key TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS observations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			itinerary_key TEXT NOT NULL,
			found INTEGER NOT NULL,
			amount REAL,
			tier TEXT,
			site TEXT,
			strategy TEXT,
			signals TEXT,
			reason TEXT,
			detail TEXT,
			checked_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_observations_key ON observations(itinerary_key, id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores res under its query's key and trims the itinerary to the
// most recent observations. It returns the stored observation and the
// movement against the previous priced observation, if any.
func (s *Store) Record(ctx context.Context, res types.DiscoveryResult) (Observation, Change, error) {
	key := res.Query.Key()
	checked := res.CheckedAt
	if checked.IsZero() {
		checked = time.Now()
	}

	prev, hadPrev, err := s.LatestPriced(ctx, key)
	if err != nil {
		return Observation{}, Change{}, err
	}

	obs := Observation{
		Key:       key,
		Found:     res.Found,
		Amount:    res.Amount,
		Tier:      res.Tier,
		Site:      res.Site,
		Reason:    res.Reason,
		Detail:    res.Detail,
		CheckedAt: checked.UTC(),
	}
	if res.Record != nil {
		obs.Strategy = res.Record.Strategy
		obs.Signals = res.Record.Signals
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Observation{}, Change{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	queryJSON, _ := json.Marshal(res.Query)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO itineraries (key, query, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET query=excluded.query, updated_at=excluded.updated_at`,
		key, string(queryJSON), obs.CheckedAt.Format(timeLayout),
	)
	if err != nil {
		return Observation{}, Change{}, fmt.Errorf("upserting itinerary: %w", err)
	}

	r, err := tx.ExecContext(ctx,
		`INSERT INTO observations (itinerary_key, found, amount, tier, site, strategy, signals, reason, detail, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key, obs.Found, obs.Amount, string(obs.Tier), obs.Site, obs.Strategy,
		obs.Signals.String(), string(obs.Reason), obs.Detail, obs.CheckedAt.Format(timeLayout),
	)
	if err != nil {
		return Observation{}, Change{}, fmt.Errorf("inserting observation: %w", err)
	}
	obs.ID, _ = r.LastInsertId()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM observations WHERE itinerary_key = ? AND id NOT IN (
			SELECT id FROM observations WHERE itinerary_key = ? ORDER BY id DESC LIMIT ?
		)`, key, key, s.keep)
	if err != nil {
		return Observation{}, Change{}, fmt.Errorf("pruning observations: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Observation{}, Change{}, fmt.Errorf("committing observation: %w", err)
	}

	change := Change{Current: obs.Amount, Movement: MovementNone}
	if hadPrev && obs.Found {
		change = Classify(prev.Amount, obs.Amount)
	}
	return obs, change, nil
}

const observationColumns = `id, itinerary_key, found, amount, tier, site, strategy, signals, reason, detail, checked_at`

// Latest returns the most recent observation for key. The boolean is false
// when none exists.
func (s *Store) Latest(ctx context.Context, key string) (Observation, bool, error) {
	return s.one(ctx, `SELECT `+observationColumns+` FROM observations
		WHERE itinerary_key = ? ORDER BY id DESC LIMIT 1`, key)
}

// LatestPriced returns the most recent observation for key that carried a
// price.
func (s *Store) LatestPriced(ctx context.Context, key string) (Observation, bool, error) {
	return s.one(ctx, `SELECT `+observationColumns+` FROM observations
		WHERE itinerary_key = ? AND found = 1 ORDER BY id DESC LIMIT 1`, key)
}

func (s *Store) one(ctx context.Context, query string, args ...any) (Observation, bool, error) {
	o, err := scanObservation(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Observation{}, false, nil
	}
	if err != nil {
		return Observation{}, false, fmt.Errorf("querying observation: %w", err)
	}
	return o, true, nil
}

// QueryOptions filters List.
type QueryOptions struct {
	Key       string
	Since     time.Time
	FoundOnly bool
	Limit     int
}

// List returns observations newest first.
func (s *Store) List(ctx context.Context, opts QueryOptions) ([]Observation, error) {
	query := `SELECT ` + observationColumns + ` FROM observations WHERE 1=1`
	var args []any
	if opts.Key != "" {
		query += ` AND itinerary_key = ?`
		args = append(args, opts.Key)
	}
	if !opts.Since.IsZero() {
		query += ` AND checked_at >= ?`
		args = append(args, opts.Since.UTC().Format(timeLayout))
	}
	if opts.FoundOnly {
		query += ` AND found = 1`
	}
	query += ` ORDER BY id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing observations: %w", err)
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning observation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Query returns the itinerary stored under key.
func (s *Store) Query(ctx context.Context, key string) (types.ItineraryQuery, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT query FROM itineraries WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ItineraryQuery{}, false, nil
	}
	if err != nil {
		return types.ItineraryQuery{}, false, fmt.Errorf("querying itinerary %s: %w", key, err)
	}
	var q types.ItineraryQuery
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return types.ItineraryQuery{}, false, fmt.Errorf("decoding itinerary %s: %w", key, err)
	}
	return q, true, nil
}

// Keys lists the stored itinerary keys in order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM itineraries ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("listing itineraries: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// DueForRecheck reports whether key has no observation newer than
// interval before now. A non-positive interval is always due.
func (s *Store) DueForRecheck(ctx context.Context, key string, interval time.Duration, now time.Time) (bool, error) {
	if interval <= 0 {
		return true, nil
	}
	last, ok, err := s.Latest(ctx, key)
	if err != nil || !ok {
		return true, err
	}
	return !now.Before(last.CheckedAt.Add(interval)), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanObservation(sc scanner) (Observation, error) {
	var (
		o                                  Observation
		amount                             sql.NullFloat64
		tier, site, strategy, sigs, reason sql.NullString
		detail                             sql.NullString
		checked                            string
	)
	if err := sc.Scan(&o.ID, &o.Key, &o.Found, &amount, &tier, &site, &strategy, &sigs, &reason, &detail, &checked); err != nil {
		return Observation{}, err
	}
	o.Amount = amount.Float64
	o.Tier = types.Tier(tier.String)
	o.Site = site.String
	o.Strategy = strategy.String
	o.Signals = types.ParseSignalSet(sigs.String)
	o.Reason = types.NotFoundReason(reason.String)
	o.Detail = detail.String
	t, err := time.Parse(timeLayout, checked)
	if err != nil {
		return Observation{}, fmt.Errorf("parsing checked_at %q: %w", checked, err)
	}
	o.CheckedAt = t
	return o, nil
}
