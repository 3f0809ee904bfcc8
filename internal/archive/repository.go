// Package archive keeps the results of finished games in SQL. Postgres is
// the production backend; SQLite serves single-host deployments and tests.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/park285/madn-server/internal/apperr"
	"github.com/park285/madn-server/internal/domain"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS madn_results (
    game_id      TEXT PRIMARY KEY,
    code         TEXT NOT NULL,
    mode         TEXT NOT NULL,
    winner_color TEXT NOT NULL,
    players      TEXT NOT NULL,
    rounds       INTEGER NOT NULL,
    turns        INTEGER NOT NULL,
    events       BIGINT NOT NULL,
    started_at   BIGINT NOT NULL,
    finished_at  BIGINT NOT NULL,
    duration_ms  BIGINT NOT NULL
)`

const finishedIndex = `CREATE INDEX IF NOT EXISTS madn_results_finished_at ON madn_results (finished_at DESC)`

const resultColumns = `game_id, code, mode, winner_color, players, rounds, turns, events, started_at, finished_at, duration_ms`

var placeholder = regexp.MustCompile(`\$\d+`)

type Repository struct {
	db     *sql.DB
	driver string
}

// Open connects to the archive database and verifies it with a ping.
func Open(ctx context.Context, driver, dsn string) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer; in-memory databases are per connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(16)
		db.SetMaxIdleConns(8)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db, driver: driver}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// q rewrites $N placeholders for drivers that want '?'.
func (r *Repository) q(query string) string {
	if r.driver == DriverSQLite {
		return placeholder.ReplaceAllString(query, "?")
	}
	return query
}

// EnsureSchema creates the results table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{schema, finishedIndex} {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveResult upserts a finished game result.
func (r *Repository) SaveResult(ctx context.Context, res *domain.GameResult) error {
	if r == nil || r.db == nil || res == nil {
		return nil
	}
	players, err := json.Marshal(res.Players)
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}
	duration := res.Duration.Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO madn_results (` + resultColumns + `) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
      ) ON CONFLICT (game_id) DO UPDATE SET
        code=EXCLUDED.code,
        mode=EXCLUDED.mode,
        winner_color=EXCLUDED.winner_color,
        players=EXCLUDED.players,
        rounds=EXCLUDED.rounds,
        turns=EXCLUDED.turns,
        events=EXCLUDED.events,
        started_at=EXCLUDED.started_at,
        finished_at=EXCLUDED.finished_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, r.q(q),
		res.GameID, res.Code, res.Mode, res.WinnerColor, string(players),
		res.Rounds, res.Turns, int64(res.Events),
		millis(res.StartedAt), millis(res.FinishedAt), duration,
	)
	if err != nil {
		return apperr.Wrap(apperr.CodeStorage, err, "save result")
	}
	return nil
}

// GetResult loads one archived result.
func (r *Repository) GetResult(ctx context.Context, gameID string) (*domain.GameResult, error) {
	row := r.db.QueryRowContext(ctx, r.q(`SELECT `+resultColumns+` FROM madn_results WHERE game_id = $1`), gameID)
	res, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.CodeResultNotFound, "no result for game %s", gameID)
	}
	return res, err
}

// RecentResults lists the latest finished games, newest first.
func (r *Repository) RecentResults(ctx context.Context, limit int) ([]*domain.GameResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT `+resultColumns+` FROM madn_results ORDER BY finished_at DESC, game_id LIMIT $1`), limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorage, err, "query results")
	}
	defer rows.Close()
	var out []*domain.GameResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.CodeStorage, err, "iterate results")
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(s scanner) (*domain.GameResult, error) {
	var res domain.GameResult
	var players string
	var events, startedAt, finishedAt, durMs int64
	err := s.Scan(&res.GameID, &res.Code, &res.Mode, &res.WinnerColor, &players,
		&res.Rounds, &res.Turns, &events, &startedAt, &finishedAt, &durMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorage, err, "scan result")
	}
	if err := json.Unmarshal([]byte(players), &res.Players); err != nil {
		return nil, apperr.Wrap(apperr.CodeStorage, err, "decode players")
	}
	res.Events = uint64(events)
	res.StartedAt = fromMillis(startedAt)
	res.FinishedAt = fromMillis(finishedAt)
	res.Duration = time.Duration(durMs) * time.Millisecond
	return &res, nil
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
