package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pavelanni/tutor/internal/model"

	_ "modernc.org/sqlite"
)

// Store is the audit database. It records LLM calls and session snapshots;
// live sessions are never loaded from it.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS llm_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		purpose TEXT NOT NULL,
		provider TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		latency_ms INTEGER NOT NULL DEFAULT 0,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL DEFAULT 1,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_llm_events_purpose ON llm_events(purpose);

	CREATE TABLE IF NOT EXISTS session_snapshots (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		student_grade INTEGER NOT NULL,
		status TEXT NOT NULL,
		progress TEXT NOT NULL DEFAULT '',
		curriculum TEXT NOT NULL DEFAULT '',
		history TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tutor_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AppendLLMEvent stores one model call.
func (s *Store) AppendLLMEvent(ctx context.Context, ev model.LLMEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_events (timestamp, purpose, provider, model, latency_ms, input_tokens, output_tokens, success, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.Timestamp.UTC(), ev.Purpose, ev.Provider, ev.Model, ev.LatencyMs,
		ev.InputTokens, ev.OutputTokens, ev.Success, ev.Error,
	)
	if err != nil {
		return fmt.Errorf("insert llm event: %w", err)
	}
	return nil
}

// ListLLMEvents returns the most recent events first. An empty purpose
// matches all events; limit <= 0 means no limit.
func (s *Store) ListLLMEvents(ctx context.Context, purpose string, limit int) ([]model.LLMEvent, error) {
	query := `SELECT id, timestamp, purpose, provider, model, latency_ms, input_tokens, output_tokens, success, error
		FROM llm_events WHERE 1=1`
	var args []any
	if purpose != "" {
		query += ` AND purpose = ?`
		args = append(args, purpose)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.LLMEvent
	for rows.Next() {
		var ev model.LLMEvent
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.Purpose, &ev.Provider, &ev.Model, &ev.LatencyMs,
			&ev.InputTokens, &ev.OutputTokens, &ev.Success, &ev.Error); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// UpsertSnapshot stores the latest audit copy of a session.
func (s *Store) UpsertSnapshot(ctx context.Context, snap model.SessionSnapshot) error {
	history := string(snap.History)
	if history == "" {
		history = "[]"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_snapshots (id, student_id, student_grade, status, progress, curriculum, history, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			curriculum = excluded.curriculum,
			history = excluded.history,
			updated_at = excluded.updated_at`,
		snap.ID, snap.StudentID, snap.StudentGrade, snap.Status, snap.Progress,
		string(snap.Curriculum), history, snap.CreatedAt.UTC(), snap.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// GetSnapshot returns one snapshot, or sql.ErrNoRows.
func (s *Store) GetSnapshot(ctx context.Context, id string) (model.SessionSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, student_id, student_grade, status, progress, curriculum, history, created_at, updated_at
		 FROM session_snapshots WHERE id = ?`, id)
	return scanSnapshot(row)
}

// ListSnapshots returns all snapshots, oldest first.
func (s *Store) ListSnapshots(ctx context.Context) ([]model.SessionSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, student_id, student_grade, status, progress, curriculum, history, created_at, updated_at
		 FROM session_snapshots ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []model.SessionSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (model.SessionSnapshot, error) {
	var (
		snap                model.SessionSnapshot
		curriculum, history string
	)
	err := row.Scan(&snap.ID, &snap.StudentID, &snap.StudentGrade, &snap.Status, &snap.Progress,
		&curriculum, &history, &snap.CreatedAt, &snap.UpdatedAt)
	if err != nil {
		return snap, err
	}
	if curriculum != "" {
		snap.Curriculum = []byte(curriculum)
	}
	snap.History = []byte(history)
	return snap, nil
}
