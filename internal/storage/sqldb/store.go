// Package sqldb is a SQLite-backed SessionStore using sqlx.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/greenroom-hq/greenroom/internal/domain"
	"github.com/greenroom-hq/greenroom/internal/storage"
)

// Store persists finished sessions in SQLite. The full session record is kept
// as a JSON document; listing columns are denormalized at save time.
type Store struct {
	db *sqlx.DB
}

var _ storage.SessionStore = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			script_title TEXT NOT NULL,
			participant TEXT,
			started_at INTEGER NOT NULL,
			ended_at INTEGER,
			candidate_turns INTEGER NOT NULL DEFAULT 0,
			record TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS utterances (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			speaker TEXT NOT NULL,
			text TEXT NOT NULL,
			at_ms INTEGER NOT NULL,
			section_id TEXT NOT NULL,
			PRIMARY KEY (session_id, seq),
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_utterances_section ON utterances(session_id, section_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// SaveSession stores one consolidated session record. Saving the same id
// again replaces the record; the sink is best-effort and a retried hand-off
// must not fail on the second attempt.
func (s *Store) SaveSession(ctx context.Context, session *domain.Session) error {
	record, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	participant := ""
	if session.Participant != nil {
		participant = session.Participant.Name
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, script_title, participant, started_at, ended_at, candidate_turns, record, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   participant = excluded.participant,
		   ended_at = excluded.ended_at,
		   candidate_turns = excluded.candidate_turns,
		   record = excluded.record`,
		session.ID, session.Script.Title, participant,
		session.StartedAt, session.EndedAt, session.CandidateTurns(),
		string(record), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM utterances WHERE session_id = ?`, session.ID); err != nil {
		return fmt.Errorf("failed to clear utterances: %w", err)
	}
	for i, u := range session.Transcript {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO utterances (session_id, seq, speaker, text, at_ms, section_id)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			session.ID, i, string(u.Speaker), u.Text, u.AtMs, u.SectionID)
		if err != nil {
			return fmt.Errorf("failed to save utterance %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// GetSession loads one full session record by id.
func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var record string
	err := s.db.GetContext(ctx, &record, `SELECT record FROM sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(record), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session record: %w", err)
	}
	return &session, nil
}

type sessionRow struct {
	ID             string         `db:"id"`
	ScriptTitle    string         `db:"script_title"`
	Participant    sql.NullString `db:"participant"`
	StartedAt      int64          `db:"started_at"`
	EndedAt        sql.NullInt64  `db:"ended_at"`
	CandidateTurns int            `db:"candidate_turns"`
	CreatedAt      time.Time      `db:"created_at"`
}

// ListSessions returns listing rows, most recently started first.
func (s *Store) ListSessions(ctx context.Context, opts storage.ListOptions) ([]storage.SessionSummary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	var rows []sessionRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, script_title, participant, started_at, ended_at, candidate_turns, created_at
		 FROM sessions ORDER BY started_at DESC LIMIT ? OFFSET ?`,
		limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	out := make([]storage.SessionSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, storage.SessionSummary{
			ID:             row.ID,
			ScriptTitle:    row.ScriptTitle,
			Participant:    row.Participant.String,
			StartedAt:      row.StartedAt,
			EndedAt:        row.EndedAt.Int64,
			CandidateTurns: row.CandidateTurns,
			CreatedAt:      row.CreatedAt,
		})
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
