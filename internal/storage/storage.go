// Package storage defines the persistence sink for finished sessions.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/greenroom-hq/greenroom/internal/domain"
)

// ErrNotFound is returned when a session id has no stored record.
var ErrNotFound = errors.New("session not found")

// SessionSummary is a listing row: enough to render an index without loading
// full transcripts.
type SessionSummary struct {
	ID             string    `json:"id"`
	ScriptTitle    string    `json:"scriptTitle"`
	Participant    string    `json:"participant,omitempty"`
	StartedAt      int64     `json:"startedAt"`
	EndedAt        int64     `json:"endedAt,omitempty"`
	CandidateTurns int       `json:"candidateTurns"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ListOptions bounds listing queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// SessionStore persists consolidated session records. Sessions arrive once,
// after finish; the store never mutates a stored record.
type SessionStore interface {
	SaveSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	ListSessions(ctx context.Context, opts ListOptions) ([]SessionSummary, error)
	Close() error
}
