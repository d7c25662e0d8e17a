// Package memory is an in-memory SessionStore for tests and ephemeral runs.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/greenroom-hq/greenroom/internal/domain"
	"github.com/greenroom-hq/greenroom/internal/storage"
)

// Store keeps session records in a map. Records are deep-copied through JSON
// on the way in and out so callers cannot mutate stored state.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	created  map[string]time.Time
}

var _ storage.SessionStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		sessions: make(map[string]*domain.Session),
		created:  make(map[string]time.Time),
	}
}

// SaveSession stores a copy of the session, replacing any previous record.
func (s *Store) SaveSession(_ context.Context, session *domain.Session) error {
	cp, err := copySession(session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		s.created[session.ID] = time.Now()
	}
	s.sessions[session.ID] = cp
	return nil
}

// GetSession returns a copy of the stored session.
func (s *Store) GetSession(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	stored, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copySession(stored)
}

// ListSessions returns listing rows, most recently started first.
func (s *Store) ListSessions(_ context.Context, opts storage.ListOptions) ([]storage.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.SessionSummary, 0, len(s.sessions))
	for id, sess := range s.sessions {
		summary := storage.SessionSummary{
			ID:             id,
			ScriptTitle:    sess.Script.Title,
			StartedAt:      sess.StartedAt,
			EndedAt:        sess.EndedAt,
			CandidateTurns: sess.CandidateTurns(),
			CreatedAt:      s.created[id],
		}
		if sess.Participant != nil {
			summary.Participant = sess.Participant.Name
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt > out[j].StartedAt })

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func copySession(in *domain.Session) (*domain.Session, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to copy session: %w", err)
	}
	var out domain.Session
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to copy session: %w", err)
	}
	return &out, nil
}
