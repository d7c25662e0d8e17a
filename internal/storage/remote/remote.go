// Package remote is a SessionSink that hands finished sessions to the
// service's persistence endpoint over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/greenroom-hq/greenroom/internal/domain"
)

// SinkOption configures the sink.
type SinkOption func(*Sink)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) SinkOption {
	return func(s *Sink) { s.httpClient = httpClient }
}

// Sink posts consolidated session records to POST /api/sessions.
type Sink struct {
	baseURL    string
	httpClient *http.Client
}

var _ domain.SessionSink = (*Sink)(nil)

// NewSink creates a sink for the service at baseURL.
func NewSink(baseURL string, opts ...SinkOption) *Sink {
	s := &Sink{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveSession posts the record. Non-2xx statuses are errors; the caller
// absorbs them per the best-effort persistence contract.
func (s *Sink) SaveSession(ctx context.Context, session *domain.Session) error {
	body, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/sessions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sessions endpoint returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
