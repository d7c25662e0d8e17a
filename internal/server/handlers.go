package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/greenroom-hq/greenroom/internal/domain"
	"github.com/greenroom-hq/greenroom/internal/metrics"
	"github.com/greenroom-hq/greenroom/internal/storage"
)

// Handler serves the collaborator boundary and the session persistence sink.
type Handler struct {
	generator  domain.FollowupGenerator
	summarizer domain.Summarizer
	store      storage.SessionStore
	recorder   *metrics.Recorder
}

// NewHandler wires the boundary handlers. Any collaborator may be nil; its
// routes then answer 503.
func NewHandler(generator domain.FollowupGenerator, summarizer domain.Summarizer, store storage.SessionStore, recorder *metrics.Recorder) *Handler {
	return &Handler{
		generator:  generator,
		summarizer: summarizer,
		store:      store,
		recorder:   recorder,
	}
}

// Register mounts all routes on the router.
func (h *Handler) Register(r chi.Router) {
	if h.recorder != nil {
		r.Use(h.metricsMiddleware)
	}
	r.Post("/api/followups", h.HandleFollowups)
	r.Post("/api/summarize", h.HandleSummarize)
	r.Post("/api/sessions", h.HandleSaveSession)
	r.Get("/api/sessions", h.HandleListSessions)
	r.Get("/api/sessions/{id}", h.HandleGetSession)
	r.Get("/healthz", h.HandleHealth)
	if h.recorder != nil {
		r.Method(http.MethodGet, "/metrics", h.recorder.Handler())
	}
}

type followupsRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type followupsResponse struct {
	Followups []string `json:"followups"`
}

// HandleFollowups answers with zero to three normalized follow-up questions
// for a question/answer pair.
func (h *Handler) HandleFollowups(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		writeError(w, http.StatusServiceUnavailable, "followups not configured")
		return
	}

	var req followupsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" || req.Answer == "" {
		writeError(w, http.StatusBadRequest, "question and answer are required")
		return
	}

	h.count(func(rec *metrics.Recorder) { rec.FollowupRequested() })

	followups, err := h.generator.Generate(r.Context(), req.Question, req.Answer)
	if err != nil {
		AddError(r.Context(), err)
		h.count(func(rec *metrics.Recorder) { rec.FollowupFailed() })
		writeError(w, http.StatusInternalServerError, "followups failed")
		return
	}
	if len(followups) == 0 {
		followups = []string{}
		h.count(func(rec *metrics.Recorder) { rec.FollowupEmpty() })
	}

	writeJSON(w, http.StatusOK, followupsResponse{Followups: followups})
}

type summarizeRequest struct {
	Transcript []domain.Utterance `json:"transcript"`
}

// HandleSummarize scores a finished transcript per section.
func (h *Handler) HandleSummarize(w http.ResponseWriter, r *http.Request) {
	if h.summarizer == nil {
		writeError(w, http.StatusServiceUnavailable, "summarize not configured")
		return
	}

	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.count(func(rec *metrics.Recorder) { rec.SummarizeRequested() })

	artifacts, err := h.summarizer.Summarize(r.Context(), req.Transcript)
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "summarize failed")
		return
	}
	writeJSON(w, http.StatusOK, artifacts)
}

// HandleSaveSession accepts one consolidated finished-session record.
func (h *Handler) HandleSaveSession(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence not configured")
		return
	}

	var session domain.Session
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		writeError(w, http.StatusBadRequest, "invalid session record")
		return
	}
	if session.ID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	if err := h.store.SaveSession(r.Context(), &session); err != nil {
		AddError(r.Context(), err)
		h.count(func(rec *metrics.Recorder) { rec.PersistFailed() })
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return
	}
	h.count(func(rec *metrics.Recorder) { rec.SessionPersisted() })

	writeJSON(w, http.StatusCreated, map[string]string{"id": session.ID})
}

// HandleGetSession loads one stored session record.
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence not configured")
		return
	}

	session, err := h.store.GetSession(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// HandleListSessions returns listing rows, newest first.
func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence not configured")
		return
	}

	opts := storage.ListOptions{}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Offset = n
		}
	}

	summaries, err := h.store.ListSessions(r.Context(), opts)
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if summaries == nil {
		summaries = []storage.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": summaries})
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// metricsMiddleware counts each handled request by route pattern and status.
func (h *Handler) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		h.recorder.HTTPRequest(route, strconv.Itoa(wrapped.statusCode))
	})
}

func (h *Handler) count(f func(*metrics.Recorder)) {
	if h.recorder != nil {
		f(h.recorder)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
