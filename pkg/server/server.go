package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elonfeng/newspulse/internal/logging"
	"github.com/elonfeng/newspulse/pkg/feed"
	"github.com/elonfeng/newspulse/pkg/hotness"
	"github.com/elonfeng/newspulse/pkg/summary"
)

// Server provides the HTTP API over the dashboard engine.
type Server struct {
	engine     *feed.Engine
	summarizer summary.Summarizer // optional, nil = disabled
	port       int
}

// New creates a new HTTP server. summarizer may be nil.
func New(engine *feed.Engine, summarizer summary.Summarizer, port int) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		engine:     engine,
		summarizer: summarizer,
		port:       port,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/stories", s.handleStories)
	mux.HandleFunc("GET /api/v1/stories/{id}", s.handleStory)
	mux.HandleFunc("POST /api/v1/stories/{id}/summary", s.handleSummary)
	mux.HandleFunc("GET /api/v1/topics", s.handleTopics)
	mux.HandleFunc("POST /api/v1/refresh", s.handleRefresh)
	return mux
}

// ListenAndServe serves the API until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("server: listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		logging.Info("server: stopped")
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if snap := s.engine.Snapshot(); snap != nil {
		resp["fetched_at"] = snap.FetchedAt
		resp["stories"] = len(snap.Stories)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStories(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	page, err := s.engine.Query(q)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":      page.Stories,
		"count":     len(page.Stories),
		"total":     page.Total,
		"page":      page.Page,
		"page_size": page.PageSize,
		"has_more":  page.HasMore,
	})
}

func parseQuery(r *http.Request) (feed.Query, error) {
	v := r.URL.Query()
	q := feed.Query{
		Source: v.Get("source"),
		Search: v.Get("q"),
		Topic:  v.Get("topic"),
	}

	var err error
	if lvl := v.Get("level"); lvl != "" {
		if q.MinLevel, err = hotness.ParseLevel(lvl); err != nil {
			return q, err
		}
	}
	if q.Sort, err = feed.ParseSort(v.Get("sort")); err != nil {
		return q, err
	}
	if q.Page, err = intParam(v.Get("page")); err != nil {
		return q, fmt.Errorf("invalid page: %w", err)
	}
	if q.PageSize, err = intParam(v.Get("page_size")); err != nil {
		return q, fmt.Errorf("invalid page_size: %w", err)
	}
	return q, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	st, ok := s.engine.Story(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("story not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": st})
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %w", err))
		return
	}

	views, err := s.engine.Topics(limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  views,
		"count": len(views),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	resp := map[string]any{
		"data": map[string]any{
			"stories":    len(snap.Stories),
			"fetched_at": snap.FetchedAt,
		},
	}
	if len(snap.Errors) > 0 {
		resp["errors"] = snap.Errors
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if s.summarizer == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("summaries are not configured"))
		return
	}

	st, ok := s.engine.Story(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("story not found"))
		return
	}

	text, err := s.summarizer.Summarize(r.Context(), st.Story)
	if err != nil {
		logging.Warn("server: summary failed", "id", st.ID, "err", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]string{"story_id": st.ID, "summary": text},
	})
}

func writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, feed.ErrNoSnapshot) {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
