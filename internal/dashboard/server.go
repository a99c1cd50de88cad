package dashboard

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/empresas-cli/internal/model"
)

// Server serves the dashboard pages and a small JSON API over the current
// dataset. The dataset can be swapped while serving.
type Server struct {
	router chi.Router
	now    func() time.Time

	mu sync.RWMutex
	ds *model.Dataset
}

// NewServer creates a dashboard server for ds.
func NewServer(ds *model.Dataset) *Server {
	s := &Server{ds: ds, now: time.Now}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleDashboard)
	r.Get("/metricas", s.handleMetrics)
	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Get("/companies", s.handleCompanies)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetDataset replaces the dataset served by s.
func (s *Server) SetDataset(ds *model.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds = ds
}

// filtered returns the dataset restricted by the region and level query
// parameters. Both may be repeated.
func (s *Server) filtered(r *http.Request) *model.Dataset {
	s.mu.RLock()
	ds := s.ds
	s.mu.RUnlock()

	q := r.URL.Query()
	return Filter(ds, q["region"], q["level"])
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, RenderHTML, Build(s.filtered(r), s.now()))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, RenderMetrics, Build(s.filtered(r), s.now()))
}

func (s *Server) renderPage(w http.ResponseWriter, render func(io.Writer, Summary) error, sum Summary) {
	var buf bytes.Buffer
	if err := render(&buf, sum); err != nil {
		zap.L().Error("dashboard: render failed", zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Build(s.filtered(r), s.now()))
}

// handleCompanies lists the matching companies as column to value objects.
// Absent cells are null. An optional limit caps the number of records.
func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	limit := -1
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	t := s.filtered(r).ToTable()
	records := make([]map[string]*string, 0, len(t.Rows))
	for i, row := range t.Rows {
		if limit >= 0 && i >= limit {
			break
		}
		rec := make(map[string]*string, len(t.Columns))
		for j, c := range t.Columns {
			if row[j].Valid {
				v := row[j].Value
				rec[c] = &v
			} else {
				rec[c] = nil
			}
		}
		records = append(records, rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":    len(t.Rows),
		"empresas": records,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("dashboard: encode response", zap.Error(err))
	}
}
