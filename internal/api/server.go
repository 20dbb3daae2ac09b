package api

import (
	"PerfSpectra/internal/aggregator"
	"PerfSpectra/internal/catalog"
	"PerfSpectra/internal/model"
	"PerfSpectra/internal/query"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxAuditBody = 8 << 20

// Engine is the part of the aggregation engine the API serves.
type Engine interface {
	Aggregator() *aggregator.Aggregator
	Ingest(msg *model.AuditMessage) error
	Counts() (ingested, failed uint64)
}

// MetricInfo describes one catalog entry.
type MetricInfo struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Rule       string `json:"rule"`
}

// Status reports the engine's counters.
type Status struct {
	Backend  string   `json:"backend"`
	Groups   []string `json:"groups"`
	Ingested uint64   `json:"ingested"`
	Failed   uint64   `json:"failed"`
}

// Server serves the HTTP API.
type Server struct {
	log     logrus.FieldLogger
	engine  Engine
	querier query.Querier
	router  *mux.Router
	server  *http.Server
}

// NewServer creates the API server. querier may be nil, in which case history
// requests answer 501.
func NewServer(engine Engine, querier query.Querier, log logrus.FieldLogger) *Server {
	s := &Server{
		log:     log.WithField("component", "api"),
		engine:  engine,
		querier: querier,
		router:  mux.NewRouter(),
	}

	// Routes hang off the root router: a subrouter reports method mismatches as 404.
	r := s.router
	r.HandleFunc("/api/v1/summary", s.summaryHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/summary/{group}", s.groupSummaryHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/global", s.globalHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/metrics", s.metricsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/status", s.statusHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/audits", s.auditsHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/history/{group}/{metric}", s.historyHandler).Methods(http.MethodGet)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	return s
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	http.Error(w, fmt.Sprintf("method %s not allowed", r.Method), http.StatusMethodNotAllowed)
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves the API on addr in the background.
func (s *Server) Start(addr string) {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		s.log.WithField("addr", addr).Info("API server starting")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("API server failed")
		}
	}()
}

// Shutdown gracefully stops the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	summary, ok := s.engine.Aggregator().Summarize()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) groupSummaryHandler(w http.ResponseWriter, r *http.Request) {
	group := mux.Vars(r)["group"]
	summary, ok := s.engine.Aggregator().Summarize()
	if !ok {
		http.Error(w, fmt.Sprintf("unknown group '%s'", group), http.StatusNotFound)
		return
	}
	groupSummary, ok := summary.Groups[group]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown group '%s'", group), http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, groupSummary)
}

func (s *Server) globalHandler(w http.ResponseWriter, r *http.Request) {
	global, ok := s.engine.Aggregator().SummarizeGlobal()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, global)
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	metrics := make([]MetricInfo, 0, catalog.Len())
	for _, m := range catalog.All() {
		metrics = append(metrics, MetricInfo{
			Identifier: string(m),
			Name:       m.Name(),
			Rule:       catalog.RuleFor(m).String(),
		})
	}
	s.writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	ingested, failed := s.engine.Counts()
	s.writeJSON(w, http.StatusOK, Status{
		Backend:  s.engine.Aggregator().Backend(),
		Groups:   s.engine.Aggregator().Groups(),
		Ingested: ingested,
		Failed:   failed,
	})
}

// auditsHandler ingests one audit result for the group named by the query string.
func (s *Server) auditsHandler(w http.ResponseWriter, r *http.Request) {
	group := r.URL.Query().Get("group")
	if group == "" {
		http.Error(w, "missing 'group' query parameter", http.StatusBadRequest)
		return
	}

	var audits model.AuditResult
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuditBody)).Decode(&audits); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}

	msg := &model.AuditMessage{
		URL:        r.URL.Query().Get("url"),
		Group:      group,
		Audits:     audits,
		ReceivedAt: time.Now(),
	}
	if err := s.engine.Ingest(msg); err != nil {
		var (
			missing  *aggregator.MissingMetricError
			parseErr *aggregator.ParseError
		)
		if errors.As(err, &missing) || errors.As(err, &parseErr) {
			s.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error":  err.Error(),
				"metric": aggregator.MetricOf(err),
			})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	if s.querier == nil {
		http.Error(w, "history is not available: no queryable writer configured", http.StatusNotImplemented)
		return
	}

	vars := mux.Vars(r)
	metric, ok := catalog.Lookup(vars["metric"])
	if !ok {
		http.Error(w, fmt.Sprintf("unknown metric '%s'", vars["metric"]), http.StatusNotFound)
		return
	}

	req := query.HistoryRequest{Group: vars["group"], Metric: metric.Name()}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			http.Error(w, fmt.Sprintf("invalid limit '%s'", v), http.StatusBadRequest)
			return
		}
		req.Limit = limit
	}
	if v := r.URL.Query().Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid since '%s': %v", v, err), http.StatusBadRequest)
			return
		}
		req.Since = since
	}

	rows, err := s.querier.History(r.Context(), req)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query history: %v", err), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, historyResponse(rows))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("Failed to write response")
	}
}
