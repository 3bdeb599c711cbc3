// Package hub is a development central server. It accepts violation reports
// over HTTP or NATS, issues confirmation ids, takes human reviews and serves
// the feedback, training and deployment endpoints the lifecycle check uses.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/crimson-sun/trafficwatch/internal/engine/taxonomy"
	"github.com/crimson-sun/trafficwatch/internal/lifecycle/hubclient"
	"github.com/crimson-sun/trafficwatch/internal/metrics"
	"github.com/crimson-sun/trafficwatch/internal/model"
	"github.com/crimson-sun/trafficwatch/internal/transmit"
)

// ErrRejected marks a submission the hub refuses to confirm.
var ErrRejected = errors.New("submission rejected")

// Recorder receives hub metrics. *metrics.Metrics satisfies it.
type Recorder interface {
	HubReportReceived()
}

type nopRecorder struct{}

func (nopRecorder) HubReportReceived() {}

// Option configures a Server.
type Option func(*Server)

// WithSiteCode fixes the code embedded in confirmation ids. Without it the
// code is derived from each submission's site id.
func WithSiteCode(code string) Option {
	return func(s *Server) { s.siteCode = code }
}

// WithTaxonomy sets the accepted violation types. Default: taxonomy.Default().
func WithTaxonomy(t *taxonomy.Taxonomy) Option {
	return func(s *Server) { s.tax = t }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Server) { s.rec = r }
}

// WithMetrics exposes g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Server is the development central server.
type Server struct {
	r        *chi.Mux
	store    *Store
	tax      *taxonomy.Taxonomy
	siteCode string
	rec      Recorder
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	pipelines map[string]string // pipeline id -> deployed model id, "" until deployed
	deploys   int
}

// New creates a Server backed by store.
func New(store *Store, opts ...Option) *Server {
	s := &Server{
		r:         chi.NewRouter(),
		store:     store,
		tax:       taxonomy.Default(),
		rec:       nopRecorder{},
		logger:    slog.Default(),
		now:       time.Now,
		pipelines: map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.r.Use(middleware.RequestID)
	s.r.Use(middleware.Recoverer)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) })
	if s.gatherer != nil {
		s.r.Method(http.MethodGet, "/metrics", metrics.Handler(s.gatherer))
	}

	s.r.Post("/v1/reports", s.postReport)
	s.r.Get("/v1/reports/{id}", s.getReport)
	s.r.Post("/v1/reports/{id}/review", s.postReview)

	s.r.Get(hubclient.FeedbackPath, s.getFeedback)
	s.r.Post(hubclient.TrainingPath, s.postTraining)
	s.r.Post(hubclient.DeploymentPath, s.postDeployment)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.r }

// Accept validates a submission, stores the report and returns its
// confirmation id. Errors match ErrRejected.
func (s *Server) Accept(ctx context.Context, sub transmit.Submission) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rec := sub.Classification
	switch {
	case sub.SiteID == "":
		return "", fmt.Errorf("%w: site_id is required", ErrRejected)
	case rec.ViolationType.IsSentinel():
		return "", fmt.Errorf("%w: %q is not a reportable violation", ErrRejected, rec.ViolationType)
	case !s.tax.Contains(rec.ViolationType):
		return "", fmt.Errorf("%w: unknown violation type %q", ErrRejected, rec.ViolationType)
	case math.IsNaN(rec.ConfidenceScore) || rec.ConfidenceScore < 0 || rec.ConfidenceScore > 1:
		return "", fmt.Errorf("%w: confidence %v outside [0, 1]", ErrRejected, rec.ConfidenceScore)
	}

	code := s.siteCode
	if code == "" {
		code = model.SiteCode(sub.SiteID)
	}
	now := s.now()
	id := s.store.Add(model.NewConfirmationID(code, now), model.ViolationReport{
		Classification: rec,
		SiteID:         sub.SiteID,
		ReportedAt:     now,
	})
	s.rec.HubReportReceived()
	s.logger.Info("report accepted",
		"site_id", sub.SiteID,
		"violation_type", rec.ViolationType,
		"confidence", rec.ConfidenceScore,
		"confirmation_id", id,
	)
	return id, nil
}

func (s *Server) postReport(w http.ResponseWriter, r *http.Request) {
	var sub transmit.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	id, err := s.Accept(r.Context(), sub)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if !errors.Is(err, ErrRejected) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, transmit.Receipt{ConfirmationID: id})
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) postReview(w http.ResponseWriter, r *http.Request) {
	var rv Review
	if err := json.NewDecoder(r.Body).Decode(&rv); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if !rv.Correct && rv.CorrectedType != "" && !s.tax.Contains(rv.CorrectedType) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown violation type %q", rv.CorrectedType))
		return
	}
	rec, ok := s.store.SetReview(chi.URLParam(r, "id"), rv, s.now())
	if !ok {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// getFeedback accepts either start/end (RFC 3339) or window (a duration
// ending now). The default is the last 24h.
func (s *Server) getFeedback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	win := model.LastWindow(s.now(), 24*time.Hour)

	if v := q.Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid window %q", v))
			return
		}
		win = model.LastWindow(s.now(), d)
	}
	if start, end := q.Get("start"), q.Get("end"); start != "" || end != "" {
		st, err1 := time.Parse(time.RFC3339, start)
		en, err2 := time.Parse(time.RFC3339, end)
		if err1 != nil || err2 != nil || !en.After(st) {
			writeError(w, http.StatusBadRequest, "start and end must be RFC 3339 with start before end")
			return
		}
		win = model.Window{Start: st, End: en}
	}
	writeJSON(w, http.StatusOK, s.store.Feedback(win))
}

func (s *Server) postTraining(w http.ResponseWriter, r *http.Request) {
	var req hubclient.TrainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	id := "traffic-model-retrain-" + uuid.NewString()[:8]

	s.mu.Lock()
	s.pipelines[id] = ""
	s.mu.Unlock()

	s.logger.Info("retraining pipeline started",
		"pipeline_id", id,
		"misclassifications", req.Feedback.MisclassificationCount,
		"reviewed", req.Feedback.ReviewedCount,
	)
	writeJSON(w, http.StatusCreated, hubclient.TrainingResponse{PipelineID: id})
}

func (s *Server) postDeployment(w http.ResponseWriter, r *http.Request) {
	var req hubclient.DeploymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	s.mu.Lock()
	deployed, ok := s.pipelines[req.PipelineID]
	if ok && deployed == "" {
		s.deploys++
		deployed = fmt.Sprintf("model_v%d", s.deploys)
		s.pipelines[req.PipelineID] = deployed
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown pipeline %q", req.PipelineID))
		return
	}
	s.logger.Info("model deployed", "pipeline_id", req.PipelineID, "model_id", deployed)
	writeJSON(w, http.StatusCreated, hubclient.DeploymentResponse{ModelID: deployed})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
