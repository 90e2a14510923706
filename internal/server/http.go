package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/drive-renamer/constants"
	"github.com/joseph-ayodele/drive-renamer/internal/async"
	"github.com/joseph-ayodele/drive-renamer/internal/common"
	"github.com/joseph-ayodele/drive-renamer/internal/pipeline"
	"github.com/joseph-ayodele/drive-renamer/internal/services/worker"
)

const (
	ServiceName  = "drive-renamer-worker"
	maxBodyBytes = 64 << 10
)

// TaskService is the worker surface behind the HTTP routes.
type TaskService interface {
	HandleTask(ctx context.Context, task worker.Task) ([]pipeline.Result, error)
	Submit(ctx context.Context, task worker.Task) error
}

type Options struct {
	Version    string
	RunTimeout time.Duration
}

// Handler serves the task endpoints.
type Handler struct {
	svc    TaskService
	opts   Options
	logger *slog.Logger
	mux    *http.ServeMux
}

func NewHandler(svc TaskService, opts Options, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	h := &Handler{svc: svc, opts: opts, logger: logger, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /health", h.health)
	h.mux.HandleFunc("POST /run-task", h.runTask)
	h.mux.HandleFunc("POST /run-job", h.runJob)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", reqID)
	r = r.WithContext(common.WithRequestID(r.Context(), reqID))

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.mux.ServeHTTP(rec, r)

	h.logger.Info("http.request",
		"req_id", reqID,
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
		"version": h.opts.Version,
	})
}

type taskResponse struct {
	Status  string            `json:"status"`
	Results []pipeline.Result `json:"results"`
}

// runTask executes the task within the request. Job failures are reported in the body with a 200;
// only errors outside a job map to 5xx.
func (h *Handler) runTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.decodeTask(w, r)
	if err != nil {
		return
	}

	ctx, cancel := common.WithTimeout(r.Context(), h.opts.RunTimeout)
	defer cancel()

	results, err := h.svc.HandleTask(ctx, task)
	if err != nil {
		h.logger.Error("http.run_task.failed", "req_id", common.RequestIDFromContext(ctx), "error", err)
		writeError(w, statusFor(err), err)
		return
	}
	if results == nil {
		results = []pipeline.Result{}
	}
	status := constants.ResultSuccess
	for _, res := range results {
		if res.Failed() {
			status = constants.ResultError
			break
		}
	}
	writeJSON(w, http.StatusOK, taskResponse{Status: status, Results: results})
}

func (h *Handler) runJob(w http.ResponseWriter, r *http.Request) {
	task, err := h.decodeTask(w, r)
	if err != nil {
		return
	}
	if err := h.svc.Submit(r.Context(), task); err != nil {
		h.logger.Warn("http.run_job.rejected", "req_id", common.RequestIDFromContext(r.Context()), "job_id", task.JobID, "error", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"job_id": task.JobID,
	})
}

func (h *Handler) decodeTask(w http.ResponseWriter, r *http.Request) (worker.Task, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return worker.Task{}, err
	}
	task, err := worker.ParseTask(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return worker.Task{}, err
	}
	return task, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, async.ErrQueueFull), errors.Is(err, async.ErrQueueClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"status": constants.ResultError, "error": err.Error()})
}
