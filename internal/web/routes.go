package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/photo-library/internal/database"
)

func (s *Server) setupRoutes() {
	s.router.Get("/api/v1/health", s.health)
	s.router.Route("/api/v1/queue", func(r chi.Router) {
		r.Get("/can-accept-job", s.queueCanAcceptJob)
		r.Get("/job-detail", s.jobDetail)
	})
	s.router.Get("/api/v1/jobs", s.listJobs)
	s.router.Get("/api/v1/jobs/{jobID}", s.getJob)
	s.router.Delete("/api/v1/jobs/{jobID}", s.cancelJob)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) queueCanAcceptJob(w http.ResponseWriter, r *http.Request) {
	ok, err := s.jobs.QueueCanAcceptJob(r.Context())
	if err != nil {
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"queue_can_accept_job": ok})
}

func (s *Server) jobDetail(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.JobDetail(r.Context())
	if err != nil {
		s.serverError(w, err)
		return
	}
	if job == nil {
		writeJSON(w, http.StatusOK, map[string]any{"job_detail": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_detail": jobPayload(job)})
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	list, err := s.jobs.ListJobs(r.Context(), limit)
	if err != nil {
		s.serverError(w, err)
		return
	}
	payload := make([]map[string]any, 0, len(list))
	for i := range list {
		payload = append(payload, jobPayload(&list[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": payload})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid job id"})
		return
	}
	job, err := s.jobs.GetJob(r.Context(), jobID)
	if errors.Is(err, database.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobPayload(job))
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid job id"})
		return
	}
	if !s.jobs.CancelJob(jobID) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job is not running"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancellation requested"})
}

func jobPayload(job *database.LongRunningJob) map[string]any {
	payload := map[string]any{
		"job_id":        job.JobID.String(),
		"job_type":      job.JobType,
		"started_by_id": job.StartedByID,
		"queued_at":     job.QueuedAt.Format(time.RFC3339),
		"finished":      job.Finished,
		"failed":        job.Failed,
		"result":        job.Result,
	}
	if job.StartedAt != nil {
		payload["started_at"] = job.StartedAt.Format(time.RFC3339)
	}
	if job.FinishedAt != nil {
		payload["finished_at"] = job.FinishedAt.Format(time.RFC3339)
	}
	return payload
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
