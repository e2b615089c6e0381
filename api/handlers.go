package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"jortega/reviewscout/helpers"
	"jortega/reviewscout/models"
	"jortega/reviewscout/services/store"
)

const minQueryLength = 3

type analyzeRequest struct {
	Query      string `json:"query"`
	Source     string `json:"source"`
	Strategy   string `json:"strategy"`
	Force      bool   `json:"force"`
	MaxReviews int    `json:"max_reviews"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type pagedResponse struct {
	Items    interface{} `json:"items"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Total    int         `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeStoreError maps ErrNotFound to 404 and everything else to 500
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.log.LogError("api", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) pageFromQuery(r *http.Request) store.Page {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	p := store.Page{Number: page, Size: size}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 20
	}
	if s.pageSizeLimit > 0 && p.Size > s.pageSizeLimit {
		p.Size = s.pageSizeLimit
	}
	return p
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	query := helpers.CleanText(req.Query)
	if len([]rune(query)) < minQueryLength {
		writeError(w, http.StatusBadRequest, "query must be at least 3 characters")
		return
	}
	strategy, ok := models.ParseStrategy(req.Strategy)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown strategy: "+req.Strategy)
		return
	}
	if req.MaxReviews < 0 {
		writeError(w, http.StatusBadRequest, "max_reviews must not be negative")
		return
	}

	source := req.Source
	if source == "" {
		source = s.defaultSource
	}
	job, err := s.store.CreateJob(r.Context(), models.AnalysisJob{
		Query:      query,
		Source:     source,
		Strategy:   strategy,
		Force:      req.Force,
		MaxReviews: req.MaxReviews,
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("query", job.Query).
		Str("strategy", string(job.Strategy)).
		Msg("Analysis job queued")
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	status := models.JobStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.JobQueued, models.JobRunning, models.JobDone, models.JobFailed:
	default:
		writeError(w, http.StatusBadRequest, "unknown status: "+string(status))
		return
	}

	page := s.pageFromQuery(r)
	jobs, total, err := s.store.ListJobs(r.Context(), status, page)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: jobs, Page: page.Number, PageSize: page.Size, Total: total})
}

func (s *Server) handleListBusinesses(w http.ResponseWriter, r *http.Request) {
	page := s.pageFromQuery(r)
	businesses, total, err := s.store.ListBusinesses(r.Context(), page)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: businesses, Page: page.Number, PageSize: page.Size, Total: total})
}

func (s *Server) handleGetBusiness(w http.ResponseWriter, r *http.Request) {
	business, err := s.store.GetBusiness(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, business)
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetBusiness(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}

	page := s.pageFromQuery(r)
	reviews, total, err := s.store.ListReviews(r.Context(), id, page)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: reviews, Page: page.Number, PageSize: page.Size, Total: total})
}

func (s *Server) handleLatestAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.store.LatestAnalysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	page := s.pageFromQuery(r)
	analyses, total, err := s.store.ListAnalyses(r.Context(), id, page)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: analyses, Page: page.Number, PageSize: page.Size, Total: total})
}
