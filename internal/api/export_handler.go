package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clipforge/clipforge-agent/internal/export"
)

func planHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := export.ParseQuality(r.URL.Query().Get("quality"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		plan, err := export.BuildPlan(cfg.Session.Snapshot().Clips, q)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, PlanResponse{Quality: plan.Quality, Duration: plan.Duration(), Segments: plan.Segments})
	}
}

func startExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Exports == nil {
			WriteError(w, http.StatusServiceUnavailable, "export service not configured", "INTERNAL_ERROR")
			return
		}

		var req StartExportRequest
		if !decodeBody(w, r, &req) {
			return
		}

		quality := cfg.DefaultQuality
		if req.Quality != "" {
			q, err := export.ParseQuality(req.Quality)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
			quality = q
		}
		format, err := export.ParseFormat(req.Format)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		dest := req.Destination
		if dest == "" && cfg.ExportDir != "" {
			dest = filepath.Join(cfg.ExportDir, export.DefaultFilename(time.Now(), format))
		}

		opts := export.StartOptions{
			Quality:     quality,
			Format:      format,
			Destination: dest,
			Title:       req.Title,
		}
		if cfg.Autosave != nil {
			opts.ProjectID = cfg.Autosave.ProjectID()
		}

		job, err := cfg.Exports.Start(r.Context(), cfg.Session.Snapshot().Clips, opts)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, JobToResponse(job))
	}
}

func listExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Exports == nil {
			WriteJSON(w, http.StatusOK, JobsResponse{Jobs: []JobResponse{}})
			return
		}
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = n
		}

		jobs, err := cfg.Exports.List(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list export jobs", "INTERNAL_ERROR")
			return
		}
		resp := JobsResponse{Jobs: make([]JobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Exports == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}
		job, err := cfg.Exports.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func cancelExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Exports == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}
		id := chi.URLParam(r, "id")
		if err := cfg.Exports.Cancel(id); err != nil {
			if errors.Is(err, export.ErrNotRunning) {
				WriteError(w, http.StatusConflict, err.Error(), "NOT_RUNNING")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "cancelling"})
	}
}
