package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func projectsConfigured(cfg ServerConfig, w http.ResponseWriter) bool {
	if cfg.Projects == nil {
		WriteError(w, http.StatusServiceUnavailable, "project storage not configured", "INTERNAL_ERROR")
		return false
	}
	return true
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !projectsConfigured(cfg, w) {
			return
		}
		projects, err := cfg.Projects.List(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list projects", "INTERNAL_ERROR")
			return
		}
		resp := ProjectsResponse{Projects: make([]ProjectResponse, len(projects))}
		for i, p := range projects {
			resp.Projects[i] = ProjectToResponse(p)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func saveProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !projectsConfigured(cfg, w) {
			return
		}
		var req SaveProjectRequest
		if !decodeBody(w, r, &req) {
			return
		}
		p, err := cfg.Projects.Save(r.Context(), req.Name, cfg.Session.Snapshot())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if cfg.Autosave != nil {
			cfg.Autosave.Track(p.ID)
		}
		WriteJSON(w, http.StatusCreated, ProjectToResponse(p))
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !projectsConfigured(cfg, w) {
			return
		}
		p, err := cfg.Projects.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(p))
	}
}

func overwriteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !projectsConfigured(cfg, w) {
			return
		}
		id := chi.URLParam(r, "id")
		p, err := cfg.Projects.Overwrite(r.Context(), id, cfg.Session.Snapshot())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if cfg.Autosave != nil {
			cfg.Autosave.Track(p.ID)
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(p))
	}
}

func renameProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !projectsConfigured(cfg, w) {
			return
		}
		var req SaveProjectRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Name == "" {
			WriteError(w, http.StatusBadRequest, "name is required", "BAD_REQUEST")
			return
		}
		p, err := cfg.Projects.Rename(r.Context(), chi.URLParam(r, "id"), req.Name)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(p))
	}
}

func deleteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !projectsConfigured(cfg, w) {
			return
		}
		id := chi.URLParam(r, "id")
		if err := cfg.Projects.Delete(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		if cfg.Autosave != nil && cfg.Autosave.ProjectID() == id {
			cfg.Autosave.Track("")
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func loadProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !projectsConfigured(cfg, w) {
			return
		}
		id := chi.URLParam(r, "id")
		st, err := cfg.Projects.Load(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if err := cfg.Session.Replace(st); err != nil {
			writeDomainError(w, err)
			return
		}
		if cfg.Autosave != nil {
			cfg.Autosave.Track(id)
		}
		timelineHandler(cfg)(w, r)
	}
}
