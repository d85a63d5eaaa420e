package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clipforge/clipforge-agent/internal/export"
	"github.com/clipforge/clipforge-agent/internal/logging"
	"github.com/clipforge/clipforge-agent/internal/timeline"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	cfg.Logger = logging.OrDiscard(cfg.Logger)
	if cfg.Session == nil {
		cfg.Session = timeline.NewSession(nil)
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(LoopbackGuard())
		r.Get("/media/{clipID}", mediaHandler(cfg))
		r.Head("/media/{clipID}", mediaHandler(cfg))
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Tokens, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Route("/timeline", func(r chi.Router) {
			r.Get("/", timelineHandler(cfg))
			r.Post("/clips", importClipHandler(cfg))
			r.Delete("/clips/{id}", removeClipHandler(cfg))
			r.Patch("/clips/{id}", updateClipHandler(cfg))
			r.Put("/clips/{id}/trim", trimHandler(cfg))
			r.Post("/clips/{id}/split", splitClipHandler(cfg))
			r.Get("/clips/{id}/deletion", deletionPreviewHandler(cfg))
			r.Post("/clips/{id}/deletion", proposeDeleteHandler(cfg))
			r.Post("/clips/{id}/deletion/confirm", confirmDeleteHandler(cfg))
			r.Delete("/deletion", cancelDeleteHandler(cfg))
			r.Post("/trim-drag", startTrimDragHandler(cfg))
			r.Put("/trim-drag", updateTrimDragHandler(cfg))
			r.Delete("/trim-drag", endTrimDragHandler(cfg))
			r.Post("/select", selectHandler(cfg))
			r.Post("/split", splitAtPlayheadHandler(cfg))
			r.Post("/repack", repackHandler(cfg))
			r.Post("/clear", clearHandler(cfg))
			r.Post("/play", playHandler(cfg))
			r.Post("/pause", pauseHandler(cfg))
			r.Post("/toggle", toggleHandler(cfg))
			r.Post("/tick", tickHandler(cfg))
			r.Post("/seek", seekHandler(cfg))
			r.Post("/zoom", zoomHandler(cfg))
		})

		r.Route("/export", func(r chi.Router) {
			r.Get("/plan", planHandler(cfg))
			r.Get("/jobs", listExportsHandler(cfg))
			r.Post("/jobs", startExportHandler(cfg))
			r.Get("/jobs/{id}", getExportHandler(cfg))
			r.Post("/jobs/{id}/cancel", cancelExportHandler(cfg))
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", listProjectsHandler(cfg))
			r.Post("/", saveProjectHandler(cfg))
			r.Get("/{id}", getProjectHandler(cfg))
			r.Put("/{id}", overwriteProjectHandler(cfg))
			r.Patch("/{id}", renameProjectHandler(cfg))
			r.Delete("/{id}", deleteProjectHandler(cfg))
			r.Post("/{id}/load", loadProjectHandler(cfg))
		})
	})

	return r
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := cfg.Version
		if version == "" {
			version = "dev"
		}
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		st := cfg.Session.Snapshot()

		resp := StatusResponse{
			State:         "idle",
			ClipCount:     len(st.Clips),
			TotalDuration: st.TotalDuration(),
			IsPlaying:     st.IsPlaying,
		}
		if st.IsPlaying {
			resp.State = "playing"
		}
		if cfg.Autosave != nil {
			resp.ProjectID = cfg.Autosave.ProjectID()
		}

		if cfg.Exports != nil {
			jobs, _ := cfg.Exports.List(ctx, 10)
			for _, j := range jobs {
				if j.Status == export.JobStatusRunning || j.Status == export.JobStatusPending {
					resp.ExportsActive++
					if resp.ActiveExport == nil {
						jr := JobToResponse(j)
						resp.ActiveExport = &jr
					}
				}
				if j.Status == export.JobStatusFailed && resp.LastError == "" {
					resp.LastError = j.Error
				}
			}
			if resp.ExportsActive > 0 {
				resp.State = "exporting"
			}
		}

		if cfg.Doctor != nil {
			if caps := cfg.Doctor.Peek(); caps != nil && !caps.ProbedAt.IsZero() {
				resp.Encoder = &EncoderStatusRsp{
					CanExport:     caps.CanExport(),
					CanProbe:      caps.CanProbe(),
					FFmpegVersion: caps.FFmpeg.Version,
					LastProbeAt:   caps.ProbedAt.Format(time.RFC3339),
				}
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func mediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "clipID")

		var clip timeline.Clip
		var ok bool
		cfg.Session.View(func(s *timeline.Store) {
			clip, ok = s.Snapshot().ClipByID(id)
		})
		if !ok {
			WriteError(w, http.StatusNotFound, "clip not on timeline", "INVALID_REFERENCE")
			return
		}
		if cfg.Media == nil {
			WriteError(w, http.StatusServiceUnavailable, "media server not configured", "INTERNAL_ERROR")
			return
		}

		if err := cfg.Media.ServeClip(w, r, clip); err != nil {
			cfg.Logger.Error("media error", "error", err, "clip_id", id)
		}
	}
}
