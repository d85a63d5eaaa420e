package api

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clipforge/clipforge-agent/internal/timeline"
)

// mutate runs fn as one session command and writes its result, or the
// mapped error, as JSON.
func mutate(cfg ServerConfig, w http.ResponseWriter, status int, fn func(s *timeline.Store) (any, error)) {
	var out any
	err := cfg.Session.Update(func(s *timeline.Store) error {
		var err error
		out, err = fn(s)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, status, out)
}

func snapshotOf(s *timeline.Store) (any, error) {
	return timelineResponse(s), nil
}

func timelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp TimelineResponse
		cfg.Session.View(func(s *timeline.Store) { resp = timelineResponse(s) })
		WriteJSON(w, http.StatusOK, resp)
	}
}

func importClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ImportClipRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}
		if req.Name == "" {
			req.Name = filepath.Base(req.Path)
		}
		if !timeline.IsVideoFile(req.Name) && !timeline.IsVideoFile(req.Path) {
			WriteError(w, http.StatusUnsupportedMediaType, "only .mp4, .mov and .webm files can be imported", "UNSUPPORTED_FORMAT")
			return
		}

		// Probe outside the session lock; ffprobe can take seconds.
		if req.Duration <= 0 {
			if cfg.Prober == nil {
				WriteError(w, http.StatusBadRequest, "duration is required", "BAD_REQUEST")
				return
			}
			d, err := cfg.Prober.ProbeDuration(r.Context(), req.Path)
			if err != nil {
				cfg.Logger.Warn("probe failed", "path", req.Path, "error", err)
				WriteError(w, http.StatusUnprocessableEntity, "could not read media duration: "+err.Error(), "BAD_REQUEST")
				return
			}
			req.Duration = d
		}

		mutate(cfg, w, http.StatusCreated, func(s *timeline.Store) (any, error) {
			return s.ImportClip(req.Name, req.Path, req.Duration)
		})
	}
}

func removeClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			if err := s.RemoveClip(id); err != nil {
				return nil, err
			}
			return snapshotOf(s)
		})
	}
}

func updateClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateClipRequest
		if !decodeBody(w, r, &req) {
			return
		}
		id := chi.URLParam(r, "id")
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			if err := s.UpdateClip(id, timeline.ClipPatch{Name: req.Name}); err != nil {
				return nil, err
			}
			c, _ := s.Snapshot().ClipByID(id)
			return c, nil
		})
	}
}

func trimHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TrimRequest
		if !decodeBody(w, r, &req) {
			return
		}
		id := chi.URLParam(r, "id")
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			return s.SetTrimPoints(id, req.TrimStart, req.TrimEnd)
		})
	}
}

func startTrimDragHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TrimDragRequest
		if !decodeBody(w, r, &req) {
			return
		}
		which, err := timeline.ParseTrimType(req.Type)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			if err := s.StartTrimDrag(req.ClipID, which, req.Value); err != nil {
				return nil, err
			}
			return snapshotOf(s)
		})
	}
}

func updateTrimDragHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TrimDragRequest
		if !decodeBody(w, r, &req) {
			return
		}
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			if _, err := s.UpdateTrimPreview(req.Value); err != nil {
				return nil, err
			}
			return snapshotOf(s)
		})
	}
}

func endTrimDragHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			s.EndTrimDrag()
			return snapshotOf(s)
		})
	}
}

func deletionPreviewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var (
			resp DeletionResponse
			ok   bool
		)
		cfg.Session.View(func(s *timeline.Store) {
			resp.ClipID = id
			if resp.Preview, ok = s.DeletionPreview(id); ok {
				resp.Message, _ = s.Snapshot().DeletionMessage(id)
			}
		})
		if !ok {
			WriteError(w, http.StatusNotFound, "clip "+id+" not on timeline", "INVALID_REFERENCE")
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func proposeDeleteHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			p, err := s.ProposeDelete(id)
			if err != nil {
				return nil, err
			}
			msg, _ := s.Snapshot().DeletionMessage(id)
			return DeletionResponse{ClipID: id, Preview: p, Message: msg}, nil
		})
	}
}

func confirmDeleteHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			if _, err := s.ConfirmDelete(id); err != nil {
				return nil, err
			}
			return snapshotOf(s)
		})
	}
}

func cancelDeleteHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			s.CancelDelete()
			return snapshotOf(s)
		})
	}
}

func splitClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SplitRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Time == nil {
			WriteError(w, http.StatusBadRequest, "time is required", "BAD_REQUEST")
			return
		}
		id := chi.URLParam(r, "id")
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			a, b, err := s.SplitClipAtPlayhead(id, *req.Time)
			if err != nil {
				return nil, err
			}
			return SplitResponse{First: a, Second: b}, nil
		})
	}
}

func splitAtPlayheadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			a, b, err := s.SplitAtPlayhead()
			if err != nil {
				return nil, err
			}
			return SplitResponse{First: a, Second: b}, nil
		})
	}
}

func selectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectRequest
		if !decodeBody(w, r, &req) {
			return
		}
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			if err := s.SelectClip(req.ClipID); err != nil {
				return nil, err
			}
			return snapshotOf(s)
		})
	}
}

func repackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			s.Repack()
			return snapshotOf(s)
		})
	}
}

func clearHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			s.ClearTimeline()
			return snapshotOf(s)
		})
	}
}

func playHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			cue, err := s.Play()
			if err != nil {
				return nil, err
			}
			return PlayResponse{Playing: true, Cue: &cue}, nil
		})
	}
}

func pauseHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			s.Pause()
			return PlayResponse{Playing: false}, nil
		})
	}
}

func toggleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			cue, err := s.TogglePlay()
			if err != nil {
				return nil, err
			}
			return PlayResponse{Playing: cue != nil, Cue: cue}, nil
		})
	}
}

func tickHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TickRequest
		if !decodeBody(w, r, &req) {
			return
		}
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			return s.Tick(req.Position)
		})
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeekRequest
		if !decodeBody(w, r, &req) {
			return
		}
		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			if err := s.SetCurrentTime(req.Time); err != nil {
				return nil, err
			}
			return snapshotOf(s)
		})
	}
}

func zoomHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ZoomRequest
		if !decodeBody(w, r, &req) {
			return
		}

		var apply func(s *timeline.Store) float64
		var setErr error
		switch req.Action {
		case "in":
			apply = (*timeline.Store).ZoomIn
		case "out":
			apply = (*timeline.Store).ZoomOut
		case "reset":
			apply = (*timeline.Store).ResetZoom
		case "set":
			apply = func(s *timeline.Store) float64 {
				z, err := s.SetZoomLevel(req.Level)
				setErr = err
				return z
			}
		case "pinch":
			now := time.Now()
			apply = func(s *timeline.Store) float64 { return s.Pinch(req.Delta, now) }
		default:
			WriteError(w, http.StatusBadRequest, "action must be in, out, reset, set or pinch", "BAD_REQUEST")
			return
		}

		mutate(cfg, w, http.StatusOK, func(s *timeline.Store) (any, error) {
			vp := timeline.Viewport{ScrollOffset: req.ScrollOffset, Width: req.Width}
			if req.PointerOffset != nil {
				vp = s.ZoomAround(vp, *req.PointerOffset, apply)
			} else {
				apply(s)
			}
			if setErr != nil {
				return nil, setErr
			}
			return ZoomResponse{
				ZoomLevel:    s.ZoomLevel(),
				ZoomPercent:  s.ZoomPercent(),
				ScrollOffset: vp.ScrollOffset,
			}, nil
		})
	}
}
