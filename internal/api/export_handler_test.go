package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/clipforge/clipforge-agent/internal/export"
)

func waitForJob(t *testing.T, env *testEnv, id string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := env.cfg.Exports.Wait(ctx, id); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestExportPlan(t *testing.T) {
	env := newTestEnv(t)
	a := env.importClip("a.mp4", 10)
	env.importClip("b.mp4", 4)
	env.expect(env.do(http.MethodPut, "/timeline/clips/"+a.ID+"/trim", TrimRequest{TrimStart: 2, TrimEnd: 8}), http.StatusOK)

	rr := env.do(http.MethodGet, "/export/plan?quality=high", nil)
	env.expect(rr, http.StatusOK)

	var plan PlanResponse
	decodeInto(t, rr, &plan)
	if plan.Quality != export.QualityHigh || len(plan.Segments) != 2 {
		t.Fatalf("plan = %+v", plan)
	}
	// unconfirmed markers do not shorten the render
	if plan.Duration != 14 {
		t.Errorf("Duration = %v, want 14", plan.Duration)
	}

	env.expect(env.do(http.MethodGet, "/export/plan?quality=ultra", nil), http.StatusBadRequest)
}

func TestExportPlan_EmptyTimeline(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/export/plan", nil)
	env.expect(rr, http.StatusConflict)
}

func TestStartExport_DefaultDestination(t *testing.T) {
	env := newTestEnv(t)
	env.importClip("a.mp4", 10)

	rr := env.do(http.MethodPost, "/export/jobs", StartExportRequest{Quality: "low"})
	env.expect(rr, http.StatusAccepted)
	var job JobResponse
	decodeInto(t, rr, &job)
	if job.Quality != "low" || job.Format != "mp4" {
		t.Errorf("job = %+v", job)
	}
	if filepath.Dir(job.OutputPath) != env.cfg.ExportDir || !strings.HasPrefix(filepath.Base(job.OutputPath), "clipforge-export-") {
		t.Errorf("OutputPath = %q", job.OutputPath)
	}

	waitForJob(t, env, job.ID)

	rr = env.do(http.MethodGet, "/export/jobs/"+job.ID, nil)
	env.expect(rr, http.StatusOK)
	decodeInto(t, rr, &job)
	if job.Status != export.JobStatusCompleted || job.Progress != 100 || job.SizeBytes != 8 {
		t.Errorf("finished job = %+v", job)
	}
	if _, err := os.Stat(job.OutputPath); err != nil {
		t.Errorf("output missing: %v", err)
	}

	rr = env.do(http.MethodGet, "/export/jobs", nil)
	env.expect(rr, http.StatusOK)
	var jobs JobsResponse
	decodeInto(t, rr, &jobs)
	if len(jobs.Jobs) != 1 {
		t.Errorf("len(jobs) = %d, want 1", len(jobs.Jobs))
	}
}

func TestStartExport_EDL(t *testing.T) {
	env := newTestEnv(t)
	env.importClip("a.mp4", 10)

	dest := filepath.Join(t.TempDir(), "cut.edl")
	rr := env.do(http.MethodPost, "/export/jobs", StartExportRequest{Format: "edl", Destination: dest, Title: "My Cut"})
	env.expect(rr, http.StatusAccepted)
	var job JobResponse
	decodeInto(t, rr, &job)
	waitForJob(t, env, job.ID)

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "TITLE: My Cut") {
		t.Errorf("edl = %q", data)
	}
}

func TestStartExport_Failures(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name      string
		setup     func()
		req       StartExportRequest
		wantCode  int
		wantError string
	}{
		{"empty timeline", nil, StartExportRequest{}, http.StatusBadRequest, "No clips to export"},
		{"bad quality", func() { env.importClip("a.mp4", 10) }, StartExportRequest{Quality: "ultra"}, http.StatusBadRequest, "unknown quality"},
		{"bad format", nil, StartExportRequest{Format: "gif"}, http.StatusBadRequest, "unknown format"},
		{"wrong extension", nil, StartExportRequest{Destination: filepath.Join(t.TempDir(), "out.mov")}, http.StatusBadRequest, "invalid destination"},
		{"missing directory", nil, StartExportRequest{Destination: "/nonexistent/dir/out.mp4"}, http.StatusBadRequest, "invalid destination"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			rr := env.do(http.MethodPost, "/export/jobs", tt.req)
			env.expect(rr, tt.wantCode)
			if msg, _ := decodeJSONBody(t, rr)["error"].(string); !strings.Contains(msg, tt.wantError) {
				t.Errorf("error = %q, want %q", msg, tt.wantError)
			}
		})
	}
}

func TestExportJobs_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.expect(env.do(http.MethodGet, "/export/jobs/missing", nil), http.StatusNotFound)
	env.expect(env.do(http.MethodPost, "/export/jobs/missing/cancel", nil), http.StatusConflict)
}

func TestCancelExport_FinishedJob(t *testing.T) {
	env := newTestEnv(t)
	env.importClip("a.mp4", 10)

	rr := env.do(http.MethodPost, "/export/jobs", StartExportRequest{Quality: "low"})
	env.expect(rr, http.StatusAccepted)
	var job JobResponse
	decodeInto(t, rr, &job)
	waitForJob(t, env, job.ID)

	rr = env.do(http.MethodPost, "/export/jobs/"+job.ID+"/cancel", nil)
	env.expect(rr, http.StatusConflict)
	if !strings.Contains(rr.Body.String(), "NOT_RUNNING") {
		t.Errorf("body = %s, want NOT_RUNNING", rr.Body.String())
	}

	rr = env.do(http.MethodGet, "/export/jobs/"+job.ID, nil)
	env.expect(rr, http.StatusOK)
	decodeInto(t, rr, &job)
	if job.Status != export.JobStatusCompleted {
		t.Errorf("status after cancel = %q, want completed", job.Status)
	}
}
