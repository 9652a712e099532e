package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"yt-publish-scheduler/internal/model"
	"yt-publish-scheduler/internal/pipeline"
	"yt-publish-scheduler/internal/reconcile"
)

type fakePipeline struct {
	scanRes pipeline.ScanResult
	scanErr error
	dueRuns int
}

func (p *fakePipeline) ScanAndSchedule(ctx context.Context) (pipeline.ScanResult, error) {
	return p.scanRes, p.scanErr
}

func (p *fakePipeline) RunDueUploads(ctx context.Context) (pipeline.DueResult, error) {
	p.dueRuns++
	return pipeline.DueResult{Uploaded: 1}, nil
}

type fakeReconcile struct {
	promoteDry bool
	auditDry   bool
	syncRuns   int
	driftErr   error
}

func (r *fakeReconcile) PromotePublished(ctx context.Context, dryRun bool) (reconcile.PromoteResult, error) {
	r.promoteDry = dryRun
	return reconcile.PromoteResult{Published: 3, DryRun: dryRun}, nil
}

func (r *fakeReconcile) ScheduleDrift(ctx context.Context) (reconcile.DriftResult, error) {
	return reconcile.DriftResult{Aligned: 2}, r.driftErr
}

func (r *fakeReconcile) Deletions(ctx context.Context) (reconcile.DeletionsResult, error) {
	return reconcile.DeletionsResult{Deleted: 1}, nil
}

func (r *fakeReconcile) SheetAudit(ctx context.Context, dryRun bool) (reconcile.AuditResult, error) {
	r.auditDry = dryRun
	return reconcile.AuditResult{Scanned: 5, DryRun: dryRun}, nil
}

func (r *fakeReconcile) SyncPublishedRows(ctx context.Context) (reconcile.SheetSyncResult, error) {
	r.syncRuns++
	return reconcile.SheetSyncResult{Updated: 2}, nil
}

type fakeSnapshot struct {
	flags   []model.ReadyFlags
	pingErr error
}

func (s *fakeSnapshot) ReadySnapshot(ctx context.Context, limit int) ([]model.ReadyFlags, error) {
	return s.flags, nil
}

func (s *fakeSnapshot) Ping() error { return s.pingErr }

func newServer() (*Server, *fakePipeline, *fakeReconcile, *fakeSnapshot) {
	p := &fakePipeline{}
	r := &fakeReconcile{}
	st := &fakeSnapshot{}
	srv := &Server{
		Pipeline:  p,
		Reconcile: r,
		Store:     st,
		spawn:     func(fn func()) { fn() }, // run triggered jobs inline
	}
	return srv, p, r, st
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestScanEndpoint(t *testing.T) {
	srv, p, _, _ := newServer()
	p.scanRes = pipeline.ScanResult{Scanned: 4, Uploaded: 2}

	rec := do(t, srv.Handler(), http.MethodPost, "/api/scheduler/scan")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got pipeline.ScanResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Scanned != 4 || got.Uploaded != 2 {
		t.Fatalf("body = %+v", got)
	}
}

func TestScanEndpoint_ErrorIsStructured(t *testing.T) {
	srv, p, _, _ := newServer()
	p.scanErr = errors.New("drive unavailable")

	rec := do(t, srv.Handler(), http.MethodPost, "/api/scheduler/scan")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["error"] == "" {
		t.Fatalf("body = %v", got)
	}
}

func TestUploadNow_AcceptsAndRuns(t *testing.T) {
	srv, p, _, _ := newServer()

	rec := do(t, srv.Handler(), http.MethodPost, "/api/scheduler/upload-now")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	if p.dueRuns != 1 {
		t.Fatalf("due runs = %d", p.dueRuns)
	}
}

func TestDryRunFlagPropagates(t *testing.T) {
	srv, _, r, _ := newServer()

	do(t, srv.Handler(), http.MethodPost, "/api/scheduler/promote-now?dry_run=1")
	if !r.promoteDry {
		t.Fatal("promote dry_run not propagated")
	}
	do(t, srv.Handler(), http.MethodPost, "/api/scheduler/reconcile-sheet-now?dry_run=true")
	if !r.auditDry {
		t.Fatal("audit dry_run not propagated")
	}
	do(t, srv.Handler(), http.MethodPost, "/api/scheduler/promote-now")
	if r.promoteDry {
		t.Fatal("absent dry_run treated as true")
	}
}

func TestSheetSyncNow_RunsBackfill(t *testing.T) {
	srv, _, r, _ := newServer()

	rec := do(t, srv.Handler(), http.MethodPost, "/api/scheduler/sheet-sync-now")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if r.syncRuns != 1 {
		t.Fatalf("sync runs = %d", r.syncRuns)
	}
}

func TestDriftAndDeletionsEndpoints(t *testing.T) {
	srv, _, r, _ := newServer()

	rec := do(t, srv.Handler(), http.MethodPost, "/api/scheduler/reconcile-drift-now")
	if rec.Code != http.StatusOK {
		t.Fatalf("drift status = %d", rec.Code)
	}
	rec = do(t, srv.Handler(), http.MethodPost, "/api/scheduler/reconcile-deletions-now")
	if rec.Code != http.StatusOK {
		t.Fatalf("deletions status = %d", rec.Code)
	}

	r.driftErr = errors.New("remote down")
	rec = do(t, srv.Handler(), http.MethodPost, "/api/scheduler/reconcile-drift-now")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("drift error status = %d", rec.Code)
	}
}

func TestReadyDump(t *testing.T) {
	srv, _, _, st := newServer()
	st.flags = []model.ReadyFlags{
		{ID: 1, VideoID: "v1", HasVideoID: true, IsDue: true, StatusOK: true},
		{ID: 2, HasVideoID: false, IsDue: true, StatusOK: true},
	}

	rec := do(t, srv.Handler(), http.MethodGet, "/api/scheduler/ready-dump")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []struct {
		ID            int64 `json:"id"`
		WouldBePicked bool  `json:"would_be_picked"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !got[0].WouldBePicked || got[1].WouldBePicked {
		t.Fatalf("body = %+v", got)
	}
}

func TestHealth(t *testing.T) {
	srv, _, _, st := newServer()

	rec := do(t, srv.Handler(), http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	st.pingErr = errors.New("db gone")
	rec = do(t, srv.Handler(), http.MethodGet, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _, _ := newServer()
	rec := do(t, srv.Handler(), http.MethodGet, "/api/scheduler/scan")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}
