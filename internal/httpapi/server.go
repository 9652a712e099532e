// Package httpapi exposes the manual trigger surface: every periodic
// job can be kicked by hand, some with a dry-run switch, plus the
// ready-dump diagnostic and a health probe. Results are the same
// structured counts the jobs log.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"yt-publish-scheduler/internal/model"
	"yt-publish-scheduler/internal/pipeline"
	"yt-publish-scheduler/internal/reconcile"
)

// asyncRunTimeout bounds a detached upload run started by a trigger.
const asyncRunTimeout = 30 * time.Minute

type PipelineRunner interface {
	ScanAndSchedule(ctx context.Context) (pipeline.ScanResult, error)
	RunDueUploads(ctx context.Context) (pipeline.DueResult, error)
}

type ReconcileRunner interface {
	PromotePublished(ctx context.Context, dryRun bool) (reconcile.PromoteResult, error)
	ScheduleDrift(ctx context.Context) (reconcile.DriftResult, error)
	Deletions(ctx context.Context) (reconcile.DeletionsResult, error)
	SheetAudit(ctx context.Context, dryRun bool) (reconcile.AuditResult, error)
	SyncPublishedRows(ctx context.Context) (reconcile.SheetSyncResult, error)
}

type SnapshotStore interface {
	ReadySnapshot(ctx context.Context, limit int) ([]model.ReadyFlags, error)
	Ping() error
}

type Server struct {
	Pipeline  PipelineRunner
	Reconcile ReconcileRunner
	Store     SnapshotStore

	// spawn runs a detached job; tests replace it to run inline.
	spawn func(fn func())
}

func (s *Server) detach(fn func()) {
	if s.spawn != nil {
		s.spawn(fn)
		return
	}
	go fn()
}

// Handler builds the routed, logged, panic-recovering handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/scheduler").Subrouter()
	api.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)
	api.HandleFunc("/upload-now", s.handleUploadNow).Methods(http.MethodPost)
	api.HandleFunc("/promote-now", s.handlePromoteNow).Methods(http.MethodPost)
	api.HandleFunc("/reconcile-sheet-now", s.handleSheetNow).Methods(http.MethodPost)
	api.HandleFunc("/reconcile-drift-now", s.handleDriftNow).Methods(http.MethodPost)
	api.HandleFunc("/reconcile-deletions-now", s.handleDeletionsNow).Methods(http.MethodPost)
	api.HandleFunc("/sheet-sync-now", s.handleSheetSyncNow).Methods(http.MethodPost)
	api.HandleFunc("/ready-dump", s.handleReadyDump).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	return handlers.RecoveryHandler()(handlers.CombinedLoggingHandler(os.Stdout, r))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[http] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func dryRun(r *http.Request) bool {
	switch r.URL.Query().Get("dry_run") {
	case "1", "true", "yes":
		return true
	}
	return false
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	res, err := s.Pipeline.ScanAndSchedule(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleUploadNow kicks a due-uploads run and returns immediately: the
// run can download and push gigabytes, far past any sane request
// timeout. The advisory lock makes a double trigger harmless.
func (s *Server) handleUploadNow(w http.ResponseWriter, r *http.Request) {
	s.detach(func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncRunTimeout)
		defer cancel()
		if _, err := s.Pipeline.RunDueUploads(ctx); err != nil {
			log.Printf("[http] triggered due-uploads run failed: %v", err)
		}
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handlePromoteNow(w http.ResponseWriter, r *http.Request) {
	res, err := s.Reconcile.PromotePublished(r.Context(), dryRun(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSheetNow(w http.ResponseWriter, r *http.Request) {
	res, err := s.Reconcile.SheetAudit(r.Context(), dryRun(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSheetSyncNow backfills report rows for already-published
// records on demand.
func (s *Server) handleSheetSyncNow(w http.ResponseWriter, r *http.Request) {
	res, err := s.Reconcile.SyncPublishedRows(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDriftNow(w http.ResponseWriter, r *http.Request) {
	res, err := s.Reconcile.ScheduleDrift(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeletionsNow(w http.ResponseWriter, r *http.Request) {
	res, err := s.Reconcile.Deletions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReadyDump(w http.ResponseWriter, r *http.Request) {
	flags, err := s.Store.ReadySnapshot(r.Context(), 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	type entry struct {
		model.ReadyFlags
		WouldBePicked bool `json:"would_be_picked"`
	}
	out := make([]entry, 0, len(flags))
	for _, f := range flags {
		out = append(out, entry{ReadyFlags: f, WouldBePicked: f.WouldBePicked()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
