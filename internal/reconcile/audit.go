package reconcile

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// Safety valve thresholds for the report audit. Tripping either one, or
// seeing an empty ledger id set, aborts the pass: a mass delete is far
// more likely to be a broken read than a hundred genuinely dead rows.
const (
	auditMaxDeleteRatio = 0.3
	auditMaxDeleteCount = 10
)

// AuditResult summarizes one report-audit pass. Aborted carries the
// safety-valve reason when the pass refused to delete.
type AuditResult struct {
	RunID       string   `json:"run_id"`
	DryRun      bool     `json:"dry_run"`
	Scanned     int      `json:"scanned"`
	WithID      int      `json:"with_id"`
	Candidates  []int    `json:"candidates,omitempty"` // row indices
	Deleted     int      `json:"deleted"`
	Aborted     bool     `json:"aborted"`
	AbortReason string   `json:"abort_reason,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

func (r *AuditResult) abort(reason string) {
	r.Aborted = true
	r.AbortReason = reason
	log.Printf("[audit %s] aborted: %s", r.RunID, reason)
}

// SheetAudit removes report rows whose video id is absent from the
// ledger or gone from the platform. Rows without an extractable id are
// never touched: a human wrote them and a human removes them. With
// dryRun the candidates are reported but nothing is deleted.
func (j Jobs) SheetAudit(ctx context.Context, dryRun bool) (AuditResult, error) {
	res := AuditResult{RunID: uuid.NewString(), DryRun: dryRun}

	rows, err := j.Report.Rows(ctx)
	if err != nil {
		return res, fmt.Errorf("read report rows: %w", err)
	}
	res.Scanned = len(rows)

	known, err := j.Store.ExistingVideoIDs(ctx)
	if err != nil {
		return res, err
	}
	if len(known) == 0 {
		res.abort("ledger id set is empty")
		return res, nil
	}

	var ids []string
	rowsByID := map[string][]int{}
	for _, row := range rows {
		if row.VideoID == "" {
			continue
		}
		res.WithID++
		if len(rowsByID[row.VideoID]) == 0 {
			ids = append(ids, row.VideoID)
		}
		rowsByID[row.VideoID] = append(rowsByID[row.VideoID], row.Row)
	}
	if len(ids) == 0 {
		return res, nil
	}

	// One batched fetch answers platform existence for every id. A row
	// survives only when the ledger knows its id AND the video is still
	// live; either absence makes it a delete candidate.
	statuses, err := j.API.BatchGetStatus(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("check remote existence: %w", err)
	}
	for _, id := range ids {
		_, live := statuses[id]
		if known[id] && live {
			continue
		}
		res.Candidates = append(res.Candidates, rowsByID[id]...)
	}
	if len(res.Candidates) == 0 {
		return res, nil
	}

	// Ratio is measured against every examined row, id-less ones
	// included.
	if ratio := float64(len(res.Candidates)) / float64(res.Scanned); ratio > auditMaxDeleteRatio {
		res.abort(fmt.Sprintf("delete ratio %.2f exceeds %.2f (%d of %d rows)",
			ratio, auditMaxDeleteRatio, len(res.Candidates), res.Scanned))
		return res, nil
	}
	if len(res.Candidates) > auditMaxDeleteCount {
		res.abort(fmt.Sprintf("delete count %d exceeds %d", len(res.Candidates), auditMaxDeleteCount))
		return res, nil
	}

	if dryRun {
		log.Printf("[audit %s] dry run, would delete rows %v", res.RunID, res.Candidates)
		return res, nil
	}
	if err := j.Report.DeleteRowIndices(ctx, res.Candidates); err != nil {
		return res, err
	}
	res.Deleted = len(res.Candidates)
	log.Printf("[audit %s] scanned=%d deleted=%d", res.RunID, res.Scanned, res.Deleted)
	return res, nil
}
