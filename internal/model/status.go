package model

import "fmt"

const (
	StatusScheduled = "scheduled"
	StatusUploaded  = "uploaded"
	StatusPublished = "published"
	StatusFailed    = "failed"
	StatusDeleted   = "deleted"
	StatusCanceled  = "canceled"
	StatusError     = "error"
)

// allowedTransitions maps a source status to its legal targets. The
// {uploaded,deleted} -> scheduled edges exist only for drift alignment:
// the remote platform moved a publish time and the ledger follows.
// published, failed, error and canceled never re-enter the flow; a
// fresh insert creates new intent instead.
var allowedTransitions = map[string]map[string]bool{
	"": {
		StatusScheduled: true,
	},
	StatusScheduled: {
		StatusScheduled: true,
		StatusUploaded:  true,
		StatusFailed:    true,
		StatusError:     true,
		StatusCanceled:  true,
	},
	StatusUploaded: {
		StatusUploaded:  true,
		StatusScheduled: true, // remote publish time moved back
		StatusPublished: true,
		StatusDeleted:   true,
		StatusCanceled:  true,
	},
	StatusDeleted: {
		StatusDeleted:   true,
		StatusUploaded:  true, // video turned out to still exist
		StatusScheduled: true,
	},
	StatusPublished: {
		StatusPublished: true,
	},
	StatusFailed: {
		StatusFailed: true,
	},
	StatusError: {
		StatusError: true,
	},
	StatusCanceled: {
		StatusCanceled: true,
	},
}

func IsKnownStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok
}

func IsTerminalStatus(status string) bool {
	switch status {
	case StatusPublished, StatusFailed, StatusError, StatusCanceled:
		return true
	}
	return false
}

func CanTransition(from, to string) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

func TransitionStatus(rec *ScheduleRecord, toStatus string) error {
	from := rec.Status
	if !CanTransition(from, toStatus) {
		return fmt.Errorf("invalid schedule status transition: %q -> %q (id=%d folder=%s)", from, toStatus, rec.ID, rec.FolderID)
	}
	rec.Status = toStatus
	return nil
}
