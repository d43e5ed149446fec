package resilience

import (
	"time"

	"github.com/sells-group/awards-cli/internal/model"
)

// Error classes recorded on dead-letter entries.
const (
	ErrorTypeTransient = "transient"
	ErrorTypePermanent = "permanent"
)

// Pipeline stages recorded on dead-letter entries.
const (
	StageFetch     = "fetch"
	StageIndex     = "index"
	StageParse     = "parse"
	StageReconcile = "reconcile"
	StageLoad      = "load"
)

// DLQEntry is a document that failed permanently in some stage. It is
// excluded from the rest of the run and kept for a manual retry.
type DLQEntry struct {
	ID           string          `json:"id"`
	Stage        string          `json:"stage"`
	SourceID     string          `json:"source_id"`
	Year         int             `json:"year"`
	URL          string          `json:"url,omitempty"`
	Kind         model.ErrorKind `json:"kind"`
	Error        string          `json:"error"`
	ErrorType    string          `json:"error_type"`
	Attempts     int             `json:"attempts"`
	CreatedAt    time.Time       `json:"created_at"`
	LastFailedAt time.Time       `json:"last_failed_at"`
}

// DLQFilter narrows a dead-letter listing. Zero values match everything.
type DLQFilter struct {
	Stage     string `json:"stage,omitempty"`
	Year      int    `json:"year,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// NewDLQEntry builds an entry for err raised while processing sourceID.
func NewDLQEntry(stage, sourceID string, year int, err error) DLQEntry {
	now := time.Now().UTC()
	e := DLQEntry{
		Stage:        stage,
		SourceID:     sourceID,
		Year:         year,
		Kind:         model.KindOf(err),
		Error:        err.Error(),
		ErrorType:    ClassifyError(err),
		Attempts:     1,
		CreatedAt:    now,
		LastFailedAt: now,
	}
	if fe, ok := asFetchError(err); ok {
		e.URL = fe.URL
		if fe.Attempts > 0 {
			e.Attempts = fe.Attempts
		}
	}
	return e
}

// ClassifyError reports whether err is worth retrying in a later run.
func ClassifyError(err error) string {
	if IsTransient(err) {
		return ErrorTypeTransient
	}
	return ErrorTypePermanent
}
