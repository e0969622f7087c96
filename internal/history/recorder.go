package history

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/scanai/internal/scanning"
)

// IDGenerator generates unique IDs for entries
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Recorder persists every resolved outcome. It renders nothing.
type Recorder struct {
	db          DB
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewRecorder creates a Recorder with uuid IDs and the wall clock
func NewRecorder(db DB) *Recorder {
	return &Recorder{
		db:          db,
		idGenerator: uuidGenerator{},
		timeSource:  defaultTimeSource{},
	}
}

// NewRecorderWithDeps creates a Recorder with custom dependencies for testing
func NewRecorderWithDeps(db DB, idGen IDGenerator, timeSrc TimeSource) *Recorder {
	return &Recorder{
		db:          db,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

func (r *Recorder) ServerStatus(status scanning.ServerStatus, message string) {}

func (r *Recorder) Scanning(attempt uint64) {}

// Outcome saves o. Storage errors are logged and never reach the caller.
func (r *Recorder) Outcome(o scanning.Outcome) {
	entry := NewEntry(o, r.idGenerator.Generate(), r.timeSource.Now())
	if err := r.db.SaveEntry(entry); err != nil {
		slog.Error("Failed to record scan", "attempt", o.Attempt, "error", err)
		return
	}
	slog.Debug("Recorded scan", "id", entry.ID, "attempt", o.Attempt, "ok", entry.OK)
}

// NewEntry flattens an outcome into a history entry
func NewEntry(o scanning.Outcome, id string, at time.Time) *Entry {
	entry := &Entry{
		ID:        id,
		Attempt:   o.Attempt,
		RequestID: o.RequestID,
		OK:        o.OK(),
		CreatedAt: at,
	}
	if o.RequestID != "" {
		entry.ArchiveKey = scanning.CaptureRequest{ID: o.RequestID}.ArchiveKey()
	}
	if o.OK() {
		entry.Sum = o.Result.Sum
		entry.Numbers = append([]int(nil), o.Result.Numbers...)
		entry.DetectedText = o.Result.DetectedText
		return entry
	}
	entry.Reason = scanning.Reason(o.Err)
	if o.Err != nil {
		entry.Error = o.Err.Error()
	}
	return entry
}
