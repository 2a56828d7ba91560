// Package store persists runs together with their output dataset and
// named values.
package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/phone-finder/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// DefaultListLimit caps ListRuns when the filter sets no limit.
const DefaultListLimit = 100

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// Store defines the persistence interface for phone finder runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, in model.Input) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, errMsg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Output dataset
	PushItems(ctx context.Context, runID string, items []json.RawMessage) error
	ListItems(ctx context.Context, runID string) ([]json.RawMessage, error)

	// Key-value output
	SetValue(ctx context.Context, runID, key string, value json.RawMessage) error
	GetValue(ctx context.Context, runID, key string) (json.RawMessage, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// RunSink scopes a Store to one run so it can receive run output.
type RunSink struct {
	st    Store
	runID string
}

// NewRunSink returns a sink writing to runID in st.
func NewRunSink(st Store, runID string) *RunSink {
	return &RunSink{st: st, runID: runID}
}

// PushItems appends items to the run's dataset.
func (s *RunSink) PushItems(ctx context.Context, items []json.RawMessage) error {
	return s.st.PushItems(ctx, s.runID, items)
}

// SetValue stores a named value for the run.
func (s *RunSink) SetValue(ctx context.Context, key string, value json.RawMessage) error {
	return s.st.SetValue(ctx, s.runID, key, value)
}

func runMode(in model.Input) string {
	if in.Type == "" {
		return string(model.ModeIndividual)
	}
	return in.Type
}
