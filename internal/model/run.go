package model

import "time"

// RunStatus represents the current state of a lookup run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one execution of the phone finder against a single input document.
type Run struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	Input     Input     `json:"input"`
	Status    RunStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
