// Package frame implements the resumable execution-state tree.
//
// Every evaluated AST node occurrence owns one Frame, keyed by its trace.
// Frames are created the first time their node is reached and reused on every
// later tick. A done frame keeps its value forever, which is what makes
// resuming a paused script idempotent.
package frame

import (
	"time"

	"github.com/everydev1618/vegascript/value"
)

// Status is the lifecycle state of a frame.
type Status string

const (
	StatusRunning  Status = "running"
	StatusDone     Status = "done"
	StatusError    Status = "error"
	StatusAwaiting Status = "awaiting"
)

// Code returns the single-letter wire code.
func (s Status) Code() string {
	switch s {
	case StatusDone:
		return "D"
	case StatusError:
		return "E"
	case StatusAwaiting:
		return "A"
	}
	return "R"
}

// StatusFromCode parses a wire code.
func StatusFromCode(code string) (Status, bool) {
	switch code {
	case "R":
		return StatusRunning, true
	case "D":
		return StatusDone, true
	case "E":
		return StatusError, true
	case "A":
		return StatusAwaiting, true
	}
	return "", false
}

// Terminal reports whether s is done or error.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Event is an externally injected payload addressed to an awaiting call.
type Event struct {
	Timestamp time.Time
	Payload   value.Value
	Processed bool
}

// Frame is the execution state of one node occurrence.
type Frame struct {
	Trace     string
	Status    Status
	StartedAt time.Time
	UpdatedAt time.Time

	// Variables is set only on frames that open a scope.
	Variables *value.Object

	// Value is the computed result once Status is done.
	Value value.Value

	// Err is the failure message once Status is error.
	Err string

	// State is the tool-persisted slot of a call frame, valid when HasState.
	State    value.Value
	HasState bool

	// Events is the event log of an awaiting-capable call frame.
	Events []*Event

	// Children is positional. A nil entry is a child that was never
	// evaluated.
	Children []*Frame
}

// New returns a running frame.
func New(trace string, now time.Time) *Frame {
	return &Frame{
		Trace:     trace,
		Status:    StatusRunning,
		StartedAt: now,
		UpdatedAt: now,
		Value:     value.Undefined,
	}
}

// Child returns child i or nil.
func (f *Frame) Child(i int) *Frame {
	if i < 0 || i >= len(f.Children) {
		return nil
	}
	return f.Children[i]
}

// SetChild stores c at position i, padding with nil.
func (f *Frame) SetChild(i int, c *Frame) {
	for len(f.Children) <= i {
		f.Children = append(f.Children, nil)
	}
	f.Children[i] = c
}

// LastChild returns the index of the highest materialized child, or -1.
func (f *Frame) LastChild() int {
	for i := len(f.Children) - 1; i >= 0; i-- {
		if f.Children[i] != nil {
			return i
		}
	}
	return -1
}

// Complete marks the frame done with v.
func (f *Frame) Complete(v value.Value, now time.Time) {
	f.Status = StatusDone
	f.Value = v
	f.Err = ""
	f.UpdatedAt = now
}

// Fail marks the frame errored with msg.
func (f *Frame) Fail(msg string, now time.Time) {
	f.Status = StatusError
	f.Value = value.Undefined
	f.Err = msg
	f.UpdatedAt = now
}

// Suspend marks the frame awaiting.
func (f *Frame) Suspend(now time.Time) {
	if f.Status != StatusAwaiting {
		f.Status = StatusAwaiting
		f.UpdatedAt = now
	}
}

// Resume flips an awaiting frame back to running.
func (f *Frame) Resume(now time.Time) {
	if f.Status != StatusRunning {
		f.Status = StatusRunning
		f.UpdatedAt = now
	}
}

// Pending returns the unprocessed events in arrival order.
func (f *Frame) Pending() []*Event {
	var out []*Event
	for _, e := range f.Events {
		if !e.Processed {
			out = append(out, e)
		}
	}
	return out
}
