package vegascript

import (
	"errors"
	"fmt"
)

// Standard errors
var (
	// ErrScriptMismatch is returned when a stored agent is restored against
	// a script whose hash differs from the one it was created with.
	ErrScriptMismatch = errors.New("script does not match stored runtime hash")

	// ErrNotFinished is returned by Continue while the current script is
	// still running or awaiting.
	ErrNotFinished = errors.New("script has not finished")

	// ErrInvalidState is returned for serialized agents that are missing
	// required fields.
	ErrInvalidState = errors.New("invalid serialized agent")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid config")
)

// AgentError wraps an error with the agent it concerns.
type AgentError struct {
	AgentID string
	Op      string
	Err     error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent %s: %s: %v", e.AgentID, e.Op, e.Err)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}
