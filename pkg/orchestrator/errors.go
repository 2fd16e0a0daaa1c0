package orchestrator

import (
	"errors"
	"fmt"
)

// Stage identifies the dependency that failed during a turn.
type Stage string

const (
	StageEmbed    Stage = "embed"
	StageRetrieve Stage = "retrieve"
	StageAgent    Stage = "agent"
	StageMemory   Stage = "memory"
)

// DependencyError is a typed failure of one of the turn's dependencies. The
// transport layer logs it and delivers the apology the orchestrator already
// chose; it never reaches the user as raw error text.
type DependencyError struct {
	Stage Stage
	Err   error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Stage, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// AsDependencyError unwraps err to a DependencyError if it is one.
func AsDependencyError(err error) (*DependencyError, bool) {
	var depErr *DependencyError
	if errors.As(err, &depErr) {
		return depErr, true
	}
	return nil, false
}
