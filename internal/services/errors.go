package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidStateTransition = errors.New("report already resolved")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrActionFailed           = errors.New("moderation action failed")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrResolutionInProgress   = errors.New("report is being resolved by another admin")
)

type ActionErrorKind string

const (
	ActionEntityNotFound        ActionErrorKind = "ENTITY_NOT_FOUND"
	ActionAlreadyInTargetState  ActionErrorKind = "ENTITY_ALREADY_IN_TARGET_STATE"
	ActionUnauthorized          ActionErrorKind = "UNAUTHORIZED"
	ActionTransientFailure      ActionErrorKind = "TRANSIENT_FAILURE"
	ActionRejected              ActionErrorKind = "REJECTED"
	ActionUnsupportedEntityType ActionErrorKind = "UNSUPPORTED_ENTITY_TYPE"
)

// ActionError is returned by ModerationActionService.Apply. It matches
// ErrActionFailed with errors.Is.
type ActionError struct {
	Kind ActionErrorKind
	Op   string
	Err  error
}

func (e *ActionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *ActionError) Unwrap() error { return e.Err }

func (e *ActionError) Is(target error) bool {
	switch target {
	case ErrActionFailed:
		return true
	case ErrUnauthorized:
		return e.Kind == ActionUnauthorized
	default:
		return false
	}
}

// Retryable reports whether the same resolution may succeed if sent again.
func (e *ActionError) Retryable() bool {
	return e.Kind == ActionTransientFailure
}

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
