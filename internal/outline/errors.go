package outline

import (
	"errors"
	"fmt"
)

// Programming errors. These mean the caller used a stale handle or broke
// the single-actor contract; they are not expected in correct usage.
var (
	ErrNotFound     = errors.New("node not found")
	ErrInvalidIndex = errors.New("invalid child index")
	ErrAttached     = errors.New("node is already attached")
)

// Input errors for add/edit/load.
var (
	ErrRoot       = errors.New("operation not permitted on the outline root")
	ErrEmptyTitle = errors.New("bookmark title cannot be empty")
	ErrPageRange  = errors.New("page out of range")
)

// Reason is a machine-checkable rejection code.
type Reason string

const (
	ReasonSameNode      Reason = "same_node"
	ReasonCyclic        Reason = "cyclic"
	ReasonRootMove      Reason = "root_move"
	ReasonInvalidTarget Reason = "invalid_target"
	ReasonPageOrder     Reason = "page_order"
	ReasonLevelJump     Reason = "level_jump"
	ReasonDepthLimit    Reason = "depth_limit"
)

// MoveError is a recoverable, user-facing rejection. Whenever one is
// returned the tree is exactly as it was before the attempt.
type MoveError struct {
	Reason  Reason
	Message string

	// NeighborPage is the zero-based page of the sibling that blocked a
	// page-order check, or -1.
	NeighborPage int
}

func (e *MoveError) Error() string {
	return "invalid move: " + e.Message
}

func reject(reason Reason, format string, args ...any) *MoveError {
	return &MoveError{
		Reason:       reason,
		Message:      fmt.Sprintf(format, args...),
		NeighborPage: -1,
	}
}

// AsMoveError unwraps err into a *MoveError if it is one.
func AsMoveError(err error) (*MoveError, bool) {
	var me *MoveError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}
