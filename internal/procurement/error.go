package procurement

import "errors"

var (
	// ErrInconsistentState means the order and its purchase have diverged
	// from the lockstep the pipeline expects.
	ErrInconsistentState = errors.New("order and purchase are out of step")
)
