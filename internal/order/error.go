package order

import "errors"

var (
	ErrValidation        = errors.New("invalid order input")
	ErrInvalidTransition = errors.New("transition not allowed")
	ErrAlreadyDecided    = errors.New("order already decided")
	ErrEmptyApproval     = errors.New("approval needs at least one effective line")
	ErrOrderNotFound     = errors.New("order not found")
)
