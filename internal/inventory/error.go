package inventory

import "errors"

var (
	ErrValidation   = errors.New("invalid movement")
	ErrItemNotFound = errors.New("inventory item not found")
	ErrItemExists   = errors.New("inventory item already exists")
)
