package notification

import "errors"

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNoRecipient          = errors.New("notification has no recipient")
)
