package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidItem   = errors.New("invalid catalog item")
	ErrUnknownDriver = errors.New("unknown storage driver")
)
