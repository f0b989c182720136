package worker

import "errors"

// Sentinel kinds for pool errors.
var (
	ErrStopped   = errors.New("worker pool stopped")
	ErrQueueFull = errors.New("worker queue full")
)
