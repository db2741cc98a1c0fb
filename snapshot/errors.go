package snapshot

import "errors"

// Sentinel errors for store operations.
var (
	ErrNotFound   = errors.New("snapshot not found")
	ErrEmptyRunID = errors.New("snapshot requires a run id")
	ErrLoadFailed = errors.New("snapshot load failed")
	ErrSaveFailed = errors.New("snapshot save failed")
)
