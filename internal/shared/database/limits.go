package database

// Hard per-request limits of the document store protocol. These are not
// tunables: callers must chunk batched writes and "value in set" lookups to
// stay inside them.
const (
	// MaxBatchWrites is the maximum number of operations a single batched
	// write may carry.
	MaxBatchWrites = 500

	// MaxInFanOut is the maximum number of values a single "field in set"
	// query may check.
	MaxInFanOut = 10
)
