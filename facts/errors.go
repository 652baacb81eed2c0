package facts

import "errors"

// Sentinel errors for fact store operations.
var (
	// ErrEmptyCategory indicates an empty category key.
	ErrEmptyCategory = errors.New("facts: category is empty")

	// ErrNilStore indicates a nil Store was provided.
	ErrNilStore = errors.New("facts: store is nil")
)
