package artifact

import "errors"

// Error definitions for the artifact package.
var (
	ErrWrite         = errors.New("failed to write converted model")
	ErrCopy          = errors.New("failed to copy converted model")
	ErrInvalidOutput = errors.New("output is not a TFLite flatbuffer")
)
