package resolver

import "errors"

// Error definitions for the resolver package.
var (
	ErrMissingFile  = errors.New("model file not found")
	ErrNoCandidates = errors.New("no model file with a recognized extension found")
	ErrNoInput      = errors.New("no model path given")
)
