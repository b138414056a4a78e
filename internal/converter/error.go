package converter

import "errors"

// Error definitions for the converter package.
var (
	ErrLoad       = errors.New("model could not be loaded")
	ErrConversion = errors.New("model could not be converted")
)
