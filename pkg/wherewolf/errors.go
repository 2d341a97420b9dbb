package wherewolf

import "errors"

// Sentinel errors. Operations wrap them with detail, match with errors.Is.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidPoint  = errors.New("invalid point")
	ErrInvalidBounds = errors.New("invalid bounds")
	ErrLayerNotFound = errors.New("layer not found")
)
