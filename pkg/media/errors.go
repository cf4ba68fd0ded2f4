package media

import "errors"

// Common errors
var (
	ErrInvalidRange = errors.New("range exceeds buffer capacity")
)
