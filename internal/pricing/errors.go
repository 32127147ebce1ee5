package pricing

import "errors"

var (
	// ErrMissingValue is returned when a required rule or rule source is not supplied.
	ErrMissingValue = errors.New("missing required value")
	// ErrInvalidValue is returned for empty or blank codes, unknown codes, negative quantities,
	// negative prices and non-positive bundle sizes.
	ErrInvalidValue = errors.New("invalid value")
)
