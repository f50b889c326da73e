// Package errors provides custom error types for catalog operations.
package errors

import "errors"

var (
	// ErrProductNotFound reports that no product exists with the requested ID.
	ErrProductNotFound = errors.New("product not found")

	// ErrRowMapping reports that a products row could not be mapped to a Product:
	// a column is missing, NULL, or of an unexpected type.
	ErrRowMapping = errors.New("failed to map product row")

	// ErrInvalidStock reports a negative units-in-stock value.
	ErrInvalidStock = errors.New("units in stock must not be negative")

	// ErrInvalidFilter reports an unknown or empty product filter.
	ErrInvalidFilter = errors.New("invalid product filter")
)
