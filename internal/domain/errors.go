package domain

import "errors"

var (
	// ErrMalformedInput is returned when the dataset cannot be parsed or an
	// entity lacks a field the requested operation needs.
	ErrMalformedInput = errors.New("malformed input")
	// ErrDivisionByZero is returned when a coverage rate is requested for zero valid lines.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrUnsupportedOutput is returned when a report kind cannot be rendered in the requested mode.
	ErrUnsupportedOutput = errors.New("unsupported output")
	// ErrInvalidSelector is returned for an unrecognized report kind, output mode or count element.
	ErrInvalidSelector = errors.New("invalid selector")
)
