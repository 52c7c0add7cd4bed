// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"fmt"
	"math"
)

// Totals holds the summed line counts for a single component or repository.
// It is the core aggregate of this application.
type Totals struct {
	Valid   int `json:"lines-valid"`
	Covered int `json:"lines-covered"`
}

// Add accumulates another set of totals.
func (t Totals) Add(o Totals) Totals {
	return Totals{Valid: t.Valid + o.Valid, Covered: t.Covered + o.Covered}
}

// Rate returns covered/valid. It refuses to divide by zero instead of
// producing NaN or Inf.
func (t Totals) Rate() (float64, error) {
	if t.Valid == 0 {
		return 0, fmt.Errorf("%w: %d covered lines over 0 valid lines", ErrDivisionByZero, t.Covered)
	}
	return float64(t.Covered) / float64(t.Valid), nil
}

// Percent is Rate scaled to 0-100.
func (t Totals) Percent() (float64, error) {
	r, err := t.Rate()
	if err != nil {
		return 0, err
	}
	return r * 100, nil
}

// SizeScale is the marker size used for bug charts: sqrt(valid lines)/3.
func (t Totals) SizeScale() float64 {
	return math.Sqrt(float64(t.Valid)) / 3
}
