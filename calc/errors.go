package calc

import "github.com/pkg/errors"

var (
	// ErrMissingRequiredField means the input lacks a field the selected
	// pathway needs (e.g., no vehicle price on a retail deal). Rejected
	// before any computation; no partial result is produced.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrMissingClassification means a special-scheme input is incomplete
	// (e.g., no body type for a vehicle-class progressive tax). The
	// calculator never defaults to a bracket.
	ErrMissingClassification = errors.New("missing classification")
)
