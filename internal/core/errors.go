package core

import "errors"

var (
	// ErrMalformedSchema is returned when the description has fewer than
	// four identifier columns.
	ErrMalformedSchema = errors.New("malformed schema")

	// ErrEmptyDataset is returned when there is no row to sample scenario
	// data from.
	ErrEmptyDataset = errors.New("empty dataset")

	// ErrUnmatchedIdentifier is returned when a data id has no counterpart
	// in scalars or timeseries.
	ErrUnmatchedIdentifier = errors.New("unmatched identifier")

	// ErrAmbiguousIdentifier is returned when a data id has a counterpart in
	// both scalars and timeseries.
	ErrAmbiguousIdentifier = errors.New("ambiguous identifier")

	// ErrUnsupportedShape is returned when a table is neither a Record nor a
	// slice of Records.
	ErrUnsupportedShape = errors.New("unsupported shape")

	// ErrHeterogeneousRows is returned when records of one table do not
	// share the same key set.
	ErrHeterogeneousRows = errors.New("heterogeneous rows")

	// ErrUnsupportedFormat is returned for an unknown format token.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrInvalidBody is returned when a raw response cannot be decoded.
	ErrInvalidBody = errors.New("decode raw response")
)
