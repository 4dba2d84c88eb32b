// Package core provides the transform pipeline for raw oedatamodel responses.
//
// This package is the heart of the format service, containing all of the
// conversion logic independent of any transport layer. It can be used by web
// handlers, CLI tools, or tests without modification. Every function is a
// pure, in-memory transformation: nothing is logged, retried or cached.
//
// # Architecture
//
// Data flows strictly downstream:
//
//  1. [IDColumnPositions] and [Boundaries] locate the identifier columns that
//     split the raw matrix into four sections.
//  2. [ExtractScenario] and [ExtractRows] slice column names and row values
//     into ordered [Record] values.
//  3. [Normalize] composes the above into a [NormalizedModel].
//  4. [Concretize] joins every data record with its scalar or timeseries
//     counterpart into a [ConcreteModel].
//  5. [WriteCSV] and [WriteArchive] render either model as CSV members of a
//     zip archive.
//  6. [FormatData] selects one of the pipelines for a requested [Format].
//
// # Section Layout
//
// A raw response carries at least four identifier columns. The second, third
// and fourth of them mark where each section starts:
//
//	[0, ScenarioEnd)              scenario header (identical in every row)
//	[ScenarioEnd, DataEnd)        data link columns
//	[DataEnd, TimeseriesEnd)      timeseries columns
//	[TimeseriesEnd, end)          scalar columns
//
// # Error Handling
//
// Failures are reported with sentinel errors wrapped with context, so callers
// use errors.Is:
//
//   - [ErrMalformedSchema]: fewer than four identifier columns
//   - [ErrEmptyDataset]: no rows to sample scenario data from
//   - [ErrUnmatchedIdentifier]: a data id has no scalar or timeseries row
//   - [ErrAmbiguousIdentifier]: a data id has both
//   - [ErrUnsupportedShape], [ErrHeterogeneousRows]: serializer input errors
//   - [ErrUnsupportedFormat]: unknown format token
//   - [ErrInvalidBody]: the raw response is not valid JSON
//
// Technical errors are mapped to user-friendly messages using [MapError].
package core
