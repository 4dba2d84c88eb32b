package core

import "fmt"

// SectionBounds is the ordinal contract derived from the identifier columns.
// Each field is the first column of the following section.
type SectionBounds struct {
	ScenarioEnd   int // end of the scenario header, start of data columns
	DataEnd       int // start of timeseries columns
	TimeseriesEnd int // start of scalar columns
}

// minIDColumns is the number of identifier columns a raw response must carry.
const minIDColumns = 4

// IDColumnPositions returns the 0-based positions of all identifier columns
// in ascending order.
func IDColumnPositions(description []ColumnDescriptor) []int {
	var positions []int
	for i, col := range description {
		if col.IsIdentifier() {
			positions = append(positions, i)
		}
	}
	return positions
}

// Boundaries locates the section boundaries of a description.
func Boundaries(description []ColumnDescriptor) (SectionBounds, error) {
	positions := IDColumnPositions(description)
	if len(positions) < minIDColumns {
		return SectionBounds{}, fmt.Errorf("%w: found %d identifier columns, need %d",
			ErrMalformedSchema, len(positions), minIDColumns)
	}
	return SectionBounds{
		ScenarioEnd:   positions[1],
		DataEnd:       positions[2],
		TimeseriesEnd: positions[3],
	}, nil
}

// ExtractScenario pairs the first headerWidth column names with the values of
// the first row. Scenario attributes are identical across rows, so one sample
// is enough.
func ExtractScenario(raw *RawResponse, headerWidth int) (Record, error) {
	if len(raw.Data) == 0 {
		return Record{}, fmt.Errorf("%w: no rows to read scenario from", ErrEmptyDataset)
	}
	if headerWidth > len(raw.Description) {
		return Record{}, fmt.Errorf("%w: scenario width %d exceeds %d columns",
			ErrMalformedSchema, headerWidth, len(raw.Description))
	}

	first := raw.Data[0]
	if len(first) < headerWidth {
		return Record{}, fmt.Errorf("%w: row 0 has %d values, need %d",
			ErrMalformedSchema, len(first), headerWidth)
	}

	scenario := NewRecord(headerWidth)
	for i := 0; i < headerWidth; i++ {
		scenario.Set(raw.Description[i].Name, first[i])
	}
	return scenario, nil
}

// ExtractRows builds one record per row from columns [start, end). A negative
// end means "up to the last column". Rows whose value at start is absent do
// not belong to the section and are skipped; row order is preserved.
func ExtractRows(raw *RawResponse, start, end int) ([]Record, error) {
	if end < 0 {
		end = len(raw.Description)
	}
	if start < 0 || start > end || end > len(raw.Description) {
		return nil, fmt.Errorf("%w: column range [%d, %d) outside %d columns",
			ErrMalformedSchema, start, end, len(raw.Description))
	}

	names := make([]string, end-start)
	for i, col := range raw.Description[start:end] {
		names[i] = col.Name
	}

	records := make([]Record, 0, len(raw.Data))
	for n, row := range raw.Data {
		if len(row) < end {
			return nil, fmt.Errorf("%w: row %d has %d values, need %d",
				ErrMalformedSchema, n, len(row), end)
		}
		if start == end || isAbsent(row[start]) {
			continue
		}

		rec := NewRecord(len(names))
		for i, name := range names {
			rec.Set(name, row[start+i])
		}
		records = append(records, rec)
	}
	return records, nil
}

// Normalize splits a raw response into its scenario, data, timeseries and
// scalar sections.
func Normalize(raw *RawResponse) (*NormalizedModel, error) {
	bounds, err := Boundaries(raw.Description)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	scenario, err := ExtractScenario(raw, bounds.ScenarioEnd)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	data, err := ExtractRows(raw, bounds.ScenarioEnd, bounds.DataEnd)
	if err != nil {
		return nil, fmt.Errorf("normalize data: %w", err)
	}
	timeseries, err := ExtractRows(raw, bounds.DataEnd, bounds.TimeseriesEnd)
	if err != nil {
		return nil, fmt.Errorf("normalize timeseries: %w", err)
	}
	scalars, err := ExtractRows(raw, bounds.TimeseriesEnd, -1)
	if err != nil {
		return nil, fmt.Errorf("normalize scalars: %w", err)
	}

	return &NormalizedModel{
		Scenario:   scenario,
		Data:       data,
		Scalars:    scalars,
		Timeseries: timeseries,
	}, nil
}

// isAbsent reports whether an identifier slot is empty.
func isAbsent(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}
