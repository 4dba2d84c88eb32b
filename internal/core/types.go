package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// KindID is the column kind that marks an identifier column.
const KindID = "id"

// Section names used as JSON keys and archive member names.
const (
	SectionScenario   = "oed_scenario"
	SectionData       = "oed_data"
	SectionScalars    = "oed_scalars"
	SectionTimeseries = "oed_timeseries"
)

// ColumnDescriptor describes one column of a raw response.
type ColumnDescriptor struct {
	Name string
	Kind string

	// raw keeps the wire form so raw responses re-encode unchanged.
	raw json.RawMessage
}

// IsIdentifier reports whether the column carries a row or section identifier.
func (c ColumnDescriptor) IsIdentifier() bool {
	return c.Kind == KindID
}

// UnmarshalJSON accepts both the object form {"name": ..., "kind": ...} and
// the cursor-description array form [name, type, ...].
//
// In the array form the type code is usually numeric, so a column named "id"
// is treated as an identifier regardless of its type.
func (c *ColumnDescriptor) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return fmt.Errorf("column description: empty value")
	}

	if trimmed[0] == '[' {
		var fields []json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return fmt.Errorf("column description: %w", err)
		}
		if len(fields) == 0 {
			return fmt.Errorf("column description: empty array")
		}

		var name string
		if err := json.Unmarshal(fields[0], &name); err != nil {
			return fmt.Errorf("column description name: %w", err)
		}

		var kind string
		if len(fields) > 1 {
			// Non-string type codes are left as an empty kind
			_ = json.Unmarshal(fields[1], &kind)
		}
		if name == KindID {
			kind = KindID
		}

		*c = ColumnDescriptor{Name: name, Kind: kind, raw: append(json.RawMessage(nil), trimmed...)}
		return nil
	}

	var obj struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return fmt.Errorf("column description: %w", err)
	}
	kind := obj.Kind
	if kind == "" {
		kind = obj.Type
	}

	*c = ColumnDescriptor{Name: obj.Name, Kind: kind, raw: append(json.RawMessage(nil), trimmed...)}
	return nil
}

// MarshalJSON returns the decoded wire form when available.
func (c ColumnDescriptor) MarshalJSON() ([]byte, error) {
	if len(c.raw) > 0 {
		return c.raw, nil
	}
	return json.Marshal(struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}{c.Name, c.Kind})
}

// Row is one row of values aligned positionally with the description.
type Row []any

// RawResponse is the unmodified tabular response from the data service.
type RawResponse struct {
	Description []ColumnDescriptor `json:"description"`
	Data        []Row              `json:"data"`

	// source is the document DecodeRaw read, re-emitted by MarshalJSON.
	source json.RawMessage
}

// DecodeRaw reads a raw response from r. Numbers are kept as json.Number so
// identifiers and values render exactly as received, and the document
// itself is kept so encoding the response reproduces fields the pipeline
// does not use.
func DecodeRaw(r io.Reader) (*RawResponse, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var raw RawResponse
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}
	raw.source = bytes.TrimSpace(b[:dec.InputOffset()])
	return &raw, nil
}

// MarshalJSON returns the decoded document when available, otherwise the
// description and data fields.
func (r RawResponse) MarshalJSON() ([]byte, error) {
	if len(r.source) > 0 {
		return r.source, nil
	}
	type plain RawResponse
	return json.Marshal(plain(r))
}

// NormalizedModel is the raw matrix split into its four sections.
type NormalizedModel struct {
	Scenario   Record   `json:"oed_scenario"`
	Data       []Record `json:"oed_data"`
	Scalars    []Record `json:"oed_scalars"`
	Timeseries []Record `json:"oed_timeseries"`
}

// Tables returns the sections in archive order.
func (m *NormalizedModel) Tables() []NamedTable {
	return []NamedTable{
		{Name: SectionScenario, Value: m.Scenario},
		{Name: SectionData, Value: m.Data},
		{Name: SectionScalars, Value: m.Scalars},
		{Name: SectionTimeseries, Value: m.Timeseries},
	}
}

// ConcreteModel is the normalized form with data records merged into their
// scalar or timeseries counterparts.
type ConcreteModel struct {
	Scenario   Record   `json:"oed_scenario"`
	Scalars    []Record `json:"oed_scalars"`
	Timeseries []Record `json:"oed_timeseries"`
}

// Tables returns the sections in archive order.
func (m *ConcreteModel) Tables() []NamedTable {
	return []NamedTable{
		{Name: SectionScenario, Value: m.Scenario},
		{Name: SectionScalars, Value: m.Scalars},
		{Name: SectionTimeseries, Value: m.Timeseries},
	}
}

// Archive is a zip container holding one CSV member per section.
type Archive []byte

// Output is the result of FormatData. It is one of *RawResponse,
// *NormalizedModel, *ConcreteModel or Archive.
type Output interface {
	isOutput()
}

func (*RawResponse) isOutput()     {}
func (*NormalizedModel) isOutput() {}
func (*ConcreteModel) isOutput()   {}
func (Archive) isOutput()          {}
