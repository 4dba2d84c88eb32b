package core

import (
	"encoding/json"
	"fmt"
)

// IDKey is the column name used to join data records with their scalar or
// timeseries counterparts.
const IDKey = "id"

// Concretize normalizes raw and merges every data record with its matching
// scalar or timeseries record. Merged records keep the data fields first,
// followed by the counterpart's non-id fields, and are emitted in data order.
func Concretize(raw *RawResponse) (*ConcreteModel, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	return concretizeNormalized(normalized)
}

func concretizeNormalized(m *NormalizedModel) (*ConcreteModel, error) {
	scalars := indexByID(m.Scalars)
	timeseries := indexByID(m.Timeseries)

	out := &ConcreteModel{
		Scenario:   m.Scenario,
		Scalars:    make([]Record, 0, len(m.Scalars)),
		Timeseries: make([]Record, 0, len(m.Timeseries)),
	}

	for i, d := range m.Data {
		id, ok := d.Get(IDKey)
		if !ok {
			return nil, fmt.Errorf("concretize: %w: data record %d has no %q column",
				ErrMalformedSchema, i, IDKey)
		}
		key := identifierKey(id)

		scalar, inScalars := scalars[key]
		series, inTimeseries := timeseries[key]
		switch {
		case inScalars && inTimeseries:
			return nil, fmt.Errorf("concretize: %w: id %v found in scalars and timeseries",
				ErrAmbiguousIdentifier, id)
		case inScalars:
			out.Scalars = append(out.Scalars, merge(d, scalar))
		case inTimeseries:
			out.Timeseries = append(out.Timeseries, merge(d, series))
		default:
			return nil, fmt.Errorf("concretize: %w: id %v", ErrUnmatchedIdentifier, id)
		}
	}

	return out, nil
}

// indexByID maps each record's identifier to the record. The first record
// wins when an identifier repeats, matching a linear search.
func indexByID(records []Record) map[string]Record {
	idx := make(map[string]Record, len(records))
	for _, rec := range records {
		id, ok := rec.Get(IDKey)
		if !ok {
			continue
		}
		key := identifierKey(id)
		if _, seen := idx[key]; !seen {
			idx[key] = rec
		}
	}
	return idx
}

// identifierKey returns a comparable form of an identifier value.
// Strings and numbers never compare equal even with the same text.
func identifierKey(v any) string {
	switch v.(type) {
	case string:
		return "s:" + cellText(v)
	case json.Number, float64, float32, int, int32, int64:
		return "n:" + cellText(v)
	default:
		return "v:" + cellText(v)
	}
}

// merge returns d's fields followed by the non-id fields of counterpart.
func merge(d, counterpart Record) Record {
	merged := NewRecord(d.Len() + counterpart.Len())
	for _, k := range d.keys {
		merged.Set(k, d.values[k])
	}
	for _, k := range counterpart.keys {
		if k == IDKey {
			continue
		}
		merged.Set(k, counterpart.values[k])
	}
	return merged
}
