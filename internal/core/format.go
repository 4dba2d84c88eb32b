package core

import "fmt"

// Format selects the output pipeline of FormatData.
type Format string

const (
	FormatRaw            Format = "raw"
	FormatJSONNormalized Format = "json_normalized"
	FormatJSONConcrete   Format = "json_concrete"
	FormatCSVNormalized  Format = "csv_normalized"
	FormatCSVConcrete    Format = "csv_concrete"
)

// Formats returns every supported format in documentation order.
func Formats() []Format {
	return []Format{
		FormatRaw,
		FormatJSONNormalized,
		FormatJSONConcrete,
		FormatCSVNormalized,
		FormatCSVConcrete,
	}
}

// ParseFormat converts a format token into a Format.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// IsArchive reports whether the format renders to a zip archive.
func (f Format) IsArchive() bool {
	return f == FormatCSVNormalized || f == FormatCSVConcrete
}

func (f Format) String() string {
	return string(f)
}

// FormatData runs the pipeline selected by format over raw.
func FormatData(raw *RawResponse, format Format) (Output, error) {
	switch format {
	case FormatRaw:
		return raw, nil

	case FormatJSONNormalized:
		m, err := Normalize(raw)
		if err != nil {
			return nil, err
		}
		return m, nil

	case FormatJSONConcrete:
		m, err := Concretize(raw)
		if err != nil {
			return nil, err
		}
		return m, nil

	case FormatCSVNormalized:
		m, err := Normalize(raw)
		if err != nil {
			return nil, err
		}
		return archiveOutput(m.Tables())

	case FormatCSVConcrete:
		m, err := Concretize(raw)
		if err != nil {
			return nil, err
		}
		return archiveOutput(m.Tables())

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
	}
}

func archiveOutput(tables []NamedTable) (Output, error) {
	a, err := BuildArchive(tables)
	if err != nil {
		return nil, err
	}
	return a, nil
}
