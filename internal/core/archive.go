package core

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// csvExt is the member file extension inside an archive.
const csvExt = ".csv"

// WriteArchive writes one deflate-compressed CSV member per table to w,
// named "<table>.csv", in the given order.
func WriteArchive(w io.Writer, tables []NamedTable) error {
	zw := zip.NewWriter(w)

	seen := make(map[string]bool, len(tables))
	for _, t := range tables {
		if seen[t.Name] {
			return fmt.Errorf("archive: duplicate table %q", t.Name)
		}
		seen[t.Name] = true

		f, err := zw.Create(t.Name + csvExt)
		if err != nil {
			return fmt.Errorf("archive %s: %w", t.Name, err)
		}
		if err := WriteCSV(f, t.Value); err != nil {
			return fmt.Errorf("archive %s: %w", t.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("archive close: %w", err)
	}
	return nil
}

// BuildArchive renders tables into an in-memory archive. The archive is only
// returned once every member has been written and the container is closed.
func BuildArchive(tables []NamedTable) (Archive, error) {
	var buf bytes.Buffer
	if err := WriteArchive(&buf, tables); err != nil {
		return nil, err
	}
	return Archive(buf.Bytes()), nil
}

// ReadArchive parses an archive back into rows keyed by header name, one
// entry per member with the ".csv" extension stripped. All values are strings.
func ReadArchive(data []byte) (map[string][]map[string]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	tables := make(map[string][]map[string]string, len(zr.File))
	for _, f := range zr.File {
		rows, err := readMember(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		tables[strings.TrimSuffix(f.Name, csvExt)] = rows
	}
	return tables, nil
}

func readMember(f *zip.File) ([]map[string]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	lines, err := csv.NewReader(rc).ReadAll()
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(lines))
	if len(lines) == 0 {
		return rows, nil
	}

	header := lines[0]
	for _, line := range lines[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			row[name] = line[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
