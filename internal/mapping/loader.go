package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
)

const fileExt = ".json"

// FSLoader reads mapping files "<name>.json" from the root of a file system.
type FSLoader struct {
	fsys fs.FS
}

// NewFSLoader creates a loader over fsys.
func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{fsys: fsys}
}

// NewDirLoader creates a loader over a directory on disk.
func NewDirLoader(dir string) *FSLoader {
	return NewFSLoader(os.DirFS(dir))
}

// Load reads and decodes the mapping called name.
func (l *FSLoader) Load(name string) (*Definition, error) {
	// Names are plain file stems; anything else cannot name a mapping file
	if name == "" || strings.ContainsAny(name, `/\`) || !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w: %q", ErrMappingNotFound, name)
	}

	b, err := fs.ReadFile(l.fsys, name+fileExt)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrMappingNotFound, name)
		}
		return nil, fmt.Errorf("%w: read %q: %v", ErrInvalidMapping, name, err)
	}

	var def Definition
	if err := json.Unmarshal(b, &def); err != nil {
		return nil, fmt.Errorf("%w: decode %q: %v", ErrInvalidMapping, name, err)
	}
	return &def, nil
}

// Names lists the available custom mappings in alphabetical order.
func (l *FSLoader) Names() ([]string, error) {
	matches, err := fs.Glob(l.fsys, "*"+fileExt)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(m, fileExt))
	}
	sort.Strings(names)
	return names, nil
}
