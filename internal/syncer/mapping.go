package syncer

import (
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"

	"github.com/iberi22/gitcore/internal/vfs"
)

// MappingFile is the conventional mapping location inside the issues dir.
// Dot-prefixed so the push scan never treats it as an issue.
const MappingFile = ".issue-mapping.json"

// Mapping links local issue files to tracker issue numbers, both directions.
type Mapping struct {
	files  map[string]int
	issues map[int]string
}

// NewMapping creates an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{
		files:  make(map[string]int),
		issues: make(map[int]string),
	}
}

// Add links file to number, displacing any stale pairing on either side.
func (m *Mapping) Add(file string, number int) {
	if old, ok := m.files[file]; ok {
		delete(m.issues, old)
	}
	if old, ok := m.issues[number]; ok {
		delete(m.files, old)
	}
	m.files[file] = number
	m.issues[number] = file
}

// GetIssue returns the issue number for a file.
func (m *Mapping) GetIssue(file string) (int, bool) {
	n, ok := m.files[file]
	return n, ok
}

// GetFile returns the file for an issue number.
func (m *Mapping) GetFile(number int) (string, bool) {
	f, ok := m.issues[number]
	return f, ok
}

// RemoveByFile unlinks a file, returning the issue it pointed at.
func (m *Mapping) RemoveByFile(file string) (int, bool) {
	n, ok := m.files[file]
	if ok {
		delete(m.files, file)
		delete(m.issues, n)
	}
	return n, ok
}

// RemoveByIssue unlinks an issue, returning the file it pointed at.
func (m *Mapping) RemoveByIssue(number int) (string, bool) {
	f, ok := m.issues[number]
	if ok {
		delete(m.issues, number)
		delete(m.files, f)
	}
	return f, ok
}

// ContainsFile reports whether file is mapped.
func (m *Mapping) ContainsFile(file string) bool {
	_, ok := m.files[file]
	return ok
}

// ContainsIssue reports whether number is mapped.
func (m *Mapping) ContainsIssue(number int) bool {
	_, ok := m.issues[number]
	return ok
}

// Len returns the number of links.
func (m *Mapping) Len() int { return len(m.files) }

// LoadMapping reads a mapping file. A missing file is an empty mapping, not
// an error: the first push of a fresh directory starts from nothing.
func LoadMapping(fsys vfs.FS, path string) (*Mapping, error) {
	data, err := fsys.ReadFile(path)
	if errors.Is(err, iofs.ErrNotExist) {
		return NewMapping(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("syncer: load mapping: %w", err)
	}

	var files map[string]int
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("syncer: load mapping: %w", err)
	}

	m := NewMapping()
	for f, n := range files {
		m.Add(f, n)
	}
	return m, nil
}

// Save writes the mapping atomically as a flat file→number JSON object.
func (m *Mapping) Save(fsys vfs.FS, path string) error {
	data, err := json.MarshalIndent(m.files, "", "  ")
	if err != nil {
		return fmt.Errorf("syncer: save mapping: %w", err)
	}
	data = append(data, '\n')
	if err := vfs.WriteFileAtomic(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("syncer: save mapping: %w", err)
	}
	return nil
}
