package vfs

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var errNotDirectory = errors.New("not a directory")

// MemFS is an in-memory FS implementation for tests.
// Paths are normalized to slash form; parent directories must exist before
// writes, matching os semantics so apply-time bugs surface in tests.
type MemFS struct {
	mu      sync.Mutex
	files   map[string]*memFile
	dirs    map[string]bool
	tempSeq int
}

type memFile struct {
	data []byte
	mode iofs.FileMode
}

// NewMemFS creates an empty MemFS with a root directory.
func NewMemFS() *MemFS {
	return &MemFS{
		files: make(map[string]*memFile),
		dirs:  map[string]bool{"/": true, ".": true, "/tmp": true},
	}
}

func normalize(p string) string {
	p = filepath.ToSlash(p)
	if p == "" {
		return "."
	}
	return path.Clean(p)
}

func (m *MemFS) hasDir(p string) bool {
	if p == "/" || p == "." {
		return true
	}
	return m.dirs[p]
}

func (m *MemFS) parentExists(p string) bool {
	return m.hasDir(path.Dir(p))
}

func pathError(op, p string, err error) error {
	return &iofs.PathError{Op: op, Path: p, Err: err}
}

func (m *MemFS) MkdirAll(p string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = normalize(p)
	for cur := p; cur != "/" && cur != "."; cur = path.Dir(cur) {
		if _, ok := m.files[cur]; ok {
			return pathError("mkdir", cur, errNotDirectory)
		}
	}
	for cur := p; cur != "/" && cur != "."; cur = path.Dir(cur) {
		m.dirs[cur] = true
	}
	return nil
}

func (m *MemFS) MkdirTemp(dir, pattern string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dir == "" {
		dir = "/tmp"
	}
	dir = normalize(dir)
	if !m.hasDir(dir) {
		return "", pathError("mkdirtemp", dir, iofs.ErrNotExist)
	}
	m.tempSeq++
	name := tempName(pattern, m.tempSeq)
	p := path.Join(dir, name)
	m.dirs[p] = true
	return p, nil
}

func tempName(pattern string, seq int) string {
	suffix := fmt.Sprintf("%06d", seq)
	if i := strings.LastIndex(pattern, "*"); i >= 0 {
		return pattern[:i] + suffix + pattern[i+1:]
	}
	return pattern + suffix
}

func (m *MemFS) ReadFile(p string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = normalize(p)
	f, ok := m.files[p]
	if !ok {
		return nil, pathError("open", p, iofs.ErrNotExist)
	}
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out, nil
}

func (m *MemFS) WriteFile(p string, data []byte, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeLocked(p, data, perm, false)
}

func (m *MemFS) AppendFile(p string, data []byte, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeLocked(p, data, perm, true)
}

func (m *MemFS) writeLocked(p string, data []byte, perm os.FileMode, appendTo bool) error {
	p = normalize(p)
	if m.hasDir(p) {
		return pathError("open", p, iofs.ErrExist)
	}
	if !m.parentExists(p) {
		return pathError("open", p, iofs.ErrNotExist)
	}
	if appendTo {
		if f, ok := m.files[p]; ok {
			f.data = append(f.data, data...)
			return nil
		}
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.files[p] = &memFile{data: buf, mode: perm}
	return nil
}

func (m *MemFS) ReadDir(p string) ([]iofs.DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = normalize(p)
	if _, ok := m.files[p]; ok {
		return nil, pathError("readdir", p, errNotDirectory)
	}
	if !m.hasDir(p) {
		return nil, pathError("open", p, iofs.ErrNotExist)
	}
	seen := make(map[string]iofs.DirEntry)
	addChild := func(full string, dir bool) {
		rel := strings.TrimPrefix(full, withSlash(p))
		if rel == full || rel == "" {
			return
		}
		name := rel
		if i := strings.Index(rel, "/"); i >= 0 {
			name = rel[:i]
			dir = true
		}
		if _, ok := seen[name]; !ok {
			seen[name] = m.entryLocked(path.Join(p, name), name, dir)
		}
	}
	for full := range m.files {
		addChild(full, false)
	}
	for full := range m.dirs {
		addChild(full, true)
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	entries := make([]iofs.DirEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, seen[name])
	}
	return entries, nil
}

func withSlash(p string) string {
	if p == "/" {
		return "/"
	}
	if p == "." {
		return ""
	}
	return p + "/"
}

func (m *MemFS) entryLocked(full, name string, dir bool) iofs.DirEntry {
	if dir {
		return memDirEntry{name: name, info: memFileInfo{name: name, mode: iofs.ModeDir | 0o755, dir: true}}
	}
	f := m.files[full]
	return memDirEntry{name: name, info: memFileInfo{name: name, size: int64(len(f.data)), mode: f.mode}}
}

func (m *MemFS) Stat(p string) (iofs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = normalize(p)
	if f, ok := m.files[p]; ok {
		return memFileInfo{name: path.Base(p), size: int64(len(f.data)), mode: f.mode}, nil
	}
	if m.hasDir(p) {
		return memFileInfo{name: path.Base(p), mode: iofs.ModeDir | 0o755, dir: true}, nil
	}
	return nil, pathError("stat", p, iofs.ErrNotExist)
}

func (m *MemFS) Rename(oldpath, newpath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	oldpath, newpath = normalize(oldpath), normalize(newpath)
	if !m.parentExists(newpath) {
		return pathError("rename", newpath, iofs.ErrNotExist)
	}
	if f, ok := m.files[oldpath]; ok {
		if m.hasDir(newpath) {
			return pathError("rename", newpath, iofs.ErrExist)
		}
		delete(m.files, oldpath)
		m.files[newpath] = f
		return nil
	}
	if m.hasDir(oldpath) {
		if m.hasDir(newpath) || m.files[newpath] != nil {
			return pathError("rename", newpath, iofs.ErrExist)
		}
		prefix := withSlash(oldpath)
		for full, f := range m.files {
			if strings.HasPrefix(full, prefix) {
				delete(m.files, full)
				m.files[path.Join(newpath, strings.TrimPrefix(full, prefix))] = f
			}
		}
		for full := range m.dirs {
			if strings.HasPrefix(full, prefix) {
				delete(m.dirs, full)
				m.dirs[path.Join(newpath, strings.TrimPrefix(full, prefix))] = true
			}
		}
		delete(m.dirs, oldpath)
		m.dirs[newpath] = true
		return nil
	}
	return pathError("rename", oldpath, iofs.ErrNotExist)
}

func (m *MemFS) Remove(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = normalize(p)
	if _, ok := m.files[p]; ok {
		delete(m.files, p)
		return nil
	}
	if m.hasDir(p) {
		prefix := withSlash(p)
		for full := range m.files {
			if strings.HasPrefix(full, prefix) {
				return pathError("remove", p, errors.New("directory not empty"))
			}
		}
		for full := range m.dirs {
			if strings.HasPrefix(full, prefix) {
				return pathError("remove", p, errors.New("directory not empty"))
			}
		}
		delete(m.dirs, p)
		return nil
	}
	return pathError("remove", p, iofs.ErrNotExist)
}

func (m *MemFS) RemoveAll(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = normalize(p)
	prefix := withSlash(p)
	for full := range m.files {
		if full == p || strings.HasPrefix(full, prefix) {
			delete(m.files, full)
		}
	}
	for full := range m.dirs {
		if full == p || strings.HasPrefix(full, prefix) {
			delete(m.dirs, full)
		}
	}
	return nil
}

func (m *MemFS) Chmod(p string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = normalize(p)
	if f, ok := m.files[p]; ok {
		f.mode = perm
		return nil
	}
	if m.hasDir(p) {
		return nil
	}
	return pathError("chmod", p, iofs.ErrNotExist)
}

func (m *MemFS) CreateTemp(dir, pattern string) (string, io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dir == "" {
		dir = "/tmp"
	}
	dir = normalize(dir)
	if !m.hasDir(dir) {
		return "", nil, pathError("createtemp", dir, iofs.ErrNotExist)
	}
	m.tempSeq++
	p := path.Join(dir, tempName(pattern, m.tempSeq))
	m.files[p] = &memFile{mode: 0o600}
	return p, &memTempWriter{fs: m, path: p}, nil
}

type memTempWriter struct {
	fs   *MemFS
	path string
}

func (w *memTempWriter) Write(data []byte) (int, error) {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	f, ok := w.fs.files[w.path]
	if !ok {
		return 0, pathError("write", w.path, iofs.ErrNotExist)
	}
	f.data = append(f.data, data...)
	return len(data), nil
}

func (w *memTempWriter) Close() error { return nil }

type memDirEntry struct {
	name string
	info memFileInfo
}

func (e memDirEntry) Name() string                 { return e.name }
func (e memDirEntry) IsDir() bool                  { return e.info.dir }
func (e memDirEntry) Type() iofs.FileMode          { return e.info.mode.Type() }
func (e memDirEntry) Info() (iofs.FileInfo, error) { return e.info, nil }

type memFileInfo struct {
	name string
	size int64
	mode iofs.FileMode
	dir  bool
}

func (fi memFileInfo) Name() string        { return fi.name }
func (fi memFileInfo) Size() int64         { return fi.size }
func (fi memFileInfo) Mode() iofs.FileMode { return fi.mode }
func (fi memFileInfo) ModTime() time.Time  { return time.Time{} }
func (fi memFileInfo) IsDir() bool         { return fi.dir }
func (fi memFileInfo) Sys() any            { return nil }
