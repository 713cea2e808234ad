// Package catalog records which indexes exist, where their pages live and
// which root page to open them from. The state is a single JSON document
// rewritten atomically on every change.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tuannm99/novaspatial/internal/storage"
)

// FileName is the catalog document inside the data directory.
const FileName = "catalog.json"

const formatVersion = 1

type Kind string

const (
	KindScalar  Kind = "scalar"
	KindSpatial Kind = "spatial"
)

func (k Kind) Valid() bool { return k == KindScalar || k == KindSpatial }

var (
	ErrNotFound    = errors.New("catalog: index not found")
	ErrExists      = errors.New("catalog: index already exists")
	ErrBadName     = errors.New("catalog: invalid index name")
	ErrBadKind     = errors.New("catalog: unsupported index kind")
	ErrNoFileIDs   = errors.New("catalog: file ids exhausted")
	ErrBadDocument = errors.New("catalog: malformed catalog file")
)

// IndexMeta describes one built index.
type IndexMeta struct {
	Name     string `json:"name" yaml:"name"`
	Kind     Kind   `json:"kind" yaml:"kind"`
	File     uint16 `json:"file" yaml:"file"`
	FileBase string `json:"file_base" yaml:"file_base"`
	RootPage uint32 `json:"root_page" yaml:"root_page"`
	Height   int    `json:"height" yaml:"height"`
	Rows     int    `json:"rows" yaml:"rows"`
	KeySize  int    `json:"key_size" yaml:"key_size"`
	// Grid is set for spatial indexes only.
	Grid      []int     `json:"grid,omitempty" yaml:"grid,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Root is the root page address of the index.
func (m IndexMeta) Root() storage.PageFileID {
	return storage.PageFileID{File: m.File, Page: m.RootPage}
}

type document struct {
	Version  int                  `json:"version"`
	NextFile uint16               `json:"next_file"`
	Indexes  map[string]IndexMeta `json:"indexes"`
}

// Catalog is safe for concurrent use.
type Catalog struct {
	path string

	mu  sync.Mutex
	doc document
}

// Open loads dir/catalog.json, starting empty when the file does not exist.
func Open(dir string) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	c := &Catalog{
		path: filepath.Join(dir, FileName),
		doc:  document{Version: formatVersion, NextFile: 1, Indexes: map[string]IndexMeta{}},
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("catalog.open.empty", "path", c.path)
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &c.doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDocument, err)
	}
	if c.doc.Version != formatVersion {
		return nil, fmt.Errorf("%w: version %d", ErrBadDocument, c.doc.Version)
	}
	if c.doc.Indexes == nil {
		c.doc.Indexes = map[string]IndexMeta{}
	}
	if c.doc.NextFile == 0 {
		c.doc.NextFile = 1
	}
	slog.Debug("catalog.open", "path", c.path, "indexes", len(c.doc.Indexes))
	return c, nil
}

func (c *Catalog) Path() string { return c.path }

// ValidateName accepts 1-64 characters of letters, digits, '_' and '-'.
func ValidateName(name string) error {
	if name == "" || len(name) > 64 {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	for _, r := range name {
		ok := r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			return fmt.Errorf("%w: %q", ErrBadName, name)
		}
	}
	return nil
}

// AllocFile reserves a data file id that no index uses yet. The reservation
// is persisted so a crashed build never hands the same id out twice.
func (c *Catalog) AllocFile() (uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.doc.NextFile
	for {
		f := c.doc.NextFile
		c.doc.NextFile++
		if c.doc.NextFile == 0 {
			c.doc.NextFile = 1
		}
		if !c.fileInUse(f) {
			if err := c.saveLocked(); err != nil {
				return 0, err
			}
			return f, nil
		}
		if c.doc.NextFile == start {
			return 0, ErrNoFileIDs
		}
	}
}

func (c *Catalog) fileInUse(f uint16) bool {
	for _, m := range c.doc.Indexes {
		if m.File == f {
			return true
		}
	}
	return false
}

func checkMeta(m IndexMeta) error {
	if err := ValidateName(m.Name); err != nil {
		return err
	}
	if !m.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrBadKind, m.Kind)
	}
	return nil
}

// Register adds a new index. It fails with ErrExists if the name is taken.
func (c *Catalog) Register(m IndexMeta) (IndexMeta, error) {
	if err := checkMeta(m); err != nil {
		return IndexMeta{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.doc.Indexes[m.Name]; ok {
		return IndexMeta{}, fmt.Errorf("%w: %s", ErrExists, m.Name)
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	return m, c.putLocked(m)
}

// Replace stores m under its name and returns the entry it displaced, if
// any. The creation time of a replaced entry is kept.
func (c *Catalog) Replace(m IndexMeta) (IndexMeta, IndexMeta, bool, error) {
	if err := checkMeta(m); err != nil {
		return IndexMeta{}, IndexMeta{}, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, replaced := c.doc.Indexes[m.Name]
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	if replaced {
		m.CreatedAt = prev.CreatedAt
	}
	if err := c.putLocked(m); err != nil {
		return IndexMeta{}, IndexMeta{}, false, err
	}
	return m, prev, replaced, nil
}

func (c *Catalog) putLocked(m IndexMeta) error {
	prev, had := c.doc.Indexes[m.Name]
	c.doc.Indexes[m.Name] = m
	if err := c.saveLocked(); err != nil {
		if had {
			c.doc.Indexes[m.Name] = prev
		} else {
			delete(c.doc.Indexes, m.Name)
		}
		return err
	}
	slog.Info("catalog.index.put", "name", m.Name, "kind", m.Kind, "file", m.File, "rows", m.Rows)
	return nil
}

func (c *Catalog) Get(name string) (IndexMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.doc.Indexes[name]
	if !ok {
		return IndexMeta{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return m, nil
}

// List returns all indexes sorted by name.
func (c *Catalog) List() []IndexMeta {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]IndexMeta, 0, len(c.doc.Indexes))
	for _, m := range c.doc.Indexes {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b IndexMeta) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Drop removes the entry and returns it. Page files are left to the caller.
func (c *Catalog) Drop(name string) (IndexMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.doc.Indexes[name]
	if !ok {
		return IndexMeta{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(c.doc.Indexes, name)
	if err := c.saveLocked(); err != nil {
		c.doc.Indexes[name] = m
		return IndexMeta{}, err
	}
	slog.Info("catalog.index.drop", "name", name, "file", m.File)
	return m, nil
}

func (c *Catalog) saveLocked() error {
	data, err := json.MarshalIndent(c.doc, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(c.path, data, 0o644); err != nil {
		return err
	}
	slog.Debug("catalog.saved", "path", c.path, "indexes", len(c.doc.Indexes), "nextFile", c.doc.NextFile)
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	ok := false
	defer func() {
		_ = tmp.Close()
		if !ok {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}

	ok = true
	return nil
}
