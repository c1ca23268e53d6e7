// Package dirstore provides the primitives shared by directory-backed
// stores: one subdirectory per entity holding a meta.json document and
// optional JSONL journals.
package dirstore

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var ErrNotFound = errors.New("entity not found")

// DirStore is rooted at a base directory. Callers hold Lock/RLock
// around multi-step operations.
type DirStore struct {
	mu         sync.RWMutex
	baseDir    string
	entityName string // used in error messages
}

func NewDirStore(baseDir, entityName string) *DirStore {
	return &DirStore{baseDir: baseDir, entityName: entityName}
}

func (ds *DirStore) Lock()    { ds.mu.Lock() }
func (ds *DirStore) Unlock()  { ds.mu.Unlock() }
func (ds *DirStore) RLock()   { ds.mu.RLock() }
func (ds *DirStore) RUnlock() { ds.mu.RUnlock() }

func (ds *DirStore) Dir(id string) string {
	return filepath.Join(ds.baseDir, id)
}

func (ds *DirStore) FilePath(id, name string) string {
	return filepath.Join(ds.baseDir, id, name)
}

func (ds *DirStore) EnsureDir(id string) error {
	if err := os.MkdirAll(ds.Dir(id), 0o755); err != nil {
		return fmt.Errorf("create %s dir: %w", ds.entityName, err)
	}
	return nil
}

func (ds *DirStore) RemoveDir(id string) error {
	return os.RemoveAll(ds.Dir(id))
}

// ListDirs returns the entity IDs present on disk. A missing base
// directory is an empty store.
func (ds *DirStore) ListDirs() ([]string, error) {
	entries, err := os.ReadDir(ds.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s dirs: %w", ds.entityName, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// WriteMeta atomically replaces meta.json (temp file + rename).
func (ds *DirStore) WriteMeta(id string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ds.entityName, err)
	}

	path := ds.FilePath(id, "meta.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s tmp: %w", ds.entityName, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s meta: %w", ds.entityName, err)
	}
	return nil
}

// ReadMeta decodes meta.json into out. A missing entity yields ErrNotFound.
func (ds *DirStore) ReadMeta(id string, out any) error {
	data, err := os.ReadFile(ds.FilePath(id, "meta.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s %s: %w", ds.entityName, id, ErrNotFound)
		}
		return fmt.Errorf("read %s: %w", ds.entityName, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", ds.entityName, err)
	}
	return nil
}

// AppendJSONL appends v as one line to filename, creating the entity
// directory when needed.
func (ds *DirStore) AppendJSONL(id, filename string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filename, err)
	}
	if err := ds.EnsureDir(id); err != nil {
		return err
	}

	f, err := os.OpenFile(ds.FilePath(id, filename), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", filename, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}

// LoadJSONL decodes every line of filename. Corrupted lines are skipped.
func LoadJSONL[T any](ds *DirStore, id, filename string) ([]T, error) {
	f, err := os.Open(ds.FilePath(id, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	defer f.Close()

	var items []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var item T
		if err := json.Unmarshal(line, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", filename, err)
	}
	return items, nil
}
