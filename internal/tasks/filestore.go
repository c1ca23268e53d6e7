package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/dohr-michael/dayplan/internal/storage/dirstore"
)

// FileStore persists each task as <base>/<owner>/<id>/meta.json.
type FileStore struct {
	baseDir string

	mu     sync.Mutex
	owners map[string]*dirstore.DirStore
}

type fileRecord struct {
	Task
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir, owners: make(map[string]*dirstore.DirStore)}
}

func (fs *FileStore) store(owner string) (*dirstore.DirStore, error) {
	if !validName(owner) {
		return nil, fmt.Errorf("invalid owner %q", owner)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	ds, ok := fs.owners[owner]
	if !ok {
		ds = dirstore.NewDirStore(filepath.Join(fs.baseDir, owner), "task")
		fs.owners[owner] = ds
	}
	return ds, nil
}

func validName(s string) bool {
	return s != "" && s != "." && s != ".." && filepath.Base(s) == s
}

func (fs *FileStore) records(ds *dirstore.DirStore) ([]fileRecord, error) {
	dirs, err := ds.ListDirs()
	if err != nil {
		return nil, err
	}
	recs := make([]fileRecord, 0, len(dirs))
	for _, name := range dirs {
		var rec fileRecord
		if err := ds.ReadMeta(name, &rec); err != nil {
			continue // skip corrupted tasks
		}
		recs = append(recs, rec)
	}
	slices.SortStableFunc(recs, func(a, b fileRecord) int {
		if c := CompareDateKeys(a.Date, b.Date); c != 0 {
			return c
		}
		if a.Position != b.Position {
			return a.Position - b.Position
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return recs, nil
}

func nextFilePosition(recs []fileRecord, date, skip string) int {
	pos := 0
	for _, r := range recs {
		if r.Date == date && r.ID != skip && r.Position >= pos {
			pos = r.Position + 1
		}
	}
	return pos
}

func (fs *FileStore) read(ds *dirstore.DirStore, id string) (fileRecord, error) {
	var rec fileRecord
	if !validName(id) {
		return rec, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := ds.ReadMeta(id, &rec); err != nil {
		if errors.Is(err, dirstore.ErrNotFound) {
			return rec, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return rec, err
	}
	return rec, nil
}

func (fs *FileStore) List(_ context.Context, owner string) ([]Task, error) {
	ds, err := fs.store(owner)
	if err != nil {
		return nil, err
	}
	ds.RLock()
	defer ds.RUnlock()

	recs, err := fs.records(ds)
	if err != nil {
		return nil, err
	}
	out := make([]Task, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Task)
	}
	return out, nil
}

func (fs *FileStore) Get(_ context.Context, owner, id string) (Task, error) {
	ds, err := fs.store(owner)
	if err != nil {
		return Task{}, err
	}
	ds.RLock()
	defer ds.RUnlock()

	rec, err := fs.read(ds, id)
	return rec.Task, err
}

func (fs *FileStore) Create(_ context.Context, owner string, t *Task) error {
	ds, err := fs.store(owner)
	if err != nil {
		return err
	}
	ds.Lock()
	defer ds.Unlock()

	if t.ID == "" {
		t.ID = GenerateID()
	}
	if !validName(t.ID) {
		return fmt.Errorf("%w: bad id %q", ErrInvalidTask, t.ID)
	}
	recs, err := fs.records(ds)
	if err != nil {
		return err
	}
	now := time.Now()
	rec := fileRecord{Task: *t, Position: nextFilePosition(recs, t.Date, ""), CreatedAt: now, UpdatedAt: now}
	if err := ds.EnsureDir(t.ID); err != nil {
		return err
	}
	return ds.WriteMeta(t.ID, rec)
}

func (fs *FileStore) mutate(owner, id string, fn func(rec *fileRecord, all []fileRecord)) error {
	ds, err := fs.store(owner)
	if err != nil {
		return err
	}
	ds.Lock()
	defer ds.Unlock()

	rec, err := fs.read(ds, id)
	if err != nil {
		return err
	}
	recs, err := fs.records(ds)
	if err != nil {
		return err
	}
	fn(&rec, recs)
	rec.UpdatedAt = time.Now()
	return ds.WriteMeta(id, rec)
}

func (fs *FileStore) Update(_ context.Context, owner string, t Task) error {
	return fs.mutate(owner, t.ID, func(rec *fileRecord, _ []fileRecord) {
		rec.Task = t
	})
}

func (fs *FileStore) Reschedule(_ context.Context, owner, id, date, clock string) error {
	return fs.mutate(owner, id, func(rec *fileRecord, all []fileRecord) {
		rec.Position = nextFilePosition(all, date, id)
		rec.Date = date
		rec.Time = clock
		rec.Done = false
	})
}

func (fs *FileStore) SetDone(_ context.Context, owner, id string, done bool) error {
	return fs.mutate(owner, id, func(rec *fileRecord, _ []fileRecord) {
		rec.Done = Flag(done)
	})
}

func (fs *FileStore) Delete(_ context.Context, owner, id string) error {
	ds, err := fs.store(owner)
	if err != nil {
		return err
	}
	ds.Lock()
	defer ds.Unlock()

	if _, err := fs.read(ds, id); err != nil {
		return err
	}
	return ds.RemoveDir(id)
}
