// Package storage holds the persistence helpers shared by the gateway.
package storage

import (
	"log/slog"
	"path/filepath"

	"github.com/dohr-michael/dayplan/internal/events"
	"github.com/dohr-michael/dayplan/internal/storage/dirstore"
)

const journalFile = "activity.jsonl"

// Journal persists owner-scoped task events as JSONL, one directory
// per owner: <dir>/<owner>/activity.jsonl.
type Journal struct {
	ds          *dirstore.DirStore
	unsubscribe func()
}

// NewJournal subscribes to task lifecycle events on bus.
func NewJournal(dir string, bus *events.Bus) *Journal {
	j := &Journal{ds: dirstore.NewDirStore(dir, "journal")}
	j.unsubscribe = bus.Subscribe(j.handleEvent, events.TaskEvents...)
	return j
}

// Close unsubscribes the journal from the event bus.
func (j *Journal) Close() {
	if j.unsubscribe != nil {
		j.unsubscribe()
	}
}

func (j *Journal) handleEvent(e events.Event) {
	if e.Owner == "" || filepath.Base(e.Owner) != e.Owner {
		return
	}
	j.ds.Lock()
	defer j.ds.Unlock()
	if err := j.ds.AppendJSONL(e.Owner, journalFile, e); err != nil {
		slog.Warn("journal append failed", "owner", e.Owner, "error", err)
	}
}

// Recent returns up to limit of owner's most recent events, oldest first.
func (j *Journal) Recent(owner string, limit int) ([]events.Event, error) {
	if filepath.Base(owner) != owner {
		return nil, nil
	}
	j.ds.RLock()
	defer j.ds.RUnlock()

	all, err := dirstore.LoadJSONL[events.Event](j.ds, owner, journalFile)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}
