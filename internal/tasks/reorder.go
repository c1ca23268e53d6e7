package tasks

import "fmt"

// Position addresses a slot in a date bucket.
type Position struct {
	Date  string `json:"date"`
	Index int    `json:"index"`
}

// Move is a drag from Source to Destination. A nil Destination is a
// cancelled drag.
type Move struct {
	Source      Position  `json:"source"`
	Destination *Position `json:"destination,omitempty"`
}

// Reordered is the outcome of Reorder.
type Reordered struct {
	Tasks   []Task // flattened collection after the move
	Moved   Task   // the moved task carrying its new date
	Changed bool
}

// Reorder moves one task between (or within) buckets. The input
// grouping is never modified. Cancelled drags and drops onto the source
// slot report Changed=false. Only the moved task's date changes.
func Reorder(g Grouping, m Move) (Reordered, error) {
	if m.Destination == nil {
		return Reordered{Tasks: g.Flatten()}, nil
	}
	dst := *m.Destination
	if dst == m.Source {
		return Reordered{Tasks: g.Flatten()}, nil
	}

	src := g[m.Source.Date]
	if m.Source.Index < 0 || m.Source.Index >= len(src) {
		return Reordered{}, fmt.Errorf("%w: no task at %s[%d]", ErrInvalidPosition, m.Source.Date, m.Source.Index)
	}
	if dst.Date == "" {
		return Reordered{}, fmt.Errorf("%w: empty destination date", ErrInvalidPosition)
	}

	out := g.Clone()
	bucket := out[m.Source.Date]
	moved := bucket[m.Source.Index]
	bucket = append(bucket[:m.Source.Index], bucket[m.Source.Index+1:]...)
	if len(bucket) == 0 {
		delete(out, m.Source.Date)
	} else {
		out[m.Source.Date] = bucket
	}

	moved.Date = dst.Date
	target := out[dst.Date]
	idx := min(max(dst.Index, 0), len(target))
	target = append(target, Task{})
	copy(target[idx+1:], target[idx:])
	target[idx] = moved
	out[dst.Date] = target

	return Reordered{Tasks: out.Flatten(), Moved: moved, Changed: true}, nil
}
