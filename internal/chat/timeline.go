package chat

import (
	"cmp"
	"iter"
	"slices"
	"sync"

	"github.com/sharanperla/Greenleaf-client/internal/core"
)

type entry struct {
	msg core.Message
	seq uint64
}

// Timeline is the merged, deduplicated message list of the selected room.
// It is written by the session loop only; the lock lets renderers read
// concurrently.
type Timeline struct {
	mu      sync.RWMutex
	entries map[core.MessageID]*entry
	// placeholders indexes client-minted entries by fingerprint, oldest first.
	placeholders map[uint64][]core.MessageID
	nextSeq      uint64
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{
		entries:      make(map[core.MessageID]*entry),
		placeholders: make(map[uint64][]core.MessageID),
	}
}

// Reconcile merges authoritative history. History copies replace entries
// with the same id; entries only seen on the channel are kept.
func (t *Timeline) Reconcile(history []core.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, msg := range history {
		if msg.ID.IsZero() {
			continue
		}
		if e, ok := t.entries[msg.ID]; ok {
			e.msg = msg
			continue
		}
		t.dropPlaceholderLocked(msg)
		t.insertLocked(msg)
	}
}

// Append adds msg unless its id is already present. It reports whether the
// timeline changed.
func (t *Timeline) Append(msg core.Message) bool {
	if msg.ID.IsZero() {
		msg.ID = core.NewPlaceholderID()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[msg.ID]; ok {
		return false
	}

	if msg.ID.IsPlaceholder() {
		fp := msg.Fingerprint()
		if t.confirmedLocked(fp) {
			return false
		}
		t.placeholders[fp] = append(t.placeholders[fp], msg.ID)
	} else {
		t.dropPlaceholderLocked(msg)
	}

	t.insertLocked(msg)
	return true
}

func (t *Timeline) insertLocked(msg core.Message) {
	t.nextSeq++
	t.entries[msg.ID] = &entry{msg: msg, seq: t.nextSeq}
}

// dropPlaceholderLocked removes the oldest placeholder a server-identified
// message confirms. Each server message confirms at most one placeholder.
func (t *Timeline) dropPlaceholderLocked(msg core.Message) {
	if len(t.placeholders) == 0 {
		return
	}
	fp := msg.Fingerprint()
	pending := t.placeholders[fp]
	if len(pending) == 0 {
		return
	}
	delete(t.entries, pending[0])
	if len(pending) == 1 {
		delete(t.placeholders, fp)
		return
	}
	t.placeholders[fp] = pending[1:]
}

func (t *Timeline) confirmedLocked(fp uint64) bool {
	for id, e := range t.entries {
		if !id.IsPlaceholder() && e.msg.Fingerprint() == fp {
			return true
		}
	}
	return false
}

// Reset empties the timeline.
func (t *Timeline) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	clear(t.entries)
	clear(t.placeholders)
	t.nextSeq = 0
}

// Len returns the number of entries.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Contains reports whether a message with id is present.
func (t *Timeline) Contains(id core.MessageID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[id]
	return ok
}

// Snapshot returns the messages ordered by creation time, ties in insertion order.
func (t *Timeline) Snapshot() []core.Message {
	t.mu.RLock()
	ordered := make([]entry, 0, len(t.entries))
	for _, e := range t.entries {
		ordered = append(ordered, *e)
	}
	t.mu.RUnlock()

	slices.SortFunc(ordered, func(a, b entry) int {
		if c := a.msg.CreatedAt.Compare(b.msg.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	out := make([]core.Message, len(ordered))
	for i, e := range ordered {
		out[i] = e.msg
	}
	return out
}

// Messages yields the ordered messages. Each iteration takes a fresh snapshot.
func (t *Timeline) Messages() iter.Seq[core.Message] {
	return func(yield func(core.Message) bool) {
		for _, msg := range t.Snapshot() {
			if !yield(msg) {
				return
			}
		}
	}
}
