package store

import (
	"sort"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// ReminderEntry is one pending (note, fire time) pair. A note may
// accumulate several entries: each edit that extracts a time appends a
// new one, and older entries are not superseded. The entry id exists
// only so removal can be exact and idempotent; reconciliation after a
// delete never uses it.
type ReminderEntry struct {
	ID     string
	NoteID int
	FireAt time.Time
}

// ReminderLedger is one user's pending reminders. Like NoteStore it is
// unsynchronized and guarded by the owning UserState's mutex.
type ReminderLedger struct {
	entries []ReminderEntry
}

// NewReminderLedger creates an empty ledger.
func NewReminderLedger() *ReminderLedger {
	return &ReminderLedger{}
}

// Schedule appends a pending reminder. The same note may hold several
// pending entries, including at the same instant.
func (l *ReminderLedger) Schedule(noteID int, fireAt time.Time) ReminderEntry {
	e := ReminderEntry{
		ID:     shortuuid.New(),
		NoteID: noteID,
		FireAt: fireAt,
	}
	l.entries = append(l.entries, e)
	return e
}

// Due returns the entries whose fire time has passed. Read-only peek; it
// does not mutate the ledger.
func (l *ReminderLedger) Due(now time.Time) []ReminderEntry {
	var due []ReminderEntry
	for _, e := range l.entries {
		if !e.FireAt.After(now) {
			due = append(due, e)
		}
	}
	return due
}

// Remove removes one exact entry. Removing an entry that is already gone
// is a no-op.
func (l *ReminderLedger) Remove(entryID string) {
	for i, e := range l.entries {
		if e.ID == entryID {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

// Len returns the number of pending entries.
func (l *ReminderLedger) Len() int {
	return len(l.entries)
}

// Entries returns a copy of all pending entries.
func (l *ReminderLedger) Entries() []ReminderEntry {
	out := make([]ReminderEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// ReconcileAfterDelete keeps the ledger consistent with a renumbered
// note store: entries for the deleted note are dropped, every other
// entry is rewritten to the new id of the same underlying text, and
// entries whose text can no longer be found are dropped silently.
func (l *ReminderLedger) ReconcileAfterDelete(deletedID int, old, renumbered map[int]string) {
	kept := l.entries[:0]
	for _, e := range l.entries {
		if e.NoteID == deletedID {
			continue
		}
		newID, ok := remapByText(e.NoteID, old, renumbered)
		if !ok {
			continue
		}
		e.NoteID = newID
		kept = append(kept, e)
	}
	l.entries = kept
}

// remapByText finds the post-delete id of the note an old id referred
// to, by text equality. When several surviving notes share the text, the
// smallest new id wins, which keeps the remap deterministic.
func remapByText(oldID int, old, renumbered map[int]string) (int, bool) {
	text, ok := old[oldID]
	if !ok {
		return 0, false
	}

	ids := make([]int, 0, len(renumbered))
	for id := range renumbered {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		if renumbered[id] == text {
			return id, true
		}
	}
	return 0, false
}
