package store

import (
	"sort"
	"strings"

	apperr "github.com/forestowl/notekeeper/internal/errors"
)

// Note is a user-authored text entry. The id is the user-facing
// selection key: unique within one NoteStore, dense and 1-based, but not
// a permanent identity. It is reassigned whenever a note with a smaller
// or equal id is deleted, so callers must not cache ids across a delete.
type Note struct {
	ID   int
	Text string
}

// NoteStore is one user's ordered note collection. It is not
// synchronized; the owning UserState's mutex guards it.
type NoteStore struct {
	notes map[int]string
}

// NewNoteStore creates an empty note store.
func NewNoteStore() *NoteStore {
	return &NoteStore{
		notes: make(map[int]string),
	}
}

// Add inserts a note and returns its assigned id.
func (s *NoteStore) Add(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, apperr.EmptyInput("note text is empty")
	}

	id := len(s.notes) + 1
	s.notes[id] = text
	return id, nil
}

// Edit replaces a note's text in place; the id is unchanged.
func (s *NoteStore) Edit(id int, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperr.EmptyInput("note text is empty")
	}
	if _, ok := s.notes[id]; !ok {
		return apperr.NotFound(id)
	}

	s.notes[id] = text
	return nil
}

// Delete removes a note and renumbers the survivors so that ids stay
// dense and 1-based. It returns the pre-delete and post-delete id→text
// mappings for reminder reconciliation.
func (s *NoteStore) Delete(id int) (old, renumbered map[int]string, err error) {
	if _, ok := s.notes[id]; !ok {
		return nil, nil, apperr.NotFound(id)
	}

	old = make(map[int]string, len(s.notes))
	for k, v := range s.notes {
		old[k] = v
	}

	s.notes = Renumber(old, id)

	renumbered = make(map[int]string, len(s.notes))
	for k, v := range s.notes {
		renumbered[k] = v
	}
	return old, renumbered, nil
}

// Renumber is the pure renumbering function: every note surviving the
// deletion of deletedID is reassigned its 1-based rank among the sorted
// surviving old ids.
func Renumber(old map[int]string, deletedID int) map[int]string {
	survivors := make([]int, 0, len(old))
	for id := range old {
		if id != deletedID {
			survivors = append(survivors, id)
		}
	}
	sort.Ints(survivors)

	renumbered := make(map[int]string, len(survivors))
	for rank, oldID := range survivors {
		renumbered[rank+1] = old[oldID]
	}
	return renumbered
}

// Get returns a note's text.
func (s *NoteStore) Get(id int) (string, bool) {
	text, ok := s.notes[id]
	return text, ok
}

// Count returns the number of notes.
func (s *NoteStore) Count() int {
	return len(s.notes)
}

// List returns all notes in ascending id order. An empty store yields an
// empty slice, not an error.
func (s *NoteStore) List() []Note {
	notes := make([]Note, 0, len(s.notes))
	for id, text := range s.notes {
		notes = append(notes, Note{ID: id, Text: text})
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
	return notes
}

// Search returns the notes containing query (case-insensitive), with
// every occurrence wrapped in Markdown emphasis markers. No matches is
// an empty result, not an error.
func (s *NoteStore) Search(query string) (map[int]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.EmptyQuery()
	}

	found := make(map[int]string)
	for id, text := range s.notes {
		if highlighted, ok := emphasizeMatches(text, query); ok {
			found[id] = highlighted
		}
	}
	return found, nil
}

// emphasizeMatches wraps every case-insensitive occurrence of query in
// '*' markers, preserving the original casing of the matched fragment.
// Matching slides a rune window so that multi-byte text and its
// lower-cased form cannot drift out of alignment.
func emphasizeMatches(text, query string) (string, bool) {
	textRunes := []rune(text)
	queryRunes := []rune(strings.ToLower(query))
	queryLen := len(queryRunes)
	if queryLen == 0 || queryLen > len(textRunes) {
		return "", false
	}

	var b strings.Builder
	matched := false
	for i := 0; i < len(textRunes); {
		if i+queryLen <= len(textRunes) {
			window := strings.ToLower(string(textRunes[i : i+queryLen]))
			if window == string(queryRunes) {
				b.WriteByte('*')
				b.WriteString(string(textRunes[i : i+queryLen]))
				b.WriteByte('*')
				i += queryLen
				matched = true
				continue
			}
		}
		b.WriteRune(textRunes[i])
		i++
	}

	if !matched {
		return "", false
	}
	return b.String(), true
}
