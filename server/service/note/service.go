// Package note orchestrates note operations over the per-user state:
// insert and edit with opportunistic reminder scheduling, delete with
// renumbering and ledger reconciliation, listing, search and export.
package note

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	apperr "github.com/forestowl/notekeeper/internal/errors"
	"github.com/forestowl/notekeeper/plugin/timeparse"
	"github.com/forestowl/notekeeper/store"
)

// Service carries note operations for all conversations.
type Service struct {
	registry *store.Store
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a note service over the given registry.
func NewService(registry *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// AddResult reports the outcome of an Add: the assigned id and, when a
// time expression resolved to a future instant, the scheduled fire time.
type AddResult struct {
	ID       int
	RemindAt *time.Time
}

// Add inserts a note, counts the creation, and schedules a reminder when
// the text carries a future time expression.
func (s *Service) Add(chatID int64, text string) (AddResult, error) {
	u := s.registry.Get(chatID)
	u.Mu.Lock()
	defer u.Mu.Unlock()

	id, err := u.Notes.Add(text)
	if err != nil {
		return AddResult{}, err
	}
	now := s.now()
	u.Stats.RecordCreated(now)

	remindAt := s.scheduleIfFuture(u, id, text, now)
	s.logger.Info("note added",
		"chat_id", chatID,
		"note_id", id,
		"has_reminder", remindAt != nil,
	)
	return AddResult{ID: id, RemindAt: remindAt}, nil
}

// Edit replaces a note's text in place. A time expression in the new
// text appends a fresh reminder; earlier reminders for the note are not
// superseded.
func (s *Service) Edit(chatID int64, id int, text string) (*time.Time, error) {
	u := s.registry.Get(chatID)
	u.Mu.Lock()
	defer u.Mu.Unlock()

	if err := u.Notes.Edit(id, text); err != nil {
		return nil, err
	}

	remindAt := s.scheduleIfFuture(u, id, text, s.now())
	s.logger.Info("note edited",
		"chat_id", chatID,
		"note_id", id,
		"has_reminder", remindAt != nil,
	)
	return remindAt, nil
}

// scheduleIfFuture extracts a time expression from text and appends a
// ledger entry when the resolved instant is still ahead. Caller holds
// the user's lock.
func (s *Service) scheduleIfFuture(u *store.UserState, noteID int, text string, now time.Time) *time.Time {
	fireAt, ok := timeparse.Extract(text, now)
	if !ok || !fireAt.After(now) {
		return nil
	}
	u.Reminders.Schedule(noteID, fireAt)
	return &fireAt
}

// Delete removes a note, counts the deletion, renumbers the survivors
// and reconciles the reminder ledger against the new numbering.
func (s *Service) Delete(chatID int64, id int) error {
	u := s.registry.Get(chatID)
	u.Mu.Lock()
	defer u.Mu.Unlock()

	old, renumbered, err := u.Notes.Delete(id)
	if err != nil {
		return err
	}
	u.Stats.RecordDeleted(s.now())
	u.Reminders.ReconcileAfterDelete(id, old, renumbered)

	s.logger.Info("note deleted",
		"chat_id", chatID,
		"note_id", id,
		"remaining", u.Notes.Count(),
	)
	return nil
}

// List returns all of a user's notes in ascending id order.
func (s *Service) List(chatID int64) []store.Note {
	u := s.registry.Get(chatID)
	u.Mu.Lock()
	defer u.Mu.Unlock()
	return u.Notes.List()
}

// Search returns the user's notes matching the query, occurrences
// wrapped in emphasis markers, ascending by id.
func (s *Service) Search(chatID int64, query string) ([]store.Note, error) {
	u := s.registry.Get(chatID)
	u.Mu.Lock()
	defer u.Mu.Unlock()

	found, err := u.Notes.Search(query)
	if err != nil {
		return nil, err
	}

	notes := make([]store.Note, 0, len(found))
	for id, text := range found {
		notes = append(notes, store.Note{ID: id, Text: text})
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
	return notes, nil
}

// ExportFile is one note rendered as a downloadable attachment. Files
// are built in memory and never touch the filesystem.
type ExportFile struct {
	Name string
	Data []byte
}

// Export renders the selected notes as one UTF-8 text file per note,
// named by note id. Ids that do not exist are skipped; a selection with
// no surviving ids is a correctable user error.
func (s *Service) Export(chatID int64, ids []int) ([]ExportFile, error) {
	u := s.registry.Get(chatID)
	u.Mu.Lock()
	defer u.Mu.Unlock()

	var files []ExportFile
	for _, id := range ids {
		text, ok := u.Notes.Get(id)
		if !ok {
			continue
		}
		files = append(files, ExportFile{
			Name: fmt.Sprintf("note_%d.txt", id),
			Data: []byte(text),
		})
	}

	if len(files) == 0 {
		return nil, apperr.InvalidSelection("no valid note ids in selection")
	}
	return files, nil
}

// Count returns how many notes a user has.
func (s *Service) Count(chatID int64) int {
	u := s.registry.Get(chatID)
	u.Mu.Lock()
	defer u.Mu.Unlock()
	return u.Notes.Count()
}

// ParseIDList parses a comma-separated id selection such as "1, 3,5".
func ParseIDList(input string) ([]int, error) {
	parts := strings.Split(input, ",")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, apperr.InvalidSelection("id list must be comma-separated integers")
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, apperr.InvalidSelection("empty id list")
	}
	return ids, nil
}
