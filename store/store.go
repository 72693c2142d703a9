// Package store owns all per-conversation state for the process
// lifetime: notes, pending reminders and activity counters. Nothing is
// persisted; a restart starts every conversation from scratch.
package store

import (
	"sort"
	"sync"
)

// UserState bundles one conversation's notes, reminders and counters.
//
// Mu guards every read and mutation of the bundle. The request-handling
// flow and the reminder sweeper both take it, so an add or delete can
// never interleave with a sweep delivery for the same user.
type UserState struct {
	ChatID int64
	Mu     sync.Mutex

	Notes     *NoteStore
	Reminders *ReminderLedger
	Stats     *ActivityCounters

	// CurrentPage is the page shown in the note-selection keyboard,
	// or -1 when no selection context is active.
	CurrentPage int
}

// Store is the registry of per-conversation state. User state is created
// lazily on first access and never explicitly destroyed.
type Store struct {
	mu    sync.RWMutex
	users map[int64]*UserState
}

// New creates an empty registry.
func New() *Store {
	return &Store{
		users: make(map[int64]*UserState),
	}
}

// Get returns the state bundle for a conversation, creating it on first
// reference.
func (s *Store) Get(chatID int64) *UserState {
	s.mu.RLock()
	u, ok := s.users[chatID]
	s.mu.RUnlock()
	if ok {
		return u
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[chatID]; ok {
		return u
	}
	u = &UserState{
		ChatID:      chatID,
		Notes:       NewNoteStore(),
		Reminders:   NewReminderLedger(),
		Stats:       NewActivityCounters(),
		CurrentPage: -1,
	}
	s.users[chatID] = u
	return u
}

// ForEach calls fn for every known user, in ascending chat id order.
// The snapshot of users is taken up front, so state created during the
// iteration is simply not visited this round.
func (s *Store) ForEach(fn func(u *UserState)) {
	s.mu.RLock()
	users := make([]*UserState, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].ChatID < users[j].ChatID })
	for _, u := range users {
		fn(u)
	}
}

// Len returns the number of known conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
