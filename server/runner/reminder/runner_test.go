package reminder

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	noteservice "github.com/forestowl/notekeeper/server/service/note"
	"github.com/forestowl/notekeeper/store"
)

var runnerNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type sentMessage struct {
	ChatID  int64
	Message string
}

// MockNotifier records deliveries and can simulate transport failures.
type MockNotifier struct {
	mu       sync.Mutex
	sent     []sentMessage
	failNext bool
}

func (m *MockNotifier) Send(ctx context.Context, chatID int64, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return assert.AnError
	}
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Message: message})
	return nil
}

func (m *MockNotifier) Sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

func addNoteWithReminder(t *testing.T, u *store.UserState, text string, fireAt time.Time) {
	t.Helper()
	u.Mu.Lock()
	defer u.Mu.Unlock()
	id, err := u.Notes.Add(text)
	require.NoError(t, err)
	u.Reminders.Schedule(id, fireAt)
}

func TestRunOnceDeliversDue(t *testing.T) {
	registry := store.New()
	notifier := &MockNotifier{}
	r := NewRunner(registry, notifier, time.Minute)
	r.now = func() time.Time { return runnerNow }

	addNoteWithReminder(t, registry.Get(1), "позвонить маме", runnerNow.Add(-time.Minute))
	addNoteWithReminder(t, registry.Get(2), "встреча", runnerNow.Add(time.Hour))

	sent := r.RunOnce(context.Background())
	assert.Equal(t, 1, sent)

	deliveries := notifier.Sent()
	require.Len(t, deliveries, 1)
	assert.Equal(t, int64(1), deliveries[0].ChatID)
	assert.Equal(t, "Напоминание: позвонить маме", deliveries[0].Message)

	// The future reminder is still pending.
	u := registry.Get(2)
	u.Mu.Lock()
	assert.Equal(t, 1, u.Reminders.Len())
	u.Mu.Unlock()
}

func TestRunOnceAtMostOnce(t *testing.T) {
	registry := store.New()
	notifier := &MockNotifier{failNext: true}
	r := NewRunner(registry, notifier, time.Minute)
	r.now = func() time.Time { return runnerNow }

	addNoteWithReminder(t, registry.Get(5), "оплатить счёт", runnerNow.Add(-time.Second))

	// The send fails, but the entry is already out of the ledger.
	sent := r.RunOnce(context.Background())
	assert.Equal(t, 0, sent)

	sent = r.RunOnce(context.Background())
	assert.Equal(t, 0, sent)
	assert.Empty(t, notifier.Sent())

	u := registry.Get(5)
	u.Mu.Lock()
	assert.Equal(t, 0, u.Reminders.Len())
	u.Mu.Unlock()
}

func TestRunOnceSkipsStaleEntries(t *testing.T) {
	registry := store.New()
	notifier := &MockNotifier{}
	r := NewRunner(registry, notifier, time.Minute)
	r.now = func() time.Time { return runnerNow }

	u := registry.Get(9)
	u.Mu.Lock()
	// Entry pointing at a note id that no longer exists.
	u.Reminders.Schedule(42, runnerNow.Add(-time.Minute))
	u.Mu.Unlock()

	sent := r.RunOnce(context.Background())
	assert.Equal(t, 0, sent)
	assert.Empty(t, notifier.Sent())

	u.Mu.Lock()
	assert.Equal(t, 0, u.Reminders.Len())
	u.Mu.Unlock()
}

func TestRunOnceConcurrentWithEditsDeliversWholeTexts(t *testing.T) {
	registry := store.New()
	notifier := &MockNotifier{}
	r := NewRunner(registry, notifier, time.Minute)
	r.now = func() time.Time { return runnerNow }

	svc := noteservice.NewService(registry, nil)

	const n = 16
	u := registry.Get(1)
	u.Mu.Lock()
	for i := 1; i <= n; i++ {
		_, err := u.Notes.Add(fmt.Sprintf("запись %d редакция 0", i))
		require.NoError(t, err)
		u.Reminders.Schedule(i, runnerNow.Add(-time.Minute))
	}
	u.Mu.Unlock()

	// Rewrite every note several times while the sweep drains the same
	// user's ledger. The user mutex must keep each delivered text a
	// fully applied revision, never a torn mix.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for rev := 1; rev <= 3; rev++ {
			for id := 1; id <= n; id++ {
				if _, err := svc.Edit(1, id, fmt.Sprintf("запись %d редакция %d", id, rev)); err != nil {
					t.Error(err)
					return
				}
			}
		}
	}()

	sent := r.RunOnce(context.Background())
	<-done

	assert.Equal(t, n, sent)

	wholeText := regexp.MustCompile(`^Напоминание: запись \d+ редакция \d$`)
	deliveries := notifier.Sent()
	require.Len(t, deliveries, n)
	for _, d := range deliveries {
		assert.Regexp(t, wholeText, d.Message)
	}

	u.Mu.Lock()
	assert.Equal(t, 0, u.Reminders.Len())
	u.Mu.Unlock()
}

func TestRunnerStartStop(t *testing.T) {
	registry := store.New()
	notifier := &MockNotifier{}
	r := NewRunner(registry, notifier, 10*time.Millisecond)
	r.now = func() time.Time { return runnerNow }

	addNoteWithReminder(t, registry.Get(3), "выпить воды", runnerNow.Add(-time.Minute))

	processedCh := r.EnableTestMode()

	require.NoError(t, r.Start(context.Background()))
	assert.True(t, r.IsRunning())

	// Starting again is a no-op.
	require.NoError(t, r.Start(context.Background()))

	select {
	case processed := <-processedCh:
		assert.Equal(t, 1, processed)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sweep cycle")
	}

	r.Stop()
	assert.False(t, r.IsRunning())

	// Stopping again is a no-op.
	r.Stop()

	deliveries := notifier.Sent()
	require.Len(t, deliveries, 1)
	assert.Equal(t, "Напоминание: выпить воды", deliveries[0].Message)
}

func TestRunnerContextCancel(t *testing.T) {
	registry := store.New()
	r := NewRunner(registry, &MockNotifier{}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx))
	cancel()

	// The loop exits on its own; Stop must still return promptly.
	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}
