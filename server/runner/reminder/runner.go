// Package reminder runs the background sweep that delivers due
// reminders to their users.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/forestowl/notekeeper/store"
)

// Notifier delivers a reminder message to a chat. The Telegram router
// implements it; tests substitute a mock.
type Notifier interface {
	Send(ctx context.Context, chatID int64, message string) error
}

// Runner periodically scans every user ledger and fires due reminders.
type Runner struct {
	registry      *store.Store
	notifier      Notifier
	interval      time.Duration
	running       bool
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	logger        *slog.Logger
	now           func() time.Time
	processedChan chan int // For testing: reports processed count
}

// NewRunner creates a sweep runner. A non-positive interval falls back
// to 30 seconds.
func NewRunner(registry *store.Store, notifier Notifier, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Runner{
		registry: registry,
		notifier: notifier,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   slog.Default(),
		now:      time.Now,
	}
}

// Start begins the sweep loop.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx)

	r.logger.Info("reminder runner started", "interval", r.interval)
	return nil
}

// Stop gracefully stops the runner.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("reminder runner stopped")
}

// IsRunning returns whether the runner is active.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// SetLogger sets a custom logger.
func (r *Runner) SetLogger(logger *slog.Logger) {
	r.logger = logger
}

// EnableTestMode enables test mode with a channel for processed counts.
func (r *Runner) EnableTestMode() <-chan int {
	r.processedChan = make(chan int, 100)
	return r.processedChan
}

// run is the main sweep loop.
func (r *Runner) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Sweep immediately on start
	r.sweepCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reminder runner context cancelled")
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.sweepCycle(ctx)
		}
	}
}

func (r *Runner) sweepCycle(ctx context.Context) {
	processed := r.RunOnce(ctx)

	if processed > 0 {
		r.logger.Info("delivered due reminders", "count", processed)
	}

	if r.processedChan != nil {
		select {
		case r.processedChan <- processed:
		default:
			// Don't block if channel is full
		}
	}
}

// delivery is a due reminder detached from its ledger, ready to send.
type delivery struct {
	chatID  int64
	message string
}

// RunOnce sweeps every user once and returns the number of reminders
// delivered. An entry is removed from the ledger before its message is
// sent, so delivery is at most once: a failed send is logged and the
// reminder is not requeued.
func (r *Runner) RunOnce(ctx context.Context) int {
	now := r.now()

	var deliveries []delivery
	r.registry.ForEach(func(u *store.UserState) {
		u.Mu.Lock()
		for _, entry := range u.Reminders.Due(now) {
			text, ok := u.Notes.Get(entry.NoteID)
			u.Reminders.Remove(entry.ID)
			if !ok {
				// Stale entry pointing at a vanished note.
				continue
			}
			deliveries = append(deliveries, delivery{
				chatID:  u.ChatID,
				message: fmt.Sprintf("Напоминание: %s", text),
			})
		}
		u.Mu.Unlock()
	})

	// Send outside user locks so a slow transport never blocks handlers.
	sent := 0
	for _, d := range deliveries {
		select {
		case <-ctx.Done():
			return sent
		default:
		}

		if err := r.notifier.Send(ctx, d.chatID, d.message); err != nil {
			r.logger.Error("failed to deliver reminder",
				"chat_id", d.chatID,
				"error", err,
			)
			continue
		}
		sent++
	}
	return sent
}
