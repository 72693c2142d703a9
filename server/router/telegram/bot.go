// Package telegram is the bot's conversational surface: it polls for
// updates, routes menu presses and next-step replies, and renders every
// outgoing message.
package telegram

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	noteservice "github.com/forestowl/notekeeper/server/service/note"
	"github.com/forestowl/notekeeper/store"
)

// sender is the slice of the Telegram client the bot needs. Tests
// substitute a recorder.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Analyzer is the AI boundary consumed by the analysis flow.
type Analyzer interface {
	Analyze(ctx context.Context, chatID int64, ids []int) (string, error)
}

// stepFn consumes the next message from a chat that is mid-flow.
type stepFn func(ctx context.Context, msg *tgbotapi.Message)

// Bot routes Telegram updates to the note, analysis and statistics
// flows.
type Bot struct {
	client   *tgbotapi.BotAPI // nil under test
	api      sender
	registry *store.Store
	notes    *noteservice.Service
	analyzer Analyzer
	limiter  *rate.Limiter
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	pending map[int64]stepFn
}

// New connects to the Telegram API with the given token.
func New(token string, registry *store.Store, notes *noteservice.Service, analyzer Analyzer, logger *slog.Logger) (*Bot, error) {
	client, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	b := newBot(client, registry, notes, analyzer, logger)
	b.client = client
	return b, nil
}

func newBot(api sender, registry *store.Store, notes *noteservice.Service, analyzer Analyzer, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		api:      api,
		registry: registry,
		notes:    notes,
		analyzer: analyzer,
		// Telegram caps bots around 30 messages per second overall.
		limiter: rate.NewLimiter(rate.Limit(25), 5),
		logger:  logger,
		now:     time.Now,
		pending: make(map[int64]stepFn),
	}
}

// Run polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.client.GetUpdatesChan(cfg)

	b.logger.Info("telegram bot started", "username", b.client.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.client.StopReceivingUpdates()
			b.logger.Info("telegram bot stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.dispatch(ctx, update.Message)
		}
	}
}

// Send delivers a plain message; the reminder runner uses this.
func (b *Bot) Send(ctx context.Context, chatID int64, message string) error {
	return b.send(ctx, tgbotapi.NewMessage(chatID, message))
}

func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := b.api.Send(c)
	return err
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.send(ctx, tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) replyMarkdown(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if err := b.send(ctx, msg); err != nil {
		b.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) replyKeyboard(ctx context.Context, chatID int64, text string, markup tgbotapi.ReplyKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if err := b.send(ctx, msg); err != nil {
		b.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sendMainMenu(ctx context.Context, chatID int64) {
	b.replyKeyboard(ctx, chatID, "Выберите действие:", mainMenuKeyboard())
}

// setPending registers the handler for the chat's next message.
func (b *Bot) setPending(chatID int64, fn stepFn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[chatID] = fn
}

// takePending removes and returns the chat's pending handler.
func (b *Bot) takePending(chatID int64) (stepFn, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn, ok := b.pending[chatID]
	if ok {
		delete(b.pending, chatID)
	}
	return fn, ok
}

func (b *Bot) clearPending(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, chatID)
}

// currentPage returns the chat's edit page, or false when no edit
// session is active.
func (b *Bot) currentPage(chatID int64) (int, bool) {
	u := b.registry.Get(chatID)
	u.Mu.Lock()
	defer u.Mu.Unlock()
	if u.CurrentPage < 0 {
		return 0, false
	}
	return u.CurrentPage, true
}

func (b *Bot) setCurrentPage(chatID int64, page int) {
	u := b.registry.Get(chatID)
	u.Mu.Lock()
	defer u.Mu.Unlock()
	u.CurrentPage = page
}

func (b *Bot) clearCurrentPage(chatID int64) {
	b.setCurrentPage(chatID, -1)
}
