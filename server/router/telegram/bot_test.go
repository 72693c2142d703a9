package telegram

import (
	"context"
	"fmt"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/forestowl/notekeeper/internal/errors"
	noteservice "github.com/forestowl/notekeeper/server/service/note"
	"github.com/forestowl/notekeeper/store"
)

// recorder captures outgoing chattables instead of hitting Telegram.
type recorder struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (r *recorder) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, c)
	return tgbotapi.Message{}, nil
}

// texts returns the plain message bodies sent so far.
func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

type stubAnalyzer struct {
	result string
	err    error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, chatID int64, ids []int) (string, error) {
	return s.result, s.err
}

func newTestBot(analyzer Analyzer) (*Bot, *recorder, *store.Store) {
	rec := &recorder{}
	registry := store.New()
	notes := noteservice.NewService(registry, nil)
	if analyzer == nil {
		analyzer = &stubAnalyzer{result: "анализ готов"}
	}
	return newBot(rec, registry, notes, analyzer, nil), rec, registry
}

func userMessage(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
	}
}

func startCommand(chatID int64) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: "/start",
		Chat: &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: 6},
		},
	}
}

func TestStartShowsMenu(t *testing.T) {
	b, rec, _ := newTestBot(nil)

	b.dispatch(context.Background(), startCommand(1))

	texts := rec.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "Выберите действие:", texts[0])
}

func TestUnknownMessageFallsBackToMenu(t *testing.T) {
	b, rec, _ := newTestBot(nil)

	b.dispatch(context.Background(), userMessage(1, "привет"))

	texts := rec.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "Я не понял ваше сообщение. Вот меню:", texts[0])
	assert.Equal(t, "Выберите действие:", texts[1])
}

func TestAddNoteFlow(t *testing.T) {
	b, rec, _ := newTestBot(nil)
	ctx := context.Background()

	b.dispatch(ctx, userMessage(1, btnAddNote))
	assert.Contains(t, rec.texts(), "Введите текст заметки (можно с временем).")

	rec.reset()
	b.dispatch(ctx, userMessage(1, "купить хлеб"))

	texts := rec.texts()
	require.NotEmpty(t, texts)
	assert.Equal(t, "Заметка добавлена без напоминания.", texts[0])
	assert.Equal(t, 1, b.notes.Count(1))
}

func TestAddNoteWithReminderReportsTime(t *testing.T) {
	b, rec, _ := newTestBot(nil)
	ctx := context.Background()

	b.dispatch(ctx, userMessage(1, btnAddNote))
	rec.reset()
	b.dispatch(ctx, userMessage(1, "позвонить маме завтра в 10"))

	texts := rec.texts()
	require.NotEmpty(t, texts)
	assert.Contains(t, texts[0], "Заметка добавлена с напоминанием на ")
}

func TestAddEmptyNoteRejected(t *testing.T) {
	b, rec, _ := newTestBot(nil)
	ctx := context.Background()

	b.dispatch(ctx, userMessage(1, btnAddNote))
	rec.reset()
	b.dispatch(ctx, userMessage(1, "   "))

	texts := rec.texts()
	require.NotEmpty(t, texts)
	assert.Equal(t, "Текст заметки не может быть пустым.", texts[0])
	assert.Equal(t, 0, b.notes.Count(1))
}

func TestDeleteNoteFlow(t *testing.T) {
	b, rec, _ := newTestBot(nil)
	ctx := context.Background()

	for _, text := range []string{"первая", "вторая"} {
		_, err := b.notes.Add(1, text)
		require.NoError(t, err)
	}

	b.dispatch(ctx, userMessage(1, btnDeleteNote))
	assert.Contains(t, rec.texts(), "Введите номер заметки для удаления:")

	rec.reset()
	b.dispatch(ctx, userMessage(1, "1"))

	texts := rec.texts()
	require.NotEmpty(t, texts)
	assert.Equal(t, "Заметка 1 удалена.", texts[0])
	assert.Equal(t, 1, b.notes.Count(1))

	// Survivor renumbered to id 1.
	list := b.notes.List(1)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].ID)
	assert.Equal(t, "вторая", list[0].Text)
}

func TestDeleteInvalidNumber(t *testing.T) {
	b, rec, _ := newTestBot(nil)
	ctx := context.Background()

	_, err := b.notes.Add(1, "одна")
	require.NoError(t, err)

	b.dispatch(ctx, userMessage(1, btnDeleteNote))
	rec.reset()
	b.dispatch(ctx, userMessage(1, "не число"))

	texts := rec.texts()
	require.NotEmpty(t, texts)
	assert.Equal(t, "Пожалуйста, укажите корректный номер заметки.", texts[0])
}

func TestListNotesEmpty(t *testing.T) {
	b, rec, _ := newTestBot(nil)

	b.dispatch(context.Background(), userMessage(1, btnListNotes))

	texts := rec.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "У вас пока нет заметок.", texts[0])
}

func TestEditPaginationFlow(t *testing.T) {
	b, rec, registry := newTestBot(nil)
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		_, err := b.notes.Add(1, fmt.Sprintf("заметка номер %d", i))
		require.NoError(t, err)
	}

	b.dispatch(ctx, userMessage(1, btnEditNote))
	assert.Contains(t, rec.texts(), "Выберите заметку для редактирования (Страница 1/2):")

	page, active := b.currentPage(1)
	assert.True(t, active)
	assert.Equal(t, 0, page)

	rec.reset()
	b.dispatch(ctx, userMessage(1, btnPageNext))
	assert.Contains(t, rec.texts(), "Выберите заметку для редактирования (Страница 2/2):")

	// Select note 5 from the second page.
	rec.reset()
	b.dispatch(ctx, userMessage(1, " 5: заметка номер 5"))
	texts := rec.texts()
	require.NotEmpty(t, texts)
	assert.Contains(t, texts[0], "Текущий текст заметки #5:")
	assert.Contains(t, texts[0], "заметка номер 5")

	// Page session ends once a note is chosen.
	_, active = b.currentPage(1)
	assert.False(t, active)

	rec.reset()
	b.dispatch(ctx, userMessage(1, "обновлённый текст"))
	texts = rec.texts()
	require.NotEmpty(t, texts)
	assert.Equal(t, "Заметка 5 успешно обновлена.", texts[0])

	u := registry.Get(1)
	u.Mu.Lock()
	text, ok := u.Notes.Get(5)
	u.Mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, "обновлённый текст", text)
}

func TestPageNavWithoutSessionFallsBackToMenu(t *testing.T) {
	b, rec, _ := newTestBot(nil)
	ctx := context.Background()

	_, err := b.notes.Add(1, "одна")
	require.NoError(t, err)

	// Navigation labels outside an edit session must not open a page.
	for _, label := range []string{btnPagePrev, btnPageNext} {
		rec.reset()
		b.dispatch(ctx, userMessage(1, label))

		texts := rec.texts()
		require.Len(t, texts, 2)
		assert.Equal(t, "Я не понял ваше сообщение. Вот меню:", texts[0])
		assert.Equal(t, "Выберите действие:", texts[1])

		_, active := b.currentPage(1)
		assert.False(t, active)
	}
}

func TestEditCancelReturnsToMenu(t *testing.T) {
	b, rec, _ := newTestBot(nil)
	ctx := context.Background()

	_, err := b.notes.Add(1, "одна")
	require.NoError(t, err)

	b.dispatch(ctx, userMessage(1, btnEditNote))
	rec.reset()
	b.dispatch(ctx, userMessage(1, btnPageCancel))

	texts := rec.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "Выберите действие:", texts[0])

	_, active := b.currentPage(1)
	assert.False(t, active)
}

func TestSearchFlow(t *testing.T) {
	b, rec, _ := newTestBot(nil)
	ctx := context.Background()

	_, err := b.notes.Add(1, "Купить хлеб")
	require.NoError(t, err)

	b.dispatch(ctx, userMessage(1, btnSearch))
	rec.reset()
	b.dispatch(ctx, userMessage(1, "хлеб"))

	texts := rec.texts()
	require.NotEmpty(t, texts)
	assert.Contains(t, texts[0], "🔍 Найдены заметки:")
	assert.Contains(t, texts[0], "*хлеб*")
}

func TestSearchNoResults(t *testing.T) {
	b, rec, _ := newTestBot(nil)
	ctx := context.Background()

	_, err := b.notes.Add(1, "хлеб")
	require.NoError(t, err)

	b.dispatch(ctx, userMessage(1, btnSearch))
	rec.reset()
	b.dispatch(ctx, userMessage(1, "Молоко"))

	texts := rec.texts()
	require.NotEmpty(t, texts)
	assert.Equal(t, "Заметки, содержащие 'молоко', не найдены.", texts[0])
}

func TestAnalyzeFlow(t *testing.T) {
	b, rec, _ := newTestBot(&stubAnalyzer{result: "смысл найден"})
	ctx := context.Background()

	for _, text := range []string{"а", "б", "в"} {
		_, err := b.notes.Add(1, text)
		require.NoError(t, err)
	}

	b.dispatch(ctx, userMessage(1, btnAnalyze))
	assert.Contains(t, rec.texts(), "Введите номера заметок через запятую, которые хотите отправить на анализ:")

	rec.reset()
	b.dispatch(ctx, userMessage(1, "1, 2, 3"))

	texts := rec.texts()
	require.NotEmpty(t, texts)
	assert.Equal(t, "Анализ ваших заметок:\n\nсмысл найден", texts[0])
}

func TestAnalyzeErrorMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"unconfigured", apperr.ConfigurationMissing("no creds"), "Ошибка: API-ключ или URL не настроены."},
		{"bad ids", apperr.InvalidSelection("none valid"), "Вы ввели неверные номера заметок. Попробуйте снова."},
		{"too few", apperr.InsufficientInput("need 3"), "Для анализа нужно хотя бы 3 заметки."},
		{"upstream", apperr.UpstreamFailure("boom", nil), "Ошибка анализа. Попробуйте позже."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, rec, _ := newTestBot(&stubAnalyzer{err: tc.err})
			ctx := context.Background()

			_, err := b.notes.Add(1, "заметка")
			require.NoError(t, err)

			b.dispatch(ctx, userMessage(1, btnAnalyze))
			rec.reset()
			b.dispatch(ctx, userMessage(1, "1,2,3"))

			texts := rec.texts()
			require.NotEmpty(t, texts)
			assert.Equal(t, tc.want, texts[0])
		})
	}
}

func TestExportFlow(t *testing.T) {
	b, rec, _ := newTestBot(nil)
	ctx := context.Background()

	_, err := b.notes.Add(1, "содержимое")
	require.NoError(t, err)

	b.dispatch(ctx, userMessage(1, btnExport))
	rec.reset()
	b.dispatch(ctx, userMessage(1, "1"))

	var docs []tgbotapi.DocumentConfig
	rec.mu.Lock()
	for _, c := range rec.sent {
		if doc, ok := c.(tgbotapi.DocumentConfig); ok {
			docs = append(docs, doc)
		}
	}
	rec.mu.Unlock()

	require.Len(t, docs, 1)
	file, ok := docs[0].File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "note_1.txt", file.Name)
	assert.Equal(t, "содержимое", string(file.Bytes))

	assert.Contains(t, rec.texts(), "Экспорт завершён.")
}

func TestStatsChartFlow(t *testing.T) {
	b, rec, _ := newTestBot(nil)
	ctx := context.Background()

	_, err := b.notes.Add(1, "заметка")
	require.NoError(t, err)

	b.dispatch(ctx, userMessage(1, btnStats))
	assert.Contains(t, rec.texts(), "Выберите период для отображения статистики:")

	rec.reset()
	b.dispatch(ctx, userMessage(1, btnStatsWeek))

	var photos []tgbotapi.PhotoConfig
	rec.mu.Lock()
	for _, c := range rec.sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok {
			photos = append(photos, p)
		}
	}
	rec.mu.Unlock()

	require.Len(t, photos, 1)
	assert.Contains(t, photos[0].Caption, "📊 Статистика за 7 дней:")
	assert.Contains(t, photos[0].Caption, "Всего заметок создано: 1")
}

func TestNotifierSend(t *testing.T) {
	b, rec, _ := newTestBot(nil)

	require.NoError(t, b.Send(context.Background(), 42, "Напоминание: тест"))

	texts := rec.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "Напоминание: тест", texts[0])
}
