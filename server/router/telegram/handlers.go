package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apperr "github.com/forestowl/notekeeper/internal/errors"
	"github.com/forestowl/notekeeper/internal/observability"
	"github.com/forestowl/notekeeper/server/chart"
	noteservice "github.com/forestowl/notekeeper/server/service/note"
)

const remindAtFormat = "2006-01-02 15:04:05"

// dispatch routes a single incoming message. A pending next-step
// handler consumes the message first; an active edit page claims
// numeric and navigation input; everything else matches menu labels.
func (b *Bot) dispatch(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	rc := observability.NewRequestContext(b.logger, "dispatch", chatID)
	defer func() {
		rc.Debug("update handled", slog.Int64(observability.LogFieldDuration, rc.DurationMs()))
	}()

	if msg.IsCommand() {
		if msg.Command() == "start" {
			b.clearPending(chatID)
			b.clearCurrentPage(chatID)
			b.sendMainMenu(ctx, chatID)
		}
		return
	}

	if fn, ok := b.takePending(chatID); ok {
		fn(ctx, msg)
		rc.Info("handled next-step reply")
		return
	}

	if _, active := b.currentPage(chatID); active {
		switch {
		case looksLikeSelection(msg.Text),
			msg.Text == btnPagePrev,
			msg.Text == btnPageNext,
			msg.Text == btnPageCancel:
			b.handleEditSelection(ctx, msg)
			return
		}
	}

	switch msg.Text {
	case btnAddNote:
		b.reply(ctx, chatID, "Введите текст заметки (можно с временем).")
		b.setPending(chatID, b.addNoteStep)

	case btnDeleteNote:
		if b.notes.Count(chatID) == 0 {
			b.reply(ctx, chatID, "У вас пока нет заметок.")
			return
		}
		b.reply(ctx, chatID, notesListText(b.notes.List(chatID)))
		b.reply(ctx, chatID, "Введите номер заметки для удаления:")
		b.setPending(chatID, b.deleteNoteStep)

	case btnEditNote:
		if b.notes.Count(chatID) == 0 {
			b.reply(ctx, chatID, "У вас пока нет заметок для редактирования.")
			b.sendMainMenu(ctx, chatID)
			return
		}
		b.showNotesPage(ctx, chatID, 0)

	case btnListNotes:
		if b.notes.Count(chatID) == 0 {
			b.reply(ctx, chatID, "У вас пока нет заметок.")
			return
		}
		b.reply(ctx, chatID, notesListText(b.notes.List(chatID)))

	case btnSearch:
		if b.notes.Count(chatID) == 0 {
			b.reply(ctx, chatID, "У вас пока нет заметок для поиска.")
			return
		}
		b.reply(ctx, chatID, "Введите текст для поиска в заметках:")
		b.setPending(chatID, b.searchStep)

	case btnAnalyze:
		if b.notes.Count(chatID) == 0 {
			b.reply(ctx, chatID, "У вас пока нет заметок для анализа.")
			return
		}
		b.reply(ctx, chatID, notesListText(b.notes.List(chatID)))
		b.reply(ctx, chatID, "Введите номера заметок через запятую, которые хотите отправить на анализ:")
		b.setPending(chatID, b.analyzeStep)

	case btnStats:
		b.replyKeyboard(ctx, chatID, "Выберите период для отображения статистики:", statsMenuKeyboard())

	case btnStatsWeek:
		b.sendStatsChart(ctx, chatID, chart.WindowWeek)

	case btnStatsMonth:
		b.sendStatsChart(ctx, chatID, chart.WindowMonth)

	case btnStatsBack:
		b.sendMainMenu(ctx, chatID)

	case btnExport:
		if b.notes.Count(chatID) == 0 {
			b.reply(ctx, chatID, "У вас пока нет заметок для экспорта.")
			b.sendMainMenu(ctx, chatID)
			return
		}
		b.reply(ctx, chatID, notesListText(b.notes.List(chatID)))
		b.reply(ctx, chatID, "Введите номера заметок через запятую, которые хотите экспортировать:")
		b.setPending(chatID, b.exportStep)

	case btnAbout:
		b.replyMarkdown(ctx, chatID, aboutText)

	default:
		b.reply(ctx, chatID, "Я не понял ваше сообщение. Вот меню:")
		b.sendMainMenu(ctx, chatID)
	}
}

func (b *Bot) addNoteStep(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	res, err := b.notes.Add(chatID, msg.Text)
	switch {
	case apperr.IsCode(err, apperr.ErrCodeEmptyInput):
		b.reply(ctx, chatID, "Текст заметки не может быть пустым.")
	case err != nil:
		b.logger.Error("failed to add note", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, "Произошла ошибка. Попробуйте снова.")
	case res.RemindAt != nil:
		b.reply(ctx, chatID, fmt.Sprintf("Заметка добавлена с напоминанием на %s.", res.RemindAt.Format(remindAtFormat)))
	default:
		b.reply(ctx, chatID, "Заметка добавлена без напоминания.")
	}
	b.sendMainMenu(ctx, chatID)
}

func (b *Bot) deleteNoteStep(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	id, err := strconv.Atoi(strings.TrimSpace(msg.Text))
	if err != nil {
		b.reply(ctx, chatID, "Пожалуйста, укажите корректный номер заметки.")
		b.sendMainMenu(ctx, chatID)
		return
	}

	if err := b.notes.Delete(chatID, id); err != nil {
		b.reply(ctx, chatID, "Такой заметки нет.")
	} else {
		b.reply(ctx, chatID, fmt.Sprintf("Заметка %d удалена.", id))
	}
	b.sendMainMenu(ctx, chatID)
}

// showNotesPage renders one edit page and records it as the chat's
// current page.
func (b *Bot) showNotesPage(ctx context.Context, chatID int64, page int) {
	notes := b.notes.List(chatID)
	total := totalPages(len(notes))
	page = clampPage(page, total)
	b.setCurrentPage(chatID, page)

	b.replyKeyboard(ctx, chatID,
		fmt.Sprintf("Выберите заметку для редактирования (Страница %d/%d):", page+1, total),
		editPageKeyboard(pageSlice(notes, page), page, total),
	)
}

func (b *Bot) handleEditSelection(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	page, active := b.currentPage(chatID)
	if !active {
		page = 0
	}

	switch msg.Text {
	case btnPageCancel:
		b.clearCurrentPage(chatID)
		b.sendMainMenu(ctx, chatID)
		return
	case btnPagePrev:
		b.showNotesPage(ctx, chatID, page-1)
		return
	case btnPageNext:
		b.showNotesPage(ctx, chatID, page+1)
		return
	}

	id, ok := selectionID(msg.Text)
	if !ok {
		b.reply(ctx, chatID, "Пожалуйста, выберите заметку из списка.")
		b.showNotesPage(ctx, chatID, page)
		return
	}

	u := b.registry.Get(chatID)
	u.Mu.Lock()
	current, exists := u.Notes.Get(id)
	u.Mu.Unlock()

	if !exists {
		b.reply(ctx, chatID, "Такой заметки нет.")
		b.showNotesPage(ctx, chatID, page)
		return
	}

	b.clearCurrentPage(chatID)
	b.replyKeyboard(ctx, chatID,
		fmt.Sprintf("Текущий текст заметки #%d:\n\n%s\n\nВведите новый текст для заметки:", id, current),
		cancelEditKeyboard(),
	)
	b.setPending(chatID, func(ctx context.Context, msg *tgbotapi.Message) {
		b.editNoteStep(ctx, msg, id)
	})
}

func (b *Bot) editNoteStep(ctx context.Context, msg *tgbotapi.Message, id int) {
	chatID := msg.Chat.ID

	if msg.Text == btnEditCancel {
		b.sendMainMenu(ctx, chatID)
		return
	}

	remindAt, err := b.notes.Edit(chatID, id, msg.Text)
	switch {
	case apperr.IsCode(err, apperr.ErrCodeEmptyInput):
		b.reply(ctx, chatID, "Текст заметки не может быть пустым.")
	case apperr.IsCode(err, apperr.ErrCodeNotFound):
		b.reply(ctx, chatID, "Такой заметки нет.")
	case err != nil:
		b.logger.Error("failed to edit note", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, "Произошла ошибка. Попробуйте снова.")
	case remindAt != nil:
		b.reply(ctx, chatID, fmt.Sprintf("Заметка %d обновлена с напоминанием на %s.", id, remindAt.Format(remindAtFormat)))
	default:
		b.reply(ctx, chatID, fmt.Sprintf("Заметка %d успешно обновлена.", id))
	}
	b.sendMainMenu(ctx, chatID)
}

func (b *Bot) searchStep(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	found, err := b.notes.Search(chatID, msg.Text)
	switch {
	case apperr.IsCode(err, apperr.ErrCodeEmptyQuery):
		b.reply(ctx, chatID, "Вы ввели пустой запрос.")
	case err != nil:
		b.logger.Error("search failed", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, "Произошла ошибка. Попробуйте снова.")
	case len(found) == 0:
		query := strings.ToLower(strings.TrimSpace(msg.Text))
		b.reply(ctx, chatID, fmt.Sprintf("Заметки, содержащие '%s', не найдены.", query))
	default:
		b.replyMarkdown(ctx, chatID, searchResultText(found))
	}
	b.sendMainMenu(ctx, chatID)
}

func (b *Bot) analyzeStep(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	ids, err := noteservice.ParseIDList(msg.Text)
	if err != nil {
		b.reply(ctx, chatID, "Введите корректные номера заметок через запятую.")
		b.sendMainMenu(ctx, chatID)
		return
	}

	result, err := b.analyzer.Analyze(ctx, chatID, ids)
	if err == nil {
		b.reply(ctx, chatID, "Анализ ваших заметок:\n\n"+result)
		b.sendMainMenu(ctx, chatID)
		return
	}

	switch apperr.GetCodeFromError(err, apperr.ErrCodeUpstreamFailure) {
	case apperr.ErrCodeConfigurationMissing:
		b.reply(ctx, chatID, "Ошибка: API-ключ или URL не настроены.")
	case apperr.ErrCodeInvalidSelection:
		b.reply(ctx, chatID, "Вы ввели неверные номера заметок. Попробуйте снова.")
	case apperr.ErrCodeInsufficientInput:
		b.reply(ctx, chatID, "Для анализа нужно хотя бы 3 заметки.")
	default:
		b.logger.Error("analysis failed", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, "Ошибка анализа. Попробуйте позже.")
	}
	b.sendMainMenu(ctx, chatID)
}

func (b *Bot) exportStep(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	ids, err := noteservice.ParseIDList(msg.Text)
	if err != nil {
		b.reply(ctx, chatID, "Вы ввели некорректные номера заметок. Попробуйте снова.")
		b.sendMainMenu(ctx, chatID)
		return
	}

	files, err := b.notes.Export(chatID, ids)
	if err != nil {
		b.reply(ctx, chatID, "Вы ввели некорректные номера заметок. Попробуйте снова.")
		b.sendMainMenu(ctx, chatID)
		return
	}

	for _, f := range files {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: f.Name, Bytes: f.Data})
		if err := b.send(ctx, doc); err != nil {
			b.logger.Error("failed to send export file", "chat_id", chatID, "file", f.Name, "error", err)
		}
	}
	b.reply(ctx, chatID, "Экспорт завершён.")
	b.sendMainMenu(ctx, chatID)
}

func (b *Bot) sendStatsChart(ctx context.Context, chatID int64, window chart.Window) {
	now := b.now()

	u := b.registry.Get(chatID)
	u.Mu.Lock()
	data, err := chart.Render(u.Stats, window, now)
	created := u.Stats.TotalCreated()
	deleted := u.Stats.TotalDeleted()
	totalAI := u.Stats.TotalAI()
	u.Mu.Unlock()

	if err != nil {
		b.logger.Error("failed to render stats chart", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, "Произошла ошибка. Попробуйте снова.")
		return
	}

	caption := fmt.Sprintf(
		"📊 Статистика за %d дней:\n• Всего заметок создано: %d\n• Всего заметок удалено: %d\n• Всего AI анализов: %d",
		int(window), created, deleted, totalAI,
	)

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "stats.png", Bytes: data})
	photo.Caption = caption
	if err := b.send(ctx, photo); err != nil {
		b.logger.Error("failed to send stats chart", "chat_id", chatID, "error", err)
	}

	b.replyKeyboard(ctx, chatID, "Выберите период для отображения статистики:", statsMenuKeyboard())
}
