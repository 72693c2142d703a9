package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/forestowl/notekeeper/store"
)

// Reply keyboard button labels. Dispatch matches on the exact label, so
// these are the single source of truth for the menu surface.
const (
	btnAddNote    = "➕ Добавить заметку"
	btnDeleteNote = "❌ Удалить заметку"
	btnEditNote   = "✏️ Редактировать заметку"
	btnListNotes  = "📋 Показать список заметок"
	btnSearch     = "🔍 Поиск по заметкам"
	btnAnalyze    = "🤖 Анализ от ИИ"
	btnStats      = "📊 Статистика"
	btnExport     = "📤 Экспорт заметок"
	btnAbout      = "ℹ️ О боте"

	btnStatsWeek  = "📈 7 дней"
	btnStatsMonth = "📉 30 дней"
	btnStatsBack  = "🔙 Назад"

	btnPagePrev   = "⬅️ Назад"
	btnPageNext   = "Вперед ➡️"
	btnPageCancel = "❌ Отмена"
	btnEditCancel = "❌ Отмена редактирования"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAddNote),
			tgbotapi.NewKeyboardButton(btnDeleteNote),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnEditNote),
			tgbotapi.NewKeyboardButton(btnListNotes),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSearch),
			tgbotapi.NewKeyboardButton(btnAnalyze),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnStats),
			tgbotapi.NewKeyboardButton(btnExport),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAbout),
		),
	)
}

func statsMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnStatsWeek),
			tgbotapi.NewKeyboardButton(btnStatsMonth),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnStatsBack),
		),
	)
}

func editPageKeyboard(notes []store.Note, page, totalPages int) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(notes)+2)
	for _, n := range notes {
		label := fmt.Sprintf(" %d: %s", n.ID, notePreview(n.Text))
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(label)))
	}

	var nav []tgbotapi.KeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewKeyboardButton(btnPagePrev))
	}
	if page < totalPages-1 {
		nav = append(nav, tgbotapi.NewKeyboardButton(btnPageNext))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnPageCancel)))
	return tgbotapi.NewReplyKeyboard(rows...)
}

func cancelEditKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnEditCancel)),
	)
}
