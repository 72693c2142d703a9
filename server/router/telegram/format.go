package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/forestowl/notekeeper/store"
)

const notesPerPage = 4

const previewRunes = 20

// notePreview truncates a note text for keyboard button labels.
func notePreview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}

// notesListText renders the full numbered list.
func notesListText(notes []store.Note) string {
	var b strings.Builder
	b.WriteString("Ваши заметки:\n")
	for _, n := range notes {
		fmt.Fprintf(&b, "%d. %s\n", n.ID, n.Text)
	}
	return b.String()
}

// searchResultText renders search hits with the match emphasis already
// applied by the store.
func searchResultText(notes []store.Note) string {
	var b strings.Builder
	b.WriteString("🔍 Найдены заметки:\n\n")
	for _, n := range notes {
		fmt.Fprintf(&b, "%d. %s\n\n", n.ID, n.Text)
	}
	return b.String()
}

// totalPages returns the page count for n notes, at least 1.
func totalPages(n int) int {
	pages := (n + notesPerPage - 1) / notesPerPage
	if pages < 1 {
		pages = 1
	}
	return pages
}

// clampPage keeps a requested page inside [0, totalPages).
func clampPage(page, total int) int {
	if page < 0 {
		return 0
	}
	if page >= total {
		return total - 1
	}
	return page
}

// pageSlice cuts one page out of the sorted note list.
func pageSlice(notes []store.Note, page int) []store.Note {
	start := page * notesPerPage
	if start >= len(notes) {
		return nil
	}
	end := start + notesPerPage
	if end > len(notes) {
		end = len(notes)
	}
	return notes[start:end]
}

// selectionID extracts the note id from an edit-page button label of
// the form " 3: preview", or from a bare number.
func selectionID(text string) (int, bool) {
	head, _, _ := strings.Cut(text, ":")
	id, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0, false
	}
	return id, true
}

// looksLikeSelection reports whether a message plausibly targets a note
// on the current edit page.
func looksLikeSelection(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	r := trimmed[0]
	return r >= '0' && r <= '9'
}

const aboutText = "*О боте*\n\n" +
	"Этот бот создан для управления заметками и напоминаниями.\n\n" +
	"📋 *Функции:*\n" +
	"• ➕ Добавить заметку\n" +
	"• ❌ Удалить заметку\n" +
	"• ✏️ Редактировать заметку\n" +
	"• 📋 Показать список заметок\n" +
	"• 🔍 Поиск по заметкам\n" +
	"• 🤖 Анализ от ИИ\n" +
	"• 📊 Статистика\n" +
	"• 📤 Экспорт заметок\n\n" +
	"⚙️ Если у вас есть вопросы или предложения, свяжитесь с разработчиком ([@the\\_forest\\_owl](https://t.me/the_forest_owl))."
