package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forestowl/notekeeper/store"
)

func TestNotePreview(t *testing.T) {
	assert.Equal(t, "короткая", notePreview("короткая"))

	long := "очень длинная заметка про покупки"
	got := notePreview(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, previewRunes, len([]rune(strings.TrimSuffix(got, "..."))))

	// Exactly at the limit: no ellipsis.
	exact := strings.Repeat("а", previewRunes)
	assert.Equal(t, exact, notePreview(exact))
}

func TestPaging(t *testing.T) {
	assert.Equal(t, 1, totalPages(0))
	assert.Equal(t, 1, totalPages(4))
	assert.Equal(t, 2, totalPages(5))
	assert.Equal(t, 2, totalPages(8))
	assert.Equal(t, 3, totalPages(9))

	assert.Equal(t, 0, clampPage(-1, 2))
	assert.Equal(t, 1, clampPage(5, 2))
	assert.Equal(t, 1, clampPage(1, 2))

	notes := []store.Note{
		{ID: 1, Text: "a"}, {ID: 2, Text: "b"}, {ID: 3, Text: "c"},
		{ID: 4, Text: "d"}, {ID: 5, Text: "e"},
	}
	first := pageSlice(notes, 0)
	assert.Len(t, first, 4)
	assert.Equal(t, 1, first[0].ID)

	second := pageSlice(notes, 1)
	assert.Len(t, second, 1)
	assert.Equal(t, 5, second[0].ID)

	assert.Nil(t, pageSlice(notes, 2))
}

func TestSelectionID(t *testing.T) {
	id, ok := selectionID(" 3: купить хлеб")
	assert.True(t, ok)
	assert.Equal(t, 3, id)

	id, ok = selectionID("7")
	assert.True(t, ok)
	assert.Equal(t, 7, id)

	_, ok = selectionID("abc")
	assert.False(t, ok)

	_, ok = selectionID("")
	assert.False(t, ok)
}

func TestLooksLikeSelection(t *testing.T) {
	assert.True(t, looksLikeSelection("3"))
	assert.True(t, looksLikeSelection(" 12: текст"))
	assert.False(t, looksLikeSelection("текст"))
	assert.False(t, looksLikeSelection(""))
	assert.False(t, looksLikeSelection("   "))
}

func TestNotesListText(t *testing.T) {
	notes := []store.Note{{ID: 1, Text: "хлеб"}, {ID: 2, Text: "молоко"}}
	assert.Equal(t, "Ваши заметки:\n1. хлеб\n2. молоко\n", notesListText(notes))
}
