package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartes/model"
)

func newDeck(id string, created time.Time) *model.Deck {
	return &model.Deck{
		ID:        id,
		CreatedAt: created,
		Request:   model.GenerateRequest{Cycle: "cycle2", Grade: "3", Subject: "mathematiques", Notion: "fractions"},
		Cards: []model.CardData{
			{Number: 1, Title: "Pizza", Question: "Quelle fraction? [visual:fraction:3:8:3]", Answer: "3/8"},
		},
	}
}

func TestSaveAndGetDeck(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.EnsureDirs())

	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	require.NoError(t, s.SaveDeck(newDeck("abc", created)))

	assert.FileExists(t, filepath.Join(dir, "decks", "2026", "03", "14", "abc.json"))

	got, err := s.GetDeck("abc")
	require.NoError(t, err)
	assert.Equal(t, "3/8", got.Cards[0].Answer)
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestSaveDeckRejectsIncompleteDecks(t *testing.T) {
	s := New(t.TempDir())
	assert.Error(t, s.SaveDeck(nil))
	assert.Error(t, s.SaveDeck(&model.Deck{CreatedAt: time.Now()}))
	assert.Error(t, s.SaveDeck(&model.Deck{ID: "x"}))
}

func TestGetDeckNotFound(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.GetDeck("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListDecksRangeAndOrder(t *testing.T) {
	s := New(t.TempDir())
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveDeck(newDeck("late", base.Add(48*time.Hour))))
	require.NoError(t, s.SaveDeck(newDeck("early", base)))
	require.NoError(t, s.SaveDeck(newDeck("outside", base.AddDate(0, -2, 0))))

	decks, err := s.ListDecks(base.Add(-time.Hour), base.Add(72*time.Hour))
	require.NoError(t, err)
	require.Len(t, decks, 2)
	assert.Equal(t, "early", decks[0].ID)
	assert.Equal(t, "late", decks[1].ID)
}

func TestListDecksEmptyStore(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "never-created"))
	decks, err := s.ListDecks(time.Time{}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, decks)
}

func TestListDecksSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.SaveDeck(newDeck("good", time.Now())))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "decks", "junk.json"), []byte("{not json"), 0o644))

	decks, err := s.ListDecks(time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, "good", decks[0].ID)
}

func TestSetPlacements(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.SaveDeck(newDeck("p", time.Now())))

	placements := []model.Placement{{Card: 1, Illustration: "renard", Transform: model.Transform{X: 20, Y: 30, Scale: 1.5}}}
	updated, err := s.SetPlacements("p", placements)
	require.NoError(t, err)
	assert.Equal(t, placements, updated.Placements)

	reloaded, err := s.GetDeck("p")
	require.NoError(t, err)
	assert.Equal(t, placements, reloaded.Placements)

	_, err = s.SetPlacements("nope", placements)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteBefore(t *testing.T) {
	s := New(t.TempDir())
	now := time.Now().UTC()
	require.NoError(t, s.SaveDeck(newDeck("old", now.AddDate(0, 0, -100))))
	require.NoError(t, s.SaveDeck(newDeck("new", now)))

	removed, err := s.DeleteBefore(now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.GetDeck("old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetDeck("new")
	assert.NoError(t, err)
}
