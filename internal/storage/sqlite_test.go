package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protein-log/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "protein.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(id, date, name string, grams int) *models.Entry {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.Entry{
		ID:        id,
		Date:      date,
		Name:      name,
		Grams:     grams,
		Source:    models.ManualSource,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestEntriesRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	e := entry("b", "2026-03-01", "ביצה", 6)
	e.Source = models.EstimatedSource
	e.Rule = "egg"
	require.NoError(t, s.SaveEntry(e))
	require.NoError(t, s.SaveEntry(entry("a", "2026-03-01", "סקופ", 25)))
	require.NoError(t, s.SaveEntry(entry("c", "2026-03-02", "טונה", 20)))

	got, err := s.ListEntries("2026-03-01")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID, "insertion order")
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, models.EstimatedSource, got[0].Source)
	assert.Equal(t, "egg", got[0].Rule)
	assert.True(t, e.CreatedAt.Equal(got[0].CreatedAt))

	none, err := s.ListEntries("2026-01-01")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateAndDeleteEntry(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.SaveEntry(entry("a", "2026-03-01", "עוף", 47)))

	later := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateEntryGrams("2026-03-01", "a", 50, later))

	got, err := s.GetEntry("2026-03-01", "a")
	require.NoError(t, err)
	assert.Equal(t, 50, got.Grams)
	assert.True(t, later.Equal(got.UpdatedAt))

	assert.ErrorIs(t, s.UpdateEntryGrams("2026-03-02", "a", 10, later), ErrNotFound)
	assert.ErrorIs(t, s.DeleteEntry("2026-03-01", "missing"), ErrNotFound)

	require.NoError(t, s.DeleteEntry("2026-03-01", "a"))
	_, err = s.GetEntry("2026-03-01", "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDailyTotals(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.SaveEntry(entry("a", "2026-03-01", "x", 10)))
	require.NoError(t, s.SaveEntry(entry("b", "2026-03-01", "y", 15)))
	require.NoError(t, s.SaveEntry(entry("c", "2026-03-03", "z", 30)))
	require.NoError(t, s.SaveEntry(entry("d", "2026-03-09", "w", 99)))

	totals, err := s.DailyTotals("2026-03-01", "2026-03-05")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2026-03-01": 25, "2026-03-03": 30}, totals)
}

func TestSettings(t *testing.T) {
	s := newTestStorage(t)

	got, err := s.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), got)

	want := models.Settings{
		Unit:             models.Pounds,
		Weight:           180,
		AutoTarget:       false,
		GramsPerKg:       2,
		TargetCustom:     150,
		Reminder:         true,
		AutoCalcFromName: false,
	}
	require.NoError(t, s.SaveSettings(want))
	got, err = s.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	want.Weight = 170
	require.NoError(t, s.SaveSettings(want))
	got, err = s.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
