package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"protein-log/internal/models"
)

// ErrNotFound is returned when an entry does not exist on the given day.
var ErrNotFound = errors.New("entry not found")

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS entries (
        id TEXT PRIMARY KEY,
        date TEXT NOT NULL,
        name TEXT NOT NULL,
        grams INTEGER NOT NULL,
        source TEXT NOT NULL,
        rule TEXT NOT NULL DEFAULT '',
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS settings (
        id INTEGER PRIMARY KEY CHECK (id = 1),
        unit TEXT NOT NULL,
        weight REAL NOT NULL,
        auto_target INTEGER NOT NULL,
        grams_per_kg REAL NOT NULL,
        target_custom REAL NOT NULL,
        reminder INTEGER NOT NULL,
        auto_calc_from_name INTEGER NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_entries_date ON entries(date);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) SaveEntry(entry *models.Entry) error {
	query := `
        INSERT INTO entries (id, date, name, grams, source, rule, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.Exec(query,
		entry.ID, entry.Date, entry.Name, entry.Grams, string(entry.Source), entry.Rule,
		formatTime(entry.CreatedAt), formatTime(entry.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

// ListEntries returns the entries of one day in the order they were added.
func (s *SQLiteStorage) ListEntries(date string) ([]*models.Entry, error) {
	query := `
        SELECT id, date, name, grams, source, rule, created_at, updated_at
        FROM entries
        WHERE date = ?
        ORDER BY rowid
    `

	rows, err := s.db.Query(query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []*models.Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}

func (s *SQLiteStorage) GetEntry(date, id string) (*models.Entry, error) {
	query := `
        SELECT id, date, name, grams, source, rule, created_at, updated_at
        FROM entries
        WHERE date = ? AND id = ?
    `
	entry, err := scanEntry(s.db.QueryRow(query, date, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return entry, err
}

func (s *SQLiteStorage) UpdateEntryGrams(date, id string, grams int, updatedAt time.Time) error {
	res, err := s.db.Exec(`UPDATE entries SET grams = ?, updated_at = ? WHERE date = ? AND id = ?`,
		grams, formatTime(updatedAt), date, id)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return expectOne(res)
}

func (s *SQLiteStorage) DeleteEntry(date, id string) error {
	res, err := s.db.Exec(`DELETE FROM entries WHERE date = ? AND id = ?`, date, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return expectOne(res)
}

// DailyTotals sums grams per day for days in [from, to]. Days without
// entries are absent from the result.
func (s *SQLiteStorage) DailyTotals(from, to string) (map[string]int, error) {
	query := `
        SELECT date, SUM(grams)
        FROM entries
        WHERE date >= ? AND date <= ?
        GROUP BY date
    `
	rows, err := s.db.Query(query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var date string
		var total int
		if err := rows.Scan(&date, &total); err != nil {
			return nil, fmt.Errorf("failed to scan daily total: %w", err)
		}
		totals[date] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily totals: %w", err)
	}

	return totals, nil
}

// LoadSettings returns the saved settings, or the defaults if none were saved.
func (s *SQLiteStorage) LoadSettings() (models.Settings, error) {
	query := `
        SELECT unit, weight, auto_target, grams_per_kg, target_custom, reminder, auto_calc_from_name
        FROM settings
        WHERE id = 1
    `
	var st models.Settings
	var unit string
	err := s.db.QueryRow(query).Scan(
		&unit, &st.Weight, &st.AutoTarget, &st.GramsPerKg,
		&st.TargetCustom, &st.Reminder, &st.AutoCalcFromName)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	st.Unit = models.WeightUnit(unit)
	return st, nil
}

func (s *SQLiteStorage) SaveSettings(st models.Settings) error {
	query := `
        INSERT INTO settings (id, unit, weight, auto_target, grams_per_kg, target_custom, reminder, auto_calc_from_name)
        VALUES (1, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            unit = excluded.unit,
            weight = excluded.weight,
            auto_target = excluded.auto_target,
            grams_per_kg = excluded.grams_per_kg,
            target_custom = excluded.target_custom,
            reminder = excluded.reminder,
            auto_calc_from_name = excluded.auto_calc_from_name
    `
	_, err := s.db.Exec(query,
		string(st.Unit), st.Weight, st.AutoTarget, st.GramsPerKg,
		st.TargetCustom, st.Reminder, st.AutoCalcFromName)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	entry := &models.Entry{}
	var source, createdAtStr, updatedAtStr string

	err := row.Scan(
		&entry.ID, &entry.Date, &entry.Name, &entry.Grams,
		&source, &entry.Rule, &createdAtStr, &updatedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}

	if entry.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if entry.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAtStr); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	entry.Source = models.EntrySource(source)

	return entry, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
