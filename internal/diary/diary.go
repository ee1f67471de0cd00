// Package diary keeps the per-day protein log: adding, editing and removing
// entries, and summarising days against the daily target.
package diary

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"protein-log/internal/estimator"
	"protein-log/internal/models"
	"protein-log/internal/target"
)

const (
	// HistoryDays is the length of the rolling progress window.
	HistoryDays = 14

	// QuickAddName labels entries added with a preset amount.
	QuickAddName = "הוספה מהירה"

	unnamed = "—"
)

// QuickAmounts are the preset gram amounts offered for quick adds.
var QuickAmounts = []int{10, 20, 25, 30}

var (
	ErrNoProtein       = errors.New("no protein amount given or recognised")
	ErrInvalidGrams    = errors.New("grams must be greater than zero")
	ErrInvalidDate     = errors.New("date must be YYYY-MM-DD")
	ErrInvalidSettings = errors.New("invalid settings")
)

// Store persists entries and settings.
type Store interface {
	SaveEntry(entry *models.Entry) error
	ListEntries(date string) ([]*models.Entry, error)
	GetEntry(date, id string) (*models.Entry, error)
	UpdateEntryGrams(date, id string, grams int, updatedAt time.Time) error
	DeleteEntry(date, id string) error
	DailyTotals(from, to string) (map[string]int, error)
	LoadSettings() (models.Settings, error)
	SaveSettings(s models.Settings) error
}

type Diary struct {
	store Store
	now   func() time.Time
}

type Option func(*Diary)

// WithClock replaces time.Now, which decides what "today" is.
func WithClock(now func() time.Time) Option {
	return func(d *Diary) { d.now = now }
}

func New(store Store, opts ...Option) *Diary {
	d := &Diary{store: store, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Today is the date key for the current day.
func (d *Diary) Today() string {
	return d.now().Format(models.DateLayout)
}

// Guess returns the advisory estimate for a description, or a zero Result
// when estimating from names is switched off.
func (d *Diary) Guess(name string) (estimator.Result, error) {
	settings, err := d.store.LoadSettings()
	if err != nil {
		return estimator.Result{}, err
	}
	if !settings.AutoCalcFromName {
		return estimator.Result{}, nil
	}
	return estimator.Detect(name), nil
}

// Add logs a food on date. When grams is not positive the amount is
// estimated from the name, provided estimating is enabled.
func (d *Diary) Add(date, name string, grams float64) (*models.Entry, error) {
	date, err := d.resolveDate(date)
	if err != nil {
		return nil, err
	}

	source := models.ManualSource
	var rule string
	if !(grams > 0) {
		guess, err := d.Guess(name)
		if err != nil {
			return nil, err
		}
		grams = float64(guess.Grams)
		source = models.EstimatedSource
		rule = guess.Rule
	}
	g := round(grams)
	if g <= 0 {
		return nil, ErrNoProtein
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = unnamed
	}
	return d.save(date, name, g, source, rule)
}

// QuickAdd logs a preset amount without a description.
func (d *Diary) QuickAdd(date string, grams int) (*models.Entry, error) {
	date, err := d.resolveDate(date)
	if err != nil {
		return nil, err
	}
	if grams <= 0 {
		return nil, ErrInvalidGrams
	}
	return d.save(date, QuickAddName, grams, models.QuickSource, "")
}

func (d *Diary) save(date, name string, grams int, source models.EntrySource, rule string) (*models.Entry, error) {
	now := d.now()
	entry := &models.Entry{
		ID:        uuid.NewString(),
		Date:      date,
		Name:      name,
		Grams:     grams,
		Source:    source,
		Rule:      rule,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.store.SaveEntry(entry); err != nil {
		return nil, fmt.Errorf("failed to save entry: %w", err)
	}
	return entry, nil
}

// Edit overrides the grams of an existing entry.
func (d *Diary) Edit(date, id string, grams float64) (*models.Entry, error) {
	date, err := d.resolveDate(date)
	if err != nil {
		return nil, err
	}
	g := round(grams)
	if g <= 0 {
		return nil, ErrInvalidGrams
	}
	if err := d.store.UpdateEntryGrams(date, id, g, d.now()); err != nil {
		return nil, err
	}
	return d.store.GetEntry(date, id)
}

func (d *Diary) Remove(date, id string) error {
	date, err := d.resolveDate(date)
	if err != nil {
		return err
	}
	return d.store.DeleteEntry(date, id)
}

// Day summarises one day's entries against the current target.
func (d *Diary) Day(date string) (*models.DaySummary, error) {
	date, err := d.resolveDate(date)
	if err != nil {
		return nil, err
	}
	settings, err := d.store.LoadSettings()
	if err != nil {
		return nil, err
	}
	entries, err := d.store.ListEntries(date)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, e := range entries {
		total += e.Grams
	}
	goal := target.Calculate(settings)

	return &models.DaySummary{
		Date:      date,
		Entries:   entries,
		Total:     total,
		Target:    goal,
		Remaining: max(goal-total, 0),
		Progress:  math.Min(float64(total)/float64(goal)*100, 100),
	}, nil
}

// History returns one point per day for the last days days, oldest first,
// ending today. Every point carries the current target.
func (d *Diary) History(days int) ([]models.DayPoint, error) {
	if days <= 0 {
		days = HistoryDays
	}
	settings, err := d.store.LoadSettings()
	if err != nil {
		return nil, err
	}
	goal := target.Calculate(settings)

	today := d.now()
	from := today.AddDate(0, 0, -(days - 1)).Format(models.DateLayout)
	totals, err := d.store.DailyTotals(from, today.Format(models.DateLayout))
	if err != nil {
		return nil, err
	}

	points := make([]models.DayPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := today.AddDate(0, 0, -i).Format(models.DateLayout)
		points = append(points, models.DayPoint{Date: date, Total: totals[date], Target: goal})
	}
	return points, nil
}

func (d *Diary) Settings() (models.Settings, error) {
	return d.store.LoadSettings()
}

// Target is the daily goal under the saved settings.
func (d *Diary) Target() (int, error) {
	settings, err := d.store.LoadSettings()
	if err != nil {
		return 0, err
	}
	return target.Calculate(settings), nil
}

func (d *Diary) UpdateSettings(s models.Settings) (models.Settings, error) {
	if err := validateSettings(s); err != nil {
		return models.Settings{}, err
	}
	if err := d.store.SaveSettings(s); err != nil {
		return models.Settings{}, err
	}
	return s, nil
}

func validateSettings(s models.Settings) error {
	if s.Unit != models.Kilograms && s.Unit != models.Pounds {
		return fmt.Errorf("%w: unit must be %q or %q, got %q", ErrInvalidSettings, models.Kilograms, models.Pounds, s.Unit)
	}
	if s.Weight < 0 || math.IsNaN(s.Weight) {
		return fmt.Errorf("%w: weight must not be negative", ErrInvalidSettings)
	}
	if s.GramsPerKg < 0 || math.IsNaN(s.GramsPerKg) {
		return fmt.Errorf("%w: grams per kg must not be negative", ErrInvalidSettings)
	}
	if s.TargetCustom < 0 || math.IsNaN(s.TargetCustom) {
		return fmt.Errorf("%w: custom target must not be negative", ErrInvalidSettings)
	}
	return nil
}

// resolveDate defaults an empty date to today and rejects malformed keys.
func (d *Diary) resolveDate(date string) (string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return d.Today(), nil
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return date, nil
}

// round converts to whole grams; NaN and non-positive amounts become 0.
func round(g float64) int {
	if !(g > 0) {
		return 0
	}
	return int(math.Round(math.Min(g, math.MaxInt32)))
}
