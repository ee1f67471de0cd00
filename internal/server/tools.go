package server

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"protein-log/internal/diary"
	"protein-log/internal/models"
)

type EstimateParams struct {
	Text string `json:"text" description:"Free-text food description, e.g. 150 גרם חזה עוף"`
}

type AddEntryParams struct {
	Date  string  `json:"date,omitempty" description:"Day to log on (YYYY-MM-DD, defaults to today)"`
	Name  string  `json:"name" description:"Food or supplement description"`
	Grams float64 `json:"grams,omitempty" description:"Grams of protein; estimated from the name when omitted"`
}

type QuickAddParams struct {
	Date  string `json:"date,omitempty" description:"Day to log on (YYYY-MM-DD, defaults to today)"`
	Grams int    `json:"grams" description:"Grams of protein to add"`
}

type EditEntryParams struct {
	Date  string  `json:"date,omitempty" description:"Day of the entry (YYYY-MM-DD, defaults to today)"`
	ID    string  `json:"id" description:"Entry id"`
	Grams float64 `json:"grams" description:"New grams of protein"`
}

type RemoveEntryParams struct {
	Date string `json:"date,omitempty" description:"Day of the entry (YYYY-MM-DD, defaults to today)"`
	ID   string `json:"id" description:"Entry id"`
}

type GetDayParams struct {
	Date string `json:"date,omitempty" description:"Day to summarise (YYYY-MM-DD, defaults to today)"`
}

type GetHistoryParams struct {
	Days int `json:"days,omitempty" description:"Number of days ending today (defaults to 14)"`
}

// UpdateSettingsParams holds the settings to change; omitted fields keep
// their saved values.
type UpdateSettingsParams struct {
	Unit             *string  `json:"unit,omitempty" description:"kg or lb"`
	Weight           *float64 `json:"weight,omitempty" description:"Body weight in the chosen unit"`
	AutoTarget       *bool    `json:"auto_target,omitempty" description:"Derive the target from body weight"`
	GramsPerKg       *float64 `json:"grams_per_kg,omitempty" description:"Protein grams per kg of body weight"`
	TargetCustom     *float64 `json:"target_custom,omitempty" description:"Manual daily target in grams"`
	Reminder         *bool    `json:"reminder,omitempty" description:"Daily reminder flag"`
	AutoCalcFromName *bool    `json:"auto_calc_from_name,omitempty" description:"Estimate grams from descriptions"`
}

type estimateResponse struct {
	Grams int    `json:"grams"`
	Rule  string `json:"rule,omitempty"`
	Hint  string `json:"hint"`
}

type settingsResponse struct {
	Settings     models.Settings `json:"settings"`
	Target       int             `json:"target"`
	QuickAmounts []int           `json:"quick_amounts"`
}

// paramsError marks malformed tool arguments.
type paramsError struct{ err error }

func (e *paramsError) Error() string { return "invalid parameters: " + e.err.Error() }
func (e *paramsError) Unwrap() error { return e.err }

// extractParams decodes the request arguments into target.
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return &paramsError{fmt.Errorf("failed to marshal arguments: %w", err)}
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return &paramsError{fmt.Errorf("failed to unmarshal parameters: %w", err)}
	}

	return nil
}

func requireField(name, value string) error {
	if value == "" {
		return &paramsError{fmt.Errorf("%s is required", name)}
	}
	return nil
}

// handleEstimate returns the advisory estimate for a description without
// logging anything.
func (s *ProteinLogServer) handleEstimate(req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params EstimateParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	guess, err := s.diary.Guess(params.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate: %w", err)
	}

	return s.createJSONResponse(estimateResponse{
		Grams: guess.Grams,
		Rule:  guess.Rule,
		Hint:  estimateHint(params.Text, guess.Grams),
	})
}

func estimateHint(text string, grams int) string {
	switch {
	case strings.TrimSpace(text) == "":
		return "תוכל לכתוב תיאור חופשי - אחשב לבד כשאפשר"
	case grams > 0:
		return fmt.Sprintf("זוהו ~%d גרם חלבון משם המאכל", grams)
	}
	return "לא זוהה חלבון - נסה לכלול מספר/גרמים או פריט מוכר"
}

func (s *ProteinLogServer) handleAddEntry(req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params AddEntryParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	entry, err := s.diary.Add(params.Date, params.Name, params.Grams)
	if err != nil {
		return nil, fmt.Errorf("failed to add entry: %w", err)
	}

	s.logger.Info("entry added",
		"date", entry.Date, "grams", entry.Grams, "source", entry.Source, "rule", entry.Rule)
	return s.createJSONResponse(entry)
}

func (s *ProteinLogServer) handleQuickAdd(req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params QuickAddParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	entry, err := s.diary.QuickAdd(params.Date, params.Grams)
	if err != nil {
		return nil, fmt.Errorf("failed to quick add: %w", err)
	}

	return s.createJSONResponse(entry)
}

func (s *ProteinLogServer) handleEditEntry(req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params EditEntryParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := requireField("id", params.ID); err != nil {
		return nil, err
	}

	entry, err := s.diary.Edit(params.Date, params.ID, params.Grams)
	if err != nil {
		return nil, fmt.Errorf("failed to edit entry: %w", err)
	}

	return s.createJSONResponse(entry)
}

func (s *ProteinLogServer) handleRemoveEntry(req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params RemoveEntryParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := requireField("id", params.ID); err != nil {
		return nil, err
	}

	if err := s.diary.Remove(params.Date, params.ID); err != nil {
		return nil, fmt.Errorf("failed to remove entry: %w", err)
	}

	return s.createJSONResponse(map[string]interface{}{"removed": params.ID})
}

func (s *ProteinLogServer) handleGetDay(req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetDayParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	day, err := s.diary.Day(params.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to load day: %w", err)
	}

	return s.createJSONResponse(day)
}

func (s *ProteinLogServer) handleGetHistory(req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetHistoryParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	points, err := s.diary.History(params.Days)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	return s.createJSONResponse(points)
}

func (s *ProteinLogServer) handleGetSettings(req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	settings, err := s.diary.Settings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return s.settingsResult(settings)
}

func (s *ProteinLogServer) handleUpdateSettings(req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params UpdateSettingsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	settings, err := s.diary.Settings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	params.apply(&settings)

	settings, err = s.diary.UpdateSettings(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return s.settingsResult(settings)
}

func (p UpdateSettingsParams) apply(st *models.Settings) {
	if p.Unit != nil {
		st.Unit = models.WeightUnit(*p.Unit)
	}
	if p.Weight != nil {
		st.Weight = *p.Weight
	}
	if p.AutoTarget != nil {
		st.AutoTarget = *p.AutoTarget
	}
	if p.GramsPerKg != nil {
		st.GramsPerKg = *p.GramsPerKg
	}
	if p.TargetCustom != nil {
		st.TargetCustom = *p.TargetCustom
	}
	if p.Reminder != nil {
		st.Reminder = *p.Reminder
	}
	if p.AutoCalcFromName != nil {
		st.AutoCalcFromName = *p.AutoCalcFromName
	}
}

func (s *ProteinLogServer) settingsResult(settings models.Settings) (*protocol.CallToolResult, error) {
	goal, err := s.diary.Target()
	if err != nil {
		return nil, fmt.Errorf("failed to compute target: %w", err)
	}
	return s.createJSONResponse(settingsResponse{
		Settings:     settings,
		Target:       goal,
		QuickAmounts: diary.QuickAmounts,
	})
}

func (s *ProteinLogServer) registerTools() {
	s.tools = map[string]toolHandler{
		"estimate_protein": s.handleEstimate,
		"add_entry":        s.handleAddEntry,
		"quick_add":        s.handleQuickAdd,
		"edit_entry":       s.handleEditEntry,
		"remove_entry":     s.handleRemoveEntry,
		"get_day":          s.handleGetDay,
		"get_history":      s.handleGetHistory,
		"get_settings":     s.handleGetSettings,
		"update_settings":  s.handleUpdateSettings,
	}
}

func (s *ProteinLogServer) toolNames() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
