package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ContextBrief is the condensed record of one day's work, stored so later
// summaries can look back at it.
type ContextBrief struct {
	MainFocus    string   `json:"mainFocus"`
	Repos        []string `json:"repos"`
	LinesChanged int      `json:"linesChanged"`
	CommitCount  int      `json:"commitCount"`
	DetectedTask string   `json:"detectedTask,omitempty"`
}

// DetectedFocus records the pattern-matched task type of a day.
type DetectedFocus struct {
	Task      string   `json:"task"`
	StartDate string   `json:"startDate"`
	Repos     []string `json:"repos"`
}

// GutterNote is a short margin annotation anchored to a section of the
// detailed timeline.
type GutterNote struct {
	Anchor  string `json:"anchor"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ContextBriefColumn persists a ContextBrief as a JSON column. A value that
// fails to parse scans as nil rather than erroring, so a corrupt row never
// breaks historical lookups.
type ContextBriefColumn struct {
	Brief *ContextBrief
}

func (c ContextBriefColumn) Value() (driver.Value, error) {
	if c.Brief == nil {
		return nil, nil
	}
	b, err := json.Marshal(c.Brief)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *ContextBriefColumn) Scan(value interface{}) error {
	c.Brief = nil
	raw, err := scanJSONText(value, "models.ContextBriefColumn")
	if err != nil || raw == "" {
		return err
	}
	var brief ContextBrief
	if json.Unmarshal([]byte(raw), &brief) == nil {
		c.Brief = &brief
	}
	return nil
}

func (c ContextBriefColumn) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Brief)
}

func (c *ContextBriefColumn) UnmarshalJSON(data []byte) error {
	c.Brief = nil
	if strings.TrimSpace(string(data)) == "null" {
		return nil
	}
	var brief ContextBrief
	if err := json.Unmarshal(data, &brief); err != nil {
		return err
	}
	c.Brief = &brief
	return nil
}

// DetectedFocusColumn persists a DetectedFocus the same way.
type DetectedFocusColumn struct {
	Focus *DetectedFocus
}

func (c DetectedFocusColumn) Value() (driver.Value, error) {
	if c.Focus == nil {
		return nil, nil
	}
	b, err := json.Marshal(c.Focus)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *DetectedFocusColumn) Scan(value interface{}) error {
	c.Focus = nil
	raw, err := scanJSONText(value, "models.DetectedFocusColumn")
	if err != nil || raw == "" {
		return err
	}
	var focus DetectedFocus
	if json.Unmarshal([]byte(raw), &focus) == nil {
		c.Focus = &focus
	}
	return nil
}

func (c DetectedFocusColumn) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Focus)
}

func (c *DetectedFocusColumn) UnmarshalJSON(data []byte) error {
	c.Focus = nil
	if strings.TrimSpace(string(data)) == "null" {
		return nil
	}
	var focus DetectedFocus
	if err := json.Unmarshal(data, &focus); err != nil {
		return err
	}
	c.Focus = &focus
	return nil
}

// GutterContentColumn persists the gutter notes as a JSON array column.
// Corrupt data scans as empty rather than erroring.
type GutterContentColumn struct {
	Notes []GutterNote
}

func (c GutterContentColumn) Value() (driver.Value, error) {
	if c.Notes == nil {
		return nil, nil
	}
	b, err := json.Marshal(c.Notes)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *GutterContentColumn) Scan(value interface{}) error {
	c.Notes = nil
	raw, err := scanJSONText(value, "models.GutterContentColumn")
	if err != nil || raw == "" {
		return err
	}
	var notes []GutterNote
	if json.Unmarshal([]byte(raw), &notes) == nil {
		c.Notes = notes
	}
	return nil
}

func (c GutterContentColumn) MarshalJSON() ([]byte, error) {
	if c.Notes == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Notes)
}

func (c *GutterContentColumn) UnmarshalJSON(data []byte) error {
	c.Notes = nil
	if strings.TrimSpace(string(data)) == "null" {
		return nil
	}
	return json.Unmarshal(data, &c.Notes)
}

func scanJSONText(value interface{}, who string) (string, error) {
	if value == nil {
		return "", nil
	}
	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return "", fmt.Errorf("%s: unsupported Scan type %T", who, value)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return "", nil
	}
	return raw, nil
}

// DailySummaryModel is the one durable record per calendar date. The unique
// index on SummaryDate is the sole consistency mechanism: writes are
// last-write-wins upserts keyed by date.
type DailySummaryModel struct {
	Base
	SummaryDate      string              `json:"summary_date"      gorm:"uniqueIndex;size:10;not null"`
	IsRestDay        bool                `json:"is_rest_day"`
	BriefSummary     *string             `json:"brief_summary"     gorm:"type:text"`
	DetailedTimeline *string             `json:"detailed_timeline" gorm:"type:longtext"`
	GutterContent    GutterContentColumn `json:"gutter_content"    gorm:"type:longtext"`
	CommitCount      int                 `json:"commit_count"`
	TotalAdditions   int                 `json:"total_additions"`
	TotalDeletions   int                 `json:"total_deletions"`
	ReposActive      StringArray         `json:"repos_active"      gorm:"type:longtext"`
	ContextBrief     ContextBriefColumn  `json:"context_brief"     gorm:"type:longtext"`
	DetectedFocus    DetectedFocusColumn `json:"detected_focus"    gorm:"type:longtext"`
	AIModel          *string             `json:"ai_model"`
}

func (DailySummaryModel) TableName() string { return "daily_summaries" }
