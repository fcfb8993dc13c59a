package models

// AIRequestModel is an audit row for a single LLM call.
type AIRequestModel struct {
	Base
	RequestDate  string `json:"request_date" gorm:"index;size:10;not null"`
	Provider     string `json:"provider"     gorm:"not null"`
	Model        string `json:"model"        gorm:"not null"`
	Purpose      string `json:"purpose"      gorm:"default:'daily_summary'"`
	SummaryDate  string `json:"summary_date" gorm:"size:10"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message" gorm:"type:text"`
	DurationMS   int64  `json:"duration_ms"`
}

func (AIRequestModel) TableName() string { return "ai_requests" }
