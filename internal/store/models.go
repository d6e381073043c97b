package store

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	RatingPositive = "positive"
	RatingNegative = "negative"

	StatusActive = "active"
	StatusClosed = "closed"
)

type Session struct {
	ID       string    `json:"id"` // UUID
	User     string    `json:"user"`
	Status   string    `json:"status"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

type Message struct {
	SessionID string    `json:"session_id"`
	Index     int       `json:"index"` // 0-based append order, stable feedback key
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Created   time.Time `json:"created"`
}

// SessionSummary is the listing shape for the widget history and the
// admin chat-history tab.
type SessionSummary struct {
	Session
	MessageCount int    `json:"message_count"`
	Preview      string `json:"preview"`
}

type FeedbackRecord struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"session_id"`
	MessageIndex int       `json:"message_index"`
	Rating       string    `json:"rating"`
	Comment      string    `json:"comment,omitempty"`
	User         string    `json:"user"`
	Created      time.Time `json:"created"`
	Modified     time.Time `json:"modified"`
}

type KnowledgeEntry struct {
	ID       int64     `json:"id"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Category string    `json:"category,omitempty"`
	Active   bool      `json:"active"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// KnowledgeUpdate carries a partial update; nil fields keep their
// stored values.
type KnowledgeUpdate struct {
	Question *string `json:"question,omitempty"`
	Answer   *string `json:"answer,omitempty"`
	Category *string `json:"category,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

// Settings is the process-wide singleton read on every chat call.
// ToolsConfig maps tool name -> enabled; a tool absent from the map is
// enabled.
type Settings struct {
	BotName      string          `json:"bot_name"`
	AIModel      string          `json:"ai_model"`
	Temperature  float64         `json:"temperature"`
	SystemPrompt string          `json:"system_prompt"`
	ToolsConfig  map[string]bool `json:"tools_config"`
}

// SettingsPatch carries a partial settings update; nil fields keep
// their stored values.
type SettingsPatch struct {
	BotName      *string          `json:"bot_name,omitempty"`
	AIModel      *string          `json:"ai_model,omitempty"`
	Temperature  *float64         `json:"temperature,omitempty"`
	SystemPrompt *string          `json:"system_prompt,omitempty"`
	ToolsConfig  *map[string]bool `json:"tools_config,omitempty"`
}

type DashboardStats struct {
	TotalSessions    int              `json:"total_sessions"`
	TotalMessages    int              `json:"total_messages"`
	ActiveUsersToday int              `json:"active_users_today"`
	FeedbackPositive int              `json:"feedback_positive"`
	FeedbackNegative int              `json:"feedback_negative"`
	RecentSessions   []SessionSummary `json:"recent_sessions"`
}
