package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	DefaultBotName     = "KMP Assistant"
	DefaultAIModel     = "gemini-1.5-flash-latest"
	DefaultTemperature = 0.3

	DefaultSystemPrompt = "You are KMP Assistant, the AI helper for KMP (Pollaphat Marketing). " +
		"You help employees with general questions and with looking up live ERP data: " +
		"bills of materials, stock levels, sales and purchase orders, customers and suppliers, " +
		"items, warehouses and recent activity. " +
		"Use the available tools to fetch real data instead of guessing. " +
		"Present results as easy-to-read lists or tables. " +
		"If the system has no matching records, say so politely. " +
		"Greetings and questions about KMP itself can be answered directly without tools."
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer at a time; a single pooled connection
	// avoids SQLITE_BUSY and keeps :memory: databases on one handle.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS sessions (
        id TEXT PRIMARY KEY, -- UUID
        user TEXT NOT NULL,
        status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'closed')),
        created_at DATETIME NOT NULL,
        modified_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS messages (
        session_id TEXT NOT NULL,
        idx INTEGER NOT NULL, -- 0-based append order, never renumbered
        role TEXT NOT NULL CHECK (role IN ('system', 'user', 'assistant')),
        content TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        PRIMARY KEY (session_id, idx),
        FOREIGN KEY (session_id) REFERENCES sessions (id)
    );

    CREATE TABLE IF NOT EXISTS feedback (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        session_id TEXT NOT NULL,
        message_idx INTEGER NOT NULL,
        rating TEXT NOT NULL CHECK (rating IN ('positive', 'negative')),
        comment TEXT NOT NULL DEFAULT '',
        user TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        modified_at DATETIME NOT NULL,
        UNIQUE (session_id, message_idx),
        FOREIGN KEY (session_id) REFERENCES sessions (id)
    );

    CREATE TABLE IF NOT EXISTS knowledge_entries (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        question TEXT NOT NULL,
        answer TEXT NOT NULL,
        category TEXT NOT NULL DEFAULT '',
        active INTEGER NOT NULL DEFAULT 1,
        created_at DATETIME NOT NULL,
        modified_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS settings (
        id INTEGER PRIMARY KEY CHECK (id = 1), -- singleton row
        bot_name TEXT NOT NULL,
        ai_model TEXT NOT NULL,
        temperature REAL NOT NULL,
        system_prompt TEXT NOT NULL,
        tools_config TEXT NOT NULL DEFAULT '{}'
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// Session methods

func (s *SQLiteStore) CreateSession(user string) (*Session, error) {
	if user == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}

	now := time.Now()
	session := &Session{
		ID:       uuid.NewString(),
		User:     user,
		Status:   StatusActive,
		Created:  now,
		Modified: now,
	}

	_, err := s.db.Exec(
		"INSERT INTO sessions (id, user, status, created_at, modified_at) VALUES (?, ?, ?, ?, ?)",
		session.ID, session.User, session.Status, session.Created, session.Modified,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	return session, nil
}

func (s *SQLiteStore) GetSession(sessionID string) (*Session, error) {
	var session Session
	err := s.db.QueryRow(
		"SELECT id, user, status, created_at, modified_at FROM sessions WHERE id = ?",
		sessionID,
	).Scan(&session.ID, &session.User, &session.Status, &session.Created, &session.Modified)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// AppendMessage adds a turn at the next index and bumps the session's
// modified timestamp, both in one transaction. Callers must create the
// session first; an unknown id fails with ErrNotFound.
func (s *SQLiteStore) AppendMessage(sessionID, role, content string) (int, error) {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
	default:
		return 0, fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, role)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRow("SELECT status FROM sessions WHERE id = ?", sessionID).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to verify session: %w", err)
	}

	// Indices are dense because messages are only ever deleted with
	// their whole session, so the row count is the next index.
	var idx int
	if err := tx.QueryRow("SELECT COUNT(*) FROM messages WHERE session_id = ?", sessionID).Scan(&idx); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}

	now := time.Now()
	_, err = tx.Exec(
		"INSERT INTO messages (session_id, idx, role, content, created_at) VALUES (?, ?, ?, ?, ?)",
		sessionID, idx, role, content, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert message: %w", err)
	}

	if _, err = tx.Exec("UPDATE sessions SET modified_at = ? WHERE id = ?", now, sessionID); err != nil {
		return 0, fmt.Errorf("failed to touch session: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit message append: %w", err)
	}
	return idx, nil
}

func (s *SQLiteStore) SessionMessages(sessionID string) ([]Message, error) {
	rows, err := s.db.Query(
		"SELECT session_id, idx, role, content, created_at FROM messages WHERE session_id = ? ORDER BY idx ASC",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.SessionID, &msg.Index, &msg.Role, &msg.Content, &msg.Created); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// LastMessages returns up to n most recent turns in index order.
func (s *SQLiteStore) LastMessages(sessionID string, n int) ([]Message, error) {
	rows, err := s.db.Query(
		"SELECT session_id, idx, role, content, created_at FROM messages WHERE session_id = ? ORDER BY idx DESC LIMIT ?",
		sessionID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.SessionID, &msg.Index, &msg.Role, &msg.Content, &msg.Created); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

const sessionSummarySelect = `
    SELECT s.id, s.user, s.status, s.created_at, s.modified_at,
        (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id) AS message_count,
        COALESCE((SELECT m2.content FROM messages m2
                  WHERE m2.session_id = s.id AND m2.role = 'user'
                  ORDER BY m2.idx ASC LIMIT 1), '') AS preview
    FROM sessions s
`

func scanSessionSummaries(rows *sql.Rows, previewLen int) ([]SessionSummary, error) {
	var summaries []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.ID, &sum.User, &sum.Status, &sum.Created, &sum.Modified, &sum.MessageCount, &sum.Preview); err != nil {
			return nil, fmt.Errorf("failed to scan session summary: %w", err)
		}
		sum.Preview = truncate(sum.Preview, previewLen)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// ListSessions is the admin listing: newest first, optionally filtered
// by a case-insensitive substring of the owning user, with the total
// matching count for pagination.
func (s *SQLiteStore) ListSessions(search string, limit, offset int) ([]SessionSummary, int, error) {
	cond := ""
	var args []interface{}
	if search != "" {
		cond = "WHERE s.user LIKE ?"
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sessions s "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	query := sessionSummarySelect + cond + " ORDER BY s.modified_at DESC LIMIT ? OFFSET ?"
	rows, err := s.db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	summaries, err := scanSessionSummaries(rows, 80)
	if err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}

// SessionsForUser backs the widget's "my conversations" list.
func (s *SQLiteStore) SessionsForUser(user string, limit int) ([]SessionSummary, error) {
	query := sessionSummarySelect + "WHERE s.user = ? ORDER BY s.modified_at DESC LIMIT ?"
	rows, err := s.db.Query(query, user, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query user sessions: %w", err)
	}
	defer rows.Close()

	return scanSessionSummaries(rows, 50)
}

// DeleteSession removes the session, its messages and any feedback
// against them atomically.
func (s *SQLiteStore) DeleteSession(sessionID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.Exec("DELETE FROM feedback WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session feedback: %w", err)
	}
	if _, err = tx.Exec("DELETE FROM messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session messages: %w", err)
	}

	res, err := tx.Exec("DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}

	return tx.Commit()
}

// Feedback methods

// UpsertFeedback records a rating against an assistant turn. It is
// idempotent per (session, index): a resubmission replaces the prior
// rating and comment instead of adding a row.
func (s *SQLiteStore) UpsertFeedback(sessionID string, messageIndex int, rating, comment, user string) error {
	if rating != RatingPositive && rating != RatingNegative {
		return fmt.Errorf("%w: rating must be 'positive' or 'negative'", ErrInvalidArgument)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var role string
	err = tx.QueryRow(
		"SELECT role FROM messages WHERE session_id = ? AND idx = ?",
		sessionID, messageIndex,
	).Scan(&role)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("message %d in session %s: %w", messageIndex, sessionID, ErrInvalidTarget)
		}
		return fmt.Errorf("failed to verify feedback target: %w", err)
	}
	if role != RoleAssistant {
		return fmt.Errorf("message %d in session %s is a %s turn: %w", messageIndex, sessionID, role, ErrInvalidTarget)
	}

	now := time.Now()
	_, err = tx.Exec(`
        INSERT INTO feedback (session_id, message_idx, rating, comment, user, created_at, modified_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (session_id, message_idx) DO UPDATE SET
            rating = excluded.rating,
            comment = excluded.comment,
            user = excluded.user,
            modified_at = excluded.modified_at`,
		sessionID, messageIndex, rating, comment, user, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert feedback: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) ListFeedback(ratingFilter string, limit, offset int) ([]FeedbackRecord, int, error) {
	cond := ""
	var args []interface{}
	if ratingFilter == RatingPositive || ratingFilter == RatingNegative {
		cond = "WHERE rating = ?"
		args = append(args, ratingFilter)
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM feedback "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count feedback: %w", err)
	}

	query := `SELECT id, session_id, message_idx, rating, comment, user, created_at, modified_at
              FROM feedback ` + cond + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var records []FeedbackRecord
	for rows.Next() {
		var rec FeedbackRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.MessageIndex, &rec.Rating, &rec.Comment, &rec.User, &rec.Created, &rec.Modified); err != nil {
			return nil, 0, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

func (s *SQLiteStore) FeedbackCounts() (positive, negative int, err error) {
	rows, err := s.db.Query("SELECT rating, COUNT(*) FROM feedback GROUP BY rating")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rating string
		var count int
		if err := rows.Scan(&rating, &count); err != nil {
			return 0, 0, fmt.Errorf("failed to scan feedback count: %w", err)
		}
		switch rating {
		case RatingPositive:
			positive = count
		case RatingNegative:
			negative = count
		}
	}
	return positive, negative, rows.Err()
}

// Stats assembles the dashboard summary tab.
func (s *SQLiteStore) Stats() (*DashboardStats, error) {
	stats := &DashboardStats{}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&stats.TotalSessions); err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&stats.TotalMessages); err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	err := s.db.QueryRow(
		"SELECT COUNT(DISTINCT user) FROM sessions WHERE DATE(modified_at) = DATE('now', 'localtime')",
	).Scan(&stats.ActiveUsersToday)
	if err != nil {
		return nil, fmt.Errorf("failed to count active users: %w", err)
	}

	stats.FeedbackPositive, stats.FeedbackNegative, err = s.FeedbackCounts()
	if err != nil {
		return nil, err
	}

	recent, _, err := s.ListSessions("", 20, 0)
	if err != nil {
		return nil, err
	}
	stats.RecentSessions = recent

	return stats, nil
}

// Knowledge base methods

func (s *SQLiteStore) AddKnowledgeEntry(question, answer, category string) (*KnowledgeEntry, error) {
	if question == "" || answer == "" {
		return nil, fmt.Errorf("%w: question and answer are required", ErrInvalidArgument)
	}

	now := time.Now()
	res, err := s.db.Exec(
		"INSERT INTO knowledge_entries (question, answer, category, active, created_at, modified_at) VALUES (?, ?, ?, 1, ?, ?)",
		question, answer, category, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert knowledge entry: %w", err)
	}
	id, _ := res.LastInsertId()

	return &KnowledgeEntry{
		ID:       id,
		Question: question,
		Answer:   answer,
		Category: category,
		Active:   true,
		Created:  now,
		Modified: now,
	}, nil
}

func (s *SQLiteStore) UpdateKnowledgeEntry(id int64, upd KnowledgeUpdate) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var entry KnowledgeEntry
	err = tx.QueryRow(
		"SELECT question, answer, category, active FROM knowledge_entries WHERE id = ?", id,
	).Scan(&entry.Question, &entry.Answer, &entry.Category, &entry.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("knowledge entry %d: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to get knowledge entry: %w", err)
	}

	if upd.Question != nil {
		entry.Question = *upd.Question
	}
	if upd.Answer != nil {
		entry.Answer = *upd.Answer
	}
	if upd.Category != nil {
		entry.Category = *upd.Category
	}
	if upd.Active != nil {
		entry.Active = *upd.Active
	}
	if entry.Question == "" || entry.Answer == "" {
		return fmt.Errorf("%w: question and answer cannot be empty", ErrInvalidArgument)
	}

	_, err = tx.Exec(
		"UPDATE knowledge_entries SET question = ?, answer = ?, category = ?, active = ?, modified_at = ? WHERE id = ?",
		entry.Question, entry.Answer, entry.Category, entry.Active, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update knowledge entry: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) DeleteKnowledgeEntry(id int64) error {
	res, err := s.db.Exec("DELETE FROM knowledge_entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge entry: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("knowledge entry %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListKnowledgeEntries returns every entry, inactive ones included, for
// the admin knowledge tab.
func (s *SQLiteStore) ListKnowledgeEntries() ([]KnowledgeEntry, error) {
	rows, err := s.db.Query(
		"SELECT id, question, answer, category, active, created_at, modified_at FROM knowledge_entries ORDER BY created_at DESC, id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge entries: %w", err)
	}
	defer rows.Close()

	return scanKnowledgeEntries(rows)
}

// SearchKnowledge matches active entries case-insensitively against
// question and category, newest first.
func (s *SQLiteStore) SearchKnowledge(text string, limit int) ([]KnowledgeEntry, error) {
	if text == "" {
		return nil, nil
	}

	rows, err := s.db.Query(`
        SELECT id, question, answer, category, active, created_at, modified_at
        FROM knowledge_entries
        WHERE active = 1 AND (question LIKE ? OR category LIKE ?)
        ORDER BY created_at DESC, id DESC
        LIMIT ?`,
		"%"+text+"%", "%"+text+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge entries: %w", err)
	}
	defer rows.Close()

	return scanKnowledgeEntries(rows)
}

func scanKnowledgeEntries(rows *sql.Rows) ([]KnowledgeEntry, error) {
	var entries []KnowledgeEntry
	for rows.Next() {
		var entry KnowledgeEntry
		if err := rows.Scan(&entry.ID, &entry.Question, &entry.Answer, &entry.Category, &entry.Active, &entry.Created, &entry.Modified); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Settings methods

// GetSettings returns the singleton, creating the default row on first
// read so the assistant works before anyone touches the settings tab.
func (s *SQLiteStore) GetSettings() (*Settings, error) {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO settings (id, bot_name, ai_model, temperature, system_prompt, tools_config) VALUES (1, ?, ?, ?, ?, '{}')",
		DefaultBotName, DefaultAIModel, DefaultTemperature, DefaultSystemPrompt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to seed settings: %w", err)
	}

	settings := &Settings{}
	var toolsJSON string
	err = s.db.QueryRow(
		"SELECT bot_name, ai_model, temperature, system_prompt, tools_config FROM settings WHERE id = 1",
	).Scan(&settings.BotName, &settings.AIModel, &settings.Temperature, &settings.SystemPrompt, &toolsJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	settings.ToolsConfig = map[string]bool{}
	if toolsJSON != "" {
		if err := json.Unmarshal([]byte(toolsJSON), &settings.ToolsConfig); err != nil {
			return nil, fmt.Errorf("failed to decode tools config: %w", err)
		}
	}
	return settings, nil
}

// UpdateSettings applies a partial update: only supplied fields change,
// so the dashboard can save the tool toggles without clobbering the
// prompt or model. Last write wins.
func (s *SQLiteStore) UpdateSettings(patch SettingsPatch) (*Settings, error) {
	if patch.Temperature != nil && (*patch.Temperature < 0 || *patch.Temperature > 1) {
		return nil, fmt.Errorf("%w: temperature must be within [0, 1]", ErrInvalidArgument)
	}

	settings, err := s.GetSettings()
	if err != nil {
		return nil, err
	}

	if patch.BotName != nil {
		settings.BotName = *patch.BotName
	}
	if patch.AIModel != nil {
		settings.AIModel = *patch.AIModel
	}
	if patch.Temperature != nil {
		settings.Temperature = *patch.Temperature
	}
	if patch.SystemPrompt != nil {
		settings.SystemPrompt = *patch.SystemPrompt
	}
	if patch.ToolsConfig != nil {
		settings.ToolsConfig = *patch.ToolsConfig
	}

	toolsJSON, err := json.Marshal(settings.ToolsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tools config: %w", err)
	}

	_, err = s.db.Exec(
		"UPDATE settings SET bot_name = ?, ai_model = ?, temperature = ?, system_prompt = ?, tools_config = ? WHERE id = 1",
		settings.BotName, settings.AIModel, settings.Temperature, settings.SystemPrompt, string(toolsJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return settings, nil
}
