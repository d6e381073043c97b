package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"kmp.co.th/assistant-backend/internal/store"
	"kmp.co.th/assistant-backend/internal/tools"
)

const (
	maxKnowledgeMatches = 3

	degradedReply = "Sorry, I'm unable to respond right now. Please try again in a moment."

	toolUnavailableReply = "Sorry, that lookup is currently disabled. " +
		"Please ask an administrator to enable it, or try asking in a different way."
)

// AssistantService owns the chat orchestration loop and fronts the
// store for every RPC the widget and the admin dashboard make.
type AssistantService struct {
	dbStore  *store.SQLiteStore
	registry *tools.Registry
	llm      ModelClient

	historyWindow int
	llmTimeout    time.Duration
	toolTimeout   time.Duration

	locks *sessionLocks
}

func NewAssistantService(db *store.SQLiteStore, registry *tools.Registry, llm ModelClient, historyWindow int, llmTimeout, toolTimeout time.Duration) *AssistantService {
	return &AssistantService{
		dbStore:       db,
		registry:      registry,
		llm:           llm,
		historyWindow: historyWindow,
		llmTimeout:    llmTimeout,
		toolTimeout:   toolTimeout,
		locks:         newSessionLocks(),
	}
}

// Chat resolves or creates the session, records the user turn, runs
// the model with at most one tool round-trip and records the reply.
// Provider failures surface as a degraded reply, never as an error:
// whatever the user saw is what history holds.
func (s *AssistantService) Chat(ctx context.Context, user, sessionID, message string) (string, string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", "", fmt.Errorf("%w: message cannot be empty", store.ErrInvalidArgument)
	}

	settings, err := s.dbStore.GetSettings()
	if err != nil {
		return "", "", fmt.Errorf("failed to load settings: %w", err)
	}

	// An unknown session id behaves like no id at all: start fresh.
	seedSystemPrompt := false
	if sessionID != "" {
		if _, err := s.dbStore.GetSession(sessionID); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return "", "", err
			}
			sessionID = ""
		}
	}
	if sessionID == "" {
		session, err := s.dbStore.CreateSession(user)
		if err != nil {
			return "", "", fmt.Errorf("failed to create session: %w", err)
		}
		sessionID = session.ID
		seedSystemPrompt = true
	}

	lock := s.locks.lock(sessionID)
	defer s.locks.unlock(sessionID, lock)

	if seedSystemPrompt {
		if _, err := s.dbStore.AppendMessage(sessionID, store.RoleSystem, settings.SystemPrompt); err != nil {
			return "", "", fmt.Errorf("failed to seed system prompt: %w", err)
		}
	}

	if _, err := s.dbStore.AppendMessage(sessionID, store.RoleUser, message); err != nil {
		return "", "", fmt.Errorf("failed to store user message: %w", err)
	}

	reply := s.generateReply(ctx, settings, sessionID, message)

	if _, err := s.dbStore.AppendMessage(sessionID, store.RoleAssistant, reply); err != nil {
		return "", "", fmt.Errorf("failed to store assistant message: %w", err)
	}

	return sessionID, reply, nil
}

// generateReply assembles the bounded context window and runs the
// model, allowing a single tool round-trip. All failures collapse into
// canned reply text.
func (s *AssistantService) generateReply(ctx context.Context, settings *store.Settings, sessionID, userQuery string) string {
	history, err := s.dbStore.LastMessages(sessionID, s.historyWindow)
	if err != nil {
		log.Printf("Error loading history for session %s: %v. Proceeding without it.", sessionID, err)
		history = nil
	}

	systemPrompt := settings.SystemPrompt
	entries, err := s.dbStore.SearchKnowledge(userQuery, maxKnowledgeMatches)
	if err != nil {
		log.Printf("Knowledge search failed for session %s: %v. Proceeding without it.", sessionID, err)
	} else if len(entries) > 0 {
		systemPrompt += knowledgeBlock(entries)
	}

	turns := make([]Turn, 0, len(history))
	for _, msg := range history {
		// The stored system prompt rides as the model's system
		// instruction, not as a history turn.
		if msg.Role == store.RoleSystem {
			continue
		}
		turns = append(turns, Turn{Role: msg.Role, Content: msg.Content})
	}
	if len(turns) == 0 || turns[len(turns)-1].Role != store.RoleUser {
		turns = append(turns, Turn{Role: store.RoleUser, Content: userQuery})
	}

	req := CompletionRequest{
		Model:        settings.AIModel,
		Temperature:  float32(settings.Temperature),
		SystemPrompt: systemPrompt,
		History:      turns,
		Tools:        s.registry.Declarations(settings.ToolsConfig),
	}

	completion, err := s.complete(ctx, req)
	if err != nil {
		log.Printf("Model completion failed for session %s: %v", sessionID, err)
		return degradedReply
	}

	if completion.ToolCall == nil {
		if completion.Text == "" {
			return degradedReply
		}
		return completion.Text
	}

	call := completion.ToolCall
	toolCtx, cancel := context.WithTimeout(ctx, s.toolTimeout)
	defer cancel()

	var response map[string]interface{}
	result, err := s.registry.Invoke(toolCtx, call.Name, call.Args, settings.ToolsConfig)
	switch {
	case errors.Is(err, tools.ErrUnknownTool), errors.Is(err, tools.ErrNotAvailable):
		// Never hand the model another shot at an unauthorized tool.
		log.Printf("Model requested unavailable tool %q for session %s: %v", call.Name, sessionID, err)
		return toolUnavailableReply
	case err != nil:
		// The data source failed; let the model decide how to phrase it.
		log.Printf("Tool %q failed for session %s: %v", call.Name, sessionID, err)
		response = map[string]interface{}{"error": err.Error()}
	default:
		response = map[string]interface{}{"result": result}
	}

	turns = append(turns,
		Turn{Role: store.RoleAssistant, ToolCall: call},
		Turn{ToolResult: &ToolResult{Name: call.Name, Response: response}},
	)

	// Second, final completion: no tools offered, so the round-trip
	// count stays at one.
	req.History = turns
	req.Tools = nil

	completion, err = s.complete(ctx, req)
	if err != nil {
		log.Printf("Final completion failed for session %s: %v", sessionID, err)
		return degradedReply
	}
	if completion.Text == "" {
		return degradedReply
	}
	return completion.Text
}

func (s *AssistantService) complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	llmCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()

	completion, err := s.llm.Complete(llmCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
		}
		return nil, err
	}
	return completion, nil
}

func knowledgeBlock(entries []store.KnowledgeEntry) string {
	var b strings.Builder
	b.WriteString("\n\n--- Additional knowledge base ---\n")
	for _, e := range entries {
		if e.Category != "" {
			fmt.Fprintf(&b, "\nQ [%s]: %s\nA: %s\n", e.Category, e.Question, e.Answer)
		} else {
			fmt.Fprintf(&b, "\nQ: %s\nA: %s\n", e.Question, e.Answer)
		}
	}
	return b.String()
}

// Widget RPCs

func (s *AssistantService) SubmitFeedback(sessionID string, messageIndex int, rating, comment, user string) error {
	return s.dbStore.UpsertFeedback(sessionID, messageIndex, rating, comment, user)
}

func (s *AssistantService) MySessions(user string, limit int) ([]store.SessionSummary, error) {
	return s.dbStore.SessionsForUser(user, limit)
}

func (s *AssistantService) SessionHistory(sessionID string) (*store.Session, []store.Message, error) {
	session, err := s.dbStore.GetSession(sessionID)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.dbStore.SessionMessages(sessionID)
	if err != nil {
		return nil, nil, err
	}
	return session, messages, nil
}

// Admin RPCs

func (s *AssistantService) DashboardStats() (*store.DashboardStats, error) {
	return s.dbStore.Stats()
}

func (s *AssistantService) Settings() (*store.Settings, error) {
	return s.dbStore.GetSettings()
}

func (s *AssistantService) UpdateSettings(patch store.SettingsPatch) (*store.Settings, error) {
	return s.dbStore.UpdateSettings(patch)
}

func (s *AssistantService) ListTools() ([]tools.Info, error) {
	settings, err := s.dbStore.GetSettings()
	if err != nil {
		return nil, err
	}
	return s.registry.List(settings.ToolsConfig), nil
}

func (s *AssistantService) AllSessions(search string, limit, offset int) ([]store.SessionSummary, int, error) {
	return s.dbStore.ListSessions(search, limit, offset)
}

func (s *AssistantService) SessionDetail(sessionID string) (*store.Session, []store.Message, error) {
	return s.SessionHistory(sessionID)
}

func (s *AssistantService) DeleteSession(sessionID string) error {
	return s.dbStore.DeleteSession(sessionID)
}

func (s *AssistantService) AllFeedback(ratingFilter string, limit, offset int) ([]store.FeedbackRecord, int, error) {
	return s.dbStore.ListFeedback(ratingFilter, limit, offset)
}

func (s *AssistantService) KnowledgeEntries() ([]store.KnowledgeEntry, error) {
	return s.dbStore.ListKnowledgeEntries()
}

func (s *AssistantService) AddKnowledgeEntry(question, answer, category string) (*store.KnowledgeEntry, error) {
	return s.dbStore.AddKnowledgeEntry(question, answer, category)
}

func (s *AssistantService) UpdateKnowledgeEntry(id int64, upd store.KnowledgeUpdate) error {
	return s.dbStore.UpdateKnowledgeEntry(id, upd)
}

func (s *AssistantService) DeleteKnowledgeEntry(id int64) error {
	return s.dbStore.DeleteKnowledgeEntry(id)
}
