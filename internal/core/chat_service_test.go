package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"kmp.co.th/assistant-backend/internal/store"
	"kmp.co.th/assistant-backend/internal/tools"
)

// fakeModel replays scripted completions and records every request it
// receives.
type fakeModel struct {
	mu       sync.Mutex
	script   []func(req CompletionRequest) (*Completion, error)
	requests []CompletionRequest
}

func (f *fakeModel) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.script) == 0 {
		return nil, fmt.Errorf("fakeModel: no scripted completion left")
	}
	next := f.script[0]
	f.script = f.script[1:]
	return next(req)
}

func (f *fakeModel) Close() error { return nil }

func reply(text string) func(CompletionRequest) (*Completion, error) {
	return func(CompletionRequest) (*Completion, error) {
		return &Completion{Text: text}, nil
	}
}

func requestTool(name string, args map[string]interface{}) func(CompletionRequest) (*Completion, error) {
	return func(CompletionRequest) (*Completion, error) {
		return &Completion{ToolCall: &ToolCall{Name: name, Args: args}}, nil
	}
}

func fail(err error) func(CompletionRequest) (*Completion, error) {
	return func(CompletionRequest) (*Completion, error) {
		return nil, err
	}
}

type capturedCall struct {
	name string
	args map[string]interface{}
}

// newStockRegistry registers a stubbed stock tool and records its
// invocations.
func newStockRegistry(result interface{}, toolErr error) (*tools.Registry, *[]capturedCall) {
	calls := &[]capturedCall{}
	r := tools.NewRegistry()
	r.Register(tools.Descriptor{
		Name:        "check_stock",
		Description: "Check stock levels",
		Parameters:  &genai.Schema{Type: genai.TypeObject},
	}, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		*calls = append(*calls, capturedCall{name: "check_stock", args: args})
		return result, toolErr
	})
	return r, calls
}

func newTestService(t *testing.T, registry *tools.Registry, model ModelClient) (*AssistantService, *store.SQLiteStore) {
	t.Helper()
	dbStore, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() { dbStore.Close() })

	svc := NewAssistantService(dbStore, registry, model, 20, 5*time.Second, 5*time.Second)
	return svc, dbStore
}

func TestChatCreatesSessionAndSeedsSystemPrompt(t *testing.T) {
	registry, _ := newStockRegistry(nil, nil)
	model := &fakeModel{script: []func(CompletionRequest) (*Completion, error){reply("hello alice")}}
	svc, dbStore := newTestService(t, registry, model)

	sessionID, answer, err := svc.Chat(context.Background(), "alice", "", "hi")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if sessionID == "" {
		t.Fatal("Chat returned empty session id")
	}
	if answer != "hello alice" {
		t.Errorf("answer = %q", answer)
	}

	messages, err := dbStore.SessionMessages(sessionID)
	if err != nil {
		t.Fatalf("SessionMessages: %v", err)
	}
	wantRoles := []string{store.RoleSystem, store.RoleUser, store.RoleAssistant}
	if len(messages) != len(wantRoles) {
		t.Fatalf("got %d messages, want %d", len(messages), len(wantRoles))
	}
	for i, role := range wantRoles {
		if messages[i].Role != role {
			t.Errorf("message %d role = %q, want %q", i, messages[i].Role, role)
		}
	}
	if messages[0].Content != store.DefaultSystemPrompt {
		t.Error("session was not seeded with the active system prompt")
	}

	// The system prompt must ride as the system instruction, not as a
	// history turn.
	req := model.requests[0]
	if req.SystemPrompt == "" {
		t.Error("request has no system prompt")
	}
	for _, turn := range req.History {
		if turn.Role == store.RoleSystem {
			t.Error("system prompt leaked into the history turns")
		}
	}
}

func TestChatUnknownSessionBehavesLikeNew(t *testing.T) {
	registry, _ := newStockRegistry(nil, nil)
	model := &fakeModel{script: []func(CompletionRequest) (*Completion, error){reply("fresh start")}}
	svc, dbStore := newTestService(t, registry, model)

	sessionID, _, err := svc.Chat(context.Background(), "alice", "gone-session", "hi")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if sessionID == "gone-session" {
		t.Error("Chat reused an unknown session id")
	}

	messages, _ := dbStore.SessionMessages(sessionID)
	if len(messages) != 3 || messages[0].Role != store.RoleSystem {
		t.Errorf("new session not seeded correctly: %d messages", len(messages))
	}
}

func TestChatResumesExistingSession(t *testing.T) {
	registry, _ := newStockRegistry(nil, nil)
	model := &fakeModel{script: []func(CompletionRequest) (*Completion, error){reply("first"), reply("second")}}
	svc, dbStore := newTestService(t, registry, model)

	sessionID, _, err := svc.Chat(context.Background(), "alice", "", "one")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	resumed, _, err := svc.Chat(context.Background(), "alice", sessionID, "two")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resumed != sessionID {
		t.Fatalf("second chat created a new session")
	}

	messages, _ := dbStore.SessionMessages(sessionID)
	if len(messages) != 5 {
		t.Fatalf("got %d messages, want 5 (system + 2 exchanges)", len(messages))
	}
	// Prior turns must be in the second request's history.
	second := model.requests[1]
	var sawFirstQuestion bool
	for _, turn := range second.History {
		if turn.Role == store.RoleUser && turn.Content == "one" {
			sawFirstQuestion = true
		}
	}
	if !sawFirstQuestion {
		t.Error("second completion did not carry prior history")
	}
}

func TestChatSingleToolRoundTrip(t *testing.T) {
	registry, calls := newStockRegistry(map[string]interface{}{"item_code": "A001", "actual_qty": 42.0}, nil)
	model := &fakeModel{script: []func(CompletionRequest) (*Completion, error){
		requestTool("check_stock", map[string]interface{}{"item_code": "A001"}),
		reply("Item A001 has 42 units on hand."),
	}}
	svc, dbStore := newTestService(t, registry, model)

	sessionID, answer, err := svc.Chat(context.Background(), "alice", "", "check stock of item A001")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "Item A001 has 42 units on hand." {
		t.Errorf("answer = %q", answer)
	}

	if len(*calls) != 1 {
		t.Fatalf("tool executed %d times, want exactly 1", len(*calls))
	}
	if (*calls)[0].args["item_code"] != "A001" {
		t.Errorf("tool args = %+v", (*calls)[0].args)
	}

	if len(model.requests) != 2 {
		t.Fatalf("model called %d times, want 2", len(model.requests))
	}
	first, second := model.requests[0], model.requests[1]
	if len(first.Tools) == 0 {
		t.Error("first completion offered no tools")
	}
	if len(second.Tools) != 0 {
		t.Error("second completion offered tools again; only one round-trip is allowed")
	}

	last := second.History[len(second.History)-1]
	if last.ToolResult == nil || last.ToolResult.Name != "check_stock" {
		t.Errorf("second completion history does not end with the tool result: %+v", last)
	}
	if _, ok := last.ToolResult.Response["result"]; !ok {
		t.Errorf("tool result payload missing: %+v", last.ToolResult.Response)
	}

	messages, _ := dbStore.SessionMessages(sessionID)
	if len(messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(messages))
	}
	if messages[1].Index != 1 || messages[1].Role != store.RoleUser {
		t.Errorf("user turn at %d/%s", messages[1].Index, messages[1].Role)
	}
	if messages[2].Index != 2 || messages[2].Role != store.RoleAssistant {
		t.Errorf("assistant turn at %d/%s", messages[2].Index, messages[2].Role)
	}
}

func TestChatDisabledToolNeverExecutes(t *testing.T) {
	registry, calls := newStockRegistry(nil, nil)
	model := &fakeModel{script: []func(CompletionRequest) (*Completion, error){
		requestTool("check_stock", map[string]interface{}{"item_code": "A001"}),
	}}
	svc, dbStore := newTestService(t, registry, model)

	toolsConfig := map[string]bool{"check_stock": false}
	if _, err := dbStore.UpdateSettings(store.SettingsPatch{ToolsConfig: &toolsConfig}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	_, answer, err := svc.Chat(context.Background(), "alice", "", "check stock of item A001")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != toolUnavailableReply {
		t.Errorf("answer = %q, want the fallback reply", answer)
	}
	if len(*calls) != 0 {
		t.Fatal("disabled tool was executed")
	}
	if len(model.requests) != 1 {
		t.Errorf("model called %d times; the engine must not retry after an unauthorized tool request", len(model.requests))
	}
	if len(model.requests[0].Tools) != 0 {
		t.Error("disabled tool was still offered to the model")
	}
}

func TestChatUnknownToolFallsBack(t *testing.T) {
	registry, _ := newStockRegistry(nil, nil)
	model := &fakeModel{script: []func(CompletionRequest) (*Completion, error){
		requestTool("drop_tables", nil),
	}}
	svc, _ := newTestService(t, registry, model)

	_, answer, err := svc.Chat(context.Background(), "alice", "", "do something weird")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != toolUnavailableReply {
		t.Errorf("answer = %q, want the fallback reply", answer)
	}
}

func TestChatToolFailureIsFedBackToModel(t *testing.T) {
	registry, _ := newStockRegistry(nil, errors.New("warehouse service unreachable"))
	model := &fakeModel{script: []func(CompletionRequest) (*Completion, error){
		requestTool("check_stock", map[string]interface{}{"item_code": "A001"}),
		reply("I couldn't reach the stock data just now."),
	}}
	svc, _ := newTestService(t, registry, model)

	_, answer, err := svc.Chat(context.Background(), "alice", "", "check stock of item A001")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "I couldn't reach the stock data just now." {
		t.Errorf("answer = %q", answer)
	}

	second := model.requests[1]
	last := second.History[len(second.History)-1]
	if last.ToolResult == nil {
		t.Fatal("tool result turn missing")
	}
	if _, ok := last.ToolResult.Response["error"]; !ok {
		t.Errorf("tool failure not surfaced as an error payload: %+v", last.ToolResult.Response)
	}
}

func TestChatModelFailureYieldsDegradedReply(t *testing.T) {
	registry, _ := newStockRegistry(nil, nil)
	model := &fakeModel{script: []func(CompletionRequest) (*Completion, error){
		fail(errors.New("provider exploded")),
	}}
	svc, dbStore := newTestService(t, registry, model)

	sessionID, answer, err := svc.Chat(context.Background(), "alice", "", "hi")
	if err != nil {
		t.Fatalf("Chat must recover provider failures, got: %v", err)
	}
	if answer != degradedReply {
		t.Errorf("answer = %q, want the degraded reply", answer)
	}

	// History stays consistent with what the user saw.
	messages, _ := dbStore.SessionMessages(sessionID)
	lastMsg := messages[len(messages)-1]
	if lastMsg.Role != store.RoleAssistant || lastMsg.Content != degradedReply {
		t.Errorf("degraded reply not logged as assistant turn: %+v", lastMsg)
	}
}

func TestChatEmptyMessageRejected(t *testing.T) {
	registry, _ := newStockRegistry(nil, nil)
	svc, _ := newTestService(t, registry, &fakeModel{})

	if _, _, err := svc.Chat(context.Background(), "alice", "", "   "); !errors.Is(err, store.ErrInvalidArgument) {
		t.Errorf("blank message returned %v, want ErrInvalidArgument", err)
	}
}

func TestChatInjectsKnowledgeContext(t *testing.T) {
	registry, _ := newStockRegistry(nil, nil)
	model := &fakeModel{script: []func(CompletionRequest) (*Completion, error){reply("before 14:00")}}
	svc, dbStore := newTestService(t, registry, model)

	if _, err := dbStore.AddKnowledgeEntry("Shipping cutoff time?", "Orders placed before 14:00 ship same day.", "Logistics"); err != nil {
		t.Fatalf("AddKnowledgeEntry: %v", err)
	}

	if _, _, err := svc.Chat(context.Background(), "alice", "", "shipping cutoff"); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	req := model.requests[0]
	if !strings.Contains(req.SystemPrompt, "Orders placed before 14:00 ship same day.") {
		t.Error("matching knowledge entry was not appended to the prompt")
	}
}

func TestChatSerializesPerSession(t *testing.T) {
	registry, _ := newStockRegistry(nil, nil)

	// Every completion parks briefly so overlapping calls would
	// interleave their appends if the per-session lock were missing.
	slow := func(req CompletionRequest) (*Completion, error) {
		time.Sleep(20 * time.Millisecond)
		return &Completion{Text: "ok"}, nil
	}
	model := &fakeModel{script: []func(CompletionRequest) (*Completion, error){slow, slow, slow, slow, slow}}
	svc, dbStore := newTestService(t, registry, model)

	sessionID, _, err := svc.Chat(context.Background(), "alice", "", "first")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := svc.Chat(context.Background(), "alice", sessionID, "more"); err != nil {
				t.Errorf("concurrent Chat: %v", err)
			}
		}()
	}
	wg.Wait()

	messages, err := dbStore.SessionMessages(sessionID)
	if err != nil {
		t.Fatalf("SessionMessages: %v", err)
	}
	// system + 5 user/assistant pairs, each pair adjacent.
	if len(messages) != 11 {
		t.Fatalf("got %d messages, want 11", len(messages))
	}
	for i := 1; i < len(messages); i += 2 {
		if messages[i].Role != store.RoleUser || messages[i+1].Role != store.RoleAssistant {
			t.Fatalf("turns interleaved at index %d: %s/%s", i, messages[i].Role, messages[i+1].Role)
		}
	}
}
