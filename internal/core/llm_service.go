package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"kmp.co.th/assistant-backend/internal/config"
)

// LLMService is the Gemini-backed ModelClient. Model name and
// temperature come in per request because both live in the admin
// settings, not in process configuration.
type LLMService struct {
	client *genai.Client
}

func NewLLMService() *LLMService {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.AppConfig.GeminiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create GenAI client: %v", err)
	}

	return &LLMService{
		client: client,
	}
}

func (s *LLMService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *LLMService) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if len(req.History) == 0 {
		return nil, fmt.Errorf("prompt history is empty for chat completion")
	}

	model := s.client.GenerativeModel(req.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(req.SystemPrompt)},
	}

	temp := req.Temperature
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: &temp,
	}

	if len(req.Tools) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: req.Tools}}
	}

	contents := make([]*genai.Content, 0, len(req.History))
	for _, turn := range req.History {
		contents = append(contents, turnToContent(turn))
	}

	chatSession := model.StartChat()
	chatSession.History = contents[:len(contents)-1]

	last := contents[len(contents)-1]
	resp, err := chatSession.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		log.Println("Gemini response was empty or had no valid candidates/parts.")
		return &Completion{}, nil
	}

	completion := &Completion{}
	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			responseText.WriteString(string(p))
		case genai.FunctionCall:
			if completion.ToolCall == nil {
				completion.ToolCall = &ToolCall{Name: p.Name, Args: p.Args}
			}
		default:
			log.Printf("Gemini response part was not text or a function call: %T", part)
		}
	}

	// A requested tool takes precedence; any accompanying text is
	// preamble the second completion will replace.
	if completion.ToolCall == nil {
		completion.Text = responseText.String()
	}
	return completion, nil
}

func turnToContent(turn Turn) *genai.Content {
	switch {
	case turn.ToolCall != nil:
		return &genai.Content{
			Role:  "model",
			Parts: []genai.Part{genai.FunctionCall{Name: turn.ToolCall.Name, Args: turn.ToolCall.Args}},
		}
	case turn.ToolResult != nil:
		return &genai.Content{
			Role:  "user",
			Parts: []genai.Part{genai.FunctionResponse{Name: turn.ToolResult.Name, Response: turn.ToolResult.Response}},
		}
	case turn.Role == "assistant":
		return &genai.Content{
			Role:  "model",
			Parts: []genai.Part{genai.Text(turn.Content)},
		}
	default:
		return &genai.Content{
			Role:  "user",
			Parts: []genai.Part{genai.Text(turn.Content)},
		}
	}
}
