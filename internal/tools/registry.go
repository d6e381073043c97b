package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

var (
	// ErrUnknownTool is returned when no tool with the given name exists.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrNotAvailable is returned when the tool exists but is disabled
	// in the settings tool-enable map.
	ErrNotAvailable = errors.New("tool not available")

	// ErrExecution wraps failures from the tool's data source.
	ErrExecution = errors.New("tool execution failed")
)

// Handler executes one tool call. Args come straight from the model's
// function-call payload.
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

type Descriptor struct {
	Name        string
	Description string
	Parameters  *genai.Schema
}

// Info is the descriptor with its enablement resolved, for the admin
// tools tab.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

type tool struct {
	desc Descriptor
	run  Handler
}

// Registry holds the static tool set. Enablement is not stored here;
// it is resolved per call from the settings tool-enable map, with
// absent names defaulting to enabled.
type Registry struct {
	tools map[string]*tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*tool)}
}

func (r *Registry) Register(desc Descriptor, run Handler) {
	if _, exists := r.tools[desc.Name]; !exists {
		r.order = append(r.order, desc.Name)
	}
	r.tools[desc.Name] = &tool{desc: desc, run: run}
}

// Enabled reports whether a tool may be offered to the model. A name
// missing from the config map is enabled; reversing this default would
// silently hide newly added tools.
func Enabled(name string, config map[string]bool) bool {
	enabled, present := config[name]
	if !present {
		return true
	}
	return enabled
}

func (r *Registry) List(config map[string]bool) []Info {
	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		infos = append(infos, Info{
			Name:        t.desc.Name,
			Description: t.desc.Description,
			Enabled:     Enabled(name, config),
		})
	}
	return infos
}

// Declarations returns the function declarations for the enabled
// subset, in registration order. This is the candidate set exposed to
// the model.
func (r *Registry) Declarations(config map[string]bool) []*genai.FunctionDeclaration {
	var decls []*genai.FunctionDeclaration
	for _, name := range r.order {
		if !Enabled(name, config) {
			continue
		}
		t := r.tools[name]
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.desc.Name,
			Description: t.desc.Description,
			Parameters:  t.desc.Parameters,
		})
	}
	return decls
}

// Invoke resolves the name, checks enablement and runs the tool. A
// disabled tool never executes.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]interface{}, config map[string]bool) (interface{}, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if !Enabled(name, config) {
		return nil, fmt.Errorf("%w: %s", ErrNotAvailable, name)
	}

	result, err := t.run(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExecution, name, err)
	}
	return result, nil
}
