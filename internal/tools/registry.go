package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/vigneshmj1997/CodingAgent/internal/models"
)

// ErrDenied is returned by mutating tools when the human declines the action.
var ErrDenied = errors.New("declined by user")

// Tool represents a function that can be called by the model
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{} // JSON schema of the arguments object
	Mutating() bool
	Execute(ctx context.Context, call Call) (string, error)
}

// Call carries one invocation of a tool.
type Call struct {
	ID       string
	Args     json.RawMessage
	Progress func(line string) // streams intermediate output, never nil inside Execute
}

// Confirmator asks the human to approve a mutation before it touches disk.
type Confirmator interface {
	Confirm(ctx context.Context, description, preview string) bool
}

// Asker forwards a free-form question to the human.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

type confirmable interface {
	SetConfirmator(Confirmator)
}

// Registry manages available tools. Registration order is kept so the
// schema advertised to the model is stable.
type Registry struct {
	tools       map[string]Tool
	order       []string
	confirmator Confirmator
	mu          sync.RWMutex
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry. Registering a name twice is an error.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	if c, ok := tool.(confirmable); ok && r.confirmator != nil {
		c.SetConfirmator(r.confirmator)
	}
	return nil
}

// SetConfirmator installs the approval channel on every tool that mutates.
func (r *Registry) SetConfirmator(c Confirmator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmator = c
	for _, tool := range r.tools {
		if ct, ok := tool.(confirmable); ok {
			ct.SetConfirmator(c)
		}
	}
}

// HasConfirmator reports whether an approval channel is installed.
func (r *Registry) HasConfirmator() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.confirmator != nil
}

// GetTool retrieves a tool by name
func (r *Registry) GetTool(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, exists := r.tools[name]
	return tool, exists
}

// ListTools returns all registered tools in registration order.
func (r *Registry) ListTools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Specs returns the schema of every tool for the model invoker.
func (r *Registry) Specs() []models.ToolSpec {
	tools := r.ListTools()
	specs := make([]models.ToolSpec, len(tools))
	for i, tool := range tools {
		specs[i] = models.ToolSpec{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
			Mutating:    tool.Mutating(),
		}
	}
	return specs
}

// decodeArgs unmarshals raw call arguments into dst.
func decodeArgs(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
