// Package planner turns a natural-language world request into an ordered
// generation plan. The language model behind it is an injected capability;
// its free-text reply is untrusted input and crosses exactly one
// parse-and-validate boundary here.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talgya/hexforge/internal/assetpack"
	"github.com/talgya/hexforge/internal/world"
)

// PlanningCapability produces free text from system instructions and a user
// prompt. Implementations live outside the core and may fail with transport
// or timeout errors.
type PlanningCapability interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// TodoStatus is the lifecycle state of one unit of planned work.
type TodoStatus string

const (
	StatusPending    TodoStatus = "pending"
	StatusInProgress TodoStatus = "in-progress"
	StatusDone       TodoStatus = "done"
	StatusFailed     TodoStatus = "failed"
)

// Todo is one unit of planned generation work. Status is its only mutable
// field.
type Todo struct {
	ID                 string     `json:"id"`
	Description        string     `json:"description"`
	CompletionCriteria string     `json:"completionCriteria"`
	SuggestedTiles     []string   `json:"suggestedTiles,omitempty"`
	Status             TodoStatus `json:"status"`
}

// WorldPlan is a validated generation plan.
type WorldPlan struct {
	Theme               string `json:"theme"`
	DetailedDescription string `json:"detailedDescription"`
	Todos               []Todo `json:"todos"`
	Reasoning           string `json:"reasoning"`
}

// ErrMalformedPlan marks a planning reply that could not be turned into a
// usable plan. Recoverable: the caller may retry.
var ErrMalformedPlan = errors.New("malformed plan")

const planSystemPrompt = `You are a world layout planner for a hex-grid tile world.
Given a request and the available tile vocabulary, break the work into an ordered todo list.

Respond with ONLY a single JSON object:
{
  "theme": "short theme name",
  "detailedDescription": "what the finished world looks like",
  "reasoning": "why the todos are ordered this way",
  "todos": [
    {
      "id": "todo-1",
      "description": "what to build",
      "completionCriteria": "how to tell it is done",
      "suggestedTiles": ["tile-id"]
    }
  ]
}

Rules:
- Only reference tile ids that exist in the provided vocabulary.
- Order todos so that earlier ones form the terrain later ones attach to.
- Keep each todo small enough to complete with a handful of tile placements.`

// Planner builds plans through an injected planning capability.
type Planner struct {
	capability PlanningCapability
}

// New creates a planner over the given capability.
func New(capability PlanningCapability) *Planner {
	return &Planner{capability: capability}
}

// CreatePlan asks the capability for a plan covering the request. For
// modification requests, existing carries the current world so the prompt
// can describe its structure; pass nil for a fresh world. Returns
// ErrMalformedPlan when the reply has no usable plan in it.
func (p *Planner) CreatePlan(ctx context.Context, request string, idx *assetpack.Index, existing *world.World, maxTiles int) (*WorldPlan, error) {
	user := buildPlanPrompt(request, idx, existing, maxTiles)

	raw, err := p.capability.Generate(ctx, planSystemPrompt, user)
	if err != nil {
		return nil, fmt.Errorf("planning call: %w", err)
	}

	slog.Debug("planning reply", "length", len(raw))

	doc, ok := ExtractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrMalformedPlan)
	}

	var plan WorldPlan
	if err := json.Unmarshal([]byte(doc), &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}

	if err := validatePlan(&plan); err != nil {
		return nil, err
	}

	return &plan, nil
}

// validatePlan re-checks every field of an unmarshalled plan before anything
// downstream trusts it.
func validatePlan(plan *WorldPlan) error {
	if strings.TrimSpace(plan.Theme) == "" {
		return fmt.Errorf("%w: empty theme", ErrMalformedPlan)
	}
	if strings.TrimSpace(plan.DetailedDescription) == "" {
		return fmt.Errorf("%w: empty detailedDescription", ErrMalformedPlan)
	}
	if strings.TrimSpace(plan.Reasoning) == "" {
		return fmt.Errorf("%w: empty reasoning", ErrMalformedPlan)
	}
	if len(plan.Todos) == 0 {
		return fmt.Errorf("%w: no todos", ErrMalformedPlan)
	}

	for i := range plan.Todos {
		td := &plan.Todos[i]
		if strings.TrimSpace(td.ID) == "" {
			return fmt.Errorf("%w: todo %d has no id", ErrMalformedPlan, i)
		}
		if strings.TrimSpace(td.Description) == "" {
			return fmt.Errorf("%w: todo %q has no description", ErrMalformedPlan, td.ID)
		}
		if strings.TrimSpace(td.CompletionCriteria) == "" {
			return fmt.Errorf("%w: todo %q has no completionCriteria", ErrMalformedPlan, td.ID)
		}
		switch td.Status {
		case "":
			td.Status = StatusPending
		case StatusPending, StatusInProgress, StatusDone, StatusFailed:
		default:
			return fmt.Errorf("%w: todo %q has unknown status %q", ErrMalformedPlan, td.ID, td.Status)
		}
	}

	return nil
}

// ExtractJSON returns the first balanced JSON object embedded in s. Balanced
// means brace depth returns to zero outside of string literals; prose around
// the object, including markdown fences, is ignored.
func ExtractJSON(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}
