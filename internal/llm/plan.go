package llm

import (
	"context"
	"fmt"
)

const planMaxTokens = 2048

// PlanSource adapts the client to planner.PlanningCapability.
type PlanSource struct {
	client *Client
}

// NewPlanSource wraps a client for plan generation.
func NewPlanSource(client *Client) *PlanSource {
	return &PlanSource{client: client}
}

// Generate passes system instructions and a user prompt through to the API.
func (s *PlanSource) Generate(ctx context.Context, system, user string) (string, error) {
	text, err := s.client.Complete(ctx, system, user, planMaxTokens)
	if err != nil {
		return "", fmt.Errorf("plan generation: %w", err)
	}
	return text, nil
}
