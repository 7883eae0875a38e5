// Placement suggestion generation. Builds a per-todo prompt from the
// current world, parses the reply into a structured suggestion, and clamps
// obviously bad values before the orchestrator sees them.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/talgya/hexforge/internal/hexgrid"
	"github.com/talgya/hexforge/internal/orchestrate"
	"github.com/talgya/hexforge/internal/world"
)

const suggestMaxTokens = 1024

const suggestSystemPrompt = `You place tiles on a hex-grid world using axial coordinates (q, r).
Adjacent tiles must have materially compatible facing edges; the engine validates every placement and rejects incompatible ones.

Respond with ONLY a single JSON object:
{
  "tiles": [{"tile_type": "id", "q": 0, "r": 0, "elevation": 0}],
  "add_ons": [{"addon_type": "id", "q": 0, "r": 0}],
  "removals": [{"q": 0, "r": 0}]
}

Rules:
- Only use tile and add-on ids from the provided vocabulary.
- Place tiles adjacent to existing ones (listed open positions) unless the world is empty.
- "elevation" may be omitted to let the engine pick one.
- "add_ons" and "removals" may be omitted or empty.
- Respond ONLY with JSON. No prose, no markdown fences.`

// Suggester adapts the client to orchestrate.SuggestionCapability.
type Suggester struct {
	client *Client
}

// NewSuggester wraps a client for placement suggestions.
func NewSuggester(client *Client) *Suggester {
	return &Suggester{client: client}
}

// wire types mirror the prompt's JSON shape.
type wireTile struct {
	TileType  string `json:"tile_type"`
	Q         int    `json:"q"`
	R         int    `json:"r"`
	Elevation *int   `json:"elevation"`
}

type wireAddOn struct {
	AddOnType string  `json:"addon_type"`
	Q         int     `json:"q"`
	R         int     `json:"r"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Rotation  float64 `json:"rotation"`
	Scale     float64 `json:"scale"`
}

type wireCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

type wireSuggestion struct {
	Tiles    []wireTile  `json:"tiles"`
	AddOns   []wireAddOn `json:"add_ons"`
	Removals []wireCoord `json:"removals"`
}

// Suggest asks the model for placements covering one todo.
func (s *Suggester) Suggest(ctx context.Context, req orchestrate.SuggestionRequest) (*orchestrate.Suggestion, error) {
	user := buildSuggestPrompt(req)

	reply, err := s.client.Complete(ctx, suggestSystemPrompt, user, suggestMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("suggestion: %w", err)
	}

	return parseSuggestion(reply)
}

// parseSuggestion extracts and validates the JSON suggestion from a model
// reply. Markdown fences around the object are tolerated.
func parseSuggestion(reply string) (*orchestrate.Suggestion, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object found in suggestion reply")
	}

	var wire wireSuggestion
	if err := json.Unmarshal([]byte(reply[start:end+1]), &wire); err != nil {
		return nil, fmt.Errorf("parse suggestion: %w", err)
	}

	if len(wire.Tiles) == 0 && len(wire.AddOns) == 0 && len(wire.Removals) == 0 {
		return nil, fmt.Errorf("suggestion proposes nothing")
	}

	out := &orchestrate.Suggestion{}
	for _, t := range wire.Tiles {
		if strings.TrimSpace(t.TileType) == "" {
			return nil, fmt.Errorf("suggested tile has no tile_type")
		}
		out.Tiles = append(out.Tiles, orchestrate.TilePlacement{
			TileType:  t.TileType,
			Pos:       hexgrid.Axial{Q: t.Q, R: t.R},
			Elevation: t.Elevation,
		})
	}
	for _, a := range wire.AddOns {
		if strings.TrimSpace(a.AddOnType) == "" {
			return nil, fmt.Errorf("suggested add-on has no addon_type")
		}
		scale := a.Scale
		if scale == 0 {
			scale = 1
		}
		out.AddOns = append(out.AddOns, orchestrate.AddOnPlacement{
			AddOnType: a.AddOnType,
			Pos:       hexgrid.Axial{Q: a.Q, R: a.R},
			Transform: world.Transform{X: a.X, Y: a.Y, Z: a.Z, Rotation: a.Rotation, Scale: scale},
		})
	}
	for _, c := range wire.Removals {
		out.Removals = append(out.Removals, hexgrid.Axial{Q: c.Q, R: c.R})
	}

	return out, nil
}

// buildSuggestPrompt renders the todo, the vocabulary, and the world's open
// positions.
func buildSuggestPrompt(req orchestrate.SuggestionRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Theme\n%s\n\n", req.Theme)
	fmt.Fprintf(&b, "## Current todo\n%s\n", req.Todo.Description)
	fmt.Fprintf(&b, "Done when: %s\n", req.Todo.CompletionCriteria)
	if len(req.Todo.SuggestedTiles) > 0 {
		fmt.Fprintf(&b, "Suggested tiles: %s\n", strings.Join(req.Todo.SuggestedTiles, ", "))
	}
	b.WriteString("\n")

	pack := req.Pack.Pack()
	fmt.Fprintf(&b, "## Tile vocabulary (pack %q)\n", pack.ID)
	for i := range pack.Tiles {
		t := &pack.Tiles[i]
		fmt.Fprintf(&b, "- %s: edges [%s]", t.ID, strings.Join(t.Edges, ", "))
		if len(t.Tags) > 0 {
			fmt.Fprintf(&b, " tags [%s]", strings.Join(t.Tags, ", "))
		}
		b.WriteString("\n")
	}
	if len(pack.AddOns) > 0 {
		b.WriteString("Add-ons: ")
		for i := range pack.AddOns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(pack.AddOns[i].ID)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	w := req.World
	budget := req.MaxTiles - w.TileCount()
	fmt.Fprintf(&b, "## World (%d tiles placed, room for %d more)\n", w.TileCount(), budget)
	if w.TileCount() == 0 {
		b.WriteString("The world is empty; start at (0,0).\n")
		return b.String()
	}

	for _, t := range w.Tiles() {
		fmt.Fprintf(&b, "- %s at %s elevation %d\n", t.TileType, t.Pos, t.Elevation)
	}

	open := openPositions(w)
	if len(open) > 0 {
		b.WriteString("Open positions adjacent to the world: ")
		for i, pos := range open {
			if i >= 18 {
				b.WriteString(", ...")
				break
			}
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(pos.String())
		}
		b.WriteString("\n")
	}

	return b.String()
}

// openPositions lists empty coordinates adjacent to at least one placed
// tile, in placement order, deduplicated.
func openPositions(w *world.World) []hexgrid.Axial {
	seen := make(map[hexgrid.Axial]bool)
	var result []hexgrid.Axial
	for _, t := range w.Tiles() {
		for _, n := range hexgrid.Neighbors(t.Pos) {
			if seen[n] {
				continue
			}
			seen[n] = true
			if _, occupied := w.TileAt(n); !occupied {
				result = append(result, n)
			}
		}
	}
	return result
}
