package orchestrate

import (
	"context"
	"errors"
	"testing"

	"github.com/talgya/hexforge/internal/assetpack"
	"github.com/talgya/hexforge/internal/hexgrid"
	"github.com/talgya/hexforge/internal/planner"
	"github.com/talgya/hexforge/internal/validate"
	"github.com/talgya/hexforge/internal/world"
)

func testIndex(t *testing.T) *assetpack.Index {
	t.Helper()
	idx, err := assetpack.Load(&assetpack.AssetPack{
		ID: "meadow",
		EdgeTypes: []assetpack.EdgeType{
			{ID: "grass"},
			{ID: "water"},
		},
		Tiles: []assetpack.TileDefinition{
			{ID: "field", Tags: []string{"open"}, Edges: []string{"grass", "grass", "grass", "grass", "grass", "grass"}},
			{ID: "pond", Tags: []string{"wet"}, Edges: []string{"water", "water", "water", "water", "water", "water"}},
			{
				ID:    "peak",
				Tags:  []string{"high"},
				Edges: []string{"grass", "grass", "grass", "grass", "grass", "grass"},
				Rules: &assetpack.PlacementRules{RequiredElevation: &assetpack.ElevationRange{Min: 3, Max: 5}},
			},
			{
				ID:    "dock",
				Edges: []string{"grass", "grass", "grass", "grass", "grass", "grass"},
				Rules: &assetpack.PlacementRules{RequiredTileTags: []string{"wet"}},
			},
		},
		AddOns: []assetpack.AddOnDefinition{
			{ID: "oak", RequiredTileTags: []string{"open"}},
		},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return idx
}

// plannerStub satisfies planner.PlanningCapability with a fixed two-todo plan.
type plannerStub struct{ err error }

func (p plannerStub) Generate(context.Context, string, string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return `{
		"theme": "meadow",
		"detailedDescription": "fields and a pond",
		"reasoning": "terrain first",
		"todos": [
			{"id": "todo-1", "description": "fields", "completionCriteria": "fields placed"},
			{"id": "todo-2", "description": "pond", "completionCriteria": "pond placed"}
		]
	}`, nil
}

// suggestStub replays scripted suggestions in order, repeating the last one.
type suggestStub struct {
	script []*Suggestion
	errs   []error
	calls  int
}

func (s *suggestStub) Suggest(context.Context, SuggestionRequest) (*Suggestion, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if len(s.script) == 0 {
		return &Suggestion{}, nil
	}
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	return s.script[i], nil
}

func elev(n int) *int { return &n }

func newOrchestrator(t *testing.T, s SuggestionCapability, cfg Config) *Orchestrator {
	t.Helper()
	return New(planner.New(plannerStub{}), s, testIndex(t), nil, cfg)
}

func TestRunPlacesValidSuggestions(t *testing.T) {
	origin := hexgrid.Axial{Q: 0, R: 0}
	east, _ := hexgrid.Neighbor(origin, 0)
	suggest := &suggestStub{script: []*Suggestion{
		{Tiles: []TilePlacement{
			{TileType: "field", Pos: origin, Elevation: elev(0)},
			{TileType: "field", Pos: east, Elevation: elev(0)},
		}},
		{Tiles: []TilePlacement{
			{TileType: "field", Pos: hexgrid.Axial{Q: 0, R: 1}, Elevation: elev(0)},
		}},
	}}

	o := newOrchestrator(t, suggest, Config{MaxTiles: 10})
	result, err := o.Run(context.Background(), "a meadow", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.State != StateCompleted {
		t.Errorf("state = %s, want completed", result.State)
	}
	if result.World.TileCount() != 3 {
		t.Errorf("tiles = %d, want 3", result.World.TileCount())
	}
	if !result.World.Frozen() {
		t.Error("returned world should be frozen")
	}
	for _, td := range result.Plan.Todos {
		if td.Status != planner.StatusDone {
			t.Errorf("todo %s status = %s, want done", td.ID, td.Status)
		}
	}
	if result.Track.TilesPlaced != 3 {
		t.Errorf("tracker tiles placed = %d, want 3", result.Track.TilesPlaced)
	}

	summary, err := validate.World(result.World, testIndex(t))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if summary.InvalidEdges != 0 {
		t.Errorf("finished world has %d invalid edges: %v", summary.InvalidEdges, summary.Errors)
	}
}

func TestRunAllSuggestionsInvalidCompletesEmpty(t *testing.T) {
	// Every suggestion pairs water against grass, so every attempt rolls
	// back. The run must still finish Completed with all todos failed.
	origin := hexgrid.Axial{Q: 0, R: 0}
	east, _ := hexgrid.Neighbor(origin, 0)
	bad := &Suggestion{Tiles: []TilePlacement{
		{TileType: "field", Pos: origin, Elevation: elev(0)},
		{TileType: "pond", Pos: east, Elevation: elev(0)},
	}}
	suggest := &suggestStub{script: []*Suggestion{bad}}

	o := newOrchestrator(t, suggest, Config{MaxTiles: 10, TodoRetries: 2})
	result, err := o.Run(context.Background(), "impossible", nil)
	if err != nil {
		t.Fatalf("Run should not abort on placement failures: %v", err)
	}

	if result.State != StateCompleted {
		t.Errorf("state = %s, want completed", result.State)
	}
	if result.World.TileCount() != 0 {
		t.Errorf("tiles placed = %d, want 0", result.World.TileCount())
	}
	for _, td := range result.Plan.Todos {
		if td.Status != planner.StatusFailed {
			t.Errorf("todo %s status = %s, want failed", td.ID, td.Status)
		}
	}
	// 2 todos x 2 retries, every attempt a placement failure.
	if result.Track.PlacementFailures != 4 {
		t.Errorf("placement failures = %d, want 4", result.Track.PlacementFailures)
	}
	if result.Track.TilesPlaced != 0 {
		t.Errorf("tracker tiles placed = %d, want 0", result.Track.TilesPlaced)
	}
}

func TestRunNeverExceedsMaxTiles(t *testing.T) {
	// Each suggestion tries to add three tiles into a budget of 4; the
	// second todo's commit would land at 6 and must be rejected.
	row := func(r int) *Suggestion {
		return &Suggestion{Tiles: []TilePlacement{
			{TileType: "field", Pos: hexgrid.Axial{Q: 0, R: r}, Elevation: elev(0)},
			{TileType: "field", Pos: hexgrid.Axial{Q: 1, R: r}, Elevation: elev(0)},
			{TileType: "field", Pos: hexgrid.Axial{Q: 2, R: r}, Elevation: elev(0)},
		}}
	}
	suggest := &suggestStub{script: []*Suggestion{row(0), row(1)}}

	o := newOrchestrator(t, suggest, Config{MaxTiles: 4, TodoRetries: 1})
	result, err := o.Run(context.Background(), "too big", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.World.TileCount() > 4 {
		t.Errorf("tile count %d exceeds maxTiles 4", result.World.TileCount())
	}
	if result.World.TileCount() != 3 {
		t.Errorf("tile count = %d, want 3 (first todo only)", result.World.TileCount())
	}
	if result.Plan.Todos[1].Status != planner.StatusFailed {
		t.Errorf("over-budget todo status = %s, want failed", result.Plan.Todos[1].Status)
	}
}

func TestRunRollbackIsAtomic(t *testing.T) {
	// First attempt mixes one valid field with an incompatible pond; none
	// of it may persist. Second attempt is clean.
	origin := hexgrid.Axial{Q: 0, R: 0}
	east, _ := hexgrid.Neighbor(origin, 0)
	suggest := &suggestStub{script: []*Suggestion{
		{Tiles: []TilePlacement{
			{TileType: "field", Pos: origin, Elevation: elev(0)},
			{TileType: "pond", Pos: east, Elevation: elev(0)},
		}},
		{Tiles: []TilePlacement{
			{TileType: "field", Pos: origin, Elevation: elev(0)},
		}},
		{Tiles: []TilePlacement{
			{TileType: "field", Pos: east, Elevation: elev(0)},
		}},
	}}

	o := newOrchestrator(t, suggest, Config{MaxTiles: 10, TodoRetries: 3})
	result, err := o.Run(context.Background(), "meadow", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The failed first attempt must not leave the lone valid field behind:
	// attempt 2 places at origin again, which only works after a full
	// rollback.
	if result.World.TileCount() != 2 {
		t.Errorf("tiles = %d, want 2", result.World.TileCount())
	}
	if result.Track.PlacementFailures != 1 {
		t.Errorf("placement failures = %d, want 1", result.Track.PlacementFailures)
	}
}

func TestRunElevationRule(t *testing.T) {
	origin := hexgrid.Axial{Q: 0, R: 0}
	suggest := &suggestStub{script: []*Suggestion{
		{Tiles: []TilePlacement{{TileType: "peak", Pos: origin, Elevation: elev(1)}}},
		{Tiles: []TilePlacement{{TileType: "peak", Pos: origin, Elevation: elev(4)}}},
		{Tiles: []TilePlacement{{TileType: "field", Pos: hexgrid.Axial{Q: 5, R: 5}, Elevation: elev(0)}}},
	}}

	o := newOrchestrator(t, suggest, Config{MaxTiles: 10, TodoRetries: 2})
	result, err := o.Run(context.Background(), "a peak", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	tile, ok := result.World.TileAt(origin)
	if !ok {
		t.Fatal("peak never placed")
	}
	if tile.Elevation != 4 {
		t.Errorf("elevation = %d, want 4 (first attempt violates the range)", tile.Elevation)
	}
	if result.Track.PlacementFailures != 1 {
		t.Errorf("placement failures = %d, want 1", result.Track.PlacementFailures)
	}
}

func TestRunNeighborTagRule(t *testing.T) {
	origin := hexgrid.Axial{Q: 0, R: 0}
	east, _ := hexgrid.Neighbor(origin, 0)
	// dock requires a neighbor tagged "wet"; placed alone it must be
	// rejected even though its edges are all grass.
	suggest := &suggestStub{script: []*Suggestion{
		{Tiles: []TilePlacement{{TileType: "dock", Pos: origin, Elevation: elev(0)}}},
	}}

	o := newOrchestrator(t, suggest, Config{MaxTiles: 10, TodoRetries: 1})
	result, err := o.Run(context.Background(), "a dock", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := result.World.TileAt(origin); ok {
		t.Error("dock without a wet neighbor should be rejected")
	}
	if _, ok := result.World.TileAt(east); ok {
		t.Error("nothing else should be placed")
	}
}

func TestRunAbortsWhenPlanningExhausted(t *testing.T) {
	p := planner.New(plannerStub{err: errors.New("unavailable")})
	o := New(p, &suggestStub{}, testIndex(t), nil, Config{MaxTiles: 10, PlanRetries: 2})

	_, err := o.Run(context.Background(), "anything", nil)
	if !errors.Is(err, ErrAborted) {
		t.Errorf("got %v, want ErrAborted", err)
	}
}

func TestRunAbortsOnUnresolvedExistingWorld(t *testing.T) {
	w := world.New("meadow")
	w.AddTile(world.Tile{TileType: "ghost", Pos: hexgrid.Axial{Q: 0, R: 0}})

	o := newOrchestrator(t, &suggestStub{}, Config{MaxTiles: 10})
	_, err := o.Run(context.Background(), "extend", w)
	if !errors.Is(err, ErrAborted) {
		t.Errorf("got %v, want ErrAborted", err)
	}
}

func TestRunCapabilityErrorsSpendRetries(t *testing.T) {
	origin := hexgrid.Axial{Q: 0, R: 0}
	suggest := &suggestStub{
		errs: []error{errors.New("timeout"), nil, nil},
		script: []*Suggestion{
			nil, // consumed by the error slot
			{Tiles: []TilePlacement{{TileType: "field", Pos: origin, Elevation: elev(0)}}},
			{Tiles: []TilePlacement{{TileType: "field", Pos: hexgrid.Axial{Q: 1, R: 0}, Elevation: elev(0)}}},
		},
	}

	o := newOrchestrator(t, suggest, Config{MaxTiles: 10, TodoRetries: 3})
	result, err := o.Run(context.Background(), "meadow", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.World.TileCount() != 2 {
		t.Errorf("tiles = %d, want 2", result.World.TileCount())
	}
	if result.Track.PlacementFailures != 1 {
		t.Errorf("placement failures = %d, want 1 (the timeout)", result.Track.PlacementFailures)
	}
}

func TestRunRemovalSwapsTile(t *testing.T) {
	origin := hexgrid.Axial{Q: 0, R: 0}
	existing := world.New("meadow")
	existing.AddTile(world.Tile{TileType: "field", Pos: origin})

	suggest := &suggestStub{script: []*Suggestion{
		{
			Removals: []hexgrid.Axial{origin},
			Tiles:    []TilePlacement{{TileType: "pond", Pos: origin, Elevation: elev(0)}},
		},
		{Tiles: []TilePlacement{{TileType: "field", Pos: hexgrid.Axial{Q: 3, R: 3}, Elevation: elev(0)}}},
	}}

	o := newOrchestrator(t, suggest, Config{MaxTiles: 10, TodoRetries: 1})
	result, err := o.Run(context.Background(), "make it a pond", existing)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	tile, ok := result.World.TileAt(origin)
	if !ok || tile.TileType != "pond" {
		t.Errorf("tile at origin = %+v, want pond", tile)
	}
	if result.Track.TilesRemoved != 1 {
		t.Errorf("tiles removed = %d, want 1", result.Track.TilesRemoved)
	}
}
