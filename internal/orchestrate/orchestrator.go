// Package orchestrate executes a generation plan against a world: it asks
// the suggestion capability for placements, validates every newly introduced
// edge, and commits or rolls back each todo atomically. Failures degrade to
// a smaller world; the run only aborts when no usable plan can be obtained
// or the input world itself is broken.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/hexforge/internal/assetpack"
	"github.com/talgya/hexforge/internal/hexgrid"
	"github.com/talgya/hexforge/internal/planner"
	"github.com/talgya/hexforge/internal/terrain"
	"github.com/talgya/hexforge/internal/tracker"
	"github.com/talgya/hexforge/internal/validate"
	"github.com/talgya/hexforge/internal/world"
)

// TilePlacement is one suggested tile. Elevation may be omitted; the
// orchestrator then samples the terrain field.
type TilePlacement struct {
	TileType  string        `json:"tile_type"`
	Pos       hexgrid.Axial `json:"pos"`
	Elevation *int          `json:"elevation,omitempty"`
}

// AddOnPlacement is one suggested add-on.
type AddOnPlacement struct {
	AddOnType string          `json:"addon_type"`
	Pos       hexgrid.Axial   `json:"pos"`
	Transform world.Transform `json:"transform"`
}

// Suggestion is a structured placement proposal for one todo.
type Suggestion struct {
	Tiles    []TilePlacement  `json:"tiles"`
	AddOns   []AddOnPlacement `json:"add_ons,omitempty"`
	Removals []hexgrid.Axial  `json:"removals,omitempty"`
}

// SuggestionRequest scopes a suggestion call to one todo and the current
// world.
type SuggestionRequest struct {
	Todo     planner.Todo
	Theme    string
	World    *world.World
	Pack     *assetpack.Index
	MaxTiles int
}

// SuggestionCapability produces a placement proposal. Implementations live
// outside the core and may fail with transport or timeout errors.
type SuggestionCapability interface {
	Suggest(ctx context.Context, req SuggestionRequest) (*Suggestion, error)
}

// State names the orchestrator's position in its run lifecycle.
type State string

const (
	StatePlanning   State = "planning"
	StateExecuting  State = "executing"
	StateValidating State = "validating"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled-back"
	StateCompleted  State = "completed"
	StateAborted    State = "aborted"
)

// ErrAborted marks unrecoverable run failures.
var ErrAborted = errors.New("generation aborted")

// Config bounds one generation run.
type Config struct {
	// MaxTiles caps the finished world's tile count. No commit may exceed it.
	MaxTiles int
	// TodoRetries is how many suggestion rounds a todo gets before it is
	// marked failed and skipped.
	TodoRetries int
	// PlanRetries is how many planning attempts are made before the run
	// aborts with no plan.
	PlanRetries int
	// CallTimeout bounds each external capability call.
	CallTimeout time.Duration
}

// DefaultConfig returns conservative run bounds.
func DefaultConfig() Config {
	return Config{
		MaxTiles:    64,
		TodoRetries: 3,
		PlanRetries: 2,
		CallTimeout: 30 * time.Second,
	}
}

// Orchestrator drives one generation run at a time. The world and tracker it
// works on are exclusively owned by the run for its duration.
type Orchestrator struct {
	planner *planner.Planner
	suggest SuggestionCapability
	idx     *assetpack.Index
	elev    *terrain.Field
	cfg     Config
}

// New wires an orchestrator. elev may be nil; omitted elevations then
// default to zero.
func New(p *planner.Planner, s SuggestionCapability, idx *assetpack.Index, elev *terrain.Field, cfg Config) *Orchestrator {
	if cfg.MaxTiles <= 0 {
		cfg.MaxTiles = DefaultConfig().MaxTiles
	}
	if cfg.TodoRetries <= 0 {
		cfg.TodoRetries = DefaultConfig().TodoRetries
	}
	if cfg.PlanRetries <= 0 {
		cfg.PlanRetries = DefaultConfig().PlanRetries
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultConfig().CallTimeout
	}
	return &Orchestrator{planner: p, suggest: s, idx: idx, elev: elev, cfg: cfg}
}

// Result is one finished run.
type Result struct {
	World *world.World
	Plan  *planner.WorldPlan
	State State
	Track tracker.Snapshot
}

// Run executes a full generation: plan, then one todo at a time. existing
// may be nil for a fresh world; when present it is mutated in place and must
// not be shared with another run. The returned world is frozen and always
// internally valid, possibly smaller than requested.
func (o *Orchestrator) Run(ctx context.Context, request string, existing *world.World) (*Result, error) {
	track := tracker.New()
	runID := uuid.NewString()[:8]
	log := slog.With("run", runID)

	w := existing
	if w == nil {
		w = world.New(o.idx.Pack().ID)
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}

	// An input world referencing tiles outside the pack is a structural
	// error, not something retries can fix.
	for _, t := range w.Tiles() {
		if _, ok := o.idx.Tile(t.TileType); !ok {
			return nil, fmt.Errorf("%w: existing world references unknown tile type %q", ErrAborted, t.TileType)
		}
	}

	plan, err := o.makePlan(ctx, request, w, track, log)
	if err != nil {
		return nil, err
	}

	log.Info("plan ready", "theme", plan.Theme, "todos", len(plan.Todos))

	for i := range plan.Todos {
		todo := &plan.Todos[i]
		if todo.Status == planner.StatusDone {
			continue
		}
		todo.Status = planner.StatusInProgress
		o.executeTodo(ctx, w, plan, todo, track, log)
	}

	w.Freeze()

	result := &Result{
		World: w,
		Plan:  plan,
		State: StateCompleted,
		Track: track.Snapshot(),
	}
	log.Info("run complete", "tiles", w.TileCount(), "summary", result.Track.Summary())
	return result, nil
}

// makePlan obtains a usable plan, retrying within budget. Exhausting the
// budget with no plan at all aborts the run.
func (o *Orchestrator) makePlan(ctx context.Context, request string, w *world.World, track *tracker.Tracker, log *slog.Logger) (*planner.WorldPlan, error) {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.PlanRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
		track.ExternalCall("plan")
		plan, err := o.planner.CreatePlan(callCtx, request, o.idx, w, o.cfg.MaxTiles)
		cancel()
		if err == nil {
			return plan, nil
		}
		lastErr = err
		log.Warn("planning attempt failed", "attempt", attempt, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%w: planning exhausted: %v", ErrAborted, lastErr)
}

// executeTodo runs the suggest → validate → commit/rollback loop for one
// todo until it succeeds or its retry budget runs out. It never aborts the
// run; a hopeless todo is marked failed and skipped.
func (o *Orchestrator) executeTodo(ctx context.Context, w *world.World, plan *planner.WorldPlan, todo *planner.Todo, track *tracker.Tracker, log *slog.Logger) {
	for attempt := 1; attempt <= o.cfg.TodoRetries; attempt++ {
		track.Iteration()

		callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
		track.ExternalCall("suggest")
		suggestion, err := o.suggest.Suggest(callCtx, SuggestionRequest{
			Todo:     *todo,
			Theme:    plan.Theme,
			World:    w,
			Pack:     o.idx,
			MaxTiles: o.cfg.MaxTiles,
		})
		cancel()
		if err != nil {
			// Capability failures (timeouts included) spend a retry like any
			// rejected placement.
			track.PlacementFailed()
			log.Warn("suggestion call failed", "todo", todo.ID, "attempt", attempt, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		committed, reason := o.tryApply(w, suggestion, track)
		if committed {
			todo.Status = planner.StatusDone
			log.Info("todo committed", "todo", todo.ID, "attempt", attempt, "tiles", w.TileCount())
			return
		}

		track.PlacementFailed()
		log.Info("todo rolled back", "todo", todo.ID, "attempt", attempt, "reason", reason)
		if ctx.Err() != nil {
			break
		}
	}

	todo.Status = planner.StatusFailed
	log.Warn("todo failed", "todo", todo.ID)
}

// changeSet remembers tentative mutations so a failed attempt can be undone
// exactly.
type changeSet struct {
	addedTiles    []hexgrid.Axial
	addedAddOns   []world.AddOn
	removedTiles  []world.Tile
	removedAddOns []world.AddOn
}

// tryApply tentatively applies a suggestion and validates the outcome. On
// any rejection the world is restored to its prior state; changes are never
// partially applied.
func (o *Orchestrator) tryApply(w *world.World, s *Suggestion, track *tracker.Tracker) (committed bool, reason string) {
	var changes changeSet

	rollback := func() {
		for _, a := range changes.addedAddOns {
			w.RemoveAddOn(a)
		}
		for _, pos := range changes.addedTiles {
			w.RemoveTile(pos)
		}
		for _, t := range changes.removedTiles {
			w.AddTile(t)
		}
		for _, a := range changes.removedAddOns {
			w.AddAddOn(a)
		}
	}

	// Removals first so a todo may swap a tile in place.
	for _, pos := range s.Removals {
		tile, ok := w.TileAt(pos)
		if !ok {
			track.RemovalFailed()
			rollback()
			return false, fmt.Sprintf("no tile to remove at %s", pos)
		}
		removed := *tile
		for _, a := range w.AddOns() {
			if a.Pos == pos {
				changes.removedAddOns = append(changes.removedAddOns, *a)
			}
		}
		w.RemoveAddOnsAt(pos)
		w.RemoveTile(pos)
		changes.removedTiles = append(changes.removedTiles, removed)
	}

	for _, tp := range s.Tiles {
		def, ok := o.idx.Tile(tp.TileType)
		if !ok {
			rollback()
			return false, fmt.Sprintf("suggestion names unknown tile type %q", tp.TileType)
		}

		elevation := 0
		switch {
		case tp.Elevation != nil:
			elevation = *tp.Elevation
		case o.elev != nil:
			elevation = o.elev.Sample(tp.Pos)
		}

		if def.Rules != nil && def.Rules.RequiredElevation != nil {
			rng := def.Rules.RequiredElevation
			if elevation < rng.Min || elevation > rng.Max {
				rollback()
				return false, fmt.Sprintf("tile %q at %s: elevation %d outside [%d,%d]",
					tp.TileType, tp.Pos, elevation, rng.Min, rng.Max)
			}
		}

		if err := w.AddTile(world.Tile{TileType: tp.TileType, Pos: tp.Pos, Elevation: elevation}); err != nil {
			rollback()
			return false, err.Error()
		}
		changes.addedTiles = append(changes.addedTiles, tp.Pos)
	}

	if w.TileCount() > o.cfg.MaxTiles {
		rollback()
		return false, fmt.Sprintf("tile count %d exceeds budget %d", w.TileCount(), o.cfg.MaxTiles)
	}

	// Every edge the new tiles introduce must validate. Checking all six
	// directions per new tile re-checks new/new pairs from both sides; the
	// checks are pure, so this costs nothing but time.
	for _, pos := range changes.addedTiles {
		for dir := 0; dir < 6; dir++ {
			check, err := validate.Edge(w, o.idx, pos, dir)
			if err != nil {
				rollback()
				return false, err.Error()
			}
			if check == nil {
				continue
			}
			if !check.Valid {
				rollback()
				return false, fmt.Sprintf("edge %s/%d (%s) incompatible with %s/%d (%s)",
					check.SourcePos, check.SourceEdge, check.SourceEdgeType,
					check.TargetPos, check.TargetEdge, check.TargetEdgeType)
			}
		}
		if reason, ok := o.checkNeighborTags(w, pos); !ok {
			rollback()
			return false, reason
		}
	}

	for _, ap := range s.AddOns {
		def, ok := o.idx.AddOn(ap.AddOnType)
		if !ok {
			track.AddOnFailed()
			rollback()
			return false, fmt.Sprintf("suggestion names unknown add-on type %q", ap.AddOnType)
		}
		host, ok := w.TileAt(ap.Pos)
		if !ok {
			track.AddOnFailed()
			rollback()
			return false, fmt.Sprintf("add-on %q has no host tile at %s", ap.AddOnType, ap.Pos)
		}
		hostDef, _ := o.idx.Tile(host.TileType)
		for _, tag := range def.RequiredTileTags {
			if hostDef == nil || !hostDef.HasTag(tag) {
				track.AddOnFailed()
				rollback()
				return false, fmt.Sprintf("add-on %q requires tile tag %q, host %q lacks it",
					ap.AddOnType, tag, host.TileType)
			}
		}
		placed := world.AddOn{AddOnType: ap.AddOnType, Pos: ap.Pos, Transform: ap.Transform}
		if err := w.AddAddOn(placed); err != nil {
			track.AddOnFailed()
			rollback()
			return false, err.Error()
		}
		changes.addedAddOns = append(changes.addedAddOns, placed)
	}

	track.TilesPlaced(len(changes.addedTiles))
	track.TilesRemoved(len(changes.removedTiles))
	track.AddOnsPlaced(len(changes.addedAddOns))
	return true, ""
}

// checkNeighborTags enforces required_tile_tags: every required tag must be
// carried by at least one adjacent tile.
func (o *Orchestrator) checkNeighborTags(w *world.World, pos hexgrid.Axial) (string, bool) {
	tile, ok := w.TileAt(pos)
	if !ok {
		return "", true
	}
	def, ok := o.idx.Tile(tile.TileType)
	if !ok || def.Rules == nil || len(def.Rules.RequiredTileTags) == 0 {
		return "", true
	}

	for _, tag := range def.Rules.RequiredTileTags {
		found := false
		for _, n := range hexgrid.Neighbors(pos) {
			neighbor, ok := w.TileAt(n)
			if !ok {
				continue
			}
			if ndef, ok := o.idx.Tile(neighbor.TileType); ok && ndef.HasTag(tag) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Sprintf("tile %q at %s requires a neighbor tagged %q", tile.TileType, pos, tag), false
		}
	}
	return "", true
}
