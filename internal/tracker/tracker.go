// Package tracker accumulates counters and timings for one generation run.
// A Tracker is exclusively owned by its run: nothing else writes it, and two
// runs never share one.
package tracker

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Tracker collects run-level generation statistics.
type Tracker struct {
	start time.Time

	iterations int

	tilesPlaced  int
	tilesRemoved int
	addOnsPlaced int

	placementFailures int
	removalFailures   int
	addOnFailures     int

	externalCalls    int
	promptCategories map[string]struct{}
}

// New starts a tracker for a fresh run.
func New() *Tracker {
	return &Tracker{
		start:            time.Now(),
		promptCategories: make(map[string]struct{}),
	}
}

// Iteration records one suggestion round.
func (t *Tracker) Iteration() { t.iterations++ }

// TilesPlaced records n committed tile placements.
func (t *Tracker) TilesPlaced(n int) { t.tilesPlaced += n }

// TilesRemoved records n committed tile removals.
func (t *Tracker) TilesRemoved(n int) { t.tilesRemoved += n }

// AddOnsPlaced records n committed add-on placements.
func (t *Tracker) AddOnsPlaced(n int) { t.addOnsPlaced += n }

// PlacementFailed records one rolled-back placement attempt.
func (t *Tracker) PlacementFailed() { t.placementFailures++ }

// RemovalFailed records one failed removal.
func (t *Tracker) RemovalFailed() { t.removalFailures++ }

// AddOnFailed records one failed add-on placement.
func (t *Tracker) AddOnFailed() { t.addOnFailures++ }

// ExternalCall records one invocation of an external capability under the
// given prompt category.
func (t *Tracker) ExternalCall(category string) {
	t.externalCalls++
	t.promptCategories[category] = struct{}{}
}

// Snapshot is an immutable view of the tracker for observability.
type Snapshot struct {
	Start   time.Time     `json:"start"`
	Elapsed time.Duration `json:"elapsed"`

	Iterations int `json:"iterations"`

	TilesPlaced  int `json:"tiles_placed"`
	TilesRemoved int `json:"tiles_removed"`
	AddOnsPlaced int `json:"addons_placed"`

	PlacementFailures int `json:"placement_failures"`
	RemovalFailures   int `json:"removal_failures"`
	AddOnFailures     int `json:"addon_failures"`

	ExternalCalls    int      `json:"external_calls"`
	PromptCategories []string `json:"prompt_categories"`
}

// Snapshot captures the current counters.
func (t *Tracker) Snapshot() Snapshot {
	categories := make([]string, 0, len(t.promptCategories))
	for c := range t.promptCategories {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	return Snapshot{
		Start:             t.start,
		Elapsed:           time.Since(t.start),
		Iterations:        t.iterations,
		TilesPlaced:       t.tilesPlaced,
		TilesRemoved:      t.tilesRemoved,
		AddOnsPlaced:      t.addOnsPlaced,
		PlacementFailures: t.placementFailures,
		RemovalFailures:   t.removalFailures,
		AddOnFailures:     t.addOnFailures,
		ExternalCalls:     t.externalCalls,
		PromptCategories:  categories,
	}
}

// Summary returns a one-line human-readable account of the run.
func (s Snapshot) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s tiles placed", humanize.Comma(int64(s.TilesPlaced)))
	if s.TilesRemoved > 0 {
		fmt.Fprintf(&b, ", %s removed", humanize.Comma(int64(s.TilesRemoved)))
	}
	if s.AddOnsPlaced > 0 {
		fmt.Fprintf(&b, ", %s add-ons", humanize.Comma(int64(s.AddOnsPlaced)))
	}
	failures := s.PlacementFailures + s.RemovalFailures + s.AddOnFailures
	fmt.Fprintf(&b, " in %d iterations (%d failures, %d external calls) over %s",
		s.Iterations, failures, s.ExternalCalls, s.Elapsed.Round(time.Millisecond))
	return b.String()
}
