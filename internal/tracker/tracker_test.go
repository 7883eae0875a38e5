package tracker

import (
	"strings"
	"testing"
)

func TestSnapshotCounters(t *testing.T) {
	tr := New()
	tr.Iteration()
	tr.Iteration()
	tr.TilesPlaced(3)
	tr.TilesRemoved(1)
	tr.AddOnsPlaced(2)
	tr.PlacementFailed()
	tr.ExternalCall("plan")
	tr.ExternalCall("suggest")
	tr.ExternalCall("suggest")

	snap := tr.Snapshot()
	if snap.Iterations != 2 {
		t.Errorf("Iterations = %d, want 2", snap.Iterations)
	}
	if snap.TilesPlaced != 3 || snap.TilesRemoved != 1 || snap.AddOnsPlaced != 2 {
		t.Errorf("placement counters = %d/%d/%d, want 3/1/2",
			snap.TilesPlaced, snap.TilesRemoved, snap.AddOnsPlaced)
	}
	if snap.PlacementFailures != 1 {
		t.Errorf("PlacementFailures = %d, want 1", snap.PlacementFailures)
	}
	if snap.ExternalCalls != 3 {
		t.Errorf("ExternalCalls = %d, want 3", snap.ExternalCalls)
	}
	if len(snap.PromptCategories) != 2 ||
		snap.PromptCategories[0] != "plan" || snap.PromptCategories[1] != "suggest" {
		t.Errorf("PromptCategories = %v, want [plan suggest]", snap.PromptCategories)
	}
}

func TestSummaryMentionsCounts(t *testing.T) {
	tr := New()
	tr.TilesPlaced(12)
	tr.Iteration()
	s := tr.Snapshot().Summary()
	if !strings.Contains(s, "12 tiles placed") {
		t.Errorf("Summary() = %q, want tile count", s)
	}
}
