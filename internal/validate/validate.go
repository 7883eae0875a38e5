// Package validate decides whether adjacent tiles' facing edges are
// materially compatible. Everything here is pure: identical inputs always
// produce identical results, so checks may run concurrently or be repeated
// without coordination.
package validate

import (
	"fmt"

	"github.com/talgya/hexforge/internal/assetpack"
	"github.com/talgya/hexforge/internal/hexgrid"
	"github.com/talgya/hexforge/internal/world"
)

// Trace records the full derivation behind one edge check. It exists for
// diagnostics only and is never fed back into further computation.
type Trace struct {
	SourceTile string `json:"source_tile"`
	TargetTile string `json:"target_tile"`

	RawSource    [6]string `json:"raw_source"`
	RawTarget    [6]string `json:"raw_target"`
	OffsetSource [6]string `json:"offset_source"`
	OffsetTarget [6]string `json:"offset_target"`
	FinalSource  [6]string `json:"final_source"`
	FinalTarget  [6]string `json:"final_target"`

	OffsetSteps int          `json:"offset_steps"`
	OffsetSpin  hexgrid.Spin `json:"offset_spin"`
}

// Check is the verdict for one shared edge between two placed tiles.
type Check struct {
	SourcePos hexgrid.Axial `json:"source_pos"`
	TargetPos hexgrid.Axial `json:"target_pos"`

	SourceEdge int `json:"source_edge"`
	TargetEdge int `json:"target_edge"`

	SourceEdgeType string `json:"source_edge_type"`
	TargetEdgeType string `json:"target_edge_type"`

	Valid bool  `json:"valid"`
	Trace Trace `json:"trace"`
}

// The world format carries no per-placement rotation; every tile sits at
// rotation 0. Adding one later only means threading a tile field through
// the RotateEdges call below.
const placementRotation = 0

// Edge validates the shared edge between the tile at pos and its neighbor in
// direction dir. Returns (nil, nil) when either side has no tile or its tile
// type does not resolve in the pack: there is nothing to check.
func Edge(w *world.World, idx *assetpack.Index, pos hexgrid.Axial, dir int) (*Check, error) {
	neighborPos, err := hexgrid.Neighbor(pos, dir)
	if err != nil {
		return nil, err
	}

	source, ok := w.TileAt(pos)
	if !ok {
		return nil, nil
	}
	target, ok := w.TileAt(neighborPos)
	if !ok {
		return nil, nil
	}

	sourceDef, ok := idx.Tile(source.TileType)
	if !ok {
		return nil, nil
	}
	targetDef, ok := idx.Tile(target.TileType)
	if !ok {
		return nil, nil
	}

	steps, spin := idx.PackOffset()

	rawSource := edgeArray(sourceDef)
	rawTarget := edgeArray(targetDef)

	// Each side is derived independently: raw → pack offset → placement
	// rotation. No state is shared between the two computations.
	offsetSource, err := hexgrid.ApplyPackOffset(rawSource, steps, spin)
	if err != nil {
		return nil, err
	}
	offsetTarget, err := hexgrid.ApplyPackOffset(rawTarget, steps, spin)
	if err != nil {
		return nil, err
	}
	finalSource := hexgrid.RotateEdges(offsetSource, placementRotation)
	finalTarget := hexgrid.RotateEdges(offsetTarget, placementRotation)

	sourceEdge := dir
	targetEdge, err := hexgrid.Opposite(dir)
	if err != nil {
		return nil, err
	}

	sourceType := finalSource[sourceEdge]
	targetType := finalTarget[targetEdge]

	valid, err := idx.Compatible(sourceType, targetType)
	if err != nil {
		return nil, fmt.Errorf("edge %s/%d vs %s/%d: %w", pos, sourceEdge, neighborPos, targetEdge, err)
	}

	// A placement rule naming the other tile type overrides edge-type
	// compatibility in either direction.
	if incompatibleNeighbor(sourceDef, target.TileType) || incompatibleNeighbor(targetDef, source.TileType) {
		valid = false
	}

	return &Check{
		SourcePos:      pos,
		TargetPos:      neighborPos,
		SourceEdge:     sourceEdge,
		TargetEdge:     targetEdge,
		SourceEdgeType: sourceType,
		TargetEdgeType: targetType,
		Valid:          valid,
		Trace: Trace{
			SourceTile:   source.TileType,
			TargetTile:   target.TileType,
			RawSource:    rawSource,
			RawTarget:    rawTarget,
			OffsetSource: offsetSource,
			OffsetTarget: offsetTarget,
			FinalSource:  finalSource,
			FinalTarget:  finalTarget,
			OffsetSteps:  steps,
			OffsetSpin:   spin,
		},
	}, nil
}

func edgeArray(def *assetpack.TileDefinition) [6]string {
	var edges [6]string
	copy(edges[:], def.Edges)
	return edges
}

func incompatibleNeighbor(def *assetpack.TileDefinition, otherType string) bool {
	if def.Rules == nil {
		return false
	}
	for _, id := range def.Rules.IncompatibleNeighbors {
		if id == otherType {
			return true
		}
	}
	return false
}

// Summary aggregates a whole-world validation pass.
type Summary struct {
	ValidEdges   int      `json:"valid_edges"`
	InvalidEdges int      `json:"invalid_edges"`
	Errors       []string `json:"errors,omitempty"`
}

// World validates every shared edge in the world exactly once. Each
// undirected edge is shared by exactly two (tile, direction) pairs, so
// visiting directions 0..2 per tile covers every edge without
// double-counting. Re-running on an unchanged world yields an identical
// summary.
func World(w *world.World, idx *assetpack.Index) (*Summary, error) {
	summary := &Summary{}

	for _, tile := range w.Tiles() {
		for dir := 0; dir < 3; dir++ {
			check, err := Edge(w, idx, tile.Pos, dir)
			if err != nil {
				return nil, err
			}
			if check == nil {
				continue
			}
			if check.Valid {
				summary.ValidEdges++
				continue
			}
			summary.InvalidEdges++
			summary.Errors = append(summary.Errors, fmt.Sprintf(
				"incompatible edge: tile %s at %s edge %d (%s) vs tile %s at %s edge %d (%s)",
				check.Trace.SourceTile, check.SourcePos, check.SourceEdge, check.SourceEdgeType,
				check.Trace.TargetTile, check.TargetPos, check.TargetEdge, check.TargetEdgeType,
			))
		}
	}

	return summary, nil
}
