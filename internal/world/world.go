// Package world holds the mutable world state built up during a generation
// run: placed tiles keyed by axial coordinate, plus add-ons layered on top.
// A World is created empty, mutated incrementally by exactly one run, and
// frozen before it is handed back to the caller.
package world

import (
	"errors"
	"fmt"

	"github.com/talgya/hexforge/internal/hexgrid"
)

// Tile is one placed tile instance.
type Tile struct {
	TileType  string        `json:"tile_type"`
	Pos       hexgrid.Axial `json:"pos"`
	Elevation int           `json:"elevation"`
}

// Transform is an add-on placement's local transform, opaque to validation.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Rotation float64 `json:"rotation"`
	Scale    float64 `json:"scale"`
}

// AddOn is one placed add-on instance.
type AddOn struct {
	AddOnType string        `json:"addon_type"`
	Pos       hexgrid.Axial `json:"pos"`
	Transform Transform     `json:"transform"`
}

var (
	// ErrPositionOccupied is returned when a tile placement collides with an
	// existing tile. Positions are unique.
	ErrPositionOccupied = errors.New("position already occupied")
	// ErrFrozen is returned for any mutation after Freeze.
	ErrFrozen = errors.New("world is frozen")
)

// World is a complete tile world referencing a single asset pack.
type World struct {
	ID     string `json:"id"`
	PackID string `json:"pack_id"`

	tiles  map[hexgrid.Axial]*Tile
	order  []hexgrid.Axial // insertion order, for stable iteration
	addOns []*AddOn
	frozen bool
}

// New creates an empty world bound to the given asset pack.
func New(packID string) *World {
	return &World{
		PackID: packID,
		tiles:  make(map[hexgrid.Axial]*Tile),
	}
}

// AddTile places a tile. Fails if the position is occupied or the world is
// frozen.
func (w *World) AddTile(t Tile) error {
	if w.frozen {
		return ErrFrozen
	}
	if _, ok := w.tiles[t.Pos]; ok {
		return fmt.Errorf("%w: %s", ErrPositionOccupied, t.Pos)
	}
	tile := t
	w.tiles[t.Pos] = &tile
	w.order = append(w.order, t.Pos)
	return nil
}

// RemoveTile removes the tile at pos, reporting whether one was present.
// Add-ons at the position are not touched; callers that want them gone use
// RemoveAddOnsAt.
func (w *World) RemoveTile(pos hexgrid.Axial) bool {
	if w.frozen {
		return false
	}
	if _, ok := w.tiles[pos]; !ok {
		return false
	}
	delete(w.tiles, pos)
	for i, p := range w.order {
		if p == pos {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return true
}

// TileAt returns the tile at pos, if any.
func (w *World) TileAt(pos hexgrid.Axial) (*Tile, bool) {
	t, ok := w.tiles[pos]
	return t, ok
}

// Tiles returns all placed tiles in insertion order.
func (w *World) Tiles() []*Tile {
	result := make([]*Tile, 0, len(w.order))
	for _, pos := range w.order {
		result = append(result, w.tiles[pos])
	}
	return result
}

// TileCount returns the number of placed tiles.
func (w *World) TileCount() int {
	return len(w.tiles)
}

// AddAddOn places an add-on. The hosting tile must exist.
func (w *World) AddAddOn(a AddOn) error {
	if w.frozen {
		return ErrFrozen
	}
	if _, ok := w.tiles[a.Pos]; !ok {
		return fmt.Errorf("no tile at %s to host add-on %q", a.Pos, a.AddOnType)
	}
	addOn := a
	w.addOns = append(w.addOns, &addOn)
	return nil
}

// RemoveAddOn removes the most recently placed add-on equal to a, reporting
// whether one was found. Used to undo a single placement without touching
// earlier add-ons at the same position.
func (w *World) RemoveAddOn(a AddOn) bool {
	if w.frozen {
		return false
	}
	for i := len(w.addOns) - 1; i >= 0; i-- {
		if *w.addOns[i] == a {
			w.addOns = append(w.addOns[:i], w.addOns[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveAddOnsAt removes every add-on at pos and returns how many were
// removed.
func (w *World) RemoveAddOnsAt(pos hexgrid.Axial) int {
	if w.frozen {
		return 0
	}
	kept := w.addOns[:0]
	removed := 0
	for _, a := range w.addOns {
		if a.Pos == pos {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	w.addOns = kept
	return removed
}

// AddOns returns all placed add-ons in placement order.
func (w *World) AddOns() []*AddOn {
	result := make([]*AddOn, len(w.addOns))
	copy(result, w.addOns)
	return result
}

// Freeze makes the world immutable. Further mutations fail.
func (w *World) Freeze() {
	w.frozen = true
}

// Frozen reports whether the world has been frozen.
func (w *World) Frozen() bool {
	return w.frozen
}

// Bounds returns the axial bounding box of all placed tiles. ok is false for
// an empty world.
func (w *World) Bounds() (min, max hexgrid.Axial, ok bool) {
	first := true
	for pos := range w.tiles {
		if first {
			min, max = pos, pos
			first = false
			continue
		}
		if pos.Q < min.Q {
			min.Q = pos.Q
		}
		if pos.R < min.R {
			min.R = pos.R
		}
		if pos.Q > max.Q {
			max.Q = pos.Q
		}
		if pos.R > max.R {
			max.R = pos.R
		}
	}
	return min, max, !first
}

// BoundaryTiles returns tiles with at least one empty neighbor, in insertion
// order.
func (w *World) BoundaryTiles() []*Tile {
	var result []*Tile
	for _, pos := range w.order {
		for _, n := range hexgrid.Neighbors(pos) {
			if _, ok := w.tiles[n]; !ok {
				result = append(result, w.tiles[pos])
				break
			}
		}
	}
	return result
}

// String returns a summary of the world.
func (w *World) String() string {
	return fmt.Sprintf("World(pack=%s, tiles=%d, add-ons=%d)", w.PackID, len(w.tiles), len(w.addOns))
}
