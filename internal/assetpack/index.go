package assetpack

import (
	"errors"
	"fmt"

	"github.com/talgya/hexforge/internal/hexgrid"
)

// Structural errors raised while building or querying an index. All of them
// are fatal to the operation that hits them.
var (
	ErrDuplicateID      = errors.New("duplicate id")
	ErrMissingReference = errors.New("missing reference")
	ErrUnknownEdgeType  = errors.New("unknown edge type")
	ErrBadGeometry      = errors.New("unrecognized geometry config")
	ErrBadEdgeArray     = errors.New("edge array must have 6 entries")
)

// Index is a read-only lookup over a loaded asset pack. The pack's
// orientation offset is derived exactly once at load time, never per tile.
type Index struct {
	pack      *AssetPack
	tiles     map[string]*TileDefinition
	addOns    map[string]*AddOnDefinition
	edgeTypes map[string]*EdgeType

	offsetSteps int
	offsetSpin  hexgrid.Spin
}

// Load builds an Index over an already-parsed pack, verifying its internal
// references. It fails on colliding tile/add-on/edge-type ids, on edge
// arrays that are not length 6, on tile edges naming unregistered edge
// types, and on placement rules referencing unknown tile ids.
func Load(pack *AssetPack) (*Index, error) {
	steps, spin, err := deriveOffset(pack.Geometry)
	if err != nil {
		return nil, err
	}

	x := &Index{
		pack:        pack,
		tiles:       make(map[string]*TileDefinition, len(pack.Tiles)),
		addOns:      make(map[string]*AddOnDefinition, len(pack.AddOns)),
		edgeTypes:   make(map[string]*EdgeType, len(pack.EdgeTypes)),
		offsetSteps: steps,
		offsetSpin:  spin,
	}

	for i := range pack.EdgeTypes {
		et := &pack.EdgeTypes[i]
		if _, ok := x.edgeTypes[et.ID]; ok {
			return nil, fmt.Errorf("%w: edge type %q", ErrDuplicateID, et.ID)
		}
		x.edgeTypes[et.ID] = et
	}

	for i := range pack.Tiles {
		t := &pack.Tiles[i]
		if _, ok := x.tiles[t.ID]; ok {
			return nil, fmt.Errorf("%w: tile %q", ErrDuplicateID, t.ID)
		}
		if len(t.Edges) != 6 {
			return nil, fmt.Errorf("%w: tile %q has %d edges", ErrBadEdgeArray, t.ID, len(t.Edges))
		}
		if len(t.Vertices) != 0 && len(t.Vertices) != 6 {
			return nil, fmt.Errorf("%w: tile %q has %d vertices", ErrBadEdgeArray, t.ID, len(t.Vertices))
		}
		for edge, etID := range t.Edges {
			if _, ok := x.edgeTypes[etID]; !ok {
				return nil, fmt.Errorf("%w: tile %q edge %d names edge type %q",
					ErrMissingReference, t.ID, edge, etID)
			}
		}
		x.tiles[t.ID] = t
	}

	for i := range pack.AddOns {
		a := &pack.AddOns[i]
		if _, ok := x.addOns[a.ID]; ok {
			return nil, fmt.Errorf("%w: add-on %q", ErrDuplicateID, a.ID)
		}
		x.addOns[a.ID] = a
	}

	// Placement rules may only name tiles that exist in this pack.
	for _, t := range pack.Tiles {
		if t.Rules == nil {
			continue
		}
		for _, other := range t.Rules.IncompatibleNeighbors {
			if _, ok := x.tiles[other]; !ok {
				return nil, fmt.Errorf("%w: tile %q lists incompatible neighbor %q",
					ErrMissingReference, t.ID, other)
			}
		}
	}

	return x, nil
}

// deriveOffset maps the pack's orientation convention to a rotation
// correction. The canonical frame is tile_up_axis "y" with
// parallel_edge_direction "x"; unknown values are rejected rather than
// guessed.
func deriveOffset(g GeometryConfig) (int, hexgrid.Spin, error) {
	var steps int
	switch g.ParallelEdgeDirection {
	case "", "x":
		steps = 0
	case "z":
		steps = 1
	default:
		return 0, 0, fmt.Errorf("%w: parallel_edge_direction %q", ErrBadGeometry, g.ParallelEdgeDirection)
	}

	spin := hexgrid.SpinClockwise
	switch g.TileUpAxis {
	case "", "y":
	case "z":
		spin = hexgrid.SpinCounterClockwise
	default:
		return 0, 0, fmt.Errorf("%w: tile_up_axis %q", ErrBadGeometry, g.TileUpAxis)
	}

	return steps, spin, nil
}

// Pack returns the underlying pack.
func (x *Index) Pack() *AssetPack {
	return x.pack
}

// Tile looks up a tile definition by id.
func (x *Index) Tile(id string) (*TileDefinition, bool) {
	t, ok := x.tiles[id]
	return t, ok
}

// AddOn looks up an add-on definition by id.
func (x *Index) AddOn(id string) (*AddOnDefinition, bool) {
	a, ok := x.addOns[id]
	return a, ok
}

// EdgeType looks up an edge type by id.
func (x *Index) EdgeType(id string) (*EdgeType, bool) {
	et, ok := x.edgeTypes[id]
	return et, ok
}

// PackOffset returns the orientation correction derived at load time.
func (x *Index) PackOffset() (steps int, spin hexgrid.Spin) {
	return x.offsetSteps, x.offsetSpin
}

// Compatible reports whether two registered edge types may face each other
// across a shared edge. The relation is symmetric: a == b, or b appears in
// a's compatible_with set, or a appears in b's.
func (x *Index) Compatible(a, b string) (bool, error) {
	ea, ok := x.edgeTypes[a]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownEdgeType, a)
	}
	eb, ok := x.edgeTypes[b]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownEdgeType, b)
	}
	if a == b {
		return true, nil
	}
	for _, id := range ea.CompatibleWith {
		if id == b {
			return true, nil
		}
	}
	for _, id := range eb.CompatibleWith {
		if id == a {
			return true, nil
		}
	}
	return false, nil
}
