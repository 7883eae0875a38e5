// Package assetpack defines tile/add-on asset pack structures and a
// read-only lookup index over them. Packs are loaded once and immutable for
// the duration of a generation run.
package assetpack

// GeometryConfig describes the pack's edge-numbering convention. It is
// consumed only to derive the pack's orientation offset.
type GeometryConfig struct {
	TileUpAxis            string `yaml:"tile_up_axis" json:"tile_up_axis"`
	ParallelEdgeDirection string `yaml:"parallel_edge_direction" json:"parallel_edge_direction"`
}

// EdgeType is a named compatibility class assigned to tile sides.
// Compatibility is the symmetric closure of CompatibleWith: a and b are
// compatible if a == b, or b is listed by a, or a is listed by b.
type EdgeType struct {
	ID             string   `yaml:"id" json:"id"`
	Materials      []string `yaml:"materials" json:"materials"`
	CompatibleWith []string `yaml:"compatible_with,omitempty" json:"compatible_with,omitempty"`
}

// ElevationRange bounds the elevations a tile may be placed at, inclusive.
type ElevationRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// PlacementRules are tile-level constraints checked alongside edge
// compatibility during placement.
type PlacementRules struct {
	IncompatibleNeighbors []string        `yaml:"incompatible_neighbors,omitempty" json:"incompatible_neighbors,omitempty"`
	RequiredElevation     *ElevationRange `yaml:"required_elevation_range,omitempty" json:"required_elevation_range,omitempty"`
	RequiredTileTags      []string        `yaml:"required_tile_tags,omitempty" json:"required_tile_tags,omitempty"`
}

// TileDefinition describes one placeable tile. Edges holds the six edge-type
// ids in the pack's raw frame, index 0 at the canonical reference direction,
// clockwise. Vertices carries per-corner materials for the renderer and is
// not consumed by validation.
type TileDefinition struct {
	ID       string          `yaml:"id" json:"id"`
	Material string          `yaml:"material" json:"material"`
	Tags     []string        `yaml:"tags,omitempty" json:"tags,omitempty"`
	Edges    []string        `yaml:"edges" json:"edges"`
	Vertices []string        `yaml:"vertices,omitempty" json:"vertices,omitempty"`
	Rules    *PlacementRules `yaml:"placement_rules,omitempty" json:"placement_rules,omitempty"`
}

// HasTag reports whether the tile carries the given tag.
func (t *TileDefinition) HasTag(tag string) bool {
	for _, tg := range t.Tags {
		if tg == tag {
			return true
		}
	}
	return false
}

// Transform is an add-on's local transform relative to its tile. Opaque to
// validation; carried through for the renderer.
type Transform struct {
	X        float64 `yaml:"x" json:"x"`
	Y        float64 `yaml:"y" json:"y"`
	Z        float64 `yaml:"z" json:"z"`
	Rotation float64 `yaml:"rotation" json:"rotation"`
	Scale    float64 `yaml:"scale" json:"scale"`
}

// AddOnDefinition describes a decoration placed on top of a tile.
type AddOnDefinition struct {
	ID               string    `yaml:"id" json:"id"`
	Tags             []string  `yaml:"tags,omitempty" json:"tags,omitempty"`
	RequiredTileTags []string  `yaml:"required_tile_tags,omitempty" json:"required_tile_tags,omitempty"`
	Transform        Transform `yaml:"transform" json:"transform"`
}

// AssetPack is a complete parsed asset pack.
type AssetPack struct {
	ID        string            `yaml:"id" json:"id"`
	Geometry  GeometryConfig    `yaml:"geometry_config" json:"geometry_config"`
	Materials []string          `yaml:"materials,omitempty" json:"materials,omitempty"`
	EdgeTypes []EdgeType        `yaml:"edge_types" json:"edge_types"`
	Tiles     []TileDefinition  `yaml:"tiles" json:"tiles"`
	AddOns    []AddOnDefinition `yaml:"add_ons,omitempty" json:"add_ons,omitempty"`
}
