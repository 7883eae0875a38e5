// Package terrain derives default elevations from layered simplex noise.
// When a placement suggestion does not say how high a tile sits, the
// orchestrator samples this field instead of flattening everything to zero.
package terrain

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/hexforge/internal/hexgrid"
)

// Field is a deterministic elevation field over the hex grid. Identical
// seeds yield identical fields.
type Field struct {
	noise    opensimplex.Noise
	min, max int
}

// NewField creates a field producing integer elevations in [min, max].
func NewField(seed int64, min, max int) *Field {
	if max < min {
		min, max = max, min
	}
	return &Field{
		noise: opensimplex.NewNormalized(seed),
		min:   min,
		max:   max,
	}
}

// Sample returns the elevation at a hex coordinate.
func (f *Field) Sample(c hexgrid.Axial) int {
	// Hex axial → cartesian: x = q + r*0.5, y = r * sqrt(3)/2
	x := float64(c.Q) + float64(c.R)*0.5
	y := float64(c.R) * math.Sqrt(3.0) / 2.0

	v := octaveNoise(f.noise, x, y, 3, 0.08, 0.5)

	span := float64(f.max - f.min)
	return f.min + int(v*span+0.5)
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
