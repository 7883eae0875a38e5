// Package hexgrid provides axial coordinate math for the hex tile grid.
// Uses axial coordinates (q, r); the third cube coordinate s is derived:
// s = -q - r. Edge index i of a tile faces the neighbor in direction i,
// with direction 0 at the canonical reference edge and indices running
// clockwise.
package hexgrid

import (
	"errors"
	"fmt"
)

// Axial represents a position on the hex grid using axial coordinates.
type Axial struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (a Axial) S() int {
	return -a.Q - a.R
}

// Add returns a+b in axial space.
func (a Axial) Add(b Axial) Axial {
	return Axial{Q: a.Q + b.Q, R: a.R + b.R}
}

// String formats the coordinate as (q,r).
func (a Axial) String() string {
	return fmt.Sprintf("(%d,%d)", a.Q, a.R)
}

// Directions defines the six neighbor offsets in axial coordinates,
// clockwise, aligned with tile edge indices 0..5.
var Directions = [6]Axial{
	{Q: 1, R: 0},
	{Q: 0, R: 1},
	{Q: -1, R: 1},
	{Q: -1, R: 0},
	{Q: 0, R: -1},
	{Q: 1, R: -1},
}

// ErrInvalidDirection is returned when an edge or direction index falls
// outside 0..5.
var ErrInvalidDirection = errors.New("direction index out of range")

// Neighbor returns the coordinate adjacent to c across edge dir.
func Neighbor(c Axial, dir int) (Axial, error) {
	if dir < 0 || dir > 5 {
		return Axial{}, fmt.Errorf("%w: %d", ErrInvalidDirection, dir)
	}
	return c.Add(Directions[dir]), nil
}

// Neighbors returns all six adjacent coordinates in direction order.
func Neighbors(c Axial) [6]Axial {
	var result [6]Axial
	for i, d := range Directions {
		result[i] = c.Add(d)
	}
	return result
}

// Opposite returns the edge index on the far side of a shared edge:
// the neighbor in direction dir touches c through its own edge (dir+3) mod 6.
func Opposite(dir int) (int, error) {
	if dir < 0 || dir > 5 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDirection, dir)
	}
	return (dir + 3) % 6, nil
}

// RotateEdges returns the edge array after a physical clockwise rotation of
// 60° × steps: result[i] = edges[(i - steps + 6) mod 6]. Steps outside 0..5
// are normalized.
func RotateEdges(edges [6]string, steps int) [6]string {
	steps = ((steps % 6) + 6) % 6
	var result [6]string
	for i := range edges {
		result[i] = edges[(i-steps+6)%6]
	}
	return result
}

// Spin is the rotation sense of a pack's orientation offset.
type Spin int

const (
	SpinClockwise Spin = iota
	SpinCounterClockwise
)

// String returns a human-readable spin name.
func (s Spin) String() string {
	if s == SpinCounterClockwise {
		return "counter-clockwise"
	}
	return "clockwise"
}

// ApplyPackOffset normalizes a pack's raw edge array into the grid's
// canonical frame. It is the same rotation as RotateEdges with spin flipping
// the shift sign, applied exactly once per tile before any per-placement
// rotation.
func ApplyPackOffset(edges [6]string, offset int, spin Spin) ([6]string, error) {
	if offset < 0 || offset > 5 {
		return [6]string{}, fmt.Errorf("%w: offset %d", ErrInvalidDirection, offset)
	}
	if spin != SpinClockwise && spin != SpinCounterClockwise {
		return [6]string{}, fmt.Errorf("%w: spin %d", ErrInvalidDirection, int(spin))
	}
	steps := offset
	if spin == SpinCounterClockwise {
		steps = (6 - offset) % 6
	}
	return RotateEdges(edges, steps), nil
}

// Distance returns the hex distance between two coordinates, the max of the
// three absolute cube-coordinate differences.
func Distance(a, b Axial) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	max := dq
	if dr > max {
		max = dr
	}
	if ds > max {
		max = ds
	}
	return max
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
