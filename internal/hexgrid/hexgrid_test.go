package hexgrid

import "testing"

func TestNeighborOppositeRoundTrip(t *testing.T) {
	coords := []Axial{
		{Q: 0, R: 0},
		{Q: 3, R: -2},
		{Q: -7, R: 4},
		{Q: 11, R: 11},
	}
	for _, c := range coords {
		for dir := 0; dir < 6; dir++ {
			n, err := Neighbor(c, dir)
			if err != nil {
				t.Fatalf("Neighbor(%v, %d): %v", c, dir, err)
			}
			opp, err := Opposite(dir)
			if err != nil {
				t.Fatalf("Opposite(%d): %v", dir, err)
			}
			back, err := Neighbor(n, opp)
			if err != nil {
				t.Fatalf("Neighbor(%v, %d): %v", n, opp, err)
			}
			if back != c {
				t.Errorf("neighbor(neighbor(%v,%d),%d) = %v, want %v", c, dir, opp, back, c)
			}
		}
	}
}

func TestNeighborInvalidDirection(t *testing.T) {
	for _, dir := range []int{-1, 6, 42} {
		if _, err := Neighbor(Axial{}, dir); err == nil {
			t.Errorf("Neighbor(origin, %d): expected error", dir)
		}
		if _, err := Opposite(dir); err == nil {
			t.Errorf("Opposite(%d): expected error", dir)
		}
	}
}

func TestRotateEdgesInverse(t *testing.T) {
	edges := [6]string{"grass", "grass-path", "water", "cliff", "dirt-path", "sand"}
	for steps := 0; steps < 6; steps++ {
		rotated := RotateEdges(edges, steps)
		restored := RotateEdges(rotated, (6-steps)%6)
		if restored != edges {
			t.Errorf("steps=%d: rotate then inverse = %v, want %v", steps, restored, edges)
		}
	}
}

func TestRotateEdgesShift(t *testing.T) {
	edges := [6]string{"a", "b", "c", "d", "e", "f"}
	got := RotateEdges(edges, 1)
	want := [6]string{"f", "a", "b", "c", "d", "e"}
	if got != want {
		t.Errorf("RotateEdges(steps=1) = %v, want %v", got, want)
	}
	if RotateEdges(edges, 0) != edges {
		t.Error("RotateEdges(steps=0) should be identity")
	}
	if RotateEdges(edges, 6) != edges {
		t.Error("RotateEdges(steps=6) should normalize to identity")
	}
}

func TestApplyPackOffsetSpin(t *testing.T) {
	edges := [6]string{"a", "b", "c", "d", "e", "f"}

	cw, err := ApplyPackOffset(edges, 2, SpinClockwise)
	if err != nil {
		t.Fatalf("ApplyPackOffset clockwise: %v", err)
	}
	if cw != RotateEdges(edges, 2) {
		t.Errorf("clockwise offset 2 = %v, want %v", cw, RotateEdges(edges, 2))
	}

	ccw, err := ApplyPackOffset(edges, 2, SpinCounterClockwise)
	if err != nil {
		t.Fatalf("ApplyPackOffset counter-clockwise: %v", err)
	}
	if ccw != RotateEdges(edges, 4) {
		t.Errorf("counter-clockwise offset 2 = %v, want %v", ccw, RotateEdges(edges, 4))
	}

	// Opposite spins cancel.
	back, err := ApplyPackOffset(cw, 2, SpinCounterClockwise)
	if err != nil {
		t.Fatalf("ApplyPackOffset inverse: %v", err)
	}
	if back != edges {
		t.Errorf("offset then inverse-spin offset = %v, want %v", back, edges)
	}

	if _, err := ApplyPackOffset(edges, 6, SpinClockwise); err == nil {
		t.Error("expected error for offset out of range")
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b Axial
		want int
	}{
		{Axial{0, 0}, Axial{0, 0}, 0},
		{Axial{0, 0}, Axial{1, 0}, 1},
		{Axial{0, 0}, Axial{2, -1}, 2},
		{Axial{-2, 1}, Axial{3, -1}, 5},
	}
	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("Distance(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
