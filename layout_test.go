package isosurface

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		ok     bool
	}{
		{"minimal", testLayout(C(1, 1, 1), 1, 2), true},
		{"one point", testLayout(C(1, 1, 1), 1, 1), false},
		{"zero size", testLayout(C(1, 1, 1), 0, 4), false},
		{"negative size", testLayout(C(1, 1, 1), -3, 4), false},
		{"empty grid", testLayout(C(2, 0, 2), 1, 4), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidLayout) {
				t.Errorf("Validate() = %v, want ErrInvalidLayout", err)
			}
		})
	}
}

func TestLayoutCenter(t *testing.T) {
	l := testLayout(C(2, 1, 1), 10, 5)
	if got := l.Center(C(0, 0, 0)); got != (mgl32.Vec3{-5, 0, 0}) {
		t.Errorf("Center(0,0,0) = %v, want (-5, 0, 0)", got)
	}
	if got := l.Center(C(1, 0, 0)); got != (mgl32.Vec3{5, 0, 0}) {
		t.Errorf("Center(1,0,0) = %v, want (5, 0, 0)", got)
	}
}

func TestLayoutPointPosition(t *testing.T) {
	l := testLayout(C(2, 1, 1), 10, 5)
	if got := l.PointPosition(C(0, 0, 0), 0, 0, 0); got != (mgl32.Vec3{-10, -5, -5}) {
		t.Errorf("first point = %v", got)
	}
	if got := l.PointPosition(C(1, 0, 0), 4, 4, 4); got != (mgl32.Vec3{10, 5, 5}) {
		t.Errorf("last point = %v", got)
	}
	// Neighbouring chunks share their boundary lattice plane.
	for y := 0; y < 5; y++ {
		a := l.PointPosition(C(0, 0, 0), 4, y, 2)
		b := l.PointPosition(C(1, 0, 0), 0, y, 2)
		if a != b {
			t.Errorf("boundary point y=%d: %v != %v", y, a, b)
		}
	}
}

func TestLayoutCoords(t *testing.T) {
	l := testLayout(C(2, 3, 1), 1, 2)
	coords := l.Coords()
	if len(coords) != 6 {
		t.Fatalf("len(Coords()) = %d, want 6", len(coords))
	}
	want := []Coord{{0, 0, 0}, {0, 1, 0}, {0, 2, 0}, {1, 0, 0}, {1, 1, 0}, {1, 2, 0}}
	for i := range want {
		if coords[i] != want[i] {
			t.Errorf("Coords()[%d] = %v, want %v", i, coords[i], want[i])
		}
	}
}

func TestLayoutNormalizedHeight(t *testing.T) {
	l := testLayout(C(1, 1, 1), 10, 5)
	tests := []struct {
		y, want float32
	}{
		{-5, 0},
		{0, 0.5},
		{5, 1},
		{-20, 0},
		{20, 1},
	}
	for _, tt := range tests {
		if got := l.NormalizedHeight(tt.y); got != tt.want {
			t.Errorf("NormalizedHeight(%v) = %v, want %v", tt.y, got, tt.want)
		}
	}
}

func TestLayoutChunkHeightRange(t *testing.T) {
	l := testLayout(C(1, 2, 1), 4, 5)
	if lo, hi := l.ChunkHeightRange(C(0, 0, 0)); lo != -4 || hi != 0 {
		t.Errorf("bottom chunk range = [%v, %v], want [-4, 0]", lo, hi)
	}
	if lo, hi := l.ChunkHeightRange(C(0, 1, 0)); lo != 0 || hi != 4 {
		t.Errorf("top chunk range = [%v, %v], want [0, 4]", lo, hi)
	}
}

func TestLayoutSizes(t *testing.T) {
	l := testLayout(C(1, 1, 1), 1, 9)
	if l.VoxelsPerAxis() != 8 || l.PointsPerChunk() != 729 || l.MaxTriangles() != 2560 {
		t.Errorf("sizes = %d voxels, %d points, %d triangles", l.VoxelsPerAxis(), l.PointsPerChunk(), l.MaxTriangles())
	}
	if got := l.PointIndex(1, 2, 3); got != 81+18+3 {
		t.Errorf("PointIndex(1,2,3) = %d", got)
	}
}

func TestCoordString(t *testing.T) {
	if got := C(1, -2, 3).String(); got != "(1, -2, 3)" {
		t.Errorf("String() = %q", got)
	}
}
