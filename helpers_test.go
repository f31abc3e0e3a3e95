package isosurface

import (
	"cmp"
	"context"
	"math"
	"slices"
	"testing"
)

func testLayout(num Coord, size float32, n int) Layout {
	return Layout{NumChunks: num, ChunkSize: size, PointsPerAxis: n}
}

// sphereWeight is the signed distance to a sphere of radius r at the origin.
func sphereWeight(r float32) WeightFieldFunc {
	return func(x, y, z float32) float32 {
		return float32(math.Sqrt(float64(x*x+y*y+z*z))) - r
	}
}

// sampledChunk returns a chunk at c filled from f.
func sampledChunk(t testing.TB, layout Layout, c Coord, f WeightFieldFunc) *Chunk {
	t.Helper()
	samples, err := f.Generate(context.Background(), []Coord{c}, layout)
	if err != nil {
		t.Fatal(err)
	}
	ch := NewChunk(c)
	ch.SetUp(layout.PointsPerAxis, false)
	if err := ch.UpdateWeights(samples[c]); err != nil {
		t.Fatal(err)
	}
	return ch
}

// sortedVertices flattens soup to sorted vertex tuples so that two soups
// can be compared independent of triangle order.
func sortedVertices(soup Soup) [][9]float32 {
	out := make([][9]float32, len(soup))
	for i, tri := range soup {
		out[i] = [9]float32{tri.A[0], tri.A[1], tri.A[2], tri.B[0], tri.B[1], tri.B[2], tri.C[0], tri.C[1], tri.C[2]}
	}
	slices.SortFunc(out, func(a, b [9]float32) int {
		for i := range a {
			if c := cmp.Compare(a[i], b[i]); c != 0 {
				return c
			}
		}
		return 0
	})
	return out
}

// requireSameSoup fails unless a and b hold the same triangles within tol,
// in any order.
func requireSameSoup(t *testing.T, a, b Soup, tol float32) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("triangle counts differ: %d vs %d", len(a), len(b))
	}
	va, vb := sortedVertices(a), sortedVertices(b)
	used := make([]bool, len(vb))
	for i := range va {
		found := false
		for j := range vb {
			if !used[j] && closeTuple(va[i], vb[j], tol) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("triangle %v has no counterpart within %v", va[i], tol)
		}
	}
}

func closeTuple(a, b [9]float32, tol float32) bool {
	for i := range a {
		if d := a[i] - b[i]; d > tol || d < -tol {
			return false
		}
	}
	return true
}
