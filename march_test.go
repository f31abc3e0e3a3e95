package isosurface

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// unitCube returns a cube spanning [0,1]³ with every weight set to w.
func unitCube(w float32) Cube {
	var c Cube
	for i, o := range cornerOffsets {
		c.Positions[i] = mgl32.Vec3{float32(o[0]), float32(o[1]), float32(o[2])}
		c.Weights[i] = w
	}
	return c
}

func TestClassify(t *testing.T) {
	var thresholds [8]float32
	tests := []struct {
		name    string
		weights [8]float32
		want    uint8
	}{
		{"all outside", [8]float32{1, 1, 1, 1, 1, 1, 1, 1}, 0},
		{"all inside", [8]float32{-1, -1, -1, -1, -1, -1, -1, -1}, 255},
		{"on threshold counts as outside", [8]float32{}, 0},
		{"corner 0", [8]float32{-1, 0, 0, 0, 0, 0, 0, 0}, 1},
		{"corner 7", [8]float32{0, 0, 0, 0, 0, 0, 0, -0.001}, 128},
		{"corners 1 and 4", [8]float32{0, -1, 0, 0, -1, 0, 0, 0}, 18},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(&tt.weights, &thresholds); got != tt.want {
				t.Errorf("Classify() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEdgeT(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	tests := []struct {
		name     string
		a, b, iso float32
		want     float32
	}{
		{"midpoint", 0, 1, 0.5, 0.5},
		{"quarter", -1, 3, 0, 0.25},
		{"equal weights", 2, 2, 7, 0.5},
		{"clamped high", 0, 1, 2, 1},
		{"clamped low", 0, 1, -1, 0},
		{"nan weight", nan, 1, 0, 0.5},
		{"infinite span", -inf, 1, 0, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EdgeT(tt.a, tt.b, tt.iso); got != tt.want {
				t.Errorf("EdgeT(%v, %v, %v) = %v, want %v", tt.a, tt.b, tt.iso, got, tt.want)
			}
		})
	}
}

func TestMarchCubeUniform(t *testing.T) {
	for _, w := range []float32{1, -1} {
		c := unitCube(w)
		if got := MarchCube(&c, IsoCornerA, nil); len(got) != 0 {
			t.Errorf("uniform weight %v produced %d triangles", w, len(got))
		}
	}
}

func TestMarchCubeSingleCorner(t *testing.T) {
	c := unitCube(1)
	c.Weights[0] = -1

	soup := MarchCube(&c, IsoCornerA, nil)
	if len(soup) != 1 {
		t.Fatalf("got %d triangles, want 1", len(soup))
	}
	tri := soup[0]
	want := Triangle{
		A: mgl32.Vec3{0.5, 0, 0},
		B: mgl32.Vec3{0, 0.5, 0},
		C: mgl32.Vec3{0, 0, 0.5},
	}
	if tri.A != want.A || tri.B != want.B || tri.C != want.C {
		t.Errorf("vertices = %v %v %v, want %v %v %v", tri.A, tri.B, tri.C, want.A, want.B, want.C)
	}
	s := float32(1 / math.Sqrt(3))
	if !tri.Normal.ApproxEqualThreshold(mgl32.Vec3{-s, -s, -s}, 1e-6) {
		t.Errorf("normal = %v, want it to point at the inside corner", tri.Normal)
	}
}

func TestMarchCubeSingleCornerEveryConfiguration(t *testing.T) {
	a, b := EdgeCorners()
	for corner := 0; corner < 8; corner++ {
		for _, sign := range []float32{1, -1} {
			c := unitCube(sign)
			c.Weights[corner] = -sign
			soup := MarchCube(&c, IsoCornerA, nil)
			if len(soup) != 1 {
				t.Fatalf("corner %d sign %v: %d triangles, want 1", corner, sign, len(soup))
			}
			for k := 0; k < 3; k++ {
				v := soup[0].Vertex(k)
				onIncident := false
				for e := 0; e < 12; e++ {
					if int(a[e]) != corner && int(b[e]) != corner {
						continue
					}
					mid := c.Positions[a[e]].Add(c.Positions[b[e]]).Mul(0.5)
					if v.ApproxEqualThreshold(mid, 1e-6) {
						onIncident = true
					}
				}
				if !onIncident {
					t.Errorf("corner %d sign %v: vertex %v not on an incident edge", corner, sign, v)
				}
			}
		}
	}
}

func TestMarchCubeVerticesStayOnEdges(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 2000; i++ {
		c := unitCube(0)
		for k := range c.Weights {
			c.Weights[k] = rng.Float32()*2 - 1
			c.Thresholds[k] = rng.Float32()*0.5 - 0.25
		}
		if i%7 == 0 {
			// Equal weights on some edges exercise the midpoint guard.
			c.Weights[1] = c.Weights[0]
		}
		for _, tri := range MarchCube(&c, IsoCornerA, nil) {
			for k := 0; k < 3; k++ {
				v := tri.Vertex(k)
				onFace := 0
				for _, x := range v {
					if x < 0 || x > 1 {
						t.Fatalf("vertex %v outside the cube", v)
					}
					if x == 0 || x == 1 {
						onFace++
					}
				}
				if onFace < 2 {
					t.Fatalf("vertex %v is not on a cube edge", v)
				}
			}
		}
	}
}

func TestChunkOutputBound(t *testing.T) {
	layout := testLayout(C(1, 1, 1), 8, 9)
	rng := rand.New(rand.NewPCG(3, 4))
	noise := WeightFieldFunc(func(x, y, z float32) float32 {
		return rng.Float32()*2 - 1
	})
	ch := sampledChunk(t, layout, C(0, 0, 0), noise)
	tr := &Triangulator{Layout: layout, Curve: ConstantCurve(0)}
	soup, err := tr.Chunk(ch)
	if err != nil {
		t.Fatal(err)
	}
	if len(soup) == 0 || len(soup) > layout.MaxTriangles() {
		t.Errorf("%d triangles, want within (0, %d]", len(soup), layout.MaxTriangles())
	}

	e := dispatchSetup(t, &SoftwareAccelerator{}, layout, tr.Curve)
	got, err := e.Triangulate(context.Background(), ch)
	if err != nil {
		t.Fatal(err)
	}
	requireSameSoup(t, soup, got, 0)
}

func TestMarchCubeAppends(t *testing.T) {
	c := unitCube(1)
	c.Weights[0] = -1
	dst := make(Soup, 2)
	if got := MarchCube(&c, IsoCornerA, dst); len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}

func TestInterpolationPolicy(t *testing.T) {
	c := unitCube(1)
	c.Weights[0] = -1
	c.Thresholds[3] = 0.5

	// Edge 3 runs from corner 3 to corner 0.
	corner := MarchCube(&c, IsoCornerA, nil)[0].C
	if !corner.ApproxEqualThreshold(mgl32.Vec3{0, 0, 0.75}, 1e-6) {
		t.Errorf("CornerA vertex = %v, want (0, 0, 0.75)", corner)
	}
	avg := MarchCube(&c, IsoAverage, nil)[0].C
	if !avg.ApproxEqualThreshold(mgl32.Vec3{0, 0, 0.625}, 1e-6) {
		t.Errorf("Average vertex = %v, want (0, 0, 0.625)", avg)
	}
	if IsoCornerA.String() != "CornerA" || IsoAverage.String() != "Average" {
		t.Errorf("policy names = %q, %q", IsoCornerA, IsoAverage)
	}
}

func TestMarchCubeDegenerateTriangle(t *testing.T) {
	c := unitCube(1)
	// Corner 0 is inside. The three cut edges clamp onto corner 0, which
	// collapses the triangle to a point.
	c.Weights[0], c.Thresholds[0] = -1, 0
	c.Weights[1], c.Thresholds[1] = -4, -5
	c.Weights[4], c.Thresholds[4] = -4, -5
	c.Weights[3], c.Thresholds[3] = 10, -5

	soup := MarchCube(&c, IsoCornerA, nil)
	if len(soup) != 1 {
		t.Fatalf("got %d triangles, want 1", len(soup))
	}
	if soup[0].Normal != (mgl32.Vec3{}) {
		t.Errorf("normal = %v, want zero vector", soup[0].Normal)
	}
	if soup[0].Area() != 0 {
		t.Errorf("area = %v, want 0", soup[0].Area())
	}
}

func TestTriangulatorMarch(t *testing.T) {
	tr := &Triangulator{Layout: testLayout(C(1, 1, 1), 2, 2), Curve: ConstantCurve(0)}

	c := unitCube(1)
	c.Weights[0] = -1
	soup, err := tr.March(c.Positions[:], c.Weights[:])
	if err != nil {
		t.Fatal(err)
	}
	if len(soup) != 1 {
		t.Errorf("got %d triangles, want 1", len(soup))
	}

	soup, err = tr.March(c.Positions[:7], c.Weights[:])
	if !errors.Is(err, ErrCornerCount) {
		t.Errorf("err = %v, want ErrCornerCount", err)
	}
	if soup != nil {
		t.Errorf("malformed cube produced %d triangles", len(soup))
	}
}

func TestTriangulatorThreshold(t *testing.T) {
	tr := &Triangulator{
		Layout: testLayout(C(1, 2, 1), 4, 5),
		Curve:  LinearCurve{From: -1, To: 1},
	}
	if got := tr.Threshold(-4); got != -1 {
		t.Errorf("Threshold(bottom) = %v, want -1", got)
	}
	if got := tr.Threshold(0); got != 0 {
		t.Errorf("Threshold(middle) = %v, want 0", got)
	}
	if got := tr.Threshold(4); got != 1 {
		t.Errorf("Threshold(top) = %v, want 1", got)
	}
}

func TestTriangulatorChunkWithoutSamples(t *testing.T) {
	tr := &Triangulator{Layout: testLayout(C(1, 1, 1), 1, 3), Curve: ConstantCurve(0)}
	ch := NewChunk(C(0, 0, 0))
	ch.SetUp(3, false)
	if _, err := tr.Chunk(ch); !errors.Is(err, ErrSampleCount) {
		t.Errorf("err = %v, want ErrSampleCount", err)
	}
}

func TestTriangulatorSlabsCoverChunk(t *testing.T) {
	layout := testLayout(C(1, 1, 1), 10, 11)
	ch := sampledChunk(t, layout, C(0, 0, 0), sphereWeight(3.7))
	tr := &Triangulator{Layout: layout, Curve: ConstantCurve(0)}

	whole, err := tr.Chunk(ch)
	if err != nil {
		t.Fatal(err)
	}
	var parts Soup
	parts = tr.Slab(ch, 0, 4, parts)
	parts = tr.Slab(ch, 4, 10, parts)
	requireSameSoup(t, whole, parts, 0)
}

func TestTriangulationTable(t *testing.T) {
	if err := ValidateTables(); err != nil {
		t.Fatal(err)
	}

	broken := triangulation
	broken[1][1] = 9
	if err := validateTable(&broken); !errors.Is(err, ErrInvariant) {
		t.Errorf("wrong edge: err = %v, want ErrInvariant", err)
	}
	broken = triangulation
	broken[2][5] = 4
	if err := validateTable(&broken); !errors.Is(err, ErrInvariant) {
		t.Errorf("entry after terminator: err = %v, want ErrInvariant", err)
	}
	broken = triangulation
	broken[3][0] = 12
	if err := validateTable(&broken); !errors.Is(err, ErrInvariant) {
		t.Errorf("edge out of range: err = %v, want ErrInvariant", err)
	}

	flat := TriangulationTable()
	if len(flat) != 256*16 {
		t.Fatalf("flat table has %d entries", len(flat))
	}
	if flat[16] != 0 || flat[17] != 8 || flat[18] != 3 || flat[19] != -1 {
		t.Errorf("flat row 1 = %v", flat[16:20])
	}
}

// weldByDistance assigns the same id to vertices closer than tol.
func weldByDistance(soup Soup, tol float32) (ids [][3]int, count int) {
	var verts []mgl32.Vec3
	find := func(v mgl32.Vec3) int {
		for i, u := range verts {
			d := v.Sub(u)
			if abs32(d[0]) < tol && abs32(d[1]) < tol && abs32(d[2]) < tol {
				return i
			}
		}
		verts = append(verts, v)
		return len(verts) - 1
	}
	ids = make([][3]int, len(soup))
	for i, tri := range soup {
		ids[i] = [3]int{find(tri.A), find(tri.B), find(tri.C)}
	}
	return ids, len(verts)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestSphereIsClosedSurface(t *testing.T) {
	layout := testLayout(C(1, 1, 1), 10, 11)
	for _, r := range []float32{2.5, 3.7} {
		ch := sampledChunk(t, layout, C(0, 0, 0), sphereWeight(r))
		tr := &Triangulator{Layout: layout, Curve: ConstantCurve(0)}
		soup, err := tr.Chunk(ch)
		if err != nil {
			t.Fatal(err)
		}
		if len(soup) == 0 {
			t.Fatalf("r=%v: empty surface", r)
		}

		ids, verts := weldByDistance(soup, 1e-4)
		directed := make(map[[2]int]int)
		for _, tri := range ids {
			for k := 0; k < 3; k++ {
				directed[[2]int{tri[k], tri[(k+1)%3]}]++
			}
		}
		for e, n := range directed {
			if n != 1 || directed[[2]int{e[1], e[0]}] != 1 {
				t.Fatalf("r=%v: edge %v used %d times, reverse %d times", r, e, n, directed[[2]int{e[1], e[0]}])
			}
		}
		if euler := verts - len(directed)/2 + len(soup); euler != 2 {
			t.Errorf("r=%v: Euler characteristic %d, want 2", r, euler)
		}

		// Normals face decreasing weight, towards the center.
		for _, tri := range soup {
			centroid := tri.A.Add(tri.B).Add(tri.C).Mul(1.0 / 3)
			if tri.Normal.Dot(centroid) >= 0 {
				t.Fatalf("r=%v: normal %v faces away from the center at %v", r, tri.Normal, centroid)
			}
		}
	}
}
