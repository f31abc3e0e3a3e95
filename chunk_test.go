package isosurface

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestChunkSetUp(t *testing.T) {
	layout := testLayout(C(1, 1, 1), 2, 3)
	ch := sampledChunk(t, layout, C(0, 0, 0), sphereWeight(0.5))
	if !ch.Active() || !ch.HasSamples() {
		t.Fatalf("chunk not ready: active=%v samples=%v", ch.Active(), ch.HasSamples())
	}

	// Same resolution keeps the samples, only the collision flag changes.
	ch.SetUp(3, true)
	if !ch.HasSamples() || !ch.WantsCollision() {
		t.Errorf("SetUp with same resolution dropped state")
	}

	ch.SetUp(4, false)
	if ch.HasSamples() || ch.PointsPerAxis() != 4 {
		t.Errorf("SetUp with new resolution kept %d samples", len(ch.Samples()))
	}
}

func TestChunkUpdateWeights(t *testing.T) {
	ch := NewChunk(C(0, 0, 0))
	ch.SetUp(2, false)
	if err := ch.UpdateWeights(make([]Sample, 7)); !errors.Is(err, ErrSampleCount) {
		t.Errorf("err = %v, want ErrSampleCount", err)
	}
	if ch.HasSamples() {
		t.Error("rejected samples were stored")
	}
	if err := ch.UpdateWeights(make([]Sample, 8)); err != nil {
		t.Errorf("UpdateWeights() = %v", err)
	}
}

func TestChunkCorners(t *testing.T) {
	ch := NewChunk(C(0, 0, 0))
	ch.SetUp(2, false)
	samples := make([]Sample, 8)
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			for z := 0; z < 2; z++ {
				i := x*4 + y*2 + z
				samples[i] = Sample{
					Position: mgl32.Vec3{float32(x), float32(y), float32(z)},
					Weight:   float32(i),
				}
			}
		}
	}
	if err := ch.UpdateWeights(samples); err != nil {
		t.Fatal(err)
	}

	// Corner order: (0,0,0) (1,0,0) (1,0,1) (0,0,1), then the same at y+1.
	want := [8]float32{0, 4, 5, 1, 2, 6, 7, 3}
	if got := ch.Corners(0, 0, 0); got != want {
		t.Errorf("Corners() = %v, want %v", got, want)
	}
	pos := ch.CornerPositions(0, 0, 0)
	if pos[2] != (mgl32.Vec3{1, 0, 1}) || pos[7] != (mgl32.Vec3{0, 1, 1}) {
		t.Errorf("CornerPositions() = %v", pos)
	}
	cube := ch.Cube(0, 0, 0)
	if cube.Weights != want || cube.Positions != pos {
		t.Errorf("Cube() disagrees with Corners/CornerPositions")
	}
}

func TestChunkCornersOutOfRangePanics(t *testing.T) {
	layout := testLayout(C(1, 1, 1), 2, 3)
	ch := sampledChunk(t, layout, C(0, 0, 0), sphereWeight(0.5))
	for _, v := range [][3]int{{2, 0, 0}, {0, -1, 0}, {0, 0, 5}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Corners(%v) did not panic", v)
				}
			}()
			ch.Corners(v[0], v[1], v[2])
		}()
	}
}

func TestChunkRecycle(t *testing.T) {
	layout := testLayout(C(1, 1, 1), 2, 3)
	ch := sampledChunk(t, layout, C(0, 0, 0), sphereWeight(0.5))
	ch.setTriangles(Soup{{}})
	ch.setMesh(&Mesh{})

	ch.Recycle()
	ch.Recycle()
	if ch.Active() || ch.HasSamples() || ch.Triangles() != nil || ch.Mesh() != nil {
		t.Errorf("Recycle left state behind")
	}
}
