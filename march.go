package isosurface

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// InterpolationPolicy selects the iso value used when placing a vertex on
// a cut edge.
type InterpolationPolicy uint8

const (
	// IsoCornerA uses the threshold of the edge's first corner only.
	// This is the default and matches previously generated terrain exactly.
	IsoCornerA InterpolationPolicy = iota

	// IsoAverage uses the mean of both corner thresholds.
	IsoAverage
)

// String returns the policy name.
func (p InterpolationPolicy) String() string {
	switch p {
	case IsoCornerA:
		return "CornerA"
	case IsoAverage:
		return "Average"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

func (p InterpolationPolicy) iso(thresholdA, thresholdB float32) float32 {
	if p == IsoAverage {
		return (thresholdA + thresholdB) * 0.5
	}
	return thresholdA
}

// Cube is one voxel: its eight corners in table order.
type Cube struct {
	Positions  [8]mgl32.Vec3
	Weights    [8]float32
	Thresholds [8]float32
}

// Classify returns the cube index: bit i is set iff corner i's weight is
// strictly below its threshold. A corner exactly at its threshold counts
// as outside.
func Classify(weights, thresholds *[8]float32) uint8 {
	var idx uint8
	for i := range weights {
		if weights[i] < thresholds[i] {
			idx |= 1 << i
		}
	}
	return idx
}

// EdgeT returns the interpolation parameter for an edge from corner A to
// corner B:
//
//	t = (iso - weightA) / (weightB - weightA)
//
// Equal weights give the midpoint 0.5. The result is clamped to [0, 1] so
// the vertex always lies on the edge.
func EdgeT(weightA, weightB, iso float32) float32 {
	if weightB == weightA {
		return 0.5
	}
	t := (iso - weightA) / (weightB - weightA)
	if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
		return 0.5
	}
	return mgl32.Clamp(t, 0, 1)
}

// MarchCube appends the triangles of one classified cube to dst.
// Cube indices 0 and 255 emit nothing.
func MarchCube(cube *Cube, policy InterpolationPolicy, dst Soup) Soup {
	row := &triangulation[Classify(&cube.Weights, &cube.Thresholds)]
	for i := 0; i+2 < len(row) && row[i] != -1; i += 3 {
		a := edgeVertex(cube, policy, row[i])
		b := edgeVertex(cube, policy, row[i+1])
		c := edgeVertex(cube, policy, row[i+2])
		dst = append(dst, Triangle{A: a, B: b, C: c, Normal: faceNormal(a, b, c)})
	}
	return dst
}

func edgeVertex(cube *Cube, policy InterpolationPolicy, edge int8) mgl32.Vec3 {
	a, b := cornerIndexAFromEdge[edge], cornerIndexBFromEdge[edge]
	iso := policy.iso(cube.Thresholds[a], cube.Thresholds[b])
	t := EdgeT(cube.Weights[a], cube.Weights[b], iso)
	return lerpVec3(cube.Positions[a], cube.Positions[b], t)
}

// Triangulator is the sequential reference implementation of marching
// cubes over a chunk. Thresholds are evaluated per corner from the curve
// at the corner's height normalized to the whole grid.
type Triangulator struct {
	Layout Layout
	Curve  ThresholdCurve
	Policy InterpolationPolicy
}

// Threshold returns the iso threshold at world height y.
func (t *Triangulator) Threshold(y float32) float32 {
	return t.Curve.Evaluate(t.Layout.NormalizedHeight(y))
}

// March triangulates a cube given as parallel corner slices. A corner
// count other than 8 is a caller bug: it is logged and yields no
// triangles together with ErrCornerCount.
func (t *Triangulator) March(positions []mgl32.Vec3, weights []float32) (Soup, error) {
	if len(positions) != 8 || len(weights) != 8 {
		Logger().Warn("isosurface: rejected malformed cube",
			"positions", len(positions), "weights", len(weights))
		return nil, fmt.Errorf("%w: got %d positions, %d weights", ErrCornerCount, len(positions), len(weights))
	}
	var cube Cube
	copy(cube.Positions[:], positions)
	copy(cube.Weights[:], weights)
	t.fillThresholds(&cube)
	return MarchCube(&cube, t.Policy, nil), nil
}

func (t *Triangulator) fillThresholds(cube *Cube) {
	for i := range cube.Positions {
		cube.Thresholds[i] = t.Threshold(cube.Positions[i].Y())
	}
}

// Slab appends the triangles of every voxel with x in [x0, x1) to dst.
// Slabs are independent, so disjoint ranges may run concurrently.
func (t *Triangulator) Slab(ch *Chunk, x0, x1 int, dst Soup) Soup {
	v := ch.PointsPerAxis() - 1
	for x := x0; x < x1; x++ {
		for y := 0; y < v; y++ {
			for z := 0; z < v; z++ {
				cube := ch.Cube(x, y, z)
				t.fillThresholds(&cube)
				dst = MarchCube(&cube, t.Policy, dst)
			}
		}
	}
	return dst
}

// Chunk triangulates all (N-1)³ voxels of ch sequentially.
func (t *Triangulator) Chunk(ch *Chunk) (Soup, error) {
	if !ch.HasSamples() {
		return nil, fmt.Errorf("%w: chunk %v has no samples", ErrSampleCount, ch.Coord())
	}
	return t.Slab(ch, 0, ch.PointsPerAxis()-1, nil), nil
}
