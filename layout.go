package isosurface

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Coord identifies a chunk in the lattice. Coordinates are compared by
// exact equality and are used directly as map keys.
type Coord struct {
	X, Y, Z int
}

// C is a convenience constructor for Coord.
func C(x, y, z int) Coord {
	return Coord{X: x, Y: y, Z: z}
}

// String returns the coordinate as "(x, y, z)".
func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.X, c.Y, c.Z)
}

// Vec3 returns the coordinate as a float vector.
func (c Coord) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{float32(c.X), float32(c.Y), float32(c.Z)}
}

// Layout describes the chunk grid of one generation run. All chunks of a
// run share the same chunk size and lattice resolution.
type Layout struct {
	// NumChunks is the number of chunks along each axis.
	NumChunks Coord

	// ChunkSize is the world-space edge length of one chunk.
	ChunkSize float32

	// PointsPerAxis is the lattice resolution N of every chunk.
	// A chunk holds N³ samples and (N-1)³ voxels.
	PointsPerAxis int
}

// Validate reports whether the layout describes a usable lattice.
func (l Layout) Validate() error {
	if l.PointsPerAxis < 2 {
		return fmt.Errorf("%w: points per axis %d < 2", ErrInvalidLayout, l.PointsPerAxis)
	}
	if !(l.ChunkSize > 0) {
		return fmt.Errorf("%w: chunk size %v", ErrInvalidLayout, l.ChunkSize)
	}
	if l.NumChunks.X < 1 || l.NumChunks.Y < 1 || l.NumChunks.Z < 1 {
		return fmt.Errorf("%w: chunk grid %v", ErrInvalidLayout, l.NumChunks)
	}
	return nil
}

// VoxelsPerAxis returns N-1.
func (l Layout) VoxelsPerAxis() int { return l.PointsPerAxis - 1 }

// PointsPerChunk returns N³.
func (l Layout) PointsPerChunk() int {
	n := l.PointsPerAxis
	return n * n * n
}

// MaxTriangles returns the worst-case triangle count of one chunk: every
// voxel emits at most five triangles.
func (l Layout) MaxTriangles() int {
	v := l.VoxelsPerAxis()
	return v * v * v * 5
}

// Coords enumerates every chunk coordinate of the grid, x-major.
func (l Layout) Coords() []Coord {
	if l.NumChunks.X < 1 || l.NumChunks.Y < 1 || l.NumChunks.Z < 1 {
		return nil
	}
	coords := make([]Coord, 0, l.NumChunks.X*l.NumChunks.Y*l.NumChunks.Z)
	for x := 0; x < l.NumChunks.X; x++ {
		for y := 0; y < l.NumChunks.Y; y++ {
			for z := 0; z < l.NumChunks.Z; z++ {
				coords = append(coords, Coord{x, y, z})
			}
		}
	}
	return coords
}

// TotalBounds returns the world-space extent of the whole grid.
func (l Layout) TotalBounds() mgl32.Vec3 {
	return l.NumChunks.Vec3().Mul(l.ChunkSize)
}

// Center returns the world-space center of a chunk. The grid is centered
// on the origin:
//
//	center = -totalBounds/2 + coord*chunkSize + chunkSize/2
func (l Layout) Center(c Coord) mgl32.Vec3 {
	half := l.ChunkSize / 2
	return l.TotalBounds().Mul(-0.5).
		Add(c.Vec3().Mul(l.ChunkSize)).
		Add(mgl32.Vec3{half, half, half})
}

// PointPosition returns the world position of lattice index (x, y, z) of
// chunk c. Indices range over [0, N-1] on each axis.
func (l Layout) PointPosition(c Coord, x, y, z int) mgl32.Vec3 {
	inv := 1 / float32(l.PointsPerAxis-1)
	offset := mgl32.Vec3{
		float32(x)*inv - 0.5,
		float32(y)*inv - 0.5,
		float32(z)*inv - 0.5,
	}
	return l.Center(c).Add(offset.Mul(l.ChunkSize))
}

// PointIndex returns the flat sample index x*N*N + y*N + z.
func (l Layout) PointIndex(x, y, z int) int {
	n := l.PointsPerAxis
	return x*n*n + y*n + z
}

// WorldHalfHeight returns half the vertical extent of the whole grid.
func (l Layout) WorldHalfHeight() float32 {
	return float32(l.NumChunks.Y) * 0.5 * l.ChunkSize
}

// NormalizedHeight maps a world height to [0, 1] relative to the vertical
// span of the whole grid, not of a single chunk.
func (l Layout) NormalizedHeight(y float32) float32 {
	h := l.WorldHalfHeight()
	return inverseLerp(-h, h, y)
}

// ChunkHeightRange returns the lowest and highest world height of the
// lattice points of chunk c.
func (l Layout) ChunkHeightRange(c Coord) (yMin, yMax float32) {
	n := l.PointsPerAxis
	return l.PointPosition(c, 0, 0, 0).Y(), l.PointPosition(c, 0, n-1, 0).Y()
}

// inverseLerp returns where v lies between a and b, clamped to [0, 1].
func inverseLerp(a, b, v float32) float32 {
	if a == b {
		return 0
	}
	return mgl32.Clamp((v-a)/(b-a), 0, 1)
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

func lerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
