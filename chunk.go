package isosurface

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Sample is one lattice point of a chunk: its world position and the
// scalar weight of the density field there.
type Sample struct {
	Position mgl32.Vec3
	Weight   float32
}

// cornerOffsets lists the lattice offset of each cube corner, matching the
// corner numbering of the triangulation tables.
var cornerOffsets = [8][3]int{
	{0, 0, 0},
	{1, 0, 0},
	{1, 0, 1},
	{0, 0, 1},
	{0, 1, 0},
	{1, 1, 0},
	{1, 1, 1},
	{0, 1, 1},
}

// Chunk owns the sample lattice of one grid coordinate and the surface
// last generated from it.
//
// A chunk is not safe for concurrent mutation. During a run each chunk is
// processed by exactly one worker.
type Chunk struct {
	coord Coord
	n     int

	samples []Sample

	wantsCollision bool
	active         bool

	triangles Soup
	mesh      *Mesh
}

// NewChunk returns an inactive chunk for coord. Call SetUp before use.
func NewChunk(coord Coord) *Chunk {
	return &Chunk{coord: coord}
}

// Coord returns the chunk's grid coordinate.
func (c *Chunk) Coord() Coord { return c.coord }

// PointsPerAxis returns the lattice resolution set by SetUp.
func (c *Chunk) PointsPerAxis() int { return c.n }

// Active reports whether the chunk is part of the current grid.
func (c *Chunk) Active() bool { return c.active }

// WantsCollision reports whether a collision surface should be built
// from this chunk's mesh.
func (c *Chunk) WantsCollision() bool { return c.wantsCollision }

// SetUp (re)initializes the chunk for lattice resolution n. Calling it
// again with the same arguments changes nothing. Samples from a different
// resolution are dropped.
func (c *Chunk) SetUp(n int, wantsCollision bool) {
	if n != c.n {
		c.samples = nil
		c.triangles = nil
		c.mesh = nil
	}
	c.n = n
	c.wantsCollision = wantsCollision
	c.active = true
}

// UpdateWeights replaces the chunk's samples. The slice is retained; it
// must hold exactly N³ entries in x*N*N + y*N + z order.
func (c *Chunk) UpdateWeights(samples []Sample) error {
	want := c.n * c.n * c.n
	if len(samples) != want {
		return fmt.Errorf("%w: chunk %v got %d samples, want %d", ErrSampleCount, c.coord, len(samples), want)
	}
	c.samples = samples
	return nil
}

// Samples returns the chunk's current samples.
func (c *Chunk) Samples() []Sample { return c.samples }

// HasSamples reports whether UpdateWeights has populated the lattice.
func (c *Chunk) HasSamples() bool { return len(c.samples) > 0 && len(c.samples) == c.n*c.n*c.n }

func (c *Chunk) index(x, y, z int) int {
	return x*c.n*c.n + y*c.n + z
}

func (c *Chunk) checkVoxel(x, y, z int) {
	v := c.n - 1
	if x < 0 || y < 0 || z < 0 || x >= v || y >= v || z >= v {
		panic(fmt.Sprintf("isosurface: voxel (%d, %d, %d) outside chunk %v with %d voxels per axis", x, y, z, c.coord, v))
	}
	if !c.HasSamples() {
		panic(fmt.Sprintf("isosurface: chunk %v has no samples", c.coord))
	}
}

// Corners returns the weights of the voxel whose minimum corner is lattice
// index (x, y, z). Valid for 0 <= x, y, z < N-1; anything else panics.
func (c *Chunk) Corners(x, y, z int) [8]float32 {
	c.checkVoxel(x, y, z)
	var w [8]float32
	for i, o := range cornerOffsets {
		w[i] = c.samples[c.index(x+o[0], y+o[1], z+o[2])].Weight
	}
	return w
}

// CornerPositions returns the world positions of the voxel's corners,
// with the same preconditions as Corners.
func (c *Chunk) CornerPositions(x, y, z int) [8]mgl32.Vec3 {
	c.checkVoxel(x, y, z)
	var p [8]mgl32.Vec3
	for i, o := range cornerOffsets {
		p[i] = c.samples[c.index(x+o[0], y+o[1], z+o[2])].Position
	}
	return p
}

// Cube gathers positions and weights of one voxel. Thresholds are left
// zero for the triangulator to fill.
func (c *Chunk) Cube(x, y, z int) Cube {
	c.checkVoxel(x, y, z)
	var cube Cube
	for i, o := range cornerOffsets {
		s := c.samples[c.index(x+o[0], y+o[1], z+o[2])]
		cube.Positions[i] = s.Position
		cube.Weights[i] = s.Weight
	}
	return cube
}

// Triangles returns the soup produced by the last triangulation.
func (c *Chunk) Triangles() Soup { return c.triangles }

// Mesh returns the indexed mesh produced by the last modifier pass, if any.
func (c *Chunk) Mesh() *Mesh { return c.mesh }

func (c *Chunk) setTriangles(s Soup) { c.triangles = s }

func (c *Chunk) setMesh(m *Mesh) { c.mesh = m }

// Recycle clears the chunk's samples and geometry and deactivates it.
// It is safe to call more than once.
func (c *Chunk) Recycle() {
	c.samples = nil
	c.triangles = nil
	c.mesh = nil
	c.active = false
}
