package isosurface

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"
)

// WeightField supplies chunk samples. All coordinates of one call share
// layout. Each returned slice must hold exactly PointsPerAxis³ samples in
// x*N*N + y*N + z order; a missing or mis-sized slice fails that chunk.
type WeightField interface {
	Generate(ctx context.Context, coords []Coord, layout Layout) (map[Coord][]Sample, error)
}

// WeightFieldFunc adapts a per-point function to a WeightField. The
// function receives the world position of each lattice point.
type WeightFieldFunc func(x, y, z float32) float32

// Generate samples f at every lattice point of every coordinate.
func (f WeightFieldFunc) Generate(ctx context.Context, coords []Coord, layout Layout) (map[Coord][]Sample, error) {
	n := layout.PointsPerAxis
	out := make(map[Coord][]Sample, len(coords))
	for _, c := range coords {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		samples := make([]Sample, n*n*n)
		for x := 0; x < n; x++ {
			for y := 0; y < n; y++ {
				for z := 0; z < n; z++ {
					p := layout.PointPosition(c, x, y, z)
					samples[layout.PointIndex(x, y, z)] = Sample{Position: p, Weight: f(p[0], p[1], p[2])}
				}
			}
		}
		out[c] = samples
	}
	return out, nil
}

// Modifier turns a chunk's triangle soup into its final indexed mesh.
// Seam stitching and normal smoothing live here, outside the core.
type Modifier interface {
	Apply(soup Soup, coord Coord) (*Mesh, error)
}

// Stitcher is an optional Modifier extension that adjusts boundary
// vertices of neighbouring chunk meshes after every chunk was modified.
type Stitcher interface {
	Stitch(meshes map[Coord]*Mesh) error
}

// Sink receives each chunk's final mesh.
type Sink interface {
	Accept(coord Coord, mesh *Mesh, collision bool) error
}

// SoupModifier converts soup to a mesh without welding: three vertices per
// triangle, each carrying the face normal. It is lossless and is the
// default Modifier.
type SoupModifier struct{}

// Apply converts soup to an unwelded indexed mesh.
func (SoupModifier) Apply(soup Soup, _ Coord) (*Mesh, error) {
	m := &Mesh{
		Vertices: make([]mgl32.Vec3, 0, len(soup)*3),
		Normals:  make([]mgl32.Vec3, 0, len(soup)*3),
		Indices:  make([]uint32, 0, len(soup)*3),
	}
	for _, t := range soup {
		base := uint32(len(m.Vertices))
		m.Vertices = append(m.Vertices, t.A, t.B, t.C)
		m.Normals = append(m.Normals, t.Normal, t.Normal, t.Normal)
		m.Indices = append(m.Indices, base, base+1, base+2)
	}
	return m, nil
}
