// Package mesh converts marching-cubes triangle soup into indexed meshes
// and writes them out.
//
// Welder is an isosurface.Modifier that merges vertices with exactly equal
// positions. No position is moved and the triangle order is preserved, so
// the conversion is lossless. Edge vertices interpolated from opposite
// directions may differ in the last bit; those stay separate.
package mesh

import (
	"cmp"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/isosurface"
)

// Weld builds an indexed mesh from soup, merging exactly equal positions.
// Each vertex normal is the normalized sum of the face normals of the
// triangles that reference it.
func Weld(soup isosurface.Soup) *isosurface.Mesh {
	m := &isosurface.Mesh{Indices: make([]uint32, 0, len(soup)*3)}
	index := make(map[mgl32.Vec3]uint32, len(soup))
	for _, t := range soup {
		for i := 0; i < 3; i++ {
			v := t.Vertex(i)
			idx, ok := index[v]
			if !ok {
				idx = uint32(len(m.Vertices)) //nolint:gosec // vertex count fits uint32
				index[v] = idx
				m.Vertices = append(m.Vertices, v)
				m.Normals = append(m.Normals, mgl32.Vec3{})
			}
			m.Normals[idx] = m.Normals[idx].Add(t.Normal)
			m.Indices = append(m.Indices, idx)
		}
	}
	for i, n := range m.Normals {
		m.Normals[i] = normalize(n)
	}
	return m
}

func normalize(n mgl32.Vec3) mgl32.Vec3 {
	l := n.Len()
	if l == 0 {
		return mgl32.Vec3{}
	}
	return n.Mul(1 / l)
}

// Welder is an isosurface.Modifier producing welded meshes. It also
// implements isosurface.Stitcher: vertices shared by neighbouring chunks
// get one common normal.
type Welder struct {
	// FlatNormals keeps the face normal of the first triangle that
	// references a vertex instead of averaging.
	FlatNormals bool
}

var (
	_ isosurface.Modifier = Welder{}
	_ isosurface.Stitcher = Welder{}
)

// Apply welds soup into an indexed mesh.
func (w Welder) Apply(soup isosurface.Soup, _ isosurface.Coord) (*isosurface.Mesh, error) {
	m := Weld(soup)
	if w.FlatNormals {
		seen := make([]bool, len(m.Vertices))
		for i, idx := range m.Indices {
			if !seen[idx] {
				seen[idx] = true
				m.Normals[idx] = soup[i/3].Normal
			}
		}
	}
	return m, nil
}

// Stitch averages the normals of vertices that appear at exactly the same
// position in more than one chunk mesh. Positions are never moved.
func (w Welder) Stitch(meshes map[isosurface.Coord]*isosurface.Mesh) error {
	if w.FlatNormals {
		return nil
	}
	type ref struct {
		mesh *isosurface.Mesh
		idx  int
	}
	coords := make([]isosurface.Coord, 0, len(meshes))
	for c := range meshes {
		coords = append(coords, c)
	}
	slices.SortFunc(coords, func(a, b isosurface.Coord) int {
		return cmp.Or(cmp.Compare(a.X, b.X), cmp.Compare(a.Y, b.Y), cmp.Compare(a.Z, b.Z))
	})

	shared := make(map[mgl32.Vec3][]ref)
	for _, c := range coords {
		m := meshes[c]
		if m == nil {
			continue
		}
		for i, v := range m.Vertices {
			shared[v] = append(shared[v], ref{m, i})
		}
	}
	for _, refs := range shared {
		if len(refs) < 2 {
			continue
		}
		var sum mgl32.Vec3
		for _, r := range refs {
			sum = sum.Add(r.mesh.Normals[r.idx])
		}
		n := normalize(sum)
		for _, r := range refs {
			r.mesh.Normals[r.idx] = n
		}
	}
	return nil
}
