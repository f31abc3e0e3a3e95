package isosurface

import "github.com/go-gl/mathgl/mgl32"

// Triangle is one face of the extracted surface: three vertices in table
// order plus the unit face normal normalize(cross(C-A, B-A)).
type Triangle struct {
	A, B, C mgl32.Vec3
	Normal  mgl32.Vec3
}

// Soup is an unordered list of triangles with no shared-vertex indexing.
type Soup []Triangle

// Vertex returns vertex i (0, 1 or 2) of the triangle.
func (t Triangle) Vertex(i int) mgl32.Vec3 {
	switch i {
	case 0:
		return t.A
	case 1:
		return t.B
	default:
		return t.C
	}
}

// EdgeMidpoint returns the midpoint of edge i: 0 is A-B, 1 is B-C, 2 is C-A.
func (t Triangle) EdgeMidpoint(i int) mgl32.Vec3 {
	a, b := t.Vertex(i), t.Vertex((i+1)%3)
	return a.Add(b).Mul(0.5)
}

// Area returns the triangle's surface area.
func (t Triangle) Area() float32 {
	return t.B.Sub(t.A).Cross(t.C.Sub(t.A)).Len() / 2
}

// faceNormal returns normalize(cross(c-a, b-a)), or the zero vector when
// the triangle has no area.
func faceNormal(a, b, c mgl32.Vec3) mgl32.Vec3 {
	n := c.Sub(a).Cross(b.Sub(a))
	l := n.Len()
	if l == 0 {
		return mgl32.Vec3{}
	}
	return n.Mul(1 / l)
}

// Mesh is the indexed form of a chunk's surface, as produced by a Modifier.
type Mesh struct {
	Vertices []mgl32.Vec3
	Normals  []mgl32.Vec3
	Indices  []uint32
}

// TriangleCount returns len(Indices)/3.
func (m *Mesh) TriangleCount() int {
	if m == nil {
		return 0
	}
	return len(m.Indices) / 3
}
