package mesh

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/gogpu/isosurface"
)

// OBJWriter is an isosurface.Sink that writes every accepted chunk as an
// object of one Wavefront OBJ stream. Chunks may arrive in any order;
// face indices are offset by the vertices written so far.
//
// Call Flush once the run has finished.
type OBJWriter struct {
	mu       sync.Mutex
	w        *bufio.Writer
	written  uint32
	chunks   int
	triCount int
	err      error
}

var _ isosurface.Sink = (*OBJWriter)(nil)

// NewOBJWriter returns a writer emitting OBJ text to w.
func NewOBJWriter(w io.Writer) *OBJWriter {
	return &OBJWriter{w: bufio.NewWriter(w)}
}

// Accept writes mesh as object "chunk_x_y_z". Empty meshes are skipped.
// The collision flag is recorded as a comment.
func (o *OBJWriter) Accept(coord isosurface.Coord, m *isosurface.Mesh, collision bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	if m.TriangleCount() == 0 {
		return nil
	}
	if len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("mesh: chunk %v has %d normals for %d vertices", coord, len(m.Normals), len(m.Vertices))
	}

	fmt.Fprintf(o.w, "o chunk_%d_%d_%d\n", coord.X, coord.Y, coord.Z)
	if collision {
		fmt.Fprintf(o.w, "# collision\n")
	}
	for _, v := range m.Vertices {
		fmt.Fprintf(o.w, "v %g %g %g\n", v[0], v[1], v[2])
	}
	for _, n := range m.Normals {
		fmt.Fprintf(o.w, "vn %g %g %g\n", n[0], n[1], n[2])
	}
	base := o.written + 1 // OBJ indices are 1-based
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := base+m.Indices[i], base+m.Indices[i+1], base+m.Indices[i+2]
		if _, err := fmt.Fprintf(o.w, "f %d//%d %d//%d %d//%d\n", a, a, b, b, c, c); err != nil {
			o.err = fmt.Errorf("mesh: write obj: %w", err)
			return o.err
		}
	}
	o.written += uint32(len(m.Vertices)) //nolint:gosec // vertex count fits uint32
	o.chunks++
	o.triCount += m.TriangleCount()
	return nil
}

// Flush writes buffered data to the underlying writer.
func (o *OBJWriter) Flush() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	if err := o.w.Flush(); err != nil {
		o.err = fmt.Errorf("mesh: flush obj: %w", err)
	}
	return o.err
}

// Counts returns the chunks, vertices and triangles written so far.
func (o *OBJWriter) Counts() (chunks, vertices, triangles int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.chunks, int(o.written), o.triCount
}
