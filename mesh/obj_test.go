package mesh

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/isosurface"
)

func TestOBJWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewOBJWriter(&buf)
	m := Weld(quad())

	if err := w.Accept(isosurface.C(0, 0, 0), m, false); err != nil {
		t.Fatal(err)
	}
	if err := w.Accept(isosurface.C(1, 0, 0), m, true); err != nil {
		t.Fatal(err)
	}
	if err := w.Accept(isosurface.C(2, 0, 0), &isosurface.Mesh{}, false); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"o chunk_0_0_0\n", "o chunk_1_0_0\n", "# collision\n", "f 1//1 2//2 3//3\n", "f 5//5 6//6 7//7\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "chunk_2_0_0") {
		t.Error("empty mesh was written")
	}
	if got := strings.Count(out, "\nv "); got != 8 {
		t.Errorf("vertex lines = %d, want 8", got)
	}

	chunks, verts, tris := w.Counts()
	if chunks != 2 || verts != 8 || tris != 4 {
		t.Errorf("Counts() = %d, %d, %d, want 2, 8, 4", chunks, verts, tris)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestOBJWriterError(t *testing.T) {
	w := NewOBJWriter(failingWriter{})
	// Small output stays buffered until Flush.
	if err := w.Accept(isosurface.C(0, 0, 0), Weld(quad()), false); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := w.Flush(); err == nil {
		t.Fatal("Flush succeeded on a failing writer")
	}
	if err := w.Accept(isosurface.C(1, 0, 0), Weld(quad()), false); err == nil {
		t.Error("Accept after a write error succeeded")
	}
}

func TestOBJWriterMismatchedNormals(t *testing.T) {
	w := NewOBJWriter(&bytes.Buffer{})
	m := Weld(quad())
	m.Normals = m.Normals[:1]
	if err := w.Accept(isosurface.C(0, 0, 0), m, false); err == nil {
		t.Error("expected an error for mismatched normals")
	}
}
