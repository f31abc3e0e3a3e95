// Command isomesh extracts the isosurface of an analytic weight field over
// a chunk grid and writes it as Wavefront OBJ.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/isosurface"
	"github.com/gogpu/isosurface/field"
	"github.com/gogpu/isosurface/mesh"
)

func main() {
	var (
		chunks    = flag.String("chunks", "2,2,2", "chunks per axis as x,y,z")
		size      = flag.Float64("size", 8, "chunk edge length")
		points    = flag.Int("points", 17, "lattice points per chunk axis")
		backend   = flag.String("backend", "reference", "reference or accelerator")
		lifecycle = flag.String("lifecycle", "oneshot", "accelerator buffer lifecycle: continuous or oneshot")
		curve     = flag.String("curve", "0", "threshold curve: a constant, from:to, or h:v,h:v,... keyframes")
		source    = flag.String("field", "sphere", "weight field: sphere, plane or terrain")
		radius    = flag.Float64("radius", 6, "sphere radius")
		seed      = flag.Int64("seed", 1, "terrain seed")
		average   = flag.Bool("average-iso", false, "interpolate with the mean of both corner thresholds")
		weld      = flag.Bool("weld", true, "merge equal vertices")
		stitch    = flag.Bool("stitch", false, "share normals across chunk seams (requires -weld)")
		collision = flag.Bool("collision", false, "mark chunks as wanting collision")
		output    = flag.String("output", "surface.obj", "output file")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	isosurface.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	numChunks, err := parseCoord(*chunks)
	if err != nil {
		log.Fatalf("Invalid -chunks: %v", err)
	}
	be, err := isosurface.ParseBackend(*backend)
	if err != nil {
		log.Fatalf("Invalid -backend: %v", err)
	}
	lc, err := parseLifecycle(*lifecycle)
	if err != nil {
		log.Fatalf("Invalid -lifecycle: %v", err)
	}
	tc, err := parseCurve(*curve)
	if err != nil {
		log.Fatalf("Invalid -curve: %v", err)
	}
	wf, err := newField(*source, float32(*radius), *seed)
	if err != nil {
		log.Fatalf("Invalid -field: %v", err)
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create output: %v", err)
	}
	defer f.Close()
	obj := mesh.NewOBJWriter(f)

	policy := isosurface.IsoCornerA
	if *average {
		policy = isosurface.IsoAverage
	}
	opts := []isosurface.Option{
		isosurface.WithLayout(isosurface.Layout{NumChunks: numChunks, ChunkSize: float32(*size), PointsPerAxis: *points}),
		isosurface.WithBackend(be),
		isosurface.WithLifecycle(lc),
		isosurface.WithCurve(tc),
		isosurface.WithInterpolation(policy),
		isosurface.WithCollision(*collision),
		isosurface.WithSink(obj),
		isosurface.WithStitchEdges(*stitch),
	}
	if *weld {
		opts = append(opts, isosurface.WithModifier(mesh.Welder{}))
	}

	gen, err := isosurface.New(wf, opts...)
	if err != nil {
		log.Fatalf("Failed to create generator: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stats, runErr := gen.Run(ctx)
	if err := gen.Close(); err != nil {
		log.Printf("Release buffers: %v", err)
	}
	if runErr != nil {
		log.Fatalf("Run failed: %v", runErr)
	}
	if err := obj.Flush(); err != nil {
		log.Fatalf("Failed to write: %v", err)
	}

	_, verts, tris := obj.Counts()
	log.Printf("Surface saved to %s (%d chunks, %d vertices, %d triangles, %s backend, %v)\n",
		*output, stats.Chunks, verts, tris, stats.Backend, stats.Elapsed)
}

func parseCoord(s string) (isosurface.Coord, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return isosurface.Coord{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return isosurface.Coord{}, err
		}
		v[i] = n
	}
	return isosurface.C(v[0], v[1], v[2]), nil
}

func parseLifecycle(s string) (isosurface.Lifecycle, error) {
	switch strings.ToLower(s) {
	case "continuous":
		return isosurface.LifecycleContinuous, nil
	case "oneshot", "one-shot":
		return isosurface.LifecycleOneShot, nil
	}
	return 0, fmt.Errorf("unknown lifecycle %q", s)
}

// parseCurve accepts "c" (constant), "a:b" (linear from a to b) or
// "h:v,h:v,..." (keyframes at normalized heights).
func parseCurve(s string) (isosurface.ThresholdCurve, error) {
	parseFloat := func(v string) (float32, error) {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 32)
		return float32(f), err
	}
	if strings.Contains(s, ",") {
		var keys []isosurface.Keyframe
		for _, kv := range strings.Split(s, ",") {
			h, v, ok := strings.Cut(kv, ":")
			if !ok {
				return nil, fmt.Errorf("keyframe %q is not h:v", kv)
			}
			hf, err := parseFloat(h)
			if err != nil {
				return nil, err
			}
			vf, err := parseFloat(v)
			if err != nil {
				return nil, err
			}
			keys = append(keys, isosurface.Keyframe{Time: hf, Value: vf})
		}
		return isosurface.NewKeyframeCurve(keys...), nil
	}
	if from, to, ok := strings.Cut(s, ":"); ok {
		a, err := parseFloat(from)
		if err != nil {
			return nil, err
		}
		b, err := parseFloat(to)
		if err != nil {
			return nil, err
		}
		return isosurface.LinearCurve{From: a, To: b}, nil
	}
	c, err := parseFloat(s)
	if err != nil {
		return nil, err
	}
	return isosurface.ConstantCurve(c), nil
}

func newField(name string, radius float32, seed int64) (isosurface.WeightField, error) {
	switch name {
	case "sphere":
		return field.Sphere{Center: mgl32.Vec3{}, Radius: radius}, nil
	case "plane":
		return field.Plane{}, nil
	case "terrain":
		return field.NewTerrain(seed), nil
	}
	return nil, fmt.Errorf("unknown field %q", name)
}
