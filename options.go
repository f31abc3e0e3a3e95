package isosurface

// Option configures a Generator during creation.
//
// Example:
//
//	g, err := isosurface.New(field,
//	    isosurface.WithLayout(isosurface.Layout{
//	        NumChunks:     isosurface.C(4, 2, 4),
//	        ChunkSize:     16,
//	        PointsPerAxis: 17,
//	    }),
//	    isosurface.WithCurve(isosurface.LinearCurve{From: -0.2, To: 0.4}),
//	    isosurface.WithBackend(isosurface.BackendAccelerator),
//	)
type Option func(*config)

// config holds the settings of one Generator.
type config struct {
	layout         Layout
	curve          ThresholdCurve
	backend        Backend
	accel          Accelerator
	lifecycle      Lifecycle
	policy         InterpolationPolicy
	workers        int
	modifier       Modifier
	sink           Sink
	wantsCollision bool
	genMesh        bool
	stitchEdges    bool
}

func defaultConfig() config {
	return config{
		layout: Layout{
			NumChunks:     C(1, 1, 1),
			ChunkSize:     10,
			PointsPerAxis: 16,
		},
		curve:     ConstantCurve(0),
		backend:   BackendReference,
		lifecycle: LifecycleContinuous,
		policy:    IsoCornerA,
		modifier:  SoupModifier{},
		genMesh:   true,
	}
}

// WithLayout sets the chunk grid.
func WithLayout(l Layout) Option {
	return func(c *config) {
		c.layout = l
	}
}

// WithCurve sets the height-to-threshold curve. A nil curve is ignored.
func WithCurve(curve ThresholdCurve) Option {
	return func(c *config) {
		if curve != nil {
			c.curve = curve
		}
	}
}

// WithBackend selects the reference or accelerator path.
func WithBackend(b Backend) Option {
	return func(c *config) {
		c.backend = b
	}
}

// WithAccelerator uses a instead of the registered accelerator.
// It implies BackendAccelerator. The generator does not close a.
func WithAccelerator(a Accelerator) Option {
	return func(c *config) {
		c.accel = a
		c.backend = BackendAccelerator
	}
}

// WithLifecycle sets the accelerator buffer lifecycle.
func WithLifecycle(l Lifecycle) Option {
	return func(c *config) {
		c.lifecycle = l
	}
}

// WithInterpolation sets the iso policy for edge vertices.
func WithInterpolation(p InterpolationPolicy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithWorkers sets the number of chunk workers. Zero or negative uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithModifier sets the soup-to-mesh step. A nil modifier keeps chunks at
// triangle soup and skips the sink.
func WithModifier(m Modifier) Option {
	return func(c *config) {
		c.modifier = m
	}
}

// WithSink sets the receiver of final chunk meshes.
func WithSink(s Sink) Option {
	return func(c *config) {
		c.sink = s
	}
}

// WithCollision marks chunks as wanting a collision surface.
func WithCollision(enabled bool) Option {
	return func(c *config) {
		c.wantsCollision = enabled
	}
}

// WithGenerateMesh enables triangulation. When disabled a run only
// reconciles chunks and refreshes their samples.
func WithGenerateMesh(enabled bool) Option {
	return func(c *config) {
		c.genMesh = enabled
	}
}

// WithStitchEdges runs the modifier's Stitcher pass after all chunks were
// modified. Ignored when the modifier is not a Stitcher.
func WithStitchEdges(enabled bool) Option {
	return func(c *config) {
		c.stitchEdges = enabled
	}
}
