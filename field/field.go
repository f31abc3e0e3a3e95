// Package field provides analytic weight fields for the isosurface
// generator. Weights below the iso threshold are inside the surface.
package field

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/isosurface"
)

// Sphere is the signed distance to a sphere: negative inside.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

var _ isosurface.WeightField = Sphere{}

// Weight returns the signed distance from p to the sphere surface.
func (s Sphere) Weight(x, y, z float32) float32 {
	return mgl32.Vec3{x, y, z}.Sub(s.Center).Len() - s.Radius
}

// Generate samples the sphere over coords.
func (s Sphere) Generate(ctx context.Context, coords []isosurface.Coord, layout isosurface.Layout) (map[isosurface.Coord][]isosurface.Sample, error) {
	return isosurface.WeightFieldFunc(s.Weight).Generate(ctx, coords, layout)
}

// Plane is the signed height above y = Height: negative below.
type Plane struct {
	Height float32
}

var _ isosurface.WeightField = Plane{}

// Weight returns y - Height.
func (p Plane) Weight(_, y, _ float32) float32 { return y - p.Height }

// Generate samples the plane over coords.
func (p Plane) Generate(ctx context.Context, coords []isosurface.Coord, layout isosurface.Layout) (map[isosurface.Coord][]isosurface.Sample, error) {
	return isosurface.WeightFieldFunc(p.Weight).Generate(ctx, coords, layout)
}
