package field

import (
	"context"
	"math"

	"github.com/gogpu/isosurface"
)

// Terrain is a density field made of octave value noise biased by
// height: solid ground below BaseHeight, overhangs and caves where the
// noise outweighs the gradient.
type Terrain struct {
	Seed        int64
	Scale       float32 // noise frequency
	BaseHeight  float32 // surface level where noise is neutral
	Gradient    float32 // height over which the bias changes by one
	Octaves     int
	Persistence float32
	Lacunarity  float32
}

var _ isosurface.WeightField = (*Terrain)(nil)

// NewTerrain returns a terrain with the usual octave settings.
func NewTerrain(seed int64) *Terrain {
	return &Terrain{
		Seed:        seed,
		Scale:       1.0 / 8,
		BaseHeight:  0,
		Gradient:    4,
		Octaves:     4,
		Persistence: 0.5,
		Lacunarity:  2,
	}
}

// Weight returns the terrain density at (x, y, z). Values in roughly
// [-1, 1] near the surface; lower is more solid.
func (t *Terrain) Weight(x, y, z float32) float32 {
	n := octaveNoise3D(float64(x*t.Scale), float64(y*t.Scale), float64(z*t.Scale), t.Seed, t.Octaves, float64(t.Persistence), float64(t.Lacunarity))
	gradient := t.Gradient
	if gradient == 0 {
		gradient = 1
	}
	return (y-t.BaseHeight)/gradient - float32(n*2-1)
}

// Generate samples the terrain over coords.
func (t *Terrain) Generate(ctx context.Context, coords []isosurface.Coord, layout isosurface.Layout) (map[isosurface.Coord][]isosurface.Sample, error) {
	return isosurface.WeightFieldFunc(t.Weight).Generate(ctx, coords, layout)
}

func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func hash3(x, y, z, seed int64) uint64 {
	h := uint64(x)*0x9E3779B185EBCA87 ^ uint64(y)*0xC2B2AE3D27D4EB4F ^ uint64(z)*0x165667B19E3779F9 ^ uint64(seed)*0x27D4EB2F165667C5
	h ^= h >> 33
	h *= 0xFF51AFD7ED558CCD
	h ^= h >> 33
	h *= 0xC4CEB9FE1A85EC53
	h ^= h >> 33
	return h
}

// latticeValue3D returns a value in [0, 1] for an integer lattice point.
func latticeValue3D(x, y, z, seed int64) float64 {
	return float64(hash3(x, y, z, seed)>>11) / float64(1<<53)
}

// valueNoise3D returns smooth noise in [0, 1].
func valueNoise3D(x, y, z float64, seed int64) float64 {
	fx, fy, fz := math.Floor(x), math.Floor(y), math.Floor(z)
	x0, y0, z0 := int64(fx), int64(fy), int64(fz)
	tx, ty, tz := fade(x-fx), fade(y-fy), fade(z-fz)

	c := func(dx, dy, dz int64) float64 { return latticeValue3D(x0+dx, y0+dy, z0+dz, seed) }
	x00 := lerp(c(0, 0, 0), c(1, 0, 0), tx)
	x10 := lerp(c(0, 1, 0), c(1, 1, 0), tx)
	x01 := lerp(c(0, 0, 1), c(1, 0, 1), tx)
	x11 := lerp(c(0, 1, 1), c(1, 1, 1), tx)
	return lerp(lerp(x00, x10, ty), lerp(x01, x11, ty), tz)
}

// octaveNoise3D sums octaves of value noise, normalized to [0, 1].
func octaveNoise3D(x, y, z float64, seed int64, octaves int, persistence, lacunarity float64) float64 {
	if octaves < 1 {
		octaves = 1
	}
	var sum, norm float64
	amp, freq := 1.0, 1.0
	for o := 0; o < octaves; o++ {
		sum += amp * valueNoise3D(x*freq, y*freq, z*freq, seed+int64(o)*1013)
		norm += amp
		amp *= persistence
		freq *= lacunarity
	}
	return sum / norm
}
