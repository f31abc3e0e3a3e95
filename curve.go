package isosurface

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// NumLevels is the number of entries in the pre-sampled threshold table
// handed to the accelerator kernel.
const NumLevels = 64

// ThresholdCurve maps a normalized world height in [0, 1] (0 at the bottom
// of the grid, 1 at the top) to the iso threshold used at that height.
//
// Implementations must be safe for concurrent use; the reference path
// evaluates the curve from many goroutines.
type ThresholdCurve interface {
	Evaluate(t float32) float32
}

// ConstantCurve is a flat threshold independent of height.
type ConstantCurve float32

// Evaluate returns the constant.
func (c ConstantCurve) Evaluate(float32) float32 { return float32(c) }

// LinearCurve interpolates from From at the bottom of the grid to To at the top.
type LinearCurve struct {
	From, To float32
}

// Evaluate returns the threshold at normalized height t.
func (c LinearCurve) Evaluate(t float32) float32 {
	return lerp(c.From, c.To, mgl32.Clamp(t, 0, 1))
}

// Keyframe is one control point of a KeyframeCurve.
type Keyframe struct {
	Time, Value float32
}

// KeyframeCurve is a piecewise-linear curve through a set of keys. Inputs
// before the first key or after the last key take the nearest key's value.
// The zero value evaluates to 0.
type KeyframeCurve struct {
	keys []Keyframe
}

// NewKeyframeCurve builds a curve from keys in any order. Keys sharing a
// time keep the last one given.
func NewKeyframeCurve(keys ...Keyframe) *KeyframeCurve {
	sorted := make([]Keyframe, 0, len(keys))
	for _, k := range keys {
		replaced := false
		for i := range sorted {
			if sorted[i].Time == k.Time {
				sorted[i] = k
				replaced = true
				break
			}
		}
		if !replaced {
			sorted = append(sorted, k)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	return &KeyframeCurve{keys: sorted}
}

// Keys returns a copy of the curve's keys in time order.
func (c *KeyframeCurve) Keys() []Keyframe {
	return append([]Keyframe(nil), c.keys...)
}

// Evaluate returns the interpolated value at t.
func (c *KeyframeCurve) Evaluate(t float32) float32 {
	n := len(c.keys)
	switch {
	case n == 0:
		return 0
	case t <= c.keys[0].Time:
		return c.keys[0].Value
	case t >= c.keys[n-1].Time:
		return c.keys[n-1].Value
	}
	i := sort.Search(n, func(i int) bool { return c.keys[i].Time >= t })
	a, b := c.keys[i-1], c.keys[i]
	return lerp(a.Value, b.Value, (t-a.Time)/(b.Time-a.Time))
}

// Levels is the pre-sampled threshold table of one chunk. Entry e holds the
// curve evaluated at lerp(eMin, eMax, e/63), where eMin and eMax are the
// normalized heights of the chunk's lowest and highest lattice points.
type Levels [NumLevels]float32

// SampleLevels evaluates curve across [eMin, eMax].
func SampleLevels(curve ThresholdCurve, eMin, eMax float32) Levels {
	var lv Levels
	for e := range lv {
		lv[e] = curve.Evaluate(lerp(eMin, eMax, float32(e)/(NumLevels-1)))
	}
	return lv
}

// At looks up the threshold for world height y in a chunk spanning
// [yMin, yMax], interpolating linearly between neighbouring entries.
// The accelerator kernel performs the same lookup.
func (lv *Levels) At(y, yMin, yMax float32) float32 {
	e := inverseLerp(yMin, yMax, y) * (NumLevels - 1)
	i := int(e)
	if i >= NumLevels-1 {
		return lv[NumLevels-1]
	}
	return lerp(lv[i], lv[i+1], e-float32(i))
}
