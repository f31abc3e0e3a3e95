//go:build !nogpu

package gpu

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/isosurface"
	"github.com/gogpu/wgpu/hal"
)

// deviceBuffers is one set of device buffers and the bind group over them.
type deviceBuffers struct {
	spec   isosurface.BufferSpec
	device hal.Device

	params       hal.Buffer
	points       hal.Buffer
	levels       hal.Buffer
	triangles    hal.Buffer
	counter      hal.Buffer
	countStaging hal.Buffer
	triStaging   hal.Buffer
	bindGroup    hal.BindGroup

	released atomic.Bool
}

func (b *deviceBuffers) Spec() isosurface.BufferSpec { return b.spec }

// Release destroys the buffers. Safe to call more than once.
func (b *deviceBuffers) Release() error {
	if b.released.Swap(true) {
		return nil
	}
	b.destroy()
	return nil
}

func (b *deviceBuffers) destroy() {
	if b.bindGroup != nil {
		b.device.DestroyBindGroup(b.bindGroup)
	}
	for _, buf := range []hal.Buffer{b.params, b.points, b.levels, b.triangles, b.counter, b.countStaging, b.triStaging} {
		if buf != nil {
			b.device.DestroyBuffer(buf)
		}
	}
}

func newDeviceBuffers(device hal.Device, layout hal.BindGroupLayout, triTable hal.Buffer, spec isosurface.BufferSpec) (*deviceBuffers, error) {
	b := &deviceBuffers{spec: spec, device: device}
	storageIn := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
	storageOut := gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	staging := gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst

	allocs := []struct {
		dst   *hal.Buffer
		label string
		size  uint64
		usage gputypes.BufferUsage
	}{
		{&b.params, "marching_cubes_params", paramsSize, gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst},
		{&b.points, "marching_cubes_points", spec.PointBytes(), storageIn},
		{&b.levels, "marching_cubes_levels", isosurface.LevelsSize, storageIn},
		{&b.triangles, "marching_cubes_triangles", spec.TriangleBytes(), storageOut},
		{&b.counter, "marching_cubes_counter", isosurface.CounterSize, storageOut},
		{&b.countStaging, "marching_cubes_count_staging", isosurface.CounterSize, staging},
		{&b.triStaging, "marching_cubes_tri_staging", spec.TriangleBytes(), staging},
	}
	for _, al := range allocs {
		buf, err := device.CreateBuffer(&hal.BufferDescriptor{Label: al.label, Size: al.size, Usage: al.usage})
		if err != nil {
			b.destroy()
			return nil, fmt.Errorf("create %s buffer (%d bytes): %w", al.label, al.size, err)
		}
		*al.dst = buf
	}

	bg, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "marching_cubes_bind", Layout: layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: b.params.NativeHandle(), Size: paramsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: b.points.NativeHandle(), Size: spec.PointBytes()}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: b.levels.NativeHandle(), Size: isosurface.LevelsSize}},
			{Binding: 3, Resource: gputypes.BufferBinding{Buffer: triTable.NativeHandle(), Size: triTableSize}},
			{Binding: 4, Resource: gputypes.BufferBinding{Buffer: b.triangles.NativeHandle(), Size: spec.TriangleBytes()}},
			{Binding: 5, Resource: gputypes.BufferBinding{Buffer: b.counter.NativeHandle(), Size: isosurface.CounterSize}},
		},
	})
	if err != nil {
		b.destroy()
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	b.bindGroup = bg
	return b, nil
}
