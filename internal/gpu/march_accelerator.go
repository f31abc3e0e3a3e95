//go:build !nogpu

package gpu

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/isosurface"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// defaultFenceTimeout bounds a dispatch when the context has no deadline.
const defaultFenceTimeout = 5 * time.Second

// errNoDevice is returned when the accelerator has no usable GPU.
var errNoDevice = errors.New("gpu-march: no GPU device")

// MarchAccelerator runs the marching-cubes kernel as a wgpu/hal compute
// shader. It implements isosurface.Accelerator.
//
// Each chunk is one dispatch of ceil((N-1)/8)³ thread groups. The triangle
// count is read back first; only that many records are copied out of the
// append buffer.
type MarchAccelerator struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
	triTable   hal.Buffer

	gpuReady       bool
	externalDevice bool // shared device, not destroyed on Close
}

var (
	_ isosurface.Accelerator         = (*MarchAccelerator)(nil)
	_ isosurface.DeviceProviderAware = (*MarchAccelerator)(nil)
)

// Name returns the accelerator name.
func (a *MarchAccelerator) Name() string { return "wgpu" }

// SetLogger sets the logger for the accelerator. Called by
// isosurface.SetLogger.
func (a *MarchAccelerator) SetLogger(l *slog.Logger) { setLogger(l) }

// Init opens a GPU device and builds the pipeline.
func (a *MarchAccelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.initGPU(); err != nil {
		a.destroyLocked()
		return fmt.Errorf("gpu-march: init: %w", err)
	}
	return nil
}

// Close releases the pipeline and, unless shared, the device.
func (a *MarchAccelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroyLocked()
}

// Ready reports whether a device and pipeline are available.
func (a *MarchAccelerator) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gpuReady
}

func (a *MarchAccelerator) destroyLocked() {
	a.destroyPipeline()
	if !a.externalDevice {
		if a.device != nil {
			a.device.Destroy()
		}
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	a.device = nil
	a.instance = nil
	a.queue = nil
	a.gpuReady = false
	a.externalDevice = false
}

// SetDeviceProvider switches the accelerator to a GPU device owned by the
// host. The provider must expose HalDevice() and HalQueue() returning
// hal.Device and hal.Queue. Buffer sets created on the previous device
// must be released before calling this.
func (a *MarchAccelerator) SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("gpu-march: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("gpu-march: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gpu-march: provider HalQueue is not hal.Queue")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.destroyLocked()
	a.device = device
	a.queue = queue
	a.externalDevice = true

	if err := a.createPipeline(); err != nil {
		a.gpuReady = false
		return fmt.Errorf("gpu-march: create pipeline with shared device: %w", err)
	}
	a.gpuReady = true
	slogger().Info("gpu-march: switched to shared GPU device")
	return nil
}

func (a *MarchAccelerator) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	a.instance = instance
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	a.device = openDev.Device
	a.queue = openDev.Queue
	if err := a.createPipeline(); err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	a.gpuReady = true
	slogger().Info("gpu-march: GPU accelerator initialized", "adapter", selected.Info.Name)
	return nil
}

func (a *MarchAccelerator) createPipeline() error {
	spirv, err := compileSPIRV(marchShaderSource)
	if err != nil {
		return err
	}
	a.shader, err = createShaderModule(a.device, "marching_cubes", spirv)
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}

	storage := func(binding uint32, readOnly bool) gputypes.BindGroupLayoutEntry {
		t := gputypes.BufferBindingTypeStorage
		if readOnly {
			t = gputypes.BufferBindingTypeReadOnlyStorage
		}
		return gputypes.BindGroupLayoutEntry{
			Binding: binding, Visibility: gputypes.ShaderStageCompute,
			Buffer: &gputypes.BufferBindingLayout{Type: t},
		}
	}
	a.bindLayout, err = a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "marching_cubes_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			storage(1, true),  // points
			storage(2, true),  // levels
			storage(3, true),  // triangulation table
			storage(4, false), // triangles
			storage(5, false), // counter
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}

	a.pipeLayout, err = a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "marching_cubes_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{a.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}

	a.pipeline, err = a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "marching_cubes_pipeline", Layout: a.pipeLayout,
		Compute: hal.ComputeState{Module: a.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}

	a.triTable, err = a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "marching_cubes_tri_table", Size: triTableSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create triangulation table buffer: %w", err)
	}
	a.queue.WriteBuffer(a.triTable, 0, encodeTriTable())
	return nil
}

func (a *MarchAccelerator) destroyPipeline() {
	if a.device == nil {
		return
	}
	if a.triTable != nil {
		a.device.DestroyBuffer(a.triTable)
		a.triTable = nil
	}
	if a.pipeline != nil {
		a.device.DestroyComputePipeline(a.pipeline)
		a.pipeline = nil
	}
	if a.pipeLayout != nil {
		a.device.DestroyPipelineLayout(a.pipeLayout)
		a.pipeLayout = nil
	}
	if a.bindLayout != nil {
		a.device.DestroyBindGroupLayout(a.bindLayout)
		a.bindLayout = nil
	}
	if a.shader != nil {
		a.device.DestroyShaderModule(a.shader)
		a.shader = nil
	}
}

// NewBuffers allocates the device buffers for spec and binds them.
func (a *MarchAccelerator) NewBuffers(spec isosurface.BufferSpec) (isosurface.BufferSet, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.gpuReady {
		return nil, fmt.Errorf("%w: %w", isosurface.ErrBufferAlloc, errNoDevice)
	}
	if spec.PointsPerAxis < 2 {
		return nil, fmt.Errorf("%w: %d points per axis", isosurface.ErrBufferAlloc, spec.PointsPerAxis)
	}
	b, err := newDeviceBuffers(a.device, a.bindLayout, a.triTable, spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", isosurface.ErrBufferAlloc, err)
	}
	slogger().Debug("gpu-march: buffers allocated",
		"points_per_axis", spec.PointsPerAxis,
		"bytes", spec.TotalBytes())
	return b, nil
}

// Dispatch uploads one chunk, runs the kernel and reads back its triangles.
func (a *MarchAccelerator) Dispatch(ctx context.Context, bufs isosurface.BufferSet, in isosurface.KernelInput) (isosurface.Soup, error) {
	b, ok := bufs.(*deviceBuffers)
	if !ok {
		return nil, fmt.Errorf("gpu-march: cannot use %T buffers", bufs)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.gpuReady {
		return nil, errNoDevice
	}
	if b.released.Load() {
		return nil, isosurface.ErrBuffersReleased
	}
	if b.device != a.device {
		return nil, fmt.Errorf("gpu-march: buffers belong to a different device")
	}
	spec := b.spec
	if len(in.Points) != spec.Points() {
		return nil, fmt.Errorf("%w: %d points for a %d-point buffer", isosurface.ErrSampleCount, len(in.Points), spec.Points())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.queue.WriteBuffer(b.params, 0, encodeParams(spec.PointsPerAxis, spec.MaxTriangles(), in.Policy, in.YMin, in.YMax))
	a.queue.WriteBuffer(b.points, 0, encodePoints(in.Points))
	a.queue.WriteBuffer(b.levels, 0, encodeLevels(&in.Levels))
	a.queue.WriteBuffer(b.counter, 0, make([]byte, isosurface.CounterSize))

	// Pass 1: kernel plus counter readback.
	groups := uint32(spec.Groups()) //nolint:gosec // group count fits uint32
	err := a.submit(ctx, "marching_cubes", func(enc hal.CommandEncoder) {
		pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: "marching_cubes_pass"})
		pass.SetPipeline(a.pipeline)
		pass.SetBindGroup(0, b.bindGroup, nil)
		pass.Dispatch(groups, groups, groups)
		pass.End()
		enc.CopyBufferToBuffer(b.counter, b.countStaging, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: isosurface.CounterSize},
		})
	})
	if err != nil {
		return nil, err
	}
	countBytes := make([]byte, isosurface.CounterSize)
	if err := a.queue.ReadBuffer(b.countStaging, 0, countBytes); err != nil {
		return nil, fmt.Errorf("gpu-march: read counter: %w", err)
	}
	count := int(binary.LittleEndian.Uint32(countBytes))
	if count > spec.MaxTriangles() {
		return nil, fmt.Errorf("%w: %d triangles, capacity %d", isosurface.ErrCapacityExceeded, count, spec.MaxTriangles())
	}
	if count == 0 {
		return isosurface.Soup{}, nil
	}

	// Pass 2: copy exactly count records.
	size := uint64(count) * isosurface.TriangleRecordSize
	err = a.submit(ctx, "marching_cubes_readback", func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(b.triangles, b.triStaging, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: size},
		})
	})
	if err != nil {
		return nil, err
	}
	data := make([]byte, size)
	if err := a.queue.ReadBuffer(b.triStaging, 0, data); err != nil {
		return nil, fmt.Errorf("gpu-march: read triangles: %w", err)
	}
	return decodeTriangles(data, count), nil
}

// submit records, submits and waits for one command buffer. A fence that
// does not signal in time yields ErrDispatchStalled.
func (a *MarchAccelerator) submit(ctx context.Context, label string, record func(hal.CommandEncoder)) error {
	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("gpu-march: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("gpu-march: begin encoding: %w", err)
	}
	record(encoder)
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu-march: end encoding: %w", err)
	}
	defer a.device.FreeCommandBuffer(cmdBuf)

	fence, err := a.device.CreateFence()
	if err != nil {
		return fmt.Errorf("gpu-march: create fence: %w", err)
	}
	defer a.device.DestroyFence(fence)
	if err := a.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("gpu-march: submit: %w", err)
	}

	timeout := defaultFenceTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return fmt.Errorf("%w: %w", isosurface.ErrDispatchStalled, context.DeadlineExceeded)
		}
	}
	fenceOK, err := a.device.Wait(fence, 1, timeout)
	if err != nil {
		return fmt.Errorf("%w: %w", isosurface.ErrDispatchStalled, err)
	}
	if !fenceOK {
		return fmt.Errorf("%w: fence not signaled after %v", isosurface.ErrDispatchStalled, timeout)
	}
	return nil
}
