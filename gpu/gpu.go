//go:build !nogpu

// Package gpu registers the wgpu marching-cubes accelerator.
//
// Import this package to run the accelerator backend on the GPU:
//
//	import _ "github.com/gogpu/isosurface/gpu"
//
// If GPU initialization fails (no Vulkan device available), registration
// is skipped with a warning and the accelerator backend falls back to the
// software kernel.
package gpu

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/isosurface"
	gpuimpl "github.com/gogpu/isosurface/internal/gpu"
)

func init() {
	if err := isosurface.RegisterAccelerator(&gpuimpl.MarchAccelerator{}); err != nil {
		isosurface.Logger().Warn("GPU accelerator not available", "err", err)
	}
}

// SetDeviceProvider configures the GPU accelerator to use a shared GPU
// device from an external provider (e.g., gogpu) instead of opening its
// own.
//
// The provider should also expose HalDevice() and HalQueue() for direct
// HAL access. Release generator buffers before switching devices.
func SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	return isosurface.SetAcceleratorDeviceProvider(provider)
}
