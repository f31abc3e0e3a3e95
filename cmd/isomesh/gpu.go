//go:build !nogpu

package main

// Registers the wgpu accelerator for -backend accelerator.
import _ "github.com/gogpu/isosurface/gpu"
