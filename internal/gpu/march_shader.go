//go:build !nogpu

package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/isosurface"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/math/f32"
)

//go:embed shaders/marching_cubes.wgsl
var marchShaderSource string

// Uniform layout of the kernel's Params struct.
const (
	paramsSize   = 32
	triTableSize = 256 * 16 * 4
)

// compileSPIRV compiles WGSL source to SPIR-V words.
func compileSPIRV(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("compile shader: SPIR-V length %d is not word aligned", len(spirvBytes))
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}

func createShaderModule(device hal.Device, label string, spirv []uint32) (hal.ShaderModule, error) {
	return device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
}

// encodeParams packs the kernel uniform.
func encodeParams(n, maxTriangles int, policy isosurface.InterpolationPolicy, yMin, yMax float32) []byte {
	b := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(b[0:], uint32(n))            //nolint:gosec // lattice size fits uint32
	binary.LittleEndian.PutUint32(b[4:], uint32(maxTriangles)) //nolint:gosec // capacity fits uint32
	binary.LittleEndian.PutUint32(b[8:], uint32(policy))
	binary.LittleEndian.PutUint32(b[16:], math.Float32bits(yMin))
	binary.LittleEndian.PutUint32(b[20:], math.Float32bits(yMax))
	return b
}

func encodePoints(points []f32.Vec4) []byte {
	b := make([]byte, len(points)*isosurface.PointRecordSize)
	for i, p := range points {
		o := i * isosurface.PointRecordSize
		for j := range p {
			binary.LittleEndian.PutUint32(b[o+j*4:], math.Float32bits(p[j]))
		}
	}
	return b
}

func encodeLevels(lv *isosurface.Levels) []byte {
	b := make([]byte, isosurface.LevelsSize)
	for i, v := range lv {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func encodeTriTable() []byte {
	table := isosurface.TriangulationTable()
	b := make([]byte, len(table)*4)
	for i, v := range table {
		binary.LittleEndian.PutUint32(b[i*4:], uint32(v)) //nolint:gosec // two's complement is the wire format
	}
	return b
}

// decodeTriangles converts count packed records to a soup.
func decodeTriangles(b []byte, count int) isosurface.Soup {
	soup := make(isosurface.Soup, count)
	for i := range soup {
		var rec isosurface.TriangleRecord
		o := i * isosurface.TriangleRecordSize
		for v := range rec {
			for c := range rec[v] {
				rec[v][c] = math.Float32frombits(binary.LittleEndian.Uint32(b[o+(v*3+c)*4:]))
			}
		}
		soup[i] = rec.Triangle()
	}
	return soup
}
