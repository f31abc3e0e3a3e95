package isosurface

import (
	"fmt"
	"strings"
)

// Backend selects how chunks are triangulated. The set is closed.
type Backend uint8

const (
	// BackendReference runs the sequential Triangulator in-process.
	BackendReference Backend = iota

	// BackendAccelerator batches each chunk into a parallel kernel
	// dispatch on the registered Accelerator, falling back to the
	// software kernel when none is registered.
	BackendAccelerator
)

// String returns the backend name.
func (b Backend) String() string {
	switch b {
	case BackendReference:
		return "Reference"
	case BackendAccelerator:
		return "Accelerator"
	default:
		return fmt.Sprintf("Unknown(%d)", int(b))
	}
}

// ParseBackend parses a backend name, case-insensitively.
// "cpu" and "gpu" are accepted as aliases.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reference", "cpu":
		return BackendReference, nil
	case "accelerator", "gpu", "compute":
		return BackendAccelerator, nil
	default:
		return 0, fmt.Errorf("isosurface: unknown backend %q", s)
	}
}
