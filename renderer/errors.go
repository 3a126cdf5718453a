package renderer

import (
	"fmt"

	"triangles_vk/common"

	"github.com/pkg/errors"
)

// DeviceCreationError is returned when an object the render loop depends on could not be created. It is fatal.
type DeviceCreationError struct {
	Op  string
	Err error
}

func (e *DeviceCreationError) Error() string {
	return fmt.Sprintf("device creation failed: %s: %v", e.Op, e.Err)
}

func (e *DeviceCreationError) Unwrap() error {
	return e.Err
}

func deviceCreation(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DeviceCreationError{Op: op, Err: err}
}

// SurfaceStaleError reports that the swap chain no longer matches the surface. The scheduler recovers from it by
// rebuilding, it never leaves Frame.
type SurfaceStaleError struct {
	Status common.SurfaceStatus
}

func (e *SurfaceStaleError) Error() string {
	return fmt.Sprintf("surface is %s, swap chain needs to be rebuilt", e.Status)
}

type EmptyUploadError struct {
	Category Category
}

func (e *EmptyUploadError) Error() string {
	return fmt.Sprintf("no vertex data given for %s", e.Category)
}

type AlreadyLoadedError struct {
	Category Category
}

func (e *AlreadyLoadedError) Error() string {
	return fmt.Sprintf("%s geometry was already loaded", e.Category)
}

var ErrMisalignedVertexData = errors.New("vertex data is not a multiple of the vertex stride")

// IsStale reports whether err only asks for a swap chain rebuild.
func IsStale(err error) bool {
	var stale *SurfaceStaleError
	return errors.As(err, &stale)
}
