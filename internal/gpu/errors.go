package gpu

import "errors"

var (
	// ErrResourceAllocation is returned when the driver fails to create a
	// buffer or texture object.
	ErrResourceAllocation = errors.New("gpu resource allocation failed")

	// ErrThreadAffinity is returned when a GPU-affecting call is made off the
	// display thread. The call is skipped; callers retry on the right thread.
	ErrThreadAffinity = errors.New("gpu call off the display thread")
)
