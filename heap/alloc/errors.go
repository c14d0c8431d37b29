package alloc

import "errors"

var (
	// ErrNoSpace indicates that no free chunk was large enough and the region
	// could not grow. The heap is unchanged.
	ErrNoSpace = errors.New("alloc: no free chunk large enough")

	// ErrGrowFail indicates that the initial grow in New failed.
	ErrGrowFail = errors.New("alloc: grow failed")

	// ErrBadSize indicates a negative or unrepresentable request size.
	ErrBadSize = errors.New("alloc: bad request size")

	// ErrBadPtr indicates a pointer that does not address a chunk payload.
	ErrBadPtr = errors.New("alloc: bad pointer")

	// ErrDoubleFree indicates an attempt to free a chunk that is already free.
	ErrDoubleFree = errors.New("alloc: chunk is already free")

	// ErrNotEmpty indicates New was given a region that already holds bytes.
	ErrNotEmpty = errors.New("alloc: region is not empty")
)
