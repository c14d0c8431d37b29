// Package verify provides validation functions for heapkit heap structures.
// Every check reads the raw heap bytes, tolerates arbitrary corruption, and
// reports what it finds instead of failing fast.
package verify

import (
	"errors"
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// ValidationError describes one invariant violation.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]interface{}
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func violation(typ string, off int, msg string, args ...any) *ValidationError {
	return &ValidationError{Type: typ, Message: fmt.Sprintf(msg, args...), Offset: off}
}

// Heap runs every check and returns all violations found.
func Heap(data []byte) []*ValidationError {
	errs := Layout(data)
	if len(data) < format.HeapOverhead {
		return errs
	}
	errs = append(errs, Conservation(data)...)
	errs = append(errs, Footers(data)...)
	errs = append(errs, NoAdjacentFree(data)...)
	errs = append(errs, FreeList(data)...)
	errs = append(errs, Coherence(data)...)
	return errs
}

// AllInvariants validates all heap invariants in one call and joins the
// violations into a single error, or returns nil if all checks pass.
func AllInvariants(data []byte) error {
	found := Heap(data)
	if len(found) == 0 {
		return nil
	}
	errs := make([]error, len(found))
	for i, v := range found {
		errs[i] = v
	}
	return errors.Join(errs...)
}

// Layout validates the fixed structures: start marker, prologue and end sentinel.
func Layout(data []byte) []*ValidationError {
	if len(data) < format.HeapOverhead {
		return []*ValidationError{{
			Type: "Layout",
			Message: fmt.Sprintf("heap too small: %d bytes (need %d)",
				len(data), format.HeapOverhead),
			Offset: -1,
		}}
	}

	var errs []*ValidationError
	if h := format.Header(format.ReadU32(data, format.StartMarkerOffset)); !format.IsMarker(h) {
		errs = append(errs, violation("Layout", format.StartMarkerOffset,
			"start marker is %v, expected zero-size allocated tag", h))
	}

	anchor := format.Chunk(format.AnchorOffset)
	want := format.Encode(format.PrologueSize, false)
	if h := anchor.Header(data); h != want {
		errs = append(errs, violation("Layout", format.AnchorOffset,
			"prologue header is %v, expected %v", h, want))
	} else if f := anchor.Footer(data); f != want {
		errs = append(errs, violation("Layout", format.AnchorOffset,
			"prologue footer is %v, expected %v", f, want))
	}

	end := format.SentinelOffset(len(data))
	if h := format.Header(format.ReadU32(data, end)); !format.IsMarker(h) {
		errs = append(errs, violation("Layout", end,
			"end sentinel is %v, expected zero-size allocated tag", h))
	}
	return errs
}
