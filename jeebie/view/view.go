// Package view extracts frame-scoped, read-only views of a core's output
// buffers from its shared memory region.
//
// A core may move or grow its memory on every tick, so a view is only valid
// for the frame in which its descriptor was obtained. Scope enforces this: the
// view handed to the callback is released as soon as the callback returns and
// every later access fails with ErrReleased.
package view

import (
	"errors"
	"fmt"

	"github.com/valerio/jeebie-host/jeebie/core"
)

var (
	// ErrOutOfBounds reports a descriptor that does not fit the region.
	ErrOutOfBounds = errors.New("descriptor outside shared memory region")
	// ErrReleased reports use of a view after its frame ended.
	ErrReleased = errors.New("view used after its frame ended")
)

// BoundsError describes a descriptor that fell outside the region.
type BoundsError struct {
	Desc core.Descriptor
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%v: %v", ErrOutOfBounds, e.Desc)
}

func (e *BoundsError) Unwrap() error {
	return ErrOutOfBounds
}

// View is a read-only window onto one output buffer for the current frame.
// It exposes no way to obtain the underlying slice.
type View struct {
	desc core.Descriptor
	data []byte
}

// Descriptor returns the descriptor the view was extracted from.
func (v *View) Descriptor() core.Descriptor {
	return v.desc
}

// Len returns the view length in bytes, or 0 once released.
func (v *View) Len() int {
	return len(v.data)
}

// Live reports whether the view may still be read.
func (v *View) Live() bool {
	return v.data != nil
}

// CopyTo copies the view into dst and returns the number of bytes copied.
func (v *View) CopyTo(dst []byte) (int, error) {
	if v.data == nil {
		return 0, ErrReleased
	}
	return copy(dst, v.data), nil
}

// At returns the byte at index i.
func (v *View) At(i int) (byte, error) {
	if v.data == nil {
		return 0, ErrReleased
	}
	if i < 0 || i >= len(v.data) {
		return 0, fmt.Errorf("index %d outside view of %d bytes", i, len(v.data))
	}
	return v.data[i], nil
}

func (v *View) release() {
	v.data = nil
}

// Scope extracts the buffer desc points at from region and runs fn with it.
// The view must not escape fn; it is released when fn returns.
func Scope(region core.Region, desc core.Descriptor, fn func(*View) error) error {
	if region == nil {
		return &BoundsError{Desc: desc}
	}
	data, ok := region.Read(desc.Ptr, desc.Len)
	if !ok || uint64(len(data)) != uint64(desc.Len) {
		return &BoundsError{Desc: desc}
	}
	if data == nil {
		// a zero-length read still yields a live view
		data = []byte{}
	}

	v := &View{desc: desc, data: data}
	defer v.release()
	return fn(v)
}
