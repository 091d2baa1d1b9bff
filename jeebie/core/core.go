// Package core describes the execution core the host driver animates.
//
// A core owns a shared memory region and publishes where its output buffers
// currently live inside it. Those locations are only valid until the next
// Tick: the core is free to move or grow its memory while advancing a frame.
package core

import (
	"errors"
	"fmt"
)

// ErrNoBuffer is returned by a core that does not produce the requested output.
var ErrNoBuffer = errors.New("core does not expose this output buffer")

// Descriptor locates one output buffer inside a Region at the instant it was
// queried. It must not be used after the core ticks again.
type Descriptor struct {
	Ptr uint32
	Len uint32
}

func (d Descriptor) String() string {
	return fmt.Sprintf("[0x%08X+%d]", d.Ptr, d.Len)
}

// End returns the first offset past the buffer. It is computed in 64 bits so
// that a descriptor near the top of the address space does not wrap.
func (d Descriptor) End() uint64 {
	return uint64(d.Ptr) + uint64(d.Len)
}

// Region is a byte-addressable memory area owned by the core. Read returns a
// slice aliasing the region's current backing storage, or false when the
// requested range is outside it. The signature matches wazero's api.Memory.
type Region interface {
	Read(offset, byteCount uint32) ([]byte, bool)
}

// Core is the small operation set the driver consumes from an emulation core.
type Core interface {
	// Tick advances emulation by exactly one video frame.
	Tick() error

	// KeyDown and KeyUp inject a raw host key code (a DOM KeyboardEvent.code
	// string such as "ArrowUp" or "KeyZ"). Mapping is the core's concern.
	KeyDown(code string) error
	KeyUp(code string) error

	// Framebuffer locates the main 160x144 RGBA screen buffer.
	Framebuffer() (Descriptor, error)

	// Tileset locates the auxiliary 128x192 RGBA tile view, or returns
	// ErrNoBuffer if the core has none.
	Tileset() (Descriptor, error)

	// Memory returns the region both descriptors point into.
	Memory() Region
}

// Locator resolves one of the core's output buffers.
type Locator func(Core) (Descriptor, error)

var (
	// LocateFramebuffer resolves the main screen buffer.
	LocateFramebuffer Locator = Core.Framebuffer
	// LocateTileset resolves the tile view buffer.
	LocateTileset Locator = Core.Tileset
)
