package memory

import (
	"errors"
	"fmt"
	"sort"
)

const (
	// DefaultArenaSize is the initial backing size of a new Arena (one wasm page).
	DefaultArenaSize = 64 * 1024

	blockAlign = 16
)

// ErrInvalidBlock is returned when an operation names a range the arena never
// handed out.
var ErrInvalidBlock = errors.New("invalid arena block")

// Arena is a growable, relocatable byte region shared between a core and the
// host driver. Blocks come from a first-fit free list, then from the end of
// the used space; when it runs out of room the backing slice is replaced by a
// larger copy, so any slice obtained from Read before the growth no longer
// aliases the live memory.
//
// Arena is not safe for concurrent use.
type Arena struct {
	buf        []byte
	next       uint32
	free       []span // sorted by offset, never adjacent
	generation uint64
}

// span is a released range of the arena.
type span struct {
	off, n uint32
}

// NewArena creates an arena with at least size bytes of backing storage.
func NewArena(size int) *Arena {
	if size <= 0 {
		size = DefaultArenaSize
	}
	return &Arena{
		buf:  make([]byte, size),
		next: blockAlign, // offset 0 is never handed out, like a null pointer
	}
}

// Size returns the current size of the backing storage in bytes.
func (a *Arena) Size() uint32 {
	return uint32(len(a.buf))
}

// Generation is incremented every time the backing storage is replaced.
func (a *Arena) Generation() uint64 {
	return a.generation
}

// Alloc reserves n bytes and returns their offset. Released ranges are reused
// first; otherwise the arena grows when the block does not fit, which replaces
// the backing storage.
func (a *Arena) Alloc(n uint32) (uint32, error) {
	if n == 0 {
		return 0, fmt.Errorf("%w: zero-length allocation", ErrInvalidBlock)
	}
	size := align(n)
	for i, s := range a.free {
		if s.n < size {
			continue
		}
		if s.n == size {
			a.free = append(a.free[:i], a.free[i+1:]...)
		} else {
			a.free[i] = span{off: s.off + size, n: s.n - size}
		}
		return s.off, nil
	}

	off := a.next
	end := uint64(off) + uint64(n)
	if end > uint64(^uint32(0)) {
		return 0, fmt.Errorf("arena exhausted: need %d bytes at 0x%08X", n, off)
	}
	if end > uint64(len(a.buf)) {
		a.grow(end)
	}
	a.next = align(uint32(end))
	return off, nil
}

// Relocate moves the n-byte block at off to a fresh offset and returns it.
// The old range keeps its bytes but is released for later allocations.
func (a *Arena) Relocate(off, n uint32) (uint32, error) {
	if !a.owned(off, n) {
		return 0, fmt.Errorf("%w: 0x%08X+%d", ErrInvalidBlock, off, n)
	}
	dst, err := a.Alloc(n)
	if err != nil {
		return 0, err
	}
	copy(a.buf[dst:dst+n], a.buf[off:off+n])
	if err := a.Free(off, n); err != nil {
		return 0, err
	}
	return dst, nil
}

// Free releases the n-byte block at off. Neighbouring released ranges are
// merged, and a range ending at the top of the used space lowers it.
func (a *Arena) Free(off, n uint32) error {
	if !a.owned(off, n) {
		return fmt.Errorf("%w: 0x%08X+%d", ErrInvalidBlock, off, n)
	}
	released := span{off: off, n: align(n)}

	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].off > off })
	a.free = append(a.free, span{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = released

	// merge with the following range, then with the preceding one
	if i+1 < len(a.free) && a.free[i].off+a.free[i].n == a.free[i+1].off {
		a.free[i].n += a.free[i+1].n
		a.free = append(a.free[:i+1], a.free[i+2:]...)
	}
	if i > 0 && a.free[i-1].off+a.free[i-1].n == a.free[i].off {
		a.free[i-1].n += a.free[i].n
		a.free = append(a.free[:i], a.free[i+1:]...)
	}

	if last := a.free[len(a.free)-1]; last.off+last.n == a.next {
		a.next = last.off
		a.free = a.free[:len(a.free)-1]
	}
	return nil
}

// owned reports whether [off, off+n) lies in used space and overlaps no
// released range.
func (a *Arena) owned(off, n uint32) bool {
	if off == 0 || n == 0 || uint64(off)+uint64(n) > uint64(a.next) {
		return false
	}
	end := off + n
	for _, s := range a.free {
		if off < s.off+s.n && s.off < end {
			return false
		}
	}
	return true
}

// Read returns the live bytes in [offset, offset+byteCount). The returned slice
// has its capacity clipped to the range and becomes stale if the arena grows.
func (a *Arena) Read(offset, byteCount uint32) ([]byte, bool) {
	end := uint64(offset) + uint64(byteCount)
	if end > uint64(len(a.buf)) {
		return nil, false
	}
	return a.buf[offset:end:end], true
}

// Write copies v into the arena at offset.
func (a *Arena) Write(offset uint32, v []byte) bool {
	end := uint64(offset) + uint64(len(v))
	if end > uint64(len(a.buf)) {
		return false
	}
	copy(a.buf[offset:end], v)
	return true
}

func (a *Arena) grow(need uint64) {
	size := uint64(len(a.buf))
	if size == 0 {
		size = DefaultArenaSize
	}
	for size < need {
		size *= 2
	}
	if size > uint64(^uint32(0)) {
		size = uint64(^uint32(0))
	}
	buf := make([]byte, size)
	copy(buf, a.buf)
	a.buf = buf
	a.generation++
}

func align(v uint32) uint32 {
	return (v + blockAlign - 1) &^ (blockAlign - 1)
}
