package wasm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/jeebie-host/jeebie/core"
	"github.com/valerio/jeebie-host/jeebie/display"
)

const (
	testFramebufferPtr = 1024
	testAllocPtr       = 4096
	testTickCounter    = 16
	testLastKeyLen     = 32
)

// uleb encodes v as an unsigned LEB128.
func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func section(id byte, payload []byte) []byte {
	out := append([]byte{id}, uleb(uint32(len(payload)))...)
	return append(out, payload...)
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

// testModule assembles a minimal core: emulator_tick increments the byte at
// testTickCounter, emulator_key_down stores the key length at testLastKeyLen
// and the framebuffer lives at testFramebufferPtr in two pages of memory.
func testModule() []byte {
	const i32 = 0x7F

	types := []byte{5,
		0x60, 0, 1, i32, // 0: () -> i32
		0x60, 1, i32, 0, // 1: (i32)
		0x60, 3, i32, i32, i32, 0, // 2: (i32, i32, i32)
		0x60, 1, i32, 1, i32, // 3: (i32) -> i32
		0x60, 2, i32, i32, 0, // 4: (i32, i32)
	}
	funcs := []byte{7, 0, 1, 2, 2, 3, 3, 4}
	memory := []byte{1, 0x00, 2}

	exports := []byte{8}
	for i, n := range []string{
		exportNew, exportTick, exportKeyDown, exportKeyUp, exportFramebuffer, exportAlloc, exportDealloc,
	} {
		exports = append(exports, name(n)...)
		exports = append(exports, 0x00, byte(i))
	}
	exports = append(exports, name(exportMemory)...)
	exports = append(exports, 0x02, 0)

	constI32 := func(v uint32) []byte { return append([]byte{0x41}, uleb(v)...) }
	bodies := [][]byte{
		append(constI32(1), 0x0B),
		{0x41, testTickCounter, 0x41, testTickCounter, 0x2D, 0, 0, 0x41, 1, 0x6A, 0x3A, 0, 0, 0x0B},
		{0x41, testLastKeyLen, 0x20, 2, 0x3A, 0, 0, 0x0B},
		{0x0B},
		append(constI32(testFramebufferPtr), 0x0B),
		append(constI32(testAllocPtr), 0x0B),
		{0x0B},
	}
	code := []byte{byte(len(bodies))}
	for _, b := range bodies {
		body := append([]byte{0}, b...) // no locals
		code = append(code, uleb(uint32(len(body)))...)
		code = append(code, body...)
	}

	out := []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}
	out = append(out, section(1, types)...)
	out = append(out, section(3, funcs)...)
	out = append(out, section(5, memory)...)
	out = append(out, section(7, exports)...)
	out = append(out, section(10, code)...)
	return out
}

func loadTestCore(t *testing.T) *Core {
	t.Helper()
	ctx := context.Background()
	c, err := Load(ctx, testModule())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(ctx) })
	return c
}

func readByte(t *testing.T, c *Core, offset uint32) byte {
	t.Helper()
	b, ok := c.Memory().Read(offset, 1)
	require.True(t, ok)
	return b[0]
}

func TestLoad_MissingExports(t *testing.T) {
	empty := []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}

	_, err := Load(context.Background(), empty)
	require.ErrorIs(t, err, ErrMissingExport)
	assert.Contains(t, err.Error(), exportTick)
	assert.Contains(t, err.Error(), exportMemory)
}

func TestLoad_InvalidModule(t *testing.T) {
	_, err := Load(context.Background(), []byte("not wasm"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingExport)
}

func TestCore_Tick(t *testing.T) {
	c := loadTestCore(t)

	for i := 1; i <= 3; i++ {
		require.NoError(t, c.Tick())
		assert.Equal(t, byte(i), readByte(t, c, testTickCounter))
	}
}

func TestCore_Framebuffer(t *testing.T) {
	c := loadTestCore(t)

	desc, err := c.Framebuffer()
	require.NoError(t, err)
	assert.Equal(t, core.Descriptor{Ptr: testFramebufferPtr, Len: uint32(display.Screen.Size())}, desc)

	_, ok := c.Memory().Read(desc.Ptr, desc.Len)
	assert.True(t, ok)
}

func TestCore_TilesetAbsent(t *testing.T) {
	c := loadTestCore(t)

	_, err := c.Tileset()
	assert.ErrorIs(t, err, core.ErrNoBuffer)
}

func TestCore_KeyCodes(t *testing.T) {
	c := loadTestCore(t)

	require.NoError(t, c.KeyDown("ArrowLeft"))
	assert.Equal(t, byte(len("ArrowLeft")), readByte(t, c, testLastKeyLen))

	code, ok := c.Memory().Read(testAllocPtr, uint32(len("ArrowLeft")))
	require.True(t, ok)
	assert.Equal(t, "ArrowLeft", string(code), "code is copied into module memory")

	require.NoError(t, c.KeyUp("KeyZ"))
	assert.Error(t, c.KeyDown(""))
}
