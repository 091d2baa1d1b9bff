// Package wasm runs an execution core compiled to WebAssembly under wazero.
//
// The module must export a linear memory named "memory" and the functions
// below; the emulator handle returned by emulator_new is passed as the first
// argument to every other emulator_ call. Strings are passed as a pointer and
// byte length into memory obtained from alloc.
//
//	emulator_new() -> i32
//	emulator_tick(h)
//	emulator_key_down(h, ptr, len)
//	emulator_key_up(h, ptr, len)
//	emulator_framebuffer_ptr(h) -> i32
//	alloc(len) -> i32
//	dealloc(ptr, len)
//
// Optional exports: emulator_tileset_ptr(h) -> i32, emulator_framebuffer_len
// and emulator_tileset_len (function of h or global), emulator_free(h).
// Buffer lengths default to the fixed screen and tile view geometries.
package wasm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/valerio/jeebie-host/jeebie/core"
	"github.com/valerio/jeebie-host/jeebie/display"
)

// ErrMissingExport is returned when a module lacks a required export.
var ErrMissingExport = errors.New("wasm module is missing required exports")

const (
	exportNew          = "emulator_new"
	exportTick         = "emulator_tick"
	exportKeyDown      = "emulator_key_down"
	exportKeyUp        = "emulator_key_up"
	exportFramebuffer  = "emulator_framebuffer_ptr"
	exportFramebufLen  = "emulator_framebuffer_len"
	exportTileset      = "emulator_tileset_ptr"
	exportTilesetLen   = "emulator_tileset_len"
	exportFree         = "emulator_free"
	exportAlloc        = "alloc"
	exportDealloc      = "dealloc"
	exportMemory       = "memory"
	defaultModuleName  = "core"
	maxKeyCodeByteSize = 64
)

var requiredFunctions = []string{
	exportNew, exportTick, exportKeyDown, exportKeyUp, exportFramebuffer, exportAlloc, exportDealloc,
}

// Core is a wasm module instance driven through the emulator_ exports.
//
// Core methods use the context given to Load for every call into the module,
// so cancelling it aborts a running tick.
type Core struct {
	ctx     context.Context
	runtime wazero.Runtime
	mod     api.Module
	handle  uint64

	tick, keyDown, keyUp     api.Function
	framebuffer, tileset     api.Function
	alloc, dealloc           api.Function
	framebufferLen, tilesLen uint32
}

// LoadFile reads a module from disk and instantiates it.
func LoadFile(ctx context.Context, path string) (*Core, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wasm module: %w", err)
	}
	return Load(ctx, body)
}

// Load compiles and instantiates body, checks its exports and creates the
// emulator instance.
func Load(ctx context.Context, body []byte) (*Core, error) {
	runtime := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))

	c, err := load(ctx, runtime, body)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, err
	}
	return c, nil
}

func load(ctx context.Context, runtime wazero.Runtime, body []byte) (*Core, error) {
	compiled, err := runtime.CompileModule(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("wasm module could not be compiled: %w", err)
	}
	if err := checkExports(compiled); err != nil {
		return nil, err
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	mod, err := runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(defaultModuleName).WithStartFunctions())
	if err != nil {
		return nil, fmt.Errorf("wasm module could not be instantiated: %w", err)
	}

	c := &Core{
		ctx:         ctx,
		runtime:     runtime,
		mod:         mod,
		tick:        mod.ExportedFunction(exportTick),
		keyDown:     mod.ExportedFunction(exportKeyDown),
		keyUp:       mod.ExportedFunction(exportKeyUp),
		framebuffer: mod.ExportedFunction(exportFramebuffer),
		tileset:     mod.ExportedFunction(exportTileset),
		alloc:       mod.ExportedFunction(exportAlloc),
		dealloc:     mod.ExportedFunction(exportDealloc),
	}

	results, err := mod.ExportedFunction(exportNew).Call(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", exportNew, err)
	}
	if len(results) > 0 {
		c.handle = results[0]
	}

	c.framebufferLen = uint32(display.Screen.Size())
	if n, ok := c.exportedValue(exportFramebufLen); ok {
		c.framebufferLen = uint32(n)
	}
	c.tilesLen = uint32(display.Tiles.Size())
	if n, ok := c.exportedValue(exportTilesetLen); ok {
		c.tilesLen = uint32(n)
	}

	slog.Info("Loaded wasm core",
		"handle", c.handle,
		"memory_bytes", mod.Memory().Size(),
		"tileset", c.tileset != nil)
	return c, nil
}

// checkExports reports every required export the compiled module lacks.
func checkExports(compiled wazero.CompiledModule) error {
	funcs := compiled.ExportedFunctions()

	var missing []string
	for _, name := range requiredFunctions {
		if _, ok := funcs[name]; !ok {
			missing = append(missing, name)
		}
	}
	if _, ok := compiled.ExportedMemories()[exportMemory]; !ok {
		missing = append(missing, exportMemory)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", ErrMissingExport, strings.Join(missing, ", "))
	}
	return nil
}

// exportedValue reads a value exported either as a global or as a function
// of the emulator handle.
func (c *Core) exportedValue(name string) (uint64, bool) {
	if global := c.mod.ExportedGlobal(name); global != nil {
		return global.Get(), true
	}
	if fn := c.mod.ExportedFunction(name); fn != nil {
		results, err := fn.Call(c.ctx, c.handle)
		if err == nil && len(results) > 0 {
			return results[0], true
		}
	}
	return 0, false
}

func (c *Core) Tick() error {
	if _, err := c.tick.Call(c.ctx, c.handle); err != nil {
		return fmt.Errorf("%s: %w", exportTick, err)
	}
	return nil
}

func (c *Core) KeyDown(code string) error {
	return c.sendKey(c.keyDown, exportKeyDown, code)
}

func (c *Core) KeyUp(code string) error {
	return c.sendKey(c.keyUp, exportKeyUp, code)
}

// sendKey copies code into module memory and passes it to fn.
func (c *Core) sendKey(fn api.Function, name, code string) error {
	if len(code) == 0 || len(code) > maxKeyCodeByteSize {
		return fmt.Errorf("%s: invalid key code %q", name, code)
	}
	size := uint64(len(code))

	results, err := c.alloc.Call(c.ctx, size)
	if err != nil {
		return fmt.Errorf("%s: %w", exportAlloc, err)
	}
	if len(results) == 0 {
		return fmt.Errorf("%s returned no pointer", exportAlloc)
	}
	ptr := results[0]
	defer func() {
		if _, err := c.dealloc.Call(c.ctx, ptr, size); err != nil {
			slog.Warn("Failed to free key code buffer", "ptr", ptr, "error", err)
		}
	}()

	if !c.mod.Memory().Write(uint32(ptr), []byte(code)) {
		return fmt.Errorf("%s: pointer 0x%08X outside memory", name, ptr)
	}
	if _, err := fn.Call(c.ctx, c.handle, ptr, size); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (c *Core) Framebuffer() (core.Descriptor, error) {
	return c.locate(c.framebuffer, exportFramebuffer, c.framebufferLen)
}

func (c *Core) Tileset() (core.Descriptor, error) {
	if c.tileset == nil {
		return core.Descriptor{}, core.ErrNoBuffer
	}
	return c.locate(c.tileset, exportTileset, c.tilesLen)
}

func (c *Core) locate(fn api.Function, name string, length uint32) (core.Descriptor, error) {
	results, err := fn.Call(c.ctx, c.handle)
	if err != nil {
		return core.Descriptor{}, fmt.Errorf("%s: %w", name, err)
	}
	if len(results) == 0 {
		return core.Descriptor{}, fmt.Errorf("%s returned no pointer", name)
	}
	return core.Descriptor{Ptr: api.DecodeU32(results[0]), Len: length}, nil
}

// Memory returns the module's linear memory. Slices read from it become
// stale when the module grows its memory.
func (c *Core) Memory() core.Region {
	return c.mod.Memory()
}

// Close frees the emulator instance, when the module supports it, and shuts
// the runtime down.
func (c *Core) Close(ctx context.Context) error {
	if free := c.mod.ExportedFunction(exportFree); free != nil {
		if _, err := free.Call(ctx, c.handle); err != nil {
			slog.Warn("Failed to free emulator instance", "error", err)
		}
	}
	return c.runtime.Close(ctx)
}
