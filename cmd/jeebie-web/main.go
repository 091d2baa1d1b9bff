//go:build js && wasm

// Command jeebie-web runs the pattern core in the browser, drawing into the
// page's canvases on every animation frame.
package main

import (
	"context"
	"log/slog"

	"github.com/valerio/jeebie-host/jeebie"
	"github.com/valerio/jeebie-host/jeebie/backend/web"
	"github.com/valerio/jeebie-host/jeebie/core/pattern"
)

func main() {
	emu, err := pattern.New(pattern.Options{})
	if err != nil {
		slog.Error("Failed to create core", "error", err)
		return
	}

	driver, err := jeebie.New(emu, web.New(web.DefaultOptions()), jeebie.Options{
		Title:    "Jeebie",
		Scale:    2,
		Slowdown: 1,
		Tiles:    true,
	})
	if err != nil {
		slog.Error("Failed to start driver", "error", err)
		return
	}
	defer driver.Close()

	// blocks on animation frames; the page owns the lifetime
	if err := driver.Run(context.Background()); err != nil {
		slog.Error("Frame loop stopped", "error", err)
	}
}
