// Package surface provides presentation sinks that do not depend on a
// windowing system: an in-memory canvas and PNG snapshots.
package surface

import "image"

// Canvas is an in-memory surface that keeps the last image presented to it.
type Canvas struct {
	name     string
	current  *image.RGBA
	presents int
}

// NewCanvas creates an empty canvas with the given surface name.
func NewCanvas(name string) *Canvas {
	return &Canvas{name: name}
}

func (c *Canvas) Name() string {
	return c.name
}

// Present replaces the canvas content with img.
func (c *Canvas) Present(img *image.RGBA) error {
	c.current = img
	c.presents++
	return nil
}

// Current returns the last presented image, or nil before the first present.
func (c *Canvas) Current() *image.RGBA {
	return c.current
}

// Presents returns the number of images presented so far.
func (c *Canvas) Presents() int {
	return c.presents
}
