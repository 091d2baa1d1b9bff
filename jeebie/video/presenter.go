package video

import (
	"errors"
	"fmt"
	"image"

	"github.com/valerio/jeebie-host/jeebie/display"
	"github.com/valerio/jeebie-host/jeebie/view"
)

// ErrGeometry reports a buffer whose length disagrees with its surface geometry.
var ErrGeometry = errors.New("buffer length does not match display geometry")

// GeometryError carries the details of a geometry mismatch.
type GeometryError struct {
	Surface  string
	Geometry display.Geometry
	Got      int
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("%v: surface %q is %v (%d bytes), got %d bytes",
		ErrGeometry, e.Surface, e.Geometry, e.Geometry.Size(), e.Got)
}

func (e *GeometryError) Unwrap() error {
	return ErrGeometry
}

// Surface is a named sink that displays one image at a time. Present replaces
// whatever the surface showed before; the surface owns img afterwards.
type Surface interface {
	Name() string
	Present(img *image.RGBA) error
}

// Presenter turns extracted views into images for one surface.
type Presenter struct {
	geometry display.Geometry
	surface  Surface
}

// NewPresenter binds a surface to its fixed geometry.
func NewPresenter(g display.Geometry, s Surface) *Presenter {
	return &Presenter{geometry: g, surface: s}
}

// Name returns the name of the bound surface.
func (p *Presenter) Name() string {
	return p.surface.Name()
}

// Geometry returns the bound geometry.
func (p *Presenter) Geometry() display.Geometry {
	return p.geometry
}

// Present copies the view into a new width x height RGBA image and writes it
// to the surface. The length is checked first so that a mismatched buffer
// never produces a partial image.
func (p *Presenter) Present(v *view.View) error {
	if v.Len() != p.geometry.Size() {
		return &GeometryError{Surface: p.surface.Name(), Geometry: p.geometry, Got: v.Len()}
	}

	img := image.NewRGBA(image.Rect(0, 0, p.geometry.Width, p.geometry.Height))
	if _, err := v.CopyTo(img.Pix); err != nil {
		return err
	}
	return p.surface.Present(img)
}
