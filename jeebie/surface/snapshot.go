package surface

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/draw"
)

// SavePNG writes img to directory as <baseName>_<timestamp>.png, scaled up by
// scale with nearest-neighbour sampling so pixels stay crisp. An empty
// directory means the current working directory. It returns the file path.
func SavePNG(img image.Image, baseName, directory string, scale int) (string, error) {
	if img == nil {
		return "", fmt.Errorf("no image to save")
	}
	if scale < 1 {
		scale = 1
	}

	outputDir := directory
	if outputDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		outputDir = cwd
	}

	out := img
	if scale > 1 {
		b := img.Bounds()
		scaled := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
		draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)
		out = scaled
	}

	timestamp := time.Now().Format("20060102_150405.000")
	filePath := filepath.Join(outputDir, fmt.Sprintf("%s_%s.png", baseName, timestamp))
	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", filePath, err)
	}
	defer file.Close()

	if err := png.Encode(file, out); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}

	size := out.Bounds().Size()
	slog.Info("Snapshot saved", "path", filePath, "size", fmt.Sprintf("%dx%d", size.X, size.Y), "format", "PNG")
	return filePath, nil
}

// Sink is the surface contract, restated here so this package stays free of
// the video package.
type Sink interface {
	Name() string
	Present(img *image.RGBA) error
}

// Snapshotter wraps a surface and saves every Interval-th presented image as
// a PNG, then forwards it to the wrapped surface.
type Snapshotter struct {
	Next      Sink
	Interval  int
	Directory string
	Prefix    string
	Scale     int

	presents int
	saved    int
	last     *image.RGBA
}

func (s *Snapshotter) Name() string {
	return s.Next.Name()
}

func (s *Snapshotter) Present(img *image.RGBA) error {
	s.presents++
	s.last = img
	if s.Interval > 0 && s.presents%s.Interval == 0 {
		s.save()
	}
	return s.Next.Present(img)
}

// Flush saves the last presented image unless it was already saved.
func (s *Snapshotter) Flush() {
	if s.last == nil || s.Interval <= 0 || s.presents%s.Interval == 0 {
		return
	}
	s.save()
}

// Saved returns how many snapshots were written.
func (s *Snapshotter) Saved() int {
	return s.saved
}

func (s *Snapshotter) save() {
	base := fmt.Sprintf("%s_%s_frame_%d", s.Prefix, s.Next.Name(), s.presents)
	if _, err := SavePNG(s.last, base, s.Directory, s.Scale); err != nil {
		slog.Error("Failed to save PNG snapshot", "surface", s.Next.Name(), "frame", s.presents, "error", err)
		return
	}
	s.saved++
}
