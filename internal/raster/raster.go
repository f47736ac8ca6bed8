// Package raster holds the small image operations used by capture and
// parity checks: downscaling, cropping, diffing and encoding.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// Supported output formats.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

// NormalizeFormat maps user input ("PNG", "jpg") to a supported format.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("unsupported image format %q (want png or jpeg)", format)
}

// Downscale shrinks img so its longest edge is at most maxEdge, keeping the
// aspect ratio. Smaller images are returned unchanged.
func Downscale(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return img
	}
	nw, nh := maxEdge, maxEdge
	if w >= h {
		nh = max(1, h*maxEdge/w)
	} else {
		nw = max(1, w*maxEdge/h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// DiffScore is the mean absolute per-channel RGB difference between a and
// b, normalised to 0..1. b is resampled to a's size when they differ.
func DiffScore(a, b image.Image) float64 {
	ab := a.Bounds()
	if ab.Empty() {
		return 0
	}
	if b.Bounds().Dx() != ab.Dx() || b.Bounds().Dy() != ab.Dy() {
		resized := image.NewRGBA(image.Rect(0, 0, ab.Dx(), ab.Dy()))
		draw.ApproxBiLinear.Scale(resized, resized.Bounds(), b, b.Bounds(), draw.Src, nil)
		b = resized
	}
	bb := b.Bounds()

	var total uint64
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			r1, g1, b1, _ := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
			r2, g2, b2, _ := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
			total += absDiff(r1>>8, r2>>8) + absDiff(g1>>8, g2>>8) + absDiff(b1>>8, b2>>8)
		}
	}
	samples := float64(ab.Dx()*ab.Dy()) * 3
	return float64(total) / samples / 255
}

func absDiff(a, b uint32) uint64 {
	if a > b {
		return uint64(a - b)
	}
	return uint64(b - a)
}

// ClampCrop intersects the requested rectangle with bounds. A zero-area
// result becomes a 1x1 rectangle at the clamped origin.
func ClampCrop(bounds image.Rectangle, x, y, w, h int) image.Rectangle {
	if bounds.Empty() {
		return bounds
	}
	x0 := clamp(bounds.Min.X+x, bounds.Min.X, bounds.Max.X-1)
	y0 := clamp(bounds.Min.Y+y, bounds.Min.Y, bounds.Max.Y-1)
	x1 := clamp(bounds.Min.X+x+w, bounds.Min.X, bounds.Max.X)
	y1 := clamp(bounds.Min.Y+y+h, bounds.Min.Y, bounds.Max.Y)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return image.Rect(x0, y0, x1, y1)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// Crop returns the part of img inside r, rebased to the origin.
func Crop(img image.Image, r image.Rectangle) image.Image {
	r = r.Intersect(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// Encode renders img in format. Quality only applies to JPEG.
func Encode(img image.Image, format string, quality int) ([]byte, error) {
	format, err := NormalizeFormat(format)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	switch format {
	case FormatJPEG:
		if quality <= 0 || quality > 100 {
			quality = jpeg.DefaultQuality
		}
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// SavePNG writes img to path, creating parent directories.
func SavePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadPNG decodes a PNG file.
func LoadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}
