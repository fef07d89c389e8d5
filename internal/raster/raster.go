// Package raster renders single PDF pages to cropped JPEG buffers for
// classification. Rendering shells out to pdftoppm (poppler-utils); page
// counting and PDF validation use pdfcpu.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

const (
	// DefaultDPI balances classifier accuracy against request size.
	DefaultDPI = 150
	// DefaultCropRatio keeps the top fraction of the page. Document-start
	// cues concentrate in the header region; 0.9 still retains signature
	// lines near the bottom.
	DefaultCropRatio = 0.9
	// DefaultJPEGQuality favors token/bandwidth economy over fidelity.
	DefaultJPEGQuality = 75
)

// Options control page rendering.
type Options struct {
	DPI         int
	CropRatio   float64 // keep the top fraction of the page, (0,1]
	JPEGQuality int
}

func (o Options) withDefaults() Options {
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
	if o.CropRatio <= 0 || o.CropRatio > 1 {
		o.CropRatio = DefaultCropRatio
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = DefaultJPEGQuality
	}
	return o
}

// Error is a rasterization failure. Fatal errors (unreadable source,
// unobtainable page count) abort the whole run; non-fatal ones are limited
// to a single page.
type Error struct {
	Page  int // 0 for document-level failures
	Fatal bool
	Err   error
}

func (e *Error) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("rasterize page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("rasterize: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// PageCount returns the number of pages in the PDF at path.
// Failures here are always fatal: without a page count no run can start.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &Error{Fatal: true, Err: fmt.Errorf("open PDF: %w", err)}
	}
	defer f.Close()

	count, err := api.PageCount(f, nil)
	if err != nil {
		return 0, &Error{Fatal: true, Err: fmt.Errorf("page count: %w", err)}
	}
	if count == 0 {
		return 0, &Error{Fatal: true, Err: fmt.Errorf("PDF has no pages")}
	}
	return count, nil
}

// Validate checks that the file at path is a well-formed PDF.
func Validate(path string) error {
	if err := api.ValidateFile(path, nil); err != nil {
		return &Error{Fatal: true, Err: fmt.Errorf("invalid PDF: %w", err)}
	}
	return nil
}

// RenderPage renders one page (1-based) of the PDF at path to a cropped
// JPEG. It is a pure function of its inputs: no shared state, no I/O
// beyond reading the source PDF and a temp file for the renderer.
func RenderPage(path string, page int, opts Options) ([]byte, error) {
	opts = opts.withDefaults()

	raw, err := renderPNG(path, page, opts.DPI)
	if err != nil {
		return nil, err
	}

	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &Error{Page: page, Err: fmt.Errorf("decode rendered page: %w", err)}
	}

	cropped := CropTop(img, opts.CropRatio)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, cropped, &jpeg.Options{Quality: opts.JPEGQuality}); err != nil {
		return nil, &Error{Page: page, Err: fmt.Errorf("encode JPEG: %w", err)}
	}
	return buf.Bytes(), nil
}

// CropTop returns the top fraction of img. A ratio of 1 (or out of range)
// returns the image unchanged.
func CropTop(img image.Image, ratio float64) image.Image {
	if ratio <= 0 || ratio >= 1 {
		return img
	}
	b := img.Bounds()
	height := int(float64(b.Dy()) * ratio)
	if height < 1 {
		height = 1
	}
	rect := image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+height)

	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	if s, ok := img.(subImager); ok {
		return s.SubImage(rect)
	}

	// Renderer output always supports SubImage; copy as a fallback.
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			dst.Set(x, y, img.At(rect.Min.X+x, rect.Min.Y+y))
		}
	}
	return dst
}

// renderPNG shells out to pdftoppm for a single page.
func renderPNG(path string, page int, dpi int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "tome-page-*")
	if err != nil {
		return nil, &Error{Page: page, Err: fmt.Errorf("create temp dir: %w", err)}
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")
	pageStr := fmt.Sprintf("%d", page)

	// -singlefile drops the page-number suffix from the output name.
	cmd := exec.Command("pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", dpi),
		"-singlefile",
		path,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &Error{Page: page, Err: fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))}
	}

	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, &Error{Page: page, Err: fmt.Errorf("pdftoppm did not produce output: %w", err)}
	}
	return data, nil
}
