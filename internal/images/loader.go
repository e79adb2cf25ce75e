package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// maxImageBytes caps a single page download
const maxImageBytes = 50 * 1024 * 1024

// DefaultMaxPixels bounds the page size so editor history snapshots stay in memory
const DefaultMaxPixels = 24_000_000

// LoadError reports an image reference that could not be resolved or decoded
type LoadError struct {
	Ref string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load image %s: %v", e.Ref, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies the error for callers mapping errors to responses
func (e *LoadError) ErrorKind() string {
	return "load"
}

// Loader resolves page image references to decoded pixels
type Loader struct {
	HTTPClient *http.Client
	// MaxPixels rejects larger images before their pixels are decoded.
	// Zero disables the check.
	MaxPixels int
}

// NewLoader creates a new image loader
func NewLoader() *Loader {
	return &Loader{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		MaxPixels: DefaultMaxPixels,
	}
}

// Load fetches ref (an http(s) URL or a local path) and decodes it
func (l *Loader) Load(ctx context.Context, ref string) (image.Image, error) {
	data, err := l.read(ctx, ref)
	if err != nil {
		return nil, &LoadError{Ref: ref, Err: err}
	}

	if l.MaxPixels > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, &LoadError{Ref: ref, Err: fmt.Errorf("failed to read image header: %w", err)}
		}
		if cfg.Width*cfg.Height > l.MaxPixels {
			return nil, &LoadError{Ref: ref, Err: fmt.Errorf("image is %dx%d, larger than the editor supports (max %d pixels)", cfg.Width, cfg.Height, l.MaxPixels)}
		}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &LoadError{Ref: ref, Err: fmt.Errorf("failed to decode image: %w", err)}
	}

	b := img.Bounds()
	if b.Empty() {
		return nil, &LoadError{Ref: ref, Err: fmt.Errorf("image has no pixels")}
	}

	slog.Debug("Decoded page image", "ref", ref, "format", format, "width", b.Dx(), "height", b.Dy())
	return img, nil
}

func (l *Loader) read(ctx context.Context, ref string) ([]byte, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty image reference")
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return l.download(ctx, ref)
	}

	data, err := os.ReadFile(strings.TrimPrefix(ref, "file://"))
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}

func (l *Loader) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image too large (max %d bytes)", maxImageBytes)
	}

	return data, nil
}
