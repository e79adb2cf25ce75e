package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(1, 1, color.RGBA{R: 10, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.png")
	if err := os.WriteFile(path, pngBytes(t, 12, 7), 0644); err != nil {
		t.Fatal(err)
	}

	img, err := NewLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 7 {
		t.Errorf("Expected 12x7, got %v", img.Bounds())
	}
}

func TestLoadRejectsOversizedImages(t *testing.T) {
	data := pngBytes(t, 12, 10)
	path := filepath.Join(t.TempDir(), "page.png")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer server.Close()

	tests := []struct {
		name      string
		maxPixels int
		wantErr   bool
	}{
		{"under limit", 120, false},
		{"over limit", 119, true},
		{"no limit", 0, false},
	}
	for _, tt := range tests {
		for _, ref := range []string{path, server.URL + "/page.png"} {
			t.Run(tt.name, func(t *testing.T) {
				loader := NewLoader()
				loader.MaxPixels = tt.maxPixels
				_, err := loader.Load(context.Background(), ref)
				if !tt.wantErr {
					if err != nil {
						t.Fatalf("Unexpected error for %s: %v", ref, err)
					}
					return
				}
				var loadErr *LoadError
				if !errors.As(err, &loadErr) {
					t.Fatalf("Expected LoadError for %s, got %v", ref, err)
				}
			})
		}
	}

	if NewLoader().MaxPixels != DefaultMaxPixels {
		t.Errorf("Expected NewLoader to apply the default pixel limit")
	}
}

func TestLoadFromURL(t *testing.T) {
	data := pngBytes(t, 5, 5)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer server.Close()

	loader := NewLoader()
	img, err := loader.Load(context.Background(), server.URL+"/page.png")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if img.Bounds().Dx() != 5 {
		t.Errorf("Expected width 5, got %d", img.Bounds().Dx())
	}

	_, err = loader.Load(context.Background(), server.URL+"/missing.png")
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected LoadError, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	garbage := filepath.Join(t.TempDir(), "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		ref  string
	}{
		{"empty reference", ""},
		{"missing file", filepath.Join(t.TempDir(), "nope.png")},
		{"undecodable", garbage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().Load(context.Background(), tt.ref)
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("Expected LoadError, got %v", err)
			}
			if loadErr.ErrorKind() != "load" {
				t.Errorf("Expected kind load, got %s", loadErr.ErrorKind())
			}
		})
	}
}
