package tileview

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// encodeTestPNG renders a solid-color image for tile responses.
func encodeTestPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestClientMetadata(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"width":4000,"height":3000,"format":"jpg"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/") // trailing slash must be tolerated
	md, err := c.Metadata(context.Background(), "folder/photo.jpg")
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if md.Width != 4000 || md.Height != 3000 {
		t.Errorf("Metadata = %dx%d, want 4000x3000", md.Width, md.Height)
	}
	if gotPath != "/details" {
		t.Errorf("path = %q, want /details", gotPath)
	}
	if got := gotQuery.Get("src"); got != "folder/photo.jpg" {
		t.Errorf("src = %q, want folder/photo.jpg", got)
	}
}

func TestClientMetadataErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "no such image", http.StatusNotFound)
			},
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"width":`))
			},
		},
		{
			name: "zero dimensions",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"width":0,"height":0}`))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL)
			_, err := c.Metadata(context.Background(), "x.jpg")
			if !errors.Is(err, ErrMetadata) {
				t.Errorf("error = %v, want ErrMetadata", err)
			}
		})
	}
}

func TestClientTileURL(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	body := encodeTestPNG(t, 8, 8, color.RGBA{R: 255, A: 255})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Write(body)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	img, err := c.Tile(context.Background(), TileRequest{
		Src:   "folder/photo.jpg",
		Width: 1728, Height: 1296,
		Tile: 7, Count: 16,
	})
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
		t.Errorf("decoded %dx%d, want 8x8", b.Dx(), b.Dy())
	}

	if gotPath != "/image" {
		t.Errorf("path = %q, want /image", gotPath)
	}
	want := map[string]string{
		"src":         "folder/photo.jpg",
		"width":       "1728",
		"height":      "1296",
		"tile":        "7:16",
		"format":      "jpg",
		"autosizefit": "0",
		"strip":       "1",
		"stats":       "0",
	}
	for k, v := range want {
		if got := gotQuery.Get(k); got != v {
			t.Errorf("query %s = %q, want %q", k, got, v)
		}
	}
}

func TestClientTileSingleTileOmitsTileParam(t *testing.T) {
	var gotQuery url.Values
	body := encodeTestPNG(t, 4, 4, color.RGBA{G: 255, A: 255})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write(body)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Tile(context.Background(), TileRequest{
		Src:   "x.jpg",
		Width: 800, Height: 600,
		Tile: 1, Count: 1,
		Stats: true,
	})
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}
	if _, ok := gotQuery["tile"]; ok {
		t.Error("tile parameter present for a single-tile grid")
	}
	if got := gotQuery.Get("stats"); got != "1" {
		t.Errorf("stats = %q, want 1", got)
	}
}

func TestClientTileErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c := NewClient(srv.URL)
		_, err := c.Tile(context.Background(), TileRequest{Src: "x.jpg", Width: 800, Height: 600, Tile: 1, Count: 1})
		if !errors.Is(err, ErrTileStatus) {
			t.Errorf("error = %v, want ErrTileStatus", err)
		}
	})

	t.Run("decode", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("this is not an image"))
		}))
		defer srv.Close()

		c := NewClient(srv.URL)
		_, err := c.Tile(context.Background(), TileRequest{Src: "x.jpg", Width: 800, Height: 600, Tile: 3, Count: 4})
		if err == nil || !strings.Contains(err.Error(), "decoding tile 3:4") {
			t.Errorf("error = %v, want decode failure naming tile 3:4", err)
		}
	})
}

func TestClientWithCommand(t *testing.T) {
	var gotPath string
	body := encodeTestPNG(t, 2, 2, color.RGBA{B: 255, A: 255})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write(body)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithCommand("original"))
	if _, err := c.Tile(context.Background(), TileRequest{Src: "x.jpg", Width: 100, Height: 100, Tile: 1, Count: 1}); err != nil {
		t.Fatalf("Tile: %v", err)
	}
	if gotPath != "/original" {
		t.Errorf("path = %q, want /original", gotPath)
	}
}
