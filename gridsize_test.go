package tileview

import (
	"errors"
	"image"
	"testing"
)

func TestComputeGridSizeFitLevel(t *testing.T) {
	tests := []struct {
		name     string
		img      image.Point
		viewport image.Point
		wantW    int
		wantH    int
		wantMax  bool
	}{
		{"landscape in landscape", image.Pt(4000, 3000), image.Pt(800, 600), 800, 600, false},
		{"image smaller than viewport", image.Pt(640, 480), image.Pt(800, 600), 640, 480, true},
		// 1000x4000 fits at 150x600; the alignment search lands on the
		// nearest exact 1:4 pair of multiples of 4.
		{"tall image", image.Pt(1000, 4000), image.Pt(800, 600), 148, 592, false},
		{"near-fit snaps to source", image.Pt(900, 640), image.Pt(800, 600), 900, 640, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := computeGridSize(1, tt.img, tt.viewport, DefaultMaxTiles, DefaultAlignWindow)
			if err != nil {
				t.Fatalf("computeGridSize: %v", err)
			}
			if g.TileCount != 1 || g.AxisLength != 1 {
				t.Errorf("level 1 tileCount = %d axis = %d, want 1/1", g.TileCount, g.AxisLength)
			}
			if g.Width != tt.wantW || g.Height != tt.wantH {
				t.Errorf("grid = %dx%d, want %dx%d", g.Width, g.Height, tt.wantW, tt.wantH)
			}
			if g.IsMaxLevel != tt.wantMax {
				t.Errorf("isMaxLevel = %v, want %v", g.IsMaxLevel, tt.wantMax)
			}
		})
	}
}

func TestComputeGridSizeLadder(t *testing.T) {
	img := image.Pt(4000, 3000)
	vp := image.Pt(800, 600)

	g2, err := computeGridSize(2, img, vp, DefaultMaxTiles, DefaultAlignWindow)
	if err != nil {
		t.Fatalf("level 2: %v", err)
	}
	if g2.Width != 1728 || g2.Height != 1296 {
		t.Errorf("level 2 grid = %dx%d, want 1728x1296", g2.Width, g2.Height)
	}
	if g2.TileCount != 16 || g2.AxisLength != 4 {
		t.Errorf("level 2 tiles = %d axis = %d, want 16/4", g2.TileCount, g2.AxisLength)
	}
	if g2.IsMaxLevel {
		t.Error("level 2 flagged max")
	}

	g3, err := computeGridSize(3, img, vp, DefaultMaxTiles, DefaultAlignWindow)
	if err != nil {
		t.Fatalf("level 3: %v", err)
	}
	if g3.TileCount != 64 || g3.AxisLength != 8 {
		t.Errorf("level 3 tiles = %d axis = %d, want 64/8", g3.TileCount, g3.AxisLength)
	}
	if g3.IsMaxLevel {
		t.Error("level 3 flagged max")
	}

	// 5600 is past 85% of the 4000px long edge: snap to source resolution.
	g4, err := computeGridSize(4, img, vp, DefaultMaxTiles, DefaultAlignWindow)
	if err != nil {
		t.Fatalf("level 4: %v", err)
	}
	if g4.Width != 4000 || g4.Height != 3000 {
		t.Errorf("level 4 grid = %dx%d, want exact 4000x3000", g4.Width, g4.Height)
	}
	if !g4.IsMaxLevel {
		t.Error("level 4 not flagged max")
	}
}

func TestComputeGridSizeMaxTilesCap(t *testing.T) {
	// Level 3 would prefer 64 tiles; the cap forces 16 (axis 4).
	g, err := computeGridSize(3, image.Pt(4000, 3000), image.Pt(800, 600), 16, DefaultAlignWindow)
	if err != nil {
		t.Fatalf("computeGridSize: %v", err)
	}
	if g.TileCount != 16 {
		t.Errorf("tileCount = %d, want capped 16", g.TileCount)
	}
	if g.AxisLength != 4 {
		t.Errorf("axisLength = %d, want 4", g.AxisLength)
	}
}

func TestGridSizeAlignment(t *testing.T) {
	imgs := []image.Point{
		{X: 4000, Y: 3000},
		{X: 3333, Y: 2222},
		{X: 7013, Y: 4999},
		{X: 1920, Y: 1080},
	}
	vp := image.Pt(800, 600)
	for _, img := range imgs {
		for level := 1; ; level++ {
			g, err := computeGridSize(level, img, vp, DefaultMaxTiles, DefaultAlignWindow)
			if err != nil {
				t.Fatalf("img %v level %d: %v", img, level, err)
			}
			if err := g.validateAlignment(); err != nil {
				t.Errorf("img %v level %d: %v", img, level, err)
			}
			if g.IsMaxLevel {
				break
			}
		}
	}
}

func TestGridSizeMonotonic(t *testing.T) {
	img := image.Pt(6400, 4800)
	vp := image.Pt(1024, 768)
	prev := GridSize{}
	for level := 1; ; level++ {
		g, err := computeGridSize(level, img, vp, DefaultMaxTiles, DefaultAlignWindow)
		if err != nil {
			t.Fatalf("level %d: %v", level, err)
		}
		if level > 1 && (g.Width < prev.Width || g.Height < prev.Height) {
			t.Errorf("level %d grid %dx%d shrank from %dx%d",
				level, g.Width, g.Height, prev.Width, prev.Height)
		}
		prev = g
		if g.IsMaxLevel {
			break
		}
	}
}

func TestGridSizeExtremeAspectRatio(t *testing.T) {
	// A 100:1 panorama must still find a usable aspect match within the
	// bounded alignment window.
	img := image.Pt(50000, 500)
	vp := image.Pt(800, 600)
	for level := 1; ; level++ {
		g, err := computeGridSize(level, img, vp, DefaultMaxTiles, DefaultAlignWindow)
		if err != nil {
			t.Fatalf("level %d: %v", level, err)
		}
		if g.Width <= 0 || g.Height <= 0 {
			t.Fatalf("level %d: degenerate grid %dx%d", level, g.Width, g.Height)
		}
		if !g.IsMaxLevel {
			ratio := float64(g.Width) / float64(g.Height)
			if ratio < 50 || ratio > 200 {
				t.Errorf("level %d: ratio %.1f wildly off 100:1", level, ratio)
			}
		}
		if g.IsMaxLevel {
			break
		}
		if level > 20 {
			t.Fatal("no max level reached")
		}
	}
}

func TestComputeGridSizeInvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		level    int
		img      image.Point
		viewport image.Point
	}{
		{"zero image", 1, image.Pt(0, 100), image.Pt(800, 600)},
		{"negative viewport", 1, image.Pt(100, 100), image.Pt(-1, 600)},
		{"zero level", 0, image.Pt(100, 100), image.Pt(800, 600)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := computeGridSize(tt.level, tt.img, tt.viewport, DefaultMaxTiles, DefaultAlignWindow)
			if !errors.Is(err, ErrInvalidDimensions) {
				t.Errorf("err = %v, want ErrInvalidDimensions", err)
			}
		})
	}
}
