package render

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/alphatak/tak-az/rules"
)

func TestBoardWritesDecodablePNGAtExpectedSize(t *testing.T) {
	pos := rules.New(4)

	var buf bytes.Buffer
	if err := Board(&buf, pos); err != nil {
		t.Fatal(err)
	}

	cfg, err := png.DecodeConfig(&buf)
	if err != nil {
		t.Fatal(err)
	}
	wantDim := marginPx*2 + 4*cellPx
	if cfg.Width != wantDim || cfg.Height != wantDim {
		t.Fatalf("expected a %dx%d image, got %dx%d", wantDim, wantDim, cfg.Width, cfg.Height)
	}
}

func TestBoardRendersPlacedPieces(t *testing.T) {
	pos := rules.New(4)
	move := rules.Move{X: 0, Y: 0, Kind: rules.PlaceFlat}
	next, err := pos.Apply(move)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Board(&buf, next); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := img.(*image.RGBA); !ok {
		t.Fatalf("expected an RGBA image, got %T", img)
	}
}
