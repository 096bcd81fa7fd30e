// Package render draws a rules.Position to a PNG image, used by the
// eval hook to attach a visual artifact of a representative game to
// each checkpoint. Grounded on the teacher's golang.org/x/image and
// github.com/golang/freetype dependencies, otherwise unused in the
// teacher's own training loop.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/alphatak/tak-az/rules"
)

const (
	cellPx   = 64
	marginPx = 24
)

var (
	colorEmpty    = color.RGBA{0xe8, 0xe0, 0xd0, 0xff}
	colorGrid     = color.RGBA{0x30, 0x30, 0x30, 0xff}
	colorWhite    = color.RGBA{0xf5, 0xf5, 0xf5, 0xff}
	colorBlack    = color.RGBA{0x20, 0x20, 0x20, 0xff}
	colorStanding = color.RGBA{0xc0, 0x40, 0x40, 0xff}
	colorCapstone = color.RGBA{0x40, 0x40, 0xc0, 0xff}
)

// Board rasterizes pos to a PNG and writes it to w. Each square shows
// its top piece as an inset filled square, colored by owner and
// tinted by kind (flat, standing, capstone); the stack height is annotated as a
// number when more than one piece is stacked.
func Board(w io.Writer, pos *rules.Position) error {
	size := pos.Size()
	dim := marginPx*2 + size*cellPx
	img := image.NewRGBA(image.Rect(0, 0, dim, dim))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	face, err := loadFace()
	if err != nil {
		return err
	}

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			drawCell(img, pos, x, y, face)
		}
	}
	drawGrid(img, size)

	if err := png.Encode(w, img); err != nil {
		return errors.Wrap(err, "render: encode png")
	}
	return nil
}

func cellOrigin(size, x, y int) (int, int) {
	// Flip y so rank 0 renders at the bottom, matching board notation.
	px := marginPx + x*cellPx
	py := marginPx + (size-1-y)*cellPx
	return px, py
}

func drawCell(img *image.RGBA, pos *rules.Position, x, y int, face *truetype.Font) {
	px, py := cellOrigin(pos.Size(), x, y)
	rect := image.Rect(px, py, px+cellPx, py+cellPx)
	draw.Draw(img, rect, &image.Uniform{C: colorEmpty}, image.Point{}, draw.Src)

	stack := pos.At(x, y)
	top, ok := stack.Top()
	if !ok {
		return
	}
	pieceColor := colorWhite
	if top.Color == rules.Black {
		pieceColor = colorBlack
	}
	switch top.Kind {
	case rules.Standing:
		pieceColor = blend(pieceColor, colorStanding)
	case rules.Capstone:
		pieceColor = blend(pieceColor, colorCapstone)
	}

	inset := cellPx / 5
	piece := image.Rect(px+inset, py+inset, px+cellPx-inset, py+cellPx-inset)
	draw.Draw(img, piece, &image.Uniform{C: pieceColor}, image.Point{}, draw.Src)

	if len(stack) > 1 {
		drawLabel(img, itoaRender(len(stack)), px+cellPx/2-4, py+cellPx/2+6, face)
	}
}

func blend(a, b color.RGBA) color.RGBA {
	return color.RGBA{
		R: uint8((uint16(a.R) + uint16(b.R)) / 2),
		G: uint8((uint16(a.G) + uint16(b.G)) / 2),
		B: uint8((uint16(a.B) + uint16(b.B)) / 2),
		A: 0xff,
	}
}

func drawGrid(img *image.RGBA, size int) {
	dim := marginPx*2 + size*cellPx
	for i := 0; i <= size; i++ {
		x := marginPx + i*cellPx
		drawLine(img, x, marginPx, x, dim-marginPx)
		y := marginPx + i*cellPx
		drawLine(img, marginPx, y, dim-marginPx, y)
	}
}

func drawLine(img *image.RGBA, x0, y0, x1, y1 int) {
	if x0 == x1 {
		for y := y0; y <= y1; y++ {
			img.Set(x0, y, colorGrid)
		}
		return
	}
	for x := x0; x <= x1; x++ {
		img.Set(x, y0, colorGrid)
	}
}

func loadFace() (*truetype.Font, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, errors.Wrap(err, "render: parse font")
	}
	return f, nil
}

func drawLabel(img *image.RGBA, s string, x, y int, font *truetype.Font) {
	ctx := freetype.NewContext()
	ctx.SetFont(font)
	ctx.SetFontSize(14)
	ctx.SetDPI(72)
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img)
	ctx.SetSrc(&image.Uniform{C: colorGrid})
	pt := freetype.Pt(x, y)
	_, _ = ctx.DrawString(s, pt)
}

func itoaRender(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
