package rules

import "github.com/pkg/errors"

// FromSquares builds a Position directly from a row-major (y outer, x
// inner, low-to-high) grid of stacks and a ply number, computing reserves
// by subtracting placed pieces from the size's default allotment. It
// exists for tests and fixtures; gameplay always reaches new positions
// via Apply.
func FromSquares(size int, board [][]Stack, ply int) (*Position, error) {
	p := New(size)
	p.ply = ply
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			s := board[y][x]
			p.squares[idx(size, x, y)] = s.clone()
			for _, piece := range s {
				switch piece.Kind {
				case Capstone:
					p.adjustReserves(piece.Color, Capstone, -1)
				default:
					p.adjustReserves(piece.Color, Flat, -1)
				}
				if p.reservesFor(piece.Color).Flats < 0 || p.reservesFor(piece.Color).Capstones < 0 {
					return nil, errors.New("too many pieces for board size")
				}
			}
		}
	}
	p.rehash()
	return p, nil
}
