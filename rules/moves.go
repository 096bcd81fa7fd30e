package rules

import "github.com/pkg/errors"

// MoveKind distinguishes a placement from a slide.
type MoveKind uint8

const (
	PlaceFlat MoveKind = iota
	PlaceStanding
	PlaceCapstone
	SlideLeft
	SlideRight
	SlideUp
	SlideDown
)

// IsSlide reports whether the move kind carries a stack rather than places
// a fresh piece.
func (k MoveKind) IsSlide() bool {
	return k >= SlideLeft
}

// Direction is one of the four board directions a slide travels.
type Direction uint8

const (
	Left Direction = iota
	Right
	Up
	Down
)

func (k MoveKind) Direction() (Direction, bool) {
	switch k {
	case SlideLeft:
		return Left, true
	case SlideRight:
		return Right, true
	case SlideUp:
		return Up, true
	case SlideDown:
		return Down, true
	default:
		return 0, false
	}
}

func fromDirection(d Direction) MoveKind {
	switch d {
	case Left:
		return SlideLeft
	case Right:
		return SlideRight
	case Up:
		return SlideUp
	default:
		return SlideDown
	}
}

func (d Direction) dx() int {
	switch d {
	case Left:
		return -1
	case Right:
		return 1
	default:
		return 0
	}
}

func (d Direction) dy() int {
	switch d {
	case Up:
		return 1
	case Down:
		return -1
	default:
		return 0
	}
}

// Move is a single ply: either placing a new piece of a given kind at
// (X, Y), or picking up a stack at (X, Y) and sliding it, dropping Drops[i]
// pieces on each successive square in the travel direction.
type Move struct {
	X, Y  int
	Kind  MoveKind
	Drops []int
}

// Count is the total number of pieces a slide picks up. It is zero for
// placements.
func (m Move) Count() int {
	n := 0
	for _, d := range m.Drops {
		n += d
	}
	return n
}

// IllegalMoveError reports why a move could not be applied to a position.
type IllegalMoveError struct {
	Move   Move
	Reason string
}

func (e *IllegalMoveError) Error() string {
	return "illegal move: " + e.Reason
}

func illegal(m Move, reason string) error {
	return errors.WithStack(&IllegalMoveError{Move: m, Reason: reason})
}

// allSlides returns, for a given board size, every drop-count partition of
// a carry of 1..size pieces: the set of ways a stack can be split across
// consecutive squares in a slide. Move generation only needs the set;
// the canonical per-size ordering of move shapes lives in the encoding
// package's move table.
func allSlides(size int) [][]int {
	var out [][]int
	var rec func(remaining int, prefix []int)
	rec = func(remaining int, prefix []int) {
		if remaining == 0 {
			cp := make([]int, len(prefix))
			copy(cp, prefix)
			out = append(out, cp)
			return
		}
		for take := 1; take <= remaining && take <= size; take++ {
			rec(remaining-take, append(prefix, take))
		}
	}
	for total := 1; total <= size; total++ {
		rec(total, nil)
	}
	return out
}
