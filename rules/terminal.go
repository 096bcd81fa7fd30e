package rules

// WinReason distinguishes how a game ended.
type WinReason int

const (
	RoadWin WinReason = iota
	FlatsWin
	Resignation
	// Cutoff marks a game stopped at a ply limit rather than by the
	// rules; Apply/Terminal never produce it.
	Cutoff
)

// Result reports the outcome of a finished game.
type Result struct {
	Over   bool
	Reason WinReason
	Winner Color // NoColor for a draw
}

// Terminal reports whether the game has ended and, if so, how.
func (p *Position) Terminal() Result {
	if c, ok := p.roadWinner(); ok {
		return Result{Over: true, Reason: RoadWin, Winner: c}
	}
	if !p.boardFull() && !p.anyReservesEmpty() {
		return Result{Over: false}
	}
	return Result{Over: true, Reason: FlatsWin, Winner: p.flatsWinner()}
}

func (p *Position) boardFull() bool {
	for _, s := range p.squares {
		if len(s) == 0 {
			return false
		}
	}
	return true
}

func (p *Position) anyReservesEmpty() bool {
	return p.whiteReserves.Empty() || p.blackReserves.Empty()
}

// roadWinner performs a 4-neighbor flood fill over each color's "road"
// squares (flat or capstone tops) and reports whether a path touches both
// the left/right edges or both the top/bottom edges, grounded on
// tak/game.py's _walk/has_road. If both colors have completed a road
// simultaneously (possible after a slide that completes both), the
// winner is the player NOT to move, matching tak/game.py's has_road.
func (p *Position) roadWinner() (Color, bool) {
	white := p.hasRoad(White)
	black := p.hasRoad(Black)
	switch {
	case white && black:
		return p.ToMove().Flip(), true
	case white:
		return White, true
	case black:
		return Black, true
	default:
		return NoColor, false
	}
}

func (p *Position) hasRoad(c Color) bool {
	size := p.size
	visited := make([]bool, size*size)

	touchesEdge := func(x, y int) (left, right, top, bottom bool) {
		return x == 0, x == size-1, y == size-1, y == 0
	}

	var walk func(x, y int) (left, right, top, bottom bool)
	walk = func(x, y int) (left, right, top, bottom bool) {
		i := idx(size, x, y)
		if visited[i] {
			return
		}
		visited[i] = true
		top2, ok := p.squares[i].Top()
		if !ok || top2.Color != c || !top2.IsRoad() {
			return
		}
		l, r, t, b := touchesEdge(x, y)
		left, right, top, bottom = l, r, t, b
		dirs := [4][2]int{{-1, 0}, {1, 0}, {0, 1}, {0, -1}}
		for _, d := range dirs {
			nx, ny := x+d[0], y+d[1]
			if !inBounds(size, nx, ny) {
				continue
			}
			nl, nr, nt, nb := walk(nx, ny)
			left = left || nl
			right = right || nr
			top = top || nt
			bottom = bottom || nb
		}
		return
	}

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := idx(size, x, y)
			if visited[i] {
				continue
			}
			top, ok := p.squares[i].Top()
			if !ok || top.Color != c || !top.IsRoad() {
				continue
			}
			left, right, top2, bottom := walk(x, y)
			if (left && right) || (top2 && bottom) {
				return true
			}
		}
	}
	return false
}

func (p *Position) countFlats() (white, black int) {
	for _, s := range p.squares {
		top, ok := s.Top()
		if !ok || top.Kind != Flat {
			continue
		}
		if top.Color == White {
			white++
		} else {
			black++
		}
	}
	return
}

// flatsWinner resolves the end-of-board / out-of-reserves case: the
// player with more flats on top wins, and a tie goes to the player NOT
// to move, matching tak/game.py's flats_winner (self.to_move().flip()).
func (p *Position) flatsWinner() Color {
	w, b := p.countFlats()
	switch {
	case w > b:
		return White
	case b > w:
		return Black
	default:
		return p.ToMove().Flip()
	}
}
