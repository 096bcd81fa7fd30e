package rules

// LegalMoves enumerates every legal move in the position: placements
// for each square in row-major order, then slides. Callers needing the
// canonical move-id ordering go through the encoding package's table.
func (p *Position) LegalMoves() []Move {
	if p.Terminal().Over {
		return nil
	}
	var moves []Move
	mover := p.ToMove()

	for y := 0; y < p.size; y++ {
		for x := 0; x < p.size; x++ {
			moves = append(moves, p.legalPlacements(x, y, mover)...)
		}
	}
	for y := 0; y < p.size; y++ {
		for x := 0; x < p.size; x++ {
			moves = append(moves, p.legalSlides(x, y, mover)...)
		}
	}
	return moves
}

func (p *Position) legalPlacements(x, y int, mover Color) []Move {
	i := idx(p.size, x, y)
	if len(p.squares[i]) != 0 {
		return nil
	}
	color := mover
	if p.isOpeningSwap() {
		color = mover.Flip()
		r := p.reservesFor(color)
		if r.Flats == 0 {
			return nil
		}
		return []Move{{X: x, Y: y, Kind: PlaceFlat}}
	}

	var out []Move
	r := p.reservesFor(color)
	if r.Flats > 0 {
		out = append(out, Move{X: x, Y: y, Kind: PlaceFlat}, Move{X: x, Y: y, Kind: PlaceStanding})
	}
	if r.Capstones > 0 {
		out = append(out, Move{X: x, Y: y, Kind: PlaceCapstone})
	}
	return out
}

func (p *Position) legalSlides(x, y int, mover Color) []Move {
	if p.isOpeningSwap() {
		return nil
	}
	i := idx(p.size, x, y)
	stack := p.squares[i]
	top, ok := stack.Top()
	if !ok || top.Color != mover {
		return nil
	}
	maxCarry := len(stack)
	if maxCarry > p.size {
		maxCarry = p.size
	}

	var out []Move
	for _, dir := range []Direction{Left, Right, Up, Down} {
		for _, drops := range allSlides(p.size) {
			count := 0
			for _, d := range drops {
				count += d
			}
			if count > maxCarry {
				continue
			}
			if m, ok := p.feasibleSlide(x, y, dir, drops, top, stack); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

func (p *Position) feasibleSlide(x, y int, dir Direction, drops []int, top Piece, stack Stack) (Move, bool) {
	cx, cy := x, y
	carried := stack[len(stack)-sum(drops):]
	remaining := carried
	for _, n := range drops {
		cx += dir.dx()
		cy += dir.dy()
		if !inBounds(p.size, cx, cy) {
			return Move{}, false
		}
		dest := p.squares[idx(p.size, cx, cy)]
		if len(dest) > 0 {
			destTop, _ := dest.Top()
			if destTop.Kind == Capstone {
				return Move{}, false
			}
			if destTop.Kind == Standing {
				if n != 1 || len(remaining) != 1 || remaining[0].Kind != Capstone {
					return Move{}, false
				}
			}
		}
		remaining = remaining[n:]
	}
	return Move{X: x, Y: y, Kind: fromDirection(dir), Drops: append([]int(nil), drops...)}, true
}

func sum(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}
