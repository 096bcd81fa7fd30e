package rules

// Apply returns the position resulting from playing m against p. It does
// not modify p. An *IllegalMoveError is returned (wrapped with
// github.com/pkg/errors) if m is not legal in p.
func (p *Position) Apply(m Move) (*Position, error) {
	next := p.Clone()
	if !inBounds(p.size, m.X, m.Y) {
		return nil, illegal(m, "square out of bounds")
	}
	if m.Kind.IsSlide() {
		if err := next.applySlide(m); err != nil {
			return nil, err
		}
	} else {
		if err := next.applyPlace(m); err != nil {
			return nil, err
		}
	}
	next.ply++
	return next, nil
}

func (p *Position) applyPlace(m Move) error {
	i := idx(p.size, m.X, m.Y)
	if len(p.squares[i]) != 0 {
		return illegal(m, "square is occupied")
	}

	mover := p.ToMove()
	color := mover
	if p.isOpeningSwap() {
		// The opening swap: each player's first placement is a piece of
		// the opponent's color, and it must be a flat.
		color = mover.Flip()
		if m.Kind != PlaceFlat {
			return illegal(m, "opening placement must be a flat stone")
		}
	}

	kind := Flat
	switch m.Kind {
	case PlaceFlat:
		kind = Flat
	case PlaceStanding:
		kind = Standing
	case PlaceCapstone:
		kind = Capstone
	default:
		return illegal(m, "not a placement move")
	}

	reserves := p.reservesFor(color)
	switch kind {
	case Capstone:
		if reserves.Capstones == 0 {
			return illegal(m, "no capstones remaining")
		}
	default:
		if reserves.Flats == 0 {
			return illegal(m, "no flat reserves remaining")
		}
	}

	p.adjustReserves(color, kind, -1)
	p.set(i, Stack{{Color: color, Kind: kind}})
	return nil
}

func (p *Position) reservesFor(c Color) Reserves {
	if c == White {
		return p.whiteReserves
	}
	return p.blackReserves
}

func (p *Position) adjustReserves(c Color, k Kind, delta int) {
	r := p.reservesFor(c)
	if k == Capstone {
		r.Capstones += delta
	} else {
		r.Flats += delta
	}
	if c == White {
		p.whiteReserves = r
	} else {
		p.blackReserves = r
	}
}

func (p *Position) applySlide(m Move) error {
	if p.isOpeningSwap() {
		return illegal(m, "cannot slide during the opening swap")
	}
	dir, ok := m.Kind.Direction()
	if !ok {
		return illegal(m, "not a slide move")
	}
	if len(m.Drops) == 0 {
		return illegal(m, "slide must drop at least one piece")
	}
	for _, n := range m.Drops {
		if n <= 0 {
			return illegal(m, "drop counts must be positive")
		}
	}
	count := m.Count()
	if count > p.size {
		return illegal(m, "carry exceeds board size")
	}

	srcIdx := idx(p.size, m.X, m.Y)
	stack := p.squares[srcIdx]
	if len(stack) == 0 {
		return illegal(m, "no stack to pick up")
	}
	if count > len(stack) {
		return illegal(m, "not enough pieces in stack to pick up")
	}

	top, _ := stack.Top()
	if top.Color != p.ToMove() {
		return illegal(m, "cannot move a stack you do not control")
	}

	carried := append(Stack(nil), stack[len(stack)-count:]...)
	remaining := stack[:len(stack)-count]
	p.set(srcIdx, remaining)

	x, y := m.X, m.Y
	for _, n := range m.Drops {
		x += dir.dx()
		y += dir.dy()
		if !inBounds(p.size, x, y) {
			return illegal(m, "slide runs off the board")
		}
		dstIdx := idx(p.size, x, y)
		dest := p.squares[dstIdx]
		dropped := carried[:n]
		carried = carried[n:]

		if len(dest) > 0 {
			destTop, _ := dest.Top()
			if destTop.Kind == Capstone {
				return illegal(m, "cannot move onto a capstone")
			}
			if destTop.Kind == Standing {
				if n != 1 || len(dropped) != 1 || dropped[0].Kind != Capstone {
					return illegal(m, "only a lone capstone may smash a standing stone")
				}
				// Smash: flatten the standing stone before stacking.
				flattened := dest.clone()
				flattened[len(flattened)-1] = Piece{Color: destTop.Color, Kind: Flat}
				dest = flattened
			}
		}
		p.set(dstIdx, append(dest.clone(), dropped...))
	}
	return nil
}
