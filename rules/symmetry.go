package rules

// Symmetry is one of the 8 board symmetries of a square (the dihedral
// group D4): 4 rotations times optional reflection.
type Symmetry int

const (
	Identity Symmetry = iota
	Rotate90
	Rotate180
	Rotate270
	FlipH
	FlipHRotate90
	FlipHRotate180
	FlipHRotate270
)

// Symmetries lists all 8 board symmetries, for callers that want to
// enumerate augmented training examples.
var Symmetries = [8]Symmetry{
	Identity, Rotate90, Rotate180, Rotate270,
	FlipH, FlipHRotate90, FlipHRotate180, FlipHRotate270,
}

// coords maps a source square to the square it lands on under sym.
// ply/to-move is invariant under every transform: rotating or reflecting
// the board does not change whose turn it is, and each transform's
// coordinate map is applied consistently to road-edge checks (a
// transform that swaps rows and columns also swaps which edge pair
// corresponds to "left-right" versus "top-bottom", by construction of
// the map itself).
func (sym Symmetry) coords(size, x, y int) (int, int) {
	n := size - 1
	switch sym {
	case Identity:
		return x, y
	case Rotate90:
		return y, n - x
	case Rotate180:
		return n - x, n - y
	case Rotate270:
		return n - y, x
	case FlipH:
		return n - x, y
	case FlipHRotate90:
		return y, x
	case FlipHRotate180:
		return x, n - y
	case FlipHRotate270:
		return n - y, n - x
	default:
		return x, y
	}
}

// Apply returns a new position with the board transformed by sym.
// Reserves and ply are unaffected.
func (sym Symmetry) Apply(p *Position) *Position {
	cp := &Position{
		size:          p.size,
		squares:       make([]Stack, len(p.squares)),
		ply:           p.ply,
		whiteReserves: p.whiteReserves,
		blackReserves: p.blackReserves,
	}
	for y := 0; y < p.size; y++ {
		for x := 0; x < p.size; x++ {
			sx, sy := sym.coords(p.size, x, y)
			cp.squares[idx(p.size, sx, sy)] = p.squares[idx(p.size, x, y)].clone()
		}
	}
	cp.rehash()
	return cp
}

// ApplyMove returns m transformed into the coordinate space produced by
// sym.Apply, so that a move legal in p is legal in sym.Apply(p).
func (sym Symmetry) ApplyMove(size int, m Move) Move {
	sx, sy := sym.coords(size, m.X, m.Y)
	out := Move{X: sx, Y: sy, Kind: m.Kind, Drops: m.Drops}
	if dir, ok := m.Kind.Direction(); ok {
		out.Kind = fromDirection(sym.transformDirection(dir))
	}
	return out
}

// transformDirection maps a travel direction through the same coordinate
// transform used for squares, derived by transforming a unit step and
// re-deriving which compass direction it now points in.
func (sym Symmetry) transformDirection(d Direction) Direction {
	// Represent direction as a unit vector, run it through the linear
	// part of coords (i.e. coords with an arbitrary interior point and
	// its neighbor, size large enough to avoid boundary clipping), then
	// map the resulting vector back to a Direction.
	const probe = 100
	x0, y0 := probe, probe
	x1, y1 := probe+d.dx(), probe+d.dy()
	sx0, sy0 := sym.coordsUnbounded(x0, y0)
	sx1, sy1 := sym.coordsUnbounded(x1, y1)
	dx, dy := sx1-sx0, sy1-sy0
	switch {
	case dx == -1:
		return Left
	case dx == 1:
		return Right
	case dy == 1:
		return Up
	default:
		return Down
	}
}

// coordsUnbounded applies the same linear map as coords but without the
// (size-1) origin shift baked in for a specific board size, so it can be
// evaluated at an arbitrary probe point to recover the transform's effect
// on direction vectors.
func (sym Symmetry) coordsUnbounded(x, y int) (int, int) {
	switch sym {
	case Identity:
		return x, y
	case Rotate90:
		return y, -x
	case Rotate180:
		return -x, -y
	case Rotate270:
		return -y, x
	case FlipH:
		return -x, y
	case FlipHRotate90:
		return y, x
	case FlipHRotate180:
		return x, -y
	case FlipHRotate270:
		return -y, -x
	default:
		return x, y
	}
}
