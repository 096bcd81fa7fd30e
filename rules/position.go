package rules

// Position is an immutable-by-convention Tak board state. Callers that
// need to mutate in place should use Clone first; Apply itself returns a
// new Position and never modifies the receiver, matching the value
// semantics tak/game.py's Position.move exposes to callers.
type Position struct {
	size int

	squares []Stack

	ply int // 0-indexed ply count; White moves on even plies.

	whiteReserves Reserves
	blackReserves Reserves

	hash uint64
}

// New returns the empty starting position for the given board size
// (3..8), with reserves from DefaultReserves.
func New(size int) *Position {
	r := DefaultReserves(size)
	return &Position{
		size:          size,
		squares:       make([]Stack, size*size),
		ply:           0,
		whiteReserves: r,
		blackReserves: r,
	}
}

// Size returns the board edge length.
func (p *Position) Size() int { return p.size }

// Ply returns the 0-indexed ply number about to be played.
func (p *Position) Ply() int { return p.ply }

// ToMove returns the color whose turn it is.
func (p *Position) ToMove() Color {
	if p.ply%2 == 0 {
		return White
	}
	return Black
}

// Reserves returns the unplaced-piece counts for a color.
func (p *Position) Reserves(c Color) Reserves {
	if c == White {
		return p.whiteReserves
	}
	return p.blackReserves
}

// At returns the stack occupying (x, y).
func (p *Position) At(x, y int) Stack {
	return p.squares[idx(p.size, x, y)]
}

// Hash returns the Zobrist-style incremental position hash, suitable for
// MCTS tree-reuse equality checks and transcript deduplication.
func (p *Position) Hash() uint64 { return p.hash }

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	cp := &Position{
		size:          p.size,
		squares:       make([]Stack, len(p.squares)),
		ply:           p.ply,
		whiteReserves: p.whiteReserves,
		blackReserves: p.blackReserves,
		hash:          p.hash,
	}
	for i, s := range p.squares {
		cp.squares[i] = s.clone()
	}
	return cp
}

// Eq reports whether two positions have identical board, reserve and ply
// state. Hash equality is checked first as a fast-path short-circuit.
func (p *Position) Eq(o *Position) bool {
	if p == o {
		return true
	}
	if p.size != o.size || p.ply != o.ply || p.hash != o.hash {
		return false
	}
	if p.whiteReserves != o.whiteReserves || p.blackReserves != o.blackReserves {
		return false
	}
	for i := range p.squares {
		if len(p.squares[i]) != len(o.squares[i]) {
			return false
		}
		for j := range p.squares[i] {
			if p.squares[i][j] != o.squares[i][j] {
				return false
			}
		}
	}
	return true
}

func (p *Position) set(i int, s Stack) {
	p.hash ^= p.hashSquare(i)
	p.squares[i] = s
	p.hash ^= p.hashSquare(i)
}

// isOpeningSwap reports whether the ply about to be played is one of the
// first two plies, during which a player places a piece of the opposite
// color (the standard Tak opening swap rule).
func (p *Position) isOpeningSwap() bool {
	return p.ply < 2
}
