package rules

import "math/rand"

// Zobrist-style incremental hashing, grounded on the taktician Go port's
// posHashes/hashAt/Hash: one pseudo-random seed per square, folded with
// an FNV-style multiply for every piece in that square's stack so that
// stack order (not just membership) affects the hash.
const (
	hashOffset = 14695981039346656037
	hashPrime  = 1099511628211
)

var squareSeeds [64]uint64

func init() {
	seed := uint64(hashOffset)
	src := rand.New(rand.NewSource(int64(seed)))
	for i := range squareSeeds {
		squareSeeds[i] = src.Uint64()
	}
}

func pieceCode(p Piece) uint64 {
	return uint64(p.Color)<<2 | uint64(p.Kind)
}

func (p *Position) hashSquare(i int) uint64 {
	s := p.squares[i]
	if len(s) == 0 {
		return 0
	}
	h := squareSeeds[i%len(squareSeeds)]
	for _, piece := range s {
		h ^= pieceCode(piece)
		h *= hashPrime
	}
	return h
}

// rehash recomputes the hash from scratch; used by FromSquares and tests
// that build positions outside of Apply.
func (p *Position) rehash() {
	var h uint64
	for i := range p.squares {
		h ^= p.hashSquare(i)
	}
	p.hash = h
}
