// Package encoding implements the bijective mappings between rules types
// and the fixed-width integer/token representations the oracle network
// consumes: a token-sequence position encoder and a per-board-size move
// id table.
package encoding

import "github.com/alphatak/tak-az/rules"

// Token values, grounded on tak/model/encoding.py's Token class: a small
// fixed vocabulary identifying whose turn it is, each color's remaining
// reserves, and each square's contents (split by "mine" vs "theirs"
// relative to the side to move, since the oracle always sees the board
// from the mover's perspective). Top pieces carry their kind; buried
// pieces carry only their color.
const (
	TokenEmpty Token = iota

	TokenMyTopFlat
	TokenMyFlat // buried
	TokenMyStanding
	TokenMyCapstone

	TokenTheirTopFlat
	TokenTheirFlat // buried
	TokenTheirStanding
	TokenTheirCapstone

	TokenWhiteToPlay
	TokenBlackToPlay

	// TokenOutput is the leading sentinel every encoded sequence starts
	// with; the network reads its policy/value heads off this position.
	TokenOutput
)

// MaxReserves and MaxCapstones bound the reserve-count token ranges,
// grounded on tak/model/encoding.py's MAX_RESERVES/MAX_CAPSTONES.
const (
	MaxReserves  = 50
	MaxCapstones = 2
)

// reserveBase and capstoneBase are the first token id of each reserve
// range, immediately following the fixed vocabulary above.
const (
	reserveBase  = TokenOutput + 1
	capstoneBase = reserveBase + MaxReserves + 1
)

// Token is a single integer in the position encoder's vocabulary.
type Token int

// VocabSize is the total number of distinct tokens the encoder can emit.
const VocabSize = int(capstoneBase) + MaxCapstones + 1

// MaxSeqLen bounds the encoded length of any position: the six header
// tokens, one token per square of the largest board, and one buried
// token per stone of both colors' full allotments. Shorter sequences
// are zero-padded when batched.
const MaxSeqLen = 6 + 8*8 + 2*(MaxReserves+MaxCapstones)

// Encode returns the token sequence for p, from the perspective of the
// side to move: the output sentinel, a to-move token, four
// reserve-count tokens (mover's flats, mover's capstones, opponent's
// flats, opponent's capstones), then each square in row-major order as
// either an empty token or a top-piece token followed by one
// color-only token per buried piece, top to bottom.
func Encode(p *rules.Position) []Token {
	size := p.Size()
	mover := p.ToMove()
	opp := mover.Flip()

	out := make([]Token, 0, 6+2*size*size)
	out = append(out, TokenOutput)
	if mover == rules.White {
		out = append(out, TokenWhiteToPlay)
	} else {
		out = append(out, TokenBlackToPlay)
	}

	mine := p.Reserves(mover)
	theirs := p.Reserves(opp)
	out = append(out,
		reserveToken(mine.Flats),
		capstoneToken(mine.Capstones),
		reserveToken(theirs.Flats),
		capstoneToken(theirs.Capstones),
	)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			out = appendSquare(out, p.At(x, y), mover)
		}
	}
	return out
}

func reserveToken(n int) Token {
	if n > MaxReserves {
		n = MaxReserves
	}
	return Token(int(reserveBase) + n)
}

func capstoneToken(n int) Token {
	if n > MaxCapstones {
		n = MaxCapstones
	}
	return Token(int(capstoneBase) + n)
}

func appendSquare(out []Token, s rules.Stack, mover rules.Color) []Token {
	top, ok := s.Top()
	if !ok {
		return append(out, TokenEmpty)
	}
	out = append(out, topToken(top, mover))
	for i := len(s) - 2; i >= 0; i-- {
		if s[i].Color == mover {
			out = append(out, TokenMyFlat)
		} else {
			out = append(out, TokenTheirFlat)
		}
	}
	return out
}

func topToken(top rules.Piece, mover rules.Color) Token {
	mine := top.Color == mover
	switch top.Kind {
	case rules.Flat:
		if mine {
			return TokenMyTopFlat
		}
		return TokenTheirTopFlat
	case rules.Standing:
		if mine {
			return TokenMyStanding
		}
		return TokenTheirStanding
	default:
		if mine {
			return TokenMyCapstone
		}
		return TokenTheirCapstone
	}
}
