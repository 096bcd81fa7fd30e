package encoding

import (
	"testing"

	"github.com/alphatak/tak-az/rules"
)

func TestMoveTableRoundTrips(t *testing.T) {
	for _, size := range []int{3, 4, 5} {
		table := TableForSize(size)
		if table.ActionSpaceSize() == 0 {
			t.Fatalf("size %d: empty action space", size)
		}
		for id := 0; id < table.ActionSpaceSize(); id++ {
			m, err := table.DecodeMove(id)
			if err != nil {
				t.Fatalf("size %d: decode %d: %v", size, id, err)
			}
			gotID, err := table.EncodeMove(m)
			if err != nil {
				t.Fatalf("size %d: encode %+v: %v", size, m, err)
			}
			if gotID != id {
				t.Fatalf("size %d: round-trip mismatch: id %d -> move %+v -> id %d", size, id, m, gotID)
			}
		}
	}
}

func TestMoveTableIdsAreDense(t *testing.T) {
	table := TableForSize(5)
	seen := make(map[int]bool, table.ActionSpaceSize())
	for _, m := range table.moves {
		id, err := table.EncodeMove(m)
		if err != nil {
			t.Fatal(err)
		}
		if seen[id] {
			t.Fatalf("duplicate move id %d", id)
		}
		seen[id] = true
	}
	if len(seen) != table.ActionSpaceSize() {
		t.Fatalf("expected %d distinct ids, got %d", table.ActionSpaceSize(), len(seen))
	}
}

func TestEncodeReflectsReserves(t *testing.T) {
	p := rules.New(5)
	toks := Encode(p)
	if toks[0] != TokenOutput {
		t.Fatalf("expected leading output sentinel, got %v", toks[0])
	}
	if toks[1] != TokenWhiteToPlay {
		t.Fatalf("expected white-to-play token, got %v", toks[1])
	}
	if len(toks) != 6+5*5 {
		t.Fatalf("unexpected token count: %d", len(toks))
	}
}

func TestEncodeMarksOccupiedSquares(t *testing.T) {
	p := rules.New(5)
	next, err := p.Apply(rules.Move{X: 0, Y: 0, Kind: rules.PlaceFlat})
	if err != nil {
		t.Fatal(err)
	}
	toks := Encode(next)
	// Black is now to move, and the piece just placed is black (opening
	// swap), so from black's perspective it is "mine".
	if toks[1] != TokenBlackToPlay {
		t.Fatalf("expected black-to-play token, got %v", toks[1])
	}
	square := toks[6] // first board square token, (0,0)
	if square != TokenMyTopFlat {
		t.Fatalf("expected mover's own flat at (0,0), got %v", square)
	}
}

func TestEncodeEmitsBuriedPieceTokens(t *testing.T) {
	board := make([][]rules.Stack, 5)
	for y := range board {
		board[y] = make([]rules.Stack, 5)
	}
	// A three-high stack at (0,0): white flat buried under a black flat,
	// topped by a white capstone. White to move (ply 10).
	board[0][0] = rules.Stack{
		{Color: rules.White, Kind: rules.Flat},
		{Color: rules.Black, Kind: rules.Flat},
		{Color: rules.White, Kind: rules.Capstone},
	}
	p, err := rules.FromSquares(5, board, 10)
	if err != nil {
		t.Fatal(err)
	}
	toks := Encode(p)
	want := []Token{TokenMyCapstone, TokenTheirFlat, TokenMyFlat}
	got := toks[6:9]
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("square (0,0) tokens = %v, want %v", got, want)
		}
	}
	if len(toks) != 6+5*5+2 {
		t.Fatalf("unexpected token count: %d", len(toks))
	}
}
