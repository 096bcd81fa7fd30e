package rules

import "testing"

func TestOpeningSwapPlacesOpponentColor(t *testing.T) {
	p := New(5)
	moves := p.LegalMoves()
	for _, m := range moves {
		if m.Kind != PlaceFlat {
			t.Fatalf("opening ply allowed non-flat move: %+v", m)
		}
	}
	next, err := p.Apply(Move{X: 0, Y: 0, Kind: PlaceFlat})
	if err != nil {
		t.Fatal(err)
	}
	top, ok := next.At(0, 0).Top()
	if !ok || top.Color != Black {
		t.Fatalf("white's opening placement should be black, got %+v", top)
	}

	next2, err := next.Apply(Move{X: 1, Y: 0, Kind: PlaceFlat})
	if err != nil {
		t.Fatal(err)
	}
	top2, ok := next2.At(1, 0).Top()
	if !ok || top2.Color != White {
		t.Fatalf("black's opening placement should be white, got %+v", top2)
	}
}

func TestOpeningSwapRejectsNonFlat(t *testing.T) {
	p := New(5)
	if _, err := p.Apply(Move{X: 0, Y: 0, Kind: PlaceStanding}); err == nil {
		t.Fatal("expected opening standing placement to be illegal")
	}
	if _, err := p.Apply(Move{X: 0, Y: 0, Kind: PlaceCapstone}); err == nil {
		t.Fatal("expected opening capstone placement to be illegal")
	}
}

func TestCannotSlideDuringOpening(t *testing.T) {
	p := New(5)
	for _, m := range p.LegalMoves() {
		if m.Kind.IsSlide() {
			t.Fatalf("opening ply allowed a slide: %+v", m)
		}
	}
}

func TestPlaceOntoOccupiedSquareIllegal(t *testing.T) {
	p := New(5)
	p, err := p.Apply(Move{X: 0, Y: 0, Kind: PlaceFlat})
	if err != nil {
		t.Fatal(err)
	}
	p, err = p.Apply(Move{X: 1, Y: 0, Kind: PlaceFlat})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Apply(Move{X: 0, Y: 0, Kind: PlaceFlat}); err == nil {
		t.Fatal("expected placement onto occupied square to be illegal")
	}
}

func TestSlideCarryCannotExceedSize(t *testing.T) {
	board := make([][]Stack, 3)
	for i := range board {
		board[i] = make([]Stack, 3)
	}
	stack := Stack{
		{Color: White, Kind: Flat}, {Color: White, Kind: Flat},
		{Color: White, Kind: Flat}, {Color: White, Kind: Flat},
	}
	board[0][0] = stack
	p, err := FromSquares(3, board, 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Apply(Move{X: 0, Y: 0, Kind: SlideRight, Drops: []int{4}}); err == nil {
		t.Fatal("expected carry of 4 on a size-3 board to be illegal")
	}
}

func TestCapstoneSmashesStanding(t *testing.T) {
	board := make([][]Stack, 5)
	for i := range board {
		board[i] = make([]Stack, 5)
	}
	board[0][0] = Stack{{Color: White, Kind: Capstone}}
	board[0][1] = Stack{{Color: Black, Kind: Standing}}
	p, err := FromSquares(5, board, 4)
	if err != nil {
		t.Fatal(err)
	}
	next, err := p.Apply(Move{X: 0, Y: 0, Kind: SlideRight, Drops: []int{1}})
	if err != nil {
		t.Fatal(err)
	}
	top, ok := next.At(1, 0).Top()
	if !ok || top.Kind != Capstone || top.Color != White {
		t.Fatalf("expected capstone atop smashed square, got %+v", top)
	}
	below := next.At(1, 0)
	if below[0].Kind != Flat {
		t.Fatalf("expected standing stone flattened by smash, got %+v", below[0])
	}
}

func TestCannotSmashWithMoreThanLoneCapstone(t *testing.T) {
	board := make([][]Stack, 5)
	for i := range board {
		board[i] = make([]Stack, 5)
	}
	board[0][0] = Stack{{Color: White, Kind: Flat}, {Color: White, Kind: Capstone}}
	board[0][1] = Stack{{Color: Black, Kind: Standing}}
	p, err := FromSquares(5, board, 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Apply(Move{X: 0, Y: 0, Kind: SlideRight, Drops: []int{2}}); err == nil {
		t.Fatal("expected a 2-piece carry to be unable to smash a standing stone")
	}
}

func TestRoadWinHorizontal(t *testing.T) {
	board := make([][]Stack, 5)
	for i := range board {
		board[i] = make([]Stack, 5)
	}
	for x := 0; x < 5; x++ {
		board[2][x] = Stack{{Color: White, Kind: Flat}}
	}
	p, err := FromSquares(5, board, 10)
	if err != nil {
		t.Fatal(err)
	}
	res := p.Terminal()
	if !res.Over || res.Reason != RoadWin || res.Winner != White {
		t.Fatalf("expected white road win, got %+v", res)
	}
}

func TestFlatWinTieGoesToPlayerNotToMove(t *testing.T) {
	size := 3
	board := make([][]Stack, size)
	for i := range board {
		board[i] = make([]Stack, size)
	}
	// 4 white flats, 4 black flats, one empty square: flats tie, and the
	// board is not full, so the tie is forced by exhausting reserves
	// rather than by filling the last square.
	coords := [8][2]int{{0, 0}, {1, 0}, {2, 0}, {0, 1}, {1, 1}, {2, 1}, {0, 2}, {1, 2}}
	for i, xy := range coords {
		c := White
		if i%2 == 1 {
			c = Black
		}
		board[xy[1]][xy[0]] = Stack{{Color: c, Kind: Flat}}
	}
	p, err := FromSquares(size, board, 9)
	if err != nil {
		t.Fatal(err)
	}
	w, b := p.countFlats()
	if w != b {
		t.Fatalf("fixture should tie on flats, got white=%d black=%d", w, b)
	}
	// Force reserve exhaustion directly: FromSquares only subtracts the
	// pieces actually on the board, which here leaves reserves nonempty.
	p.whiteReserves = Reserves{}
	p.blackReserves = Reserves{}

	res := p.Terminal()
	want := p.ToMove().Flip()
	if !res.Over || res.Reason != FlatsWin || res.Winner != want {
		t.Fatalf("expected flats-win tie to go to %v (not to move), got %+v", want, res)
	}
}

func TestBothRoadsGoToPlayerNotToMove(t *testing.T) {
	board := make([][]Stack, 5)
	for i := range board {
		board[i] = make([]Stack, 5)
	}
	// Completed roads for both colors at once, as a slide finishing both
	// can produce. White is to move (even ply), so black wins.
	for x := 0; x < 5; x++ {
		board[0][x] = Stack{{Color: White, Kind: Flat}}
		board[4][x] = Stack{{Color: Black, Kind: Flat}}
	}
	p, err := FromSquares(5, board, 20)
	if err != nil {
		t.Fatal(err)
	}
	res := p.Terminal()
	if !res.Over || res.Reason != RoadWin || res.Winner != Black {
		t.Fatalf("expected the player not to move (black) to win a double road, got %+v", res)
	}
}

func TestLegalMovesMatchApply(t *testing.T) {
	// A midgame size-3 position with stacks, standing stones and slides
	// in play: every syntactically-possible move must apply successfully
	// exactly when LegalMoves lists it.
	p := New(3)
	script := []Move{
		{X: 0, Y: 0, Kind: PlaceFlat},
		{X: 2, Y: 2, Kind: PlaceFlat},
		{X: 1, Y: 1, Kind: PlaceFlat},
		{X: 1, Y: 2, Kind: PlaceStanding},
	}
	for i, m := range script {
		next, err := p.Apply(m)
		if err != nil {
			t.Fatalf("script move %d: %v", i, err)
		}
		p = next
	}

	legal := map[string]bool{}
	for _, m := range p.LegalMoves() {
		legal[moveString(m)] = true
	}

	for _, m := range allCandidateMoves(3) {
		_, err := p.Apply(m)
		if legal[moveString(m)] && err != nil {
			t.Fatalf("legal move %+v failed to apply: %v", m, err)
		}
		if !legal[moveString(m)] && err == nil {
			t.Fatalf("move %+v applied successfully but is not in LegalMoves", m)
		}
	}
}

func moveString(m Move) string {
	s := string(rune('0'+m.X)) + string(rune('0'+m.Y)) + string(rune('A'+int(m.Kind)))
	for _, d := range m.Drops {
		s += string(rune('0' + d))
	}
	return s
}

func allCandidateMoves(size int) []Move {
	var out []Move
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			for _, k := range []MoveKind{PlaceFlat, PlaceStanding, PlaceCapstone} {
				out = append(out, Move{X: x, Y: y, Kind: k})
			}
			for _, k := range []MoveKind{SlideLeft, SlideRight, SlideUp, SlideDown} {
				for _, drops := range allSlides(size) {
					out = append(out, Move{X: x, Y: y, Kind: k, Drops: drops})
				}
			}
		}
	}
	return out
}

func TestSymmetryRoundTripsLegalMoves(t *testing.T) {
	p := New(5)
	p, _ = p.Apply(Move{X: 2, Y: 2, Kind: PlaceFlat})
	p, _ = p.Apply(Move{X: 1, Y: 1, Kind: PlaceFlat})
	p, _ = p.Apply(Move{X: 0, Y: 0, Kind: PlaceFlat})

	for _, sym := range Symmetries {
		transformed := sym.Apply(p)
		if transformed.size != p.size {
			t.Fatalf("symmetry changed board size")
		}
		if transformed.ToMove() != p.ToMove() {
			t.Fatalf("symmetry %v changed side to move", sym)
		}
		for _, m := range p.LegalMoves() {
			tm := sym.ApplyMove(p.size, m)
			if _, err := transformed.Apply(tm); err != nil {
				t.Fatalf("symmetry %v: transformed move %+v illegal in transformed position: %v", sym, tm, err)
			}
		}
	}
}

func TestHashChangesOnMove(t *testing.T) {
	p := New(5)
	h0 := p.Hash()
	next, err := p.Apply(Move{X: 0, Y: 0, Kind: PlaceFlat})
	if err != nil {
		t.Fatal(err)
	}
	if next.Hash() == h0 {
		t.Fatal("hash did not change after a placement")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	p := New(5)
	cp := p.Clone()
	next, err := p.Apply(Move{X: 0, Y: 0, Kind: PlaceFlat})
	if err != nil {
		t.Fatal(err)
	}
	if !cp.Eq(p) {
		t.Fatal("clone should remain equal to the pre-move position")
	}
	if cp.Eq(next) {
		t.Fatal("clone should not equal the post-move position")
	}
}
