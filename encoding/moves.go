package encoding

import (
	"fmt"
	"sync"

	"github.com/alphatak/tak-az/rules"
)

// MoveTable is a bijective mapping between rules.Move values and small
// dense integer ids for one board size, grounded on tak/moves.py's
// all_moves_for_size: for each square, the three placement kinds, then
// for each drop-count partition every direction (left, right, down, up)
// whose run fits on the board from that square. Legality with respect
// to the board's occupancy is still checked at Apply time; this table
// only fixes a canonical total ordering of move *shapes*.
type MoveTable struct {
	size    int
	moves   []rules.Move
	idByKey map[moveKey]int
}

// ActionSpaceSize returns the number of distinct move ids for a board
// size, matching the oracle's policy head width.
func (t *MoveTable) ActionSpaceSize() int { return len(t.moves) }

type moveKey struct {
	x, y int
	kind rules.MoveKind
	dlen int
	d0   int
	d1   int
	d2   int
	d3   int
	d4   int
	d5   int
	d6   int
	d7   int
}

func keyOf(m rules.Move) moveKey {
	k := moveKey{x: m.X, y: m.Y, kind: m.Kind, dlen: len(m.Drops)}
	slots := [8]*int{&k.d0, &k.d1, &k.d2, &k.d3, &k.d4, &k.d5, &k.d6, &k.d7}
	for i, d := range m.Drops {
		if i >= len(slots) {
			break
		}
		*slots[i] = d
	}
	return k
}

var (
	tableMu    sync.Mutex
	tableCache = map[int]*MoveTable{}
)

// TableForSize returns the (cached) MoveTable for a board size, building
// it on first use.
func TableForSize(size int) *MoveTable {
	tableMu.Lock()
	defer tableMu.Unlock()
	if t, ok := tableCache[size]; ok {
		return t
	}
	t := buildTable(size)
	tableCache[size] = t
	return t
}

func buildTable(size int) *MoveTable {
	t := &MoveTable{size: size, idByKey: map[moveKey]int{}}
	add := func(m rules.Move) {
		t.idByKey[keyOf(m)] = len(t.moves)
		t.moves = append(t.moves, m)
	}

	partitions := slidePartitions(size)
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			add(rules.Move{X: x, Y: y, Kind: rules.PlaceFlat})
			add(rules.Move{X: x, Y: y, Kind: rules.PlaceStanding})
			add(rules.Move{X: x, Y: y, Kind: rules.PlaceCapstone})

			dirs := []struct {
				kind rules.MoveKind
				run  int
			}{
				{rules.SlideLeft, x},
				{rules.SlideRight, size - x - 1},
				{rules.SlideDown, y},
				{rules.SlideUp, size - y - 1},
			}
			for _, drops := range partitions {
				for _, d := range dirs {
					if len(drops) <= d.run {
						add(rules.Move{X: x, Y: y, Kind: d.kind, Drops: drops})
					}
				}
			}
		}
	}
	return t
}

// slidePartitions mirrors tak/moves.py's _compute_slides: for each
// leading drop count i, (i) alone, then (i) prefixed onto every
// partition of the remaining size-i carry.
func slidePartitions(size int) [][]int {
	tables := make([][][]int, size+1)
	for s := 1; s <= size; s++ {
		var out [][]int
		for i := 1; i <= s; i++ {
			out = append(out, []int{i})
			for _, inner := range tables[s-i] {
				out = append(out, append([]int{i}, inner...))
			}
		}
		tables[s] = out
	}
	return tables[size]
}

// EncodeMove returns the canonical id of m for this table, or an error if
// m's shape (ignoring board occupancy) is not one this board size
// supports.
func (t *MoveTable) EncodeMove(m rules.Move) (int, error) {
	id, ok := t.idByKey[keyOf(m)]
	if !ok {
		return 0, fmt.Errorf("encoding: move %+v has no id for board size %d", m, t.size)
	}
	return id, nil
}

// DecodeMove returns the move for a canonical id, or an error if id is
// out of range.
func (t *MoveTable) DecodeMove(id int) (rules.Move, error) {
	if id < 0 || id >= len(t.moves) {
		return rules.Move{}, fmt.Errorf("encoding: move id %d out of range for board size %d", id, t.size)
	}
	return t.moves[id], nil
}
