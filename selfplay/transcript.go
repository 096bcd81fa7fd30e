// Package selfplay implements the multi-process self-play orchestrator:
// a pool of worker OS processes, each playing games against a shared
// oracle and reporting back move-by-move transcripts for the trainer's
// replay buffer. Grounded on tak/self_play.py's worker/queue shape;
// process-spawn mechanics grounded on spec.md §9's re-architecture note.
package selfplay

import (
	"github.com/alphatak/tak-az/encoding"
	"github.com/alphatak/tak-az/rules"
)

// Ply is one recorded move of a self-play game: the token encoding of
// the position it was played from, the search's policy target over
// considered moves (as parallel move-id/probability slices), the root's
// bootstrapped value estimate, and the move actually played.
type Ply struct {
	Tokens    []encoding.Token
	MoveIDs   []int
	MoveProbs []float32
	Value     float32
	Move      rules.Move
}

// Transcript is one finished self-play game: the starting board size,
// every ply played, and the final result.
type Transcript struct {
	Size   int
	Plies  []Ply
	Result rules.Result
}

// Outcome returns the final-result value target for the position before
// ply i was played, from that ply's mover's perspective: +1 if that
// mover ultimately won, -1 if they lost, 0 for a draw.
func (t *Transcript) Outcome(plyIndex int) float32 {
	if t.Result.Winner == rules.NoColor {
		return 0
	}
	mover := rules.White
	if plyIndex%2 == 1 {
		mover = rules.Black
	}
	if mover == t.Result.Winner {
		return 1
	}
	return -1
}
