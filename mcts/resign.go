package mcts

import "github.com/chewxy/math32"

// ShouldResign reports whether the just-expanded root's oracle value is
// decisive enough to stop playing the game out, and if so who won: a
// v_zero at or above threshold means the mover wins, at or below its
// negation means the mover loses. Grounded on tak/self_play.py's
// play_one_game RESIGNATION_THRESHOLD check.
func (t *Tree) ShouldResign(threshold float32) (moverWins bool, resign bool) {
	if threshold <= 0 {
		return false, false
	}
	v := t.root.VZero()
	if math32.Abs(v) < threshold {
		return false, false
	}
	return v > 0, true
}
