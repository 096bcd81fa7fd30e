// Package mcts implements the regularized-policy search tree: at each
// visited node a bisection solver computes a policy that trades off
// the network's prior against the empirical per-child value
// estimates, rather than the classic PUCT upper-confidence formula.
// Grounded line-for-line on tak/mcts.py (Node.policy_probs,
// solve_policy_python, descend, populate, update); the teacher's
// mcts/node.go contributes the sync.Mutex-guarded visit/value
// accumulation idiom.
package mcts

import (
	"sync"

	"github.com/alphatak/tak-az/rules"
	"github.com/chewxy/math32"
)

// Node is one position in the search tree. Concrete *Node children are
// used rather than the teacher's arena-indexed Naughty handles: the
// regularized-policy algorithm needs genuine per-node child slices to
// run its bisection solver over, not a PUCT free-list arena.
type Node struct {
	mu sync.Mutex

	position *rules.Position
	move     rules.Move // the move that produced this node from its parent

	terminal    bool
	vZero       float32 // oracle (or terminal) value at expansion, mover's perspective
	value       float32 // accumulated backprop value (sum, not mean)
	simulations uint32

	// childMoves and priors are populated together by expansion, the
	// first time this node is reached; priors[i] is the (renormalized,
	// possibly noise-mixed) prior for childMoves[i]. children is
	// allocated in the same order at expansion, one unexpanded child node
	// per surviving move.
	childMoves []rules.Move
	priors     []float32
	children   []*Node
}

func newNode(pos *rules.Position, move rules.Move) *Node {
	return &Node{position: pos, move: move}
}

// Expanded reports whether expansion has already run for this node.
func (n *Node) Expanded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.childMoves != nil || n.terminal
}

// Visits returns the node's simulation count (N).
func (n *Node) Visits() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.simulations
}

// VZero returns the oracle (or terminal) value recorded when this node
// was expanded, from the perspective of the player to move at it.
func (n *Node) VZero() float32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.vZero
}

// MeanValue returns the node's accumulated value divided by its visit
// count, or 0 if unvisited.
func (n *Node) MeanValue() float32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.simulations == 0 {
		return 0
	}
	return n.value / float32(n.simulations)
}

// accumulate folds one backed-up value into the node's running total,
// grounded on the teacher's node.go accumulate.
func (n *Node) accumulate(v float32) {
	n.mu.Lock()
	n.value += v
	n.simulations++
	n.mu.Unlock()
}

// childQ returns the per-child value vector q used by the policy
// solver, grounded on tak/mcts.py's Node.policy_probs: a visited
// child's mean value is negated into the parent's perspective; a
// never-visited child falls back to this node's own v_zero.
func (n *Node) childQ() []float32 {
	q := make([]float32, len(n.children))
	for i, c := range n.children {
		if c == nil || c.Visits() == 0 {
			q[i] = n.vZero
			continue
		}
		q[i] = -c.MeanValue()
	}
	return q
}

// validPolicy guards against NaN/Inf escaping the oracle, grounded on
// the teacher's arena.go validPolicies check.
func validPolicy(p []float32) bool {
	for _, v := range p {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}
