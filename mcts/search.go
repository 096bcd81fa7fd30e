package mcts

import (
	"context"
	"time"

	"github.com/alphatak/tak-az/rules"
	"github.com/pkg/errors"
	"gorgonia.org/vecf32"
)

// SearchLimits bounds one call to Search: it stops at whichever of
// Deadline or Simulations is reached first; a zero field is ignored.
// Grounded on tak/mcts.py's MCTS.analyze_tree, which loops on a
// time-or-simulation-count deadline.
type SearchLimits struct {
	Deadline    time.Duration
	Simulations int
}

// Search runs simulations against t's root until limits is exhausted.
// The simulation budget counts the root's total visits, so a reused
// subtree's prior work counts toward the limit, matching
// tak/mcts.py's analyze_tree loop condition.
func (t *Tree) Search(ctx context.Context, limits SearchLimits) error {
	if limits.Deadline <= 0 && limits.Simulations <= 0 {
		return errors.New("mcts: search requires a time limit or a simulation limit")
	}

	if t.rootStale && t.root.Expanded() && !t.root.terminal {
		if err := t.populate(ctx, t.root, true); err != nil {
			return err
		}
	}
	t.rootStale = false

	var deadline time.Time
	if limits.Deadline > 0 {
		deadline = time.Now().Add(limits.Deadline)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil
		}
		if limits.Simulations > 0 && int(t.root.Visits()) >= limits.Simulations {
			return nil
		}
		if t.root.Expanded() && t.root.terminal {
			return nil
		}
		if err := t.simulate(ctx); err != nil {
			return err
		}
	}
}

// simulate performs one descend-populate-update cycle, grounded on
// tak/mcts.py's analyze_tree body.
func (t *Tree) simulate(ctx context.Context) error {
	path, err := t.descend()
	if err != nil {
		return err
	}
	leaf := path[len(path)-1]
	if !leaf.Expanded() {
		if err := t.populate(ctx, leaf, leaf == t.root); err != nil {
			return err
		}
	}
	t.update(path, leaf.VZero())
	return nil
}

// descend walks from the root, sampling a child at each expanded node
// per its regularized policy, until it reaches an unexpanded (or
// terminal) node. The returned path includes the leaf. Grounded on
// tak/mcts.py's descend, which uses torch.multinomial at each level;
// here a single uniform draw against the cumulative distribution stands
// in for multinomial sampling of one draw.
func (t *Tree) descend() ([]*Node, error) {
	node := t.root
	var path []*Node
	for {
		path = append(path, node)
		node.mu.Lock()
		if node.terminal || node.childMoves == nil {
			node.mu.Unlock()
			return path, nil
		}
		q := node.childQ()
		n := node.simulations
		priors := node.priors
		node.mu.Unlock()

		probs, err := policyProbs(priors, q, n, t.cfg.C)
		if err != nil {
			return nil, err
		}

		idx := t.sampleIndex(probs)
		node.mu.Lock()
		next := node.children[idx]
		node.mu.Unlock()
		node = next
	}
}

func (t *Tree) sampleIndex(probs []float32) int {
	total := float32(0)
	for _, p := range probs {
		total += p
	}
	if total <= 0 {
		return 0
	}
	r := float32(t.rng.Float64()) * total
	acc := float32(0)
	for i, p := range probs {
		acc += p
		if r <= acc {
			return i
		}
	}
	return len(probs) - 1
}

// populate evaluates a node: terminal positions get their
// win/loss/draw value recorded directly (tak/mcts.py's v_zero); others
// call the oracle, mix Dirichlet noise into the prior when the node is
// the root, discard below-cutoff mass, decode and apply the surviving
// moves (silently dropping rule-illegal decodes), and renormalize.
// Re-populating an already-expanded root refreshes its prior and noise
// while grafting existing child subtrees back in by move, preserving
// their statistics. Grounded on tak/mcts.py's populate.
func (t *Tree) populate(ctx context.Context, n *Node, isRoot bool) error {
	if res := n.position.Terminal(); res.Over {
		n.mu.Lock()
		n.terminal = true
		n.vZero = terminalValue(res, n.position.ToMove())
		n.mu.Unlock()
		return nil
	}

	eval, err := t.net.Evaluate(ctx, n.position)
	if err != nil {
		return errors.Wrap(err, "mcts: oracle evaluation failed")
	}
	if !validPolicy(eval.Policy) {
		return &InvariantFailure{Reason: "oracle returned a NaN/Inf policy"}
	}

	table := tableForSize(n.position.Size())
	raw := eval.Policy
	if len(raw) > table.ActionSpaceSize() {
		raw = raw[:table.ActionSpaceSize()]
	}

	if isRoot && t.cfg.DirichletAlpha > 0 && t.cfg.DirichletWeight > 0 {
		noise := t.dirichletNoise(len(raw))
		if noise != nil {
			mixed := make([]float32, len(raw))
			w := float32(t.cfg.DirichletWeight)
			for i := range raw {
				mixed[i] = (1-w)*raw[i] + w*float32(noise[i])
			}
			raw = mixed
		}
	}

	var moves []rules.Move
	var priors []float32
	var positions []*rules.Position
	var mass float32
	for id, p := range raw {
		if p < t.cfg.CutoffProb {
			continue
		}
		m, err := table.DecodeMove(id)
		if err != nil {
			continue
		}
		next, err := n.position.Apply(m)
		if err != nil {
			// The prior places mass on syntactically-valid moves that
			// are rule-illegal from this position.
			continue
		}
		moves = append(moves, m)
		priors = append(priors, p)
		positions = append(positions, next)
		mass += p
	}
	if len(moves) == 0 {
		// Every legal move fell below cutoff_prob: fall back to a
		// uniform prior over legal moves rather than leaving the node
		// permanently unexplorable.
		legal := n.position.LegalMoves()
		moves = legal
		priors = make([]float32, len(legal))
		positions = make([]*rules.Position, len(legal))
		u := float32(1) / float32(len(legal))
		for i, m := range legal {
			priors[i] = u
			next, err := n.position.Apply(m)
			if err != nil {
				return errors.Wrap(err, "mcts: legal move failed to apply")
			}
			positions[i] = next
		}
	} else {
		vecf32.Scale(priors, 1/mass)
	}

	n.mu.Lock()
	prevMoves, prevChildren := n.childMoves, n.children
	children := make([]*Node, len(moves))
	for i, m := range moves {
		if old := findChild(prevMoves, prevChildren, m); old != nil {
			children[i] = old
			continue
		}
		children[i] = newNode(positions[i], m)
	}
	n.childMoves = moves
	n.priors = priors
	n.children = children
	n.vZero = eval.Value
	n.mu.Unlock()
	return nil
}

func findChild(moves []rules.Move, children []*Node, m rules.Move) *Node {
	for i, cm := range moves {
		if movesEqual(cm, m) {
			return children[i]
		}
	}
	return nil
}

// terminalValue maps a rules.Result to a value from toMove's perspective:
// +1 for a win, -1 for a loss, 0 for a draw.
func terminalValue(res rules.Result, toMove rules.Color) float32 {
	if res.Winner == rules.NoColor {
		return 0
	}
	if res.Winner == toMove {
		return 1
	}
	return -1
}

// update backs a simulation's value up the path from the leaf
// (inclusive) to the root, flipping sign at each level since each
// node's value is from the mover-at-that-node's perspective, grounded
// on tak/mcts.py's update.
func (t *Tree) update(path []*Node, leafValue float32) {
	v := leafValue
	for i := len(path) - 1; i >= 0; i-- {
		path[i].accumulate(v)
		v = -v
	}
}

// rootPolicy computes the regularized policy at the root.
func (t *Tree) rootPolicy() ([]float32, error) {
	root := t.root
	root.mu.Lock()
	if len(root.childMoves) == 0 {
		root.mu.Unlock()
		return nil, errors.New("mcts: no legal moves at root")
	}
	q := root.childQ()
	n := root.simulations
	priors := root.priors
	root.mu.Unlock()
	return policyProbs(priors, q, n, t.cfg.C)
}

// TreeProbs returns the root's regularized policy as the training
// target distribution, as (move id, probability) pairs for the board
// size's MoveTable, matching tak/mcts.py's tree_probs.
func (t *Tree) TreeProbs() ([]int, []float32, error) {
	probs, err := t.rootPolicy()
	if err != nil {
		return nil, nil, err
	}
	root := t.root
	root.mu.Lock()
	defer root.mu.Unlock()

	table := tableForSize(root.position.Size())
	ids := make([]int, len(root.childMoves))
	for i, m := range root.childMoves {
		id, err := table.EncodeMove(m)
		if err != nil {
			return nil, nil, errors.Wrap(err, "mcts: encode root move")
		}
		ids[i] = id
	}
	return ids, probs, nil
}

// SelectMove returns the root's move with the highest visit count, the
// greedy choice evaluation matches use.
func (t *Tree) SelectMove() (rules.Move, error) {
	root := t.root
	root.mu.Lock()
	defer root.mu.Unlock()
	if len(root.childMoves) == 0 {
		return rules.Move{}, errors.New("mcts: no legal moves at root")
	}
	best := 0
	var bestN uint32
	for i, c := range root.children {
		var n uint32
		if c != nil {
			n = c.Visits()
		}
		if n > bestN {
			bestN = n
			best = i
		}
	}
	return root.childMoves[best], nil
}

// SampleMove draws a move from the root's regularized policy, the
// distribution self-play trains against, matching tak/mcts.py's
// select_root_move (a multinomial draw, not argmax).
func (t *Tree) SampleMove() (rules.Move, error) {
	probs, err := t.rootPolicy()
	if err != nil {
		return rules.Move{}, err
	}
	root := t.root
	root.mu.Lock()
	defer root.mu.Unlock()
	return root.childMoves[t.sampleIndex(probs)], nil
}
