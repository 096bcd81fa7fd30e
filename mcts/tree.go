package mcts

import (
	"context"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/alphatak/tak-az/encoding"
	"github.com/alphatak/tak-az/oracle"
	"github.com/alphatak/tak-az/rules"
)

// Inferencer is the subset of oracle.Oracle the search tree needs,
// declared locally in the shape of the teacher's mcts/search.go
// Inferencer interface rather than depending on oracle's full surface.
// Any oracle.Oracle (Local, Remote, or Server) satisfies this directly.
type Inferencer interface {
	Evaluate(ctx context.Context, pos *rules.Position) (oracle.Evaluation, error)
}

// Config configures one Tree's search behavior. Grounded on
// tak/mcts.py's Config dataclass.
type Config struct {
	// C is the regularization strength the bisection solver trades the
	// network prior against empirical value; tak/mcts.py's default is 4.
	C float32
	// CutoffProb discards decoded moves whose prior probability mass
	// falls below this threshold before renormalizing, matching
	// tak/mcts.py's cutoff_prob (default 1e-6).
	CutoffProb float32
	// DirichletAlpha and DirichletWeight control root exploration noise,
	// mixed into the root's prior the way the teacher's mcts/tree.go
	// does via gonum's distmv.Dirichlet. Zero alpha disables noise.
	DirichletAlpha  float64
	DirichletWeight float64
}

// DefaultConfig returns tak/mcts.py's default Config values.
func DefaultConfig() Config {
	return Config{C: 4, CutoffProb: 1e-6, DirichletAlpha: 1.0, DirichletWeight: 0.25}
}

// Tree is one game's search tree, reused across plies via UpdateRoot.
type Tree struct {
	cfg  Config
	net  Inferencer
	root *Node
	rng  *rand.Rand

	// rootStale marks a root grafted in by UpdateRoot whose prior still
	// carries the previous expansion (and no fresh root noise); the
	// next Search re-populates it before simulating.
	rootStale bool
}

// NewTree constructs a Tree rooted at pos.
func NewTree(cfg Config, net Inferencer, pos *rules.Position, seed uint64) *Tree {
	return &Tree{
		cfg:  cfg,
		net:  net,
		root: newNode(pos, rules.Move{}),
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Root returns the current root node.
func (t *Tree) Root() *Node { return t.root }

// dirichletNoise draws n Dirichlet(alpha, ..., alpha) samples, grounded
// on the teacher's mcts/tree.go New (gonum's distmv.NewDirichlet backed
// by golang.org/x/exp/rand).
func (t *Tree) dirichletNoise(n int) []float64 {
	alphas := make([]float64, n)
	for i := range alphas {
		alphas[i] = t.cfg.DirichletAlpha
	}
	if n == 0 {
		return nil
	}
	d := distmv.NewDirichlet(alphas, t.rng)
	return d.Rand(nil)
}

// UpdateRoot advances the tree to the position reached by playing m
// against the current root, grafting the matching child subtree
// (preserving its accumulated value/simulations) rather than rebuilding
// from scratch, and discarding every non-matching sibling subtree. The
// grafted root is marked stale so the next Search re-expands it with a
// freshly noised prior, re-grafting its own children by move.
func (t *Tree) UpdateRoot(m rules.Move) error {
	root := t.root
	root.mu.Lock()
	child := findChild(root.childMoves, root.children, m)
	root.mu.Unlock()

	if child == nil {
		next, err := root.position.Apply(m)
		if err != nil {
			return err
		}
		child = newNode(next, m)
	}
	t.root = child
	t.rootStale = true
	return nil
}

func movesEqual(a, b rules.Move) bool {
	if a.X != b.X || a.Y != b.Y || a.Kind != b.Kind || len(a.Drops) != len(b.Drops) {
		return false
	}
	for i := range a.Drops {
		if a.Drops[i] != b.Drops[i] {
			return false
		}
	}
	return true
}

// tableForSize is overridable by tests; defaults to the package-level
// cache in encoding.
var tableForSize = encoding.TableForSize
