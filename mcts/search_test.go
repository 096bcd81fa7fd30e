package mcts

import (
	"context"
	"fmt"

	"github.com/alphatak/tak-az/oracle"
	"github.com/alphatak/tak-az/rules"
)

// uniformOracle returns a uniform policy over all moves and a zero
// value, standing in for a network in tests that only exercise search
// mechanics, not learned behavior.
type uniformOracle struct{}

func (uniformOracle) Evaluate(ctx context.Context, pos *rules.Position) (oracle.Evaluation, error) {
	n := tableForSize(pos.Size()).ActionSpaceSize()
	policy := make([]float32, n)
	u := float32(1) / float32(n)
	for i := range policy {
		policy[i] = u
	}
	return oracle.Evaluation{Policy: policy, Value: 0}, nil
}

func newTestTree(size int) *Tree {
	pos := rules.New(size)
	return NewTree(DefaultConfig(), uniformOracle{}, pos, 1)
}

func formatTestMove(m rules.Move) string {
	return fmt.Sprintf("%d,%d/%d%v", m.X, m.Y, m.Kind, m.Drops)
}
