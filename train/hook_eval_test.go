package train

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/alphatak/tak-az/encoding"
	"github.com/alphatak/tak-az/mcts"
	"github.com/alphatak/tak-az/oracle"
	"github.com/alphatak/tak-az/rules"
)

// uniformInferencer returns a flat policy over the whole action space and
// a fixed value, just enough for EvalHook's match loop to terminate games
// quickly on a tiny board.
type uniformInferencer struct {
	actionSpace int
	value       float32
}

func (u uniformInferencer) Evaluate(ctx context.Context, pos *rules.Position) (oracle.Evaluation, error) {
	policy := make([]float32, u.actionSpace)
	for i := range policy {
		policy[i] = 1
	}
	return oracle.Evaluation{Policy: policy, Value: u.value}, nil
}

func TestEvalHookCountsWinsDrawsLosses(t *testing.T) {
	dir := t.TempDir()
	net := testNetwork(t)
	defer net.Close()

	table := encoding.TableForSize(4)
	opponent := uniformInferencer{actionSpace: table.ActionSpaceSize()}

	h := &EvalHook{
		RunDir:      dir,
		Freq:        1,
		Games:       2,
		BoardSize:   4,
		Simulations: 2,
		OpponentNet: opponent,
		SearchConfig: mcts.Config{
			C:          4,
			CutoffProb: 1e-6,
		},
	}

	state := &TrainState{Model: net, Elapsed: Elapsed{Step: 1}, Stats: map[string]float64{}}
	if err := h.AfterStep(state); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "step_000001", "eval_board.png")); err != nil {
		t.Fatalf("expected eval_board.png to be written: %v", err)
	}
	winRate, ok := state.Stats["eval.win_rate"]
	if !ok || winRate < 0 || winRate > 1 {
		t.Fatalf("expected eval.win_rate in [0,1], got %v (present=%v)", winRate, ok)
	}
	if _, ok := state.Stats["eval.elo"]; !ok {
		t.Fatal("expected eval.elo to be recorded")
	}
}

func TestEvalHookSkipsOffFrequencySteps(t *testing.T) {
	dir := t.TempDir()
	net := testNetwork(t)
	defer net.Close()

	h := &EvalHook{RunDir: dir, Freq: 5, Games: 1}
	state := &TrainState{Model: net, Elapsed: Elapsed{Step: 3}}
	if err := h.AfterStep(state); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "step_000003")); !os.IsNotExist(err) {
		t.Fatal("expected step 3 to be skipped for Freq=5")
	}
}

func TestEvalEloIsMonotonicInScore(t *testing.T) {
	if !math.IsInf(evalElo(0), -1) {
		t.Fatalf("expected -Inf at score 0, got %f", evalElo(0))
	}
	if !math.IsInf(evalElo(1), 1) {
		t.Fatalf("expected +Inf at score 1, got %f", evalElo(1))
	}
	if evalElo(0.5) != 0 {
		t.Fatalf("expected 0 delta at an even score, got %f", evalElo(0.5))
	}
	if evalElo(0.75) <= evalElo(0.5) {
		t.Fatal("expected evalElo to increase with score")
	}
}
