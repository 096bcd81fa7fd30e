package selfplay

import (
	"context"
	"testing"

	"github.com/alphatak/tak-az/encoding"
	"github.com/alphatak/tak-az/oracle"
	"github.com/alphatak/tak-az/rules"
)

type uniformNet struct {
	value float32
}

func (n uniformNet) Evaluate(ctx context.Context, pos *rules.Position) (oracle.Evaluation, error) {
	size := encoding.TableForSize(pos.Size()).ActionSpaceSize()
	policy := make([]float32, size)
	u := float32(1) / float32(size)
	for i := range policy {
		policy[i] = u
	}
	return oracle.Evaluation{Policy: policy, Value: n.value}, nil
}

func TestRunnerPlaysToCompletion(t *testing.T) {
	cfg := WorkerConfig{
		BoardSize:          4,
		SimulationsPerMove: 8,
		MaxPlies:           30,
		Seed:               7,
	}
	r := NewRunner(cfg, uniformNet{})
	transcript, err := r.PlayOne(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(transcript.Plies) == 0 {
		t.Fatal("expected at least one ply to be recorded")
	}
	if !transcript.Result.Over {
		t.Fatal("expected a finished game")
	}
	if transcript.Size != 4 {
		t.Fatalf("expected transcript size 4, got %d", transcript.Size)
	}
	for i, ply := range transcript.Plies {
		if len(ply.MoveIDs) != len(ply.MoveProbs) {
			t.Fatalf("ply %d: %d move ids but %d probabilities", i, len(ply.MoveIDs), len(ply.MoveProbs))
		}
		if len(ply.Tokens) == 0 {
			t.Fatalf("ply %d: missing position encoding", i)
		}
	}
}

func TestRunnerResignsOnDecisiveValue(t *testing.T) {
	cfg := WorkerConfig{
		BoardSize:          4,
		SimulationsPerMove: 4,
		MaxPlies:           50,
		ResignThreshold:    0.9,
		Seed:               3,
	}
	// The oracle is certain the mover is winning from every position,
	// so the very first resignation check fires: white (the first
	// mover) wins.
	r := NewRunner(cfg, uniformNet{value: 0.95})
	transcript, err := r.PlayOne(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if transcript.Result.Reason != rules.Resignation {
		t.Fatalf("expected resignation, got %+v", transcript.Result)
	}
	if transcript.Result.Winner != rules.White {
		t.Fatalf("expected the mover to win on a positive value, got %v", transcript.Result.Winner)
	}
	if len(transcript.Plies) != 0 {
		t.Fatalf("expected no plies before the first-expansion resignation, got %d", len(transcript.Plies))
	}
}

func TestRunnerDeclaresCutoffAtPlyLimit(t *testing.T) {
	cfg := WorkerConfig{
		BoardSize:          5,
		SimulationsPerMove: 2,
		MaxPlies:           4,
		Seed:               11,
	}
	r := NewRunner(cfg, uniformNet{})
	transcript, err := r.PlayOne(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if transcript.Result.Reason != rules.Cutoff || transcript.Result.Winner != rules.NoColor {
		t.Fatalf("expected a cutoff draw at the ply limit, got %+v", transcript.Result)
	}
	if len(transcript.Plies) != 4 {
		t.Fatalf("expected exactly 4 plies, got %d", len(transcript.Plies))
	}
}

func TestTranscriptOutcomeMatchesWinner(t *testing.T) {
	transcript := &Transcript{
		Result: rules.Result{Over: true, Reason: rules.RoadWin, Winner: rules.White},
	}
	if transcript.Outcome(0) != 1 {
		t.Fatalf("expected white's own ply to have outcome +1")
	}
	if transcript.Outcome(1) != -1 {
		t.Fatalf("expected black's ply to have outcome -1")
	}
}
