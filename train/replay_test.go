package train

import (
	"testing"

	"github.com/alphatak/tak-az/encoding"
	"github.com/alphatak/tak-az/rules"
	"github.com/alphatak/tak-az/selfplay"
)

func TestReplayBufferEvictsOldestStep(t *testing.T) {
	b := NewReplayBuffer(2)
	b.AddStep([]Example{{Size: 4, Tokens: []encoding.Token{1}, Value: 1}})
	b.AddStep([]Example{{Size: 4, Tokens: []encoding.Token{2}, Value: 1}})
	b.AddStep([]Example{{Size: 4, Tokens: []encoding.Token{3}, Value: 1}})

	if b.Len() != 2 {
		t.Fatalf("expected 2 retained steps, got %d", b.Len())
	}
	for _, ex := range b.Flatten() {
		if len(ex.Tokens) == 1 && ex.Tokens[0] == 1 {
			t.Fatal("expected the oldest step to have been evicted")
		}
	}
}

func TestReplayBufferDedupsWithinStep(t *testing.T) {
	b := NewReplayBuffer(1)
	toks := []encoding.Token{1, 2, 3}
	kept := b.AddStep([]Example{
		{Size: 4, Tokens: toks, MoveProbs: []float32{1, 0}, Value: 1, Result: 1},
		{Size: 4, Tokens: toks, MoveProbs: []float32{0, 1}, Value: -1, Result: -1},
	})
	if kept != 1 {
		t.Fatalf("expected duplicate positions merged to 1 example, got %d", kept)
	}

	flat := b.Flatten()
	if len(flat) != 1 {
		t.Fatalf("expected 1 retained example, got %d", len(flat))
	}
	if flat[0].Value != 0 || flat[0].Result != 0 {
		t.Fatalf("expected merged targets to average to 0, got value=%f result=%f", flat[0].Value, flat[0].Result)
	}
	if flat[0].MoveProbs[0] != 0.5 || flat[0].MoveProbs[1] != 0.5 {
		t.Fatalf("expected merged policy to average elementwise, got %v", flat[0].MoveProbs)
	}
}

func TestExamplesFromTranscriptsFlattensAllPlies(t *testing.T) {
	transcript := &selfplay.Transcript{
		Size: 4,
		Plies: []selfplay.Ply{
			{Tokens: []encoding.Token{1}, MoveIDs: []int{0}, MoveProbs: []float32{1}, Value: 0.25},
			{Tokens: []encoding.Token{2}, MoveIDs: []int{1}, MoveProbs: []float32{1}, Value: -0.5},
		},
		Result: rules.Result{Over: true, Reason: rules.RoadWin, Winner: rules.White},
	}

	examples := ExamplesFromTranscripts([]*selfplay.Transcript{transcript})
	if len(examples) != 2 {
		t.Fatalf("expected 2 examples, got %d", len(examples))
	}
	if examples[0].Value != 0.25 {
		t.Fatalf("expected the bootstrapped search value as the value target, got %f", examples[0].Value)
	}
	if examples[0].Result != 1 {
		t.Fatalf("expected white's ply to have result +1, got %f", examples[0].Result)
	}
	if examples[1].Result != -1 {
		t.Fatalf("expected black's ply to have result -1, got %f", examples[1].Result)
	}
}
