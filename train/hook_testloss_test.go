package train

import (
	"testing"

	"github.com/alphatak/tak-az/encoding"
	"github.com/alphatak/tak-az/rules"
)

func TestTestLossHookDoesNotErrorOnEmptySet(t *testing.T) {
	h := &TestLossHook{}
	if err := h.AfterStep(&TrainState{}); err != nil {
		t.Fatal(err)
	}
}

func TestTestLossHookScoresHeldOutExamples(t *testing.T) {
	pos := rules.New(4)
	net := testNetwork(t)
	defer net.Close()

	h := &TestLossHook{Examples: []Example{
		{
			Size:      4,
			Tokens:    encoding.Encode(pos),
			MoveIDs:   []int{0, 1},
			MoveProbs: []float32{0.5, 0.5},
			Value:     0,
		},
	}}

	state := &TrainState{Model: net, Elapsed: Elapsed{Step: 1}, Stats: map[string]float64{}}
	if err := h.AfterStep(state); err != nil {
		t.Fatal(err)
	}
	if mse, ok := state.Stats["test.value_mse"]; !ok || mse < 0 {
		t.Fatalf("expected a non-negative test.value_mse, got %v (present=%v)", mse, ok)
	}
	if _, ok := state.Stats["test.policy_xent"]; !ok {
		t.Fatal("expected test.policy_xent to be recorded")
	}
}
