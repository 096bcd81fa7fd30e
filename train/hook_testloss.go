package train

import (
	"log"

	"github.com/alphatak/tak-az/dualnet"
	"github.com/alphatak/tak-az/encoding"
	"github.com/chewxy/math32"
)

// TestLossHook evaluates the current network against a fixed held-out
// set of examples every Freq steps, recording value MSE and policy
// cross-entropy into the step stats without taking a gradient step.
// Grounded on tak/alphazero/hooks/test_loss.py's TestLoss.
type TestLossHook struct {
	Noop

	Freq     int
	Examples []Example
}

func (h *TestLossHook) AfterStep(state *TrainState) error {
	if len(h.Examples) == 0 {
		return nil
	}
	if h.Freq > 0 && state.Elapsed.Step%h.Freq != 0 {
		return nil
	}

	var valueSSE float32
	var policyXEnt float32
	for _, ex := range h.Examples {
		oneHot := encoding.OneHot(ex.Tokens, dual.VocabSize, dual.SeqLen)

		policy, value, err := state.Model.Infer(oneHot)
		if err != nil {
			return err
		}

		diff := value - ex.Value
		valueSSE += diff * diff

		for i, id := range ex.MoveIDs {
			if id < 0 || id >= len(policy) || i >= len(ex.MoveProbs) {
				continue
			}
			target := ex.MoveProbs[i]
			if target <= 0 {
				continue
			}
			p := policy[id]
			if p <= 0 {
				p = 1e-8
			}
			policyXEnt += -target * math32.Log(p)
		}
	}

	count := float32(len(h.Examples))
	valueMSE := float64(valueSSE / count)
	xent := float64(policyXEnt / count)
	if state.Stats != nil {
		state.Stats["test.value_mse"] = valueMSE
		state.Stats["test.policy_xent"] = xent
	}
	log.Printf("train: step %d test value-mse=%.4f test policy-xent=%.4f",
		state.Elapsed.Step, valueMSE, xent)
	return nil
}
