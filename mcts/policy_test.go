package mcts

import "testing"

func TestPolicyProbsShortcutsAtZeroVisits(t *testing.T) {
	priors := []float32{0.2, 0.3, 0.5}
	q := []float32{0, 0, 0}
	probs, err := policyProbs(priors, q, 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := range probs {
		if probs[i] != priors[i] {
			t.Fatalf("expected prior passthrough at N=0, got %v want %v", probs, priors)
		}
	}
}

func TestPolicyProbsSumsToOne(t *testing.T) {
	priors := []float32{0.25, 0.25, 0.25, 0.25}
	q := []float32{0.9, -0.2, 0.1, 0.3}
	probs, err := policyProbs(priors, q, 100, 4)
	if err != nil {
		t.Fatal(err)
	}
	var sum float32
	for _, p := range probs {
		if p < 0 {
			t.Fatalf("negative probability: %v", probs)
		}
		sum += p
	}
	if sum < 0.99 || sum > 1.01 {
		t.Fatalf("policy should sum to ~1, got %v (probs=%v)", sum, probs)
	}
}

func TestPolicyProbsFavorsHigherValueChild(t *testing.T) {
	priors := []float32{0.5, 0.5}
	q := []float32{1.0, -1.0}
	probs, err := policyProbs(priors, q, 64, 4)
	if err != nil {
		t.Fatal(err)
	}
	if probs[0] <= probs[1] {
		t.Fatalf("expected higher-value child to get more mass: %v", probs)
	}
}
