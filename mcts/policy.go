package mcts

import "github.com/chewxy/math32"

// alphaEpsilon is the bisection convergence tolerance on Σπ_α, matching
// tak/mcts.py's ALPHA_EPSILON.
const alphaEpsilon = 1e-3

// maxBisectionIters caps the bisection loop, matching tak/mcts.py's
// solve_policy_python assertion. Exceeding it is an algorithmic
// invariant failure, not a recoverable condition.
const maxBisectionIters = 32

// InvariantFailure reports that an internal algorithmic invariant the
// search depends on did not hold (e.g. the bisection solver failed to
// converge within maxBisectionIters).
type InvariantFailure struct {
	Reason string
}

func (e *InvariantFailure) Error() string { return "mcts: invariant failure: " + e.Reason }

// policyProbs computes the regularized policy π_α for a node's children,
// trading off the network prior π_θ against the empirical per-child
// value estimate q, regularized by lambda_n = C*sqrt(N)/(N+num_children).
// Grounded line-for-line on tak/mcts.py's Node.policy_probs +
// solve_policy_python. When the node is unvisited (N == 0), π_θ is
// returned directly without solving, per the spec's N=0 shortcut.
func policyProbs(priors []float32, q []float32, totalVisits uint32, c float32) ([]float32, error) {
	n := len(priors)
	if totalVisits == 0 {
		out := make([]float32, n)
		copy(out, priors)
		return out, nil
	}

	lambdaN := c * math32.Sqrt(float32(totalVisits)) / (float32(totalVisits) + float32(n))

	maxQPlusLambdaPrior := math32.Inf(-1)
	maxQPlusLambda := math32.Inf(-1)
	for i := range q {
		if v := q[i] + lambdaN*priors[i]; v > maxQPlusLambdaPrior {
			maxQPlusLambdaPrior = v
		}
		if v := q[i] + lambdaN; v > maxQPlusLambda {
			maxQPlusLambda = v
		}
	}
	alphaMin := maxQPlusLambdaPrior
	alphaMax := maxQPlusLambda

	if alphaMax-alphaMin <= 1e-6 {
		out := make([]float32, n)
		copy(out, priors)
		return out, nil
	}

	pi := make([]float32, n)
	for iter := 0; iter < maxBisectionIters; iter++ {
		alpha := (alphaMin + alphaMax) / 2
		sigma := float32(0)
		for i := range pi {
			denom := alpha - q[i]
			if denom <= 0 {
				denom = 1e-6
			}
			pi[i] = lambdaN * priors[i] / denom
			sigma += pi[i]
		}
		if math32.Abs(1-sigma) <= alphaEpsilon || (alphaMax-alphaMin) <= 1e-6 {
			return pi, nil
		}
		if sigma > 1 {
			alphaMin = alpha
		} else {
			alphaMax = alpha
		}
	}
	return nil, &InvariantFailure{Reason: "policy bisection solver failed to converge"}
}
