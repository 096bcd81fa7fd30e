// Package oracle defines the policy/value evaluator contract the search
// tree consults, and the Local, Remote and batching Server
// implementations of it. Grounded on tak/model/grpc.py (the unary RPC
// client shape) and tak/model/server.py (the batching inference server),
// with the teacher's agent.go contributing the Go-side pooled-inferer
// idiom.
package oracle

import (
	"context"

	"github.com/alphatak/tak-az/rules"
)

// Evaluation is the result of evaluating one position: a move-probability
// distribution indexed by the board size's MoveTable ids, and a scalar
// value in [-1, 1] from the side-to-move's perspective.
type Evaluation struct {
	Policy []float32
	Value  float32
}

// Oracle evaluates positions. Implementations must be safe for
// concurrent use: a Server answers Evaluate from many HTTP handlers,
// serving every self-play worker process at once.
type Oracle interface {
	Evaluate(ctx context.Context, pos *rules.Position) (Evaluation, error)
}

// UnavailableError reports that an Oracle could not be reached or could
// not produce an evaluation (a crashed network process, a closed
// connection, a malformed response).
type UnavailableError struct {
	Reason string
	Cause  error
}

func (e *UnavailableError) Error() string {
	if e.Cause != nil {
		return "oracle unavailable: " + e.Reason + ": " + e.Cause.Error()
	}
	return "oracle unavailable: " + e.Reason
}

func (e *UnavailableError) Unwrap() error { return e.Cause }
