package oracle

import (
	"context"

	"github.com/alphatak/tak-az/dualnet"
	"github.com/alphatak/tak-az/encoding"
	"github.com/alphatak/tak-az/rules"
	"github.com/pkg/errors"
)

// Local evaluates positions with an in-process network, with no RPC
// hop — the in-process counterpart to Remote, grounded on the teacher's
// agent.go Infer (direct NN call) rather than tak/model/grpc.py's
// network client.
type Local struct {
	Net   *dual.Dual
	Table func(size int) *encoding.MoveTable
}

// NewLocal returns a Local oracle backed by net, using encoding's
// package-level move table cache.
func NewLocal(net *dual.Dual) *Local {
	return &Local{Net: net, Table: encoding.TableForSize}
}

func (l *Local) Evaluate(ctx context.Context, pos *rules.Position) (Evaluation, error) {
	select {
	case <-ctx.Done():
		return Evaluation{}, ctx.Err()
	default:
	}

	toks := encoding.Encode(pos)
	oneHot := encoding.OneHot(toks, dual.VocabSize, dual.SeqLen)
	policy, value, err := l.Net.Infer(oneHot)
	if err != nil {
		return Evaluation{}, errors.WithStack(&UnavailableError{Reason: "local inference failed", Cause: err})
	}

	table := l.Table(pos.Size())
	if len(policy) > table.ActionSpaceSize() {
		policy = policy[:table.ActionSpaceSize()]
	}
	return Evaluation{Policy: policy, Value: value}, nil
}
