package dual

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// Batch is one training minibatch: Inputs is BatchSize rows of one-hot
// encoded positions (VocabSize*SeqLen wide), Policies is the
// visit-derived target distribution per row (ActionSpace wide), Values
// is the value target per row.
type Batch struct {
	Inputs   []float32
	Policies []float32
	Values   []float32
}

// Step runs one minibatch through the network, computes the combined
// loss (value MSE plus policy cross-entropy, the same contract
// tak/alphazero's PolicyValue loss implements), backpropagates, and
// applies an Adam update. Returns the scalar loss.
func (d *Dual) Step(b Batch) (float32, error) {
	if len(b.Values) != d.conf.BatchSize {
		return 0, errors.Errorf("dualnet: batch has %d values, want %d", len(b.Values), d.conf.BatchSize)
	}
	if len(b.Inputs) != d.conf.BatchSize*VocabSize*SeqLen {
		return 0, errors.New("dualnet: batch input width mismatch")
	}
	if len(b.Policies) != d.conf.BatchSize*d.conf.ActionSpace {
		return 0, errors.New("dualnet: batch policy width mismatch")
	}

	if err := d.bind(b.Inputs, b.Policies, b.Values); err != nil {
		return 0, err
	}
	if err := d.vm.RunAll(); err != nil {
		return 0, errors.Wrap(err, "dualnet: forward+backward pass")
	}
	defer d.vm.Reset()

	if err := d.solver.Step(G.NodesToValueGrads(d.weights)); err != nil {
		return 0, errors.Wrap(err, "dualnet: solver step")
	}

	return scalarValue(d.loss)
}

func scalarValue(n *G.Node) (float32, error) {
	switch v := n.Value().Data().(type) {
	case float32:
		return v, nil
	case []float32:
		if len(v) == 0 {
			return 0, errors.New("dualnet: empty loss value")
		}
		return v[0], nil
	default:
		return 0, errors.Errorf("dualnet: unexpected loss backing type %T", v)
	}
}
