package dual

import (
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/alphatak/tak-az/encoding"
)

// Dual is a dual-head (policy + value) network: a shared affine+ReLU
// trunk of Config.SharedLayers blocks feeding a softmax policy head of
// width Config.ActionSpace and a scalar tanh value head. It is the
// concrete stand-in for "the opaque oracle network" the rest of the
// engine treats as a black box; its own architecture is intentionally
// small. Grounded on the teacher's dualnet.Config plus gorgonia's
// standard ExprGraph/VM/Solver idiom.
type Dual struct {
	conf Config

	g            *G.ExprGraph
	input        *G.Node
	policyTarget *G.Node
	valueTarget  *G.Node
	policy       *G.Node
	value        *G.Node
	loss         *G.Node
	vm           G.VM
	solver       G.Solver
	lr           float64
	weights      []*G.Node
}

// VocabSize is the token vocabulary width the input one-hot encoding is
// sized for; callers encode positions with the encoding package before
// calling Infer.
const VocabSize = encoding.VocabSize

// SeqLen is the fixed input length Infer expects; shorter token
// sequences are zero-padded by encoding.OneHot.
const SeqLen = encoding.MaxSeqLen

// New builds an (untrained, randomly initialized) Dual network for conf.
// The graph carries both heads and the training loss (value MSE plus
// policy cross-entropy against the visit distribution), with gradients
// bound at construction so Step can run forward and backward on the
// same tape.
func New(conf Config) (*Dual, error) {
	if !conf.IsValid() {
		return nil, errors.New("dualnet: invalid config")
	}

	g := G.NewGraph()
	d := &Dual{conf: conf, g: g, lr: 1e-3}

	width := VocabSize * SeqLen
	input := G.NewMatrix(g, tensor.Float32, G.WithShape(conf.BatchSize, width), G.WithName("input"), G.WithInit(G.Zeroes()))
	d.input = input

	x := input
	in := width
	for i := 0; i < conf.SharedLayers; i++ {
		out := conf.FC
		w := G.NewMatrix(g, tensor.Float32, G.WithShape(in, out), G.WithName(trunkName(i, "w")), G.WithInit(G.GlorotU(1.0)))
		b := G.NewVector(g, tensor.Float32, G.WithShape(out), G.WithName(trunkName(i, "b")), G.WithInit(G.Zeroes()))
		d.weights = append(d.weights, w, b)

		affine := mustNode(G.Mul(x, w))
		biased := mustNode(G.BroadcastAdd(affine, b, nil, []byte{0}))
		x = mustNode(G.Rectify(biased))
		in = out
	}

	pw := G.NewMatrix(g, tensor.Float32, G.WithShape(in, conf.ActionSpace), G.WithName("policy_w"), G.WithInit(G.GlorotU(1.0)))
	pb := G.NewVector(g, tensor.Float32, G.WithShape(conf.ActionSpace), G.WithName("policy_b"), G.WithInit(G.Zeroes()))
	policyLogits := mustNode(G.BroadcastAdd(mustNode(G.Mul(x, pw)), pb, nil, []byte{0}))
	policy := mustNode(G.SoftMax(policyLogits))
	d.weights = append(d.weights, pw, pb)

	vw := G.NewMatrix(g, tensor.Float32, G.WithShape(in, 1), G.WithName("value_w"), G.WithInit(G.GlorotU(1.0)))
	vb := G.NewVector(g, tensor.Float32, G.WithShape(1), G.WithName("value_b"), G.WithInit(G.Zeroes()))
	valueRaw := mustNode(G.BroadcastAdd(mustNode(G.Mul(x, vw)), vb, nil, []byte{0}))
	value := mustNode(G.Tanh(valueRaw))
	d.weights = append(d.weights, vw, vb)

	d.policy = policy
	d.value = value

	d.policyTarget = G.NewMatrix(g, tensor.Float32, G.WithShape(conf.BatchSize, conf.ActionSpace), G.WithName("policy_target"), G.WithInit(G.Zeroes()))
	d.valueTarget = G.NewMatrix(g, tensor.Float32, G.WithShape(conf.BatchSize, 1), G.WithName("value_target"), G.WithInit(G.Zeroes()))

	vDiff := mustNode(G.Sub(value, d.valueTarget))
	vLoss := mustNode(G.Mean(mustNode(G.Square(vDiff))))

	logP := mustNode(G.Log(mustNode(G.Add(policy, G.NewConstant(float32(1e-8))))))
	xentRows := mustNode(G.Sum(mustNode(G.HadamardProd(d.policyTarget, logP)), 1))
	pLoss := mustNode(G.Neg(mustNode(G.Mean(xentRows))))

	d.loss = mustNode(G.Add(vLoss, pLoss))

	if _, err := G.Grad(d.loss, d.weights...); err != nil {
		return nil, errors.Wrap(err, "dualnet: build gradient graph")
	}

	d.vm = G.NewTapeMachine(g, G.BindDualValues(d.weights...))
	d.solver = G.NewAdamSolver(G.WithLearnRate(d.lr), G.WithBatchSize(float64(conf.BatchSize)))
	return d, nil
}

func trunkName(i int, suffix string) string {
	return "trunk" + itoa(i) + "_" + suffix
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

func mustNode(n *G.Node, err error) *G.Node {
	if err != nil {
		panic(err)
	}
	return n
}

// Infer evaluates a single one-hot-encoded input row, returning the
// policy distribution over ActionSpace moves and a scalar value estimate
// in [-1, 1].
func (d *Dual) Infer(oneHot []float32) ([]float32, float32, error) {
	policies, values, err := d.InferBatch([][]float32{oneHot})
	if err != nil {
		return nil, 0, err
	}
	return policies[0], values[0], nil
}

// InferBatch evaluates up to Config.BatchSize one-hot rows in a single
// forward pass, padding unused rows with zeros. The inference server's
// batching loop funnels its drained queue through here so that many
// concurrent workers cost one VM run, not one each.
func (d *Dual) InferBatch(rows [][]float32) ([][]float32, []float32, error) {
	if len(rows) == 0 {
		return nil, nil, nil
	}
	if len(rows) > d.conf.BatchSize {
		return nil, nil, errors.Errorf("dualnet: %d rows exceeds batch size %d", len(rows), d.conf.BatchSize)
	}

	width := VocabSize * SeqLen
	backing := make([]float32, d.conf.BatchSize*width)
	for i, row := range rows {
		if len(row) != width {
			return nil, nil, errors.Errorf("dualnet: input row %d has width %d, want %d", i, len(row), width)
		}
		copy(backing[i*width:], row)
	}

	if err := d.bind(backing, nil, nil); err != nil {
		return nil, nil, err
	}
	if err := d.vm.RunAll(); err != nil {
		return nil, nil, errors.Wrap(err, "dualnet: forward pass")
	}
	defer d.vm.Reset()

	policyData := d.policy.Value().Data().([]float32)
	valueData := d.value.Value().Data().([]float32)

	policies := make([][]float32, len(rows))
	values := make([]float32, len(rows))
	for i := range rows {
		p := make([]float32, d.conf.ActionSpace)
		copy(p, policyData[i*d.conf.ActionSpace:])
		if !validPolicy(p) {
			return nil, nil, errors.New("dualnet: policy head produced NaN/Inf")
		}
		policies[i] = p
		values[i] = valueData[i]
	}
	return policies, values, nil
}

// bind installs fresh input and target tensors; nil targets keep zeros.
func (d *Dual) bind(inputs, policies, values []float32) error {
	width := VocabSize * SeqLen
	if err := G.Let(d.input, tensor.New(tensor.WithShape(d.conf.BatchSize, width), tensor.WithBacking(inputs))); err != nil {
		return errors.Wrap(err, "dualnet: bind input")
	}
	if policies == nil {
		policies = make([]float32, d.conf.BatchSize*d.conf.ActionSpace)
	}
	if err := G.Let(d.policyTarget, tensor.New(tensor.WithShape(d.conf.BatchSize, d.conf.ActionSpace), tensor.WithBacking(policies))); err != nil {
		return errors.Wrap(err, "dualnet: bind policy target")
	}
	if values == nil {
		values = make([]float32, d.conf.BatchSize)
	}
	if err := G.Let(d.valueTarget, tensor.New(tensor.WithShape(d.conf.BatchSize, 1), tensor.WithBacking(values))); err != nil {
		return errors.Wrap(err, "dualnet: bind value target")
	}
	return nil
}

// SetLearnRate rebuilds the solver at a new learning rate; the training
// loop calls this from its schedule before each step's first minibatch.
func (d *Dual) SetLearnRate(lr float64) {
	if lr == d.lr {
		return
	}
	d.lr = lr
	d.solver = G.NewAdamSolver(G.WithLearnRate(lr), G.WithBatchSize(float64(d.conf.BatchSize)))
}

// Close releases the VM's resources.
func (d *Dual) Close() error {
	return d.vm.Close()
}

// Config returns the configuration this network was built with, so a
// caller persisting a checkpoint can reconstruct an identically-shaped
// Dual before loading weights back into it.
func (d *Dual) Config() Config { return d.conf }

// ExportWeights returns a copy of every trainable weight tensor's
// backing float32 values, in the same order New() created them.
// Grounded on the teacher's agogo.go SaveAZ, adapted to serialize the
// flat backing arrays directly rather than gob-encoding the graph
// itself, since gorgonia's *G.ExprGraph carries unexported state gob
// cannot round-trip reliably.
func (d *Dual) ExportWeights() ([][]float32, error) {
	out := make([][]float32, len(d.weights))
	for i, w := range d.weights {
		data, ok := w.Value().Data().([]float32)
		if !ok {
			return nil, errors.Errorf("dualnet: weight %d has unexpected backing type", i)
		}
		cp := make([]float32, len(data))
		copy(cp, data)
		out[i] = cp
	}
	return out, nil
}

// ImportWeights loads previously exported weight values back into this
// network's graph nodes, in New()'s weight order. It is an error to
// pass a weight set whose shapes don't match this network's Config.
func (d *Dual) ImportWeights(weights [][]float32) error {
	if len(weights) != len(d.weights) {
		return errors.Errorf("dualnet: expected %d weight tensors, got %d", len(d.weights), len(weights))
	}
	for i, w := range d.weights {
		data, ok := w.Value().Data().([]float32)
		if !ok {
			return errors.Errorf("dualnet: weight %d has unexpected backing type", i)
		}
		if len(data) != len(weights[i]) {
			return errors.Errorf("dualnet: weight %d shape mismatch: have %d, want %d", i, len(weights[i]), len(data))
		}
		copy(data, weights[i])
	}
	return nil
}

// Seed reseeds Gorgonia's weight initializers, used by tests that want
// deterministic (if not meaningful) network output.
func Seed(s int64) {
	rand.Seed(s)
}

// validPolicy guards against NaN/Inf escaping the softmax head, grounded
// on the teacher's arena.go validPolicies check.
func validPolicy(p []float32) bool {
	for _, v := range p {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}
