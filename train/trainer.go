package train

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"strings"

	"github.com/alphatak/tak-az/dualnet"
	"github.com/alphatak/tak-az/encoding"
	"github.com/alphatak/tak-az/oracle"
	"github.com/alphatak/tak-az/selfplay"
	"github.com/pkg/errors"
)

// Trainer wires together a Dual network, the batching oracle.Server
// self-play workers call over HTTP, a MultiprocessSelfPlayEngine, and
// the replay buffer + hook pipeline into the outer AlphaZero training
// loop. Grounded on tak/alphazero/trainer.py's TrainingRun/train_loop.
type Trainer struct {
	cfg Config

	network  *dual.Dual
	server   *oracle.Server
	listener net.Listener
	httpSrv  *http.Server

	engine *selfplay.MultiprocessSelfPlayEngine
	buffer *ReplayBuffer

	lrSchedule Scheduler

	hooks []Hook
	state TrainState
}

// NewTrainer validates cfg, builds (or loads) a network sized for
// cfg.BoardSize, starts its inference server, and spawns
// cfg.RolloutWorkers self-play worker processes pointed at that
// server. Each worker seeds its own RNG from entropy.
func NewTrainer(cfg Config, hooks ...Hook) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	table := encoding.TableForSize(cfg.BoardSize)
	nnConf := dual.DefaultConf(cfg.BoardSize, table.ActionSpaceSize())
	nnConf.BatchSize = cfg.TrainBatch
	if cfg.Layers > 0 {
		nnConf.SharedLayers = cfg.Layers
	}
	if cfg.DModel > 0 {
		nnConf.FC = cfg.DModel
	}

	network, err := dual.New(nnConf)
	if err != nil {
		return nil, errors.Wrap(err, "train: build network")
	}
	if cfg.LoadModel != "" {
		loaded, _, _, err := LoadCheckpoint(cfg.LoadModel)
		if err != nil {
			return nil, errors.Wrap(err, "train: load initial model")
		}
		weights, err := loaded.ExportWeights()
		_ = loaded.Close()
		if err != nil {
			return nil, err
		}
		if err := network.ImportWeights(weights); err != nil {
			return nil, errors.Wrap(err, "train: import initial model weights")
		}
	}

	return newTrainerWithNetwork(cfg, network, nil, Elapsed{}, hooks...)
}

// Resume rebuilds a Trainer from a saved checkpoint directory,
// restoring model weights, the replay buffer, and the elapsed counters.
func Resume(cfg Config, checkpointDir string, hooks ...Hook) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	network, steps, elapsed, err := LoadCheckpoint(checkpointDir)
	if err != nil {
		return nil, err
	}
	return newTrainerWithNetwork(cfg, network, steps, elapsed, hooks...)
}

func newTrainerWithNetwork(cfg Config, network *dual.Dual, bufferSteps [][]Example, elapsed Elapsed, hooks ...Hook) (*Trainer, error) {
	addr := cfg.OracleAddr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		_ = network.Close()
		return nil, errors.Wrap(err, "train: listen for oracle server")
	}

	server := oracle.NewServer(network)
	httpSrv := &http.Server{Handler: server.Router()}
	go func() {
		_ = httpSrv.Serve(listener)
	}()

	workerCfg := selfplay.WorkerConfig{
		BoardSize:          cfg.BoardSize,
		OracleAddr:         "http://" + listener.Addr().String(),
		SearchC:            float32(cfg.SearchC),
		SearchCutoffProb:   float32(cfg.CutoffProb),
		DirichletAlpha:     cfg.DirichletAlpha,
		DirichletWeight:    cfg.DirichletWeight,
		SimulationsPerMove: cfg.RolloutSimulations,
		MoveTimeLimit:      cfg.MoveTimeLimit,
		MaxPlies:           cfg.RolloutPlyLimit,
		ResignThreshold:    float32(cfg.ResignThreshold),
	}
	engine, err := selfplay.NewMultiprocessSelfPlayEngine(workerCfg, cfg.RolloutWorkers)
	if err != nil {
		_ = httpSrv.Close()
		_ = network.Close()
		return nil, errors.Wrap(err, "train: spawn self-play workers")
	}

	buffer := NewReplayBuffer(cfg.ReplayBufferSteps)
	if bufferSteps != nil {
		buffer.Restore(bufferSteps)
	}

	var schedule Scheduler = Constant(cfg.LearningRate)
	if cfg.LRWarmupSteps > 0 {
		schedule = LinearWarmup{Start: cfg.LearningRate / 10, End: cfg.LearningRate, WarmupSteps: cfg.LRWarmupSteps}
	}

	t := &Trainer{
		cfg:        cfg,
		network:    network,
		server:     server,
		listener:   listener,
		httpSrv:    httpSrv,
		engine:     engine,
		buffer:     buffer,
		lrSchedule: schedule,
		hooks:      hooks,
		state:      TrainState{Model: network, Buffer: buffer, Elapsed: elapsed},
	}
	t.state.ResetStats()
	return t, nil
}

// SetLRSchedule overrides the learning-rate schedule built from the
// config.
func (t *Trainer) SetLRSchedule(s Scheduler) { t.lrSchedule = s }

// OracleAddr returns the address self-play workers reach this
// Trainer's network on.
func (t *Trainer) OracleAddr() string { return t.listener.Addr().String() }

// State exposes the live TrainState, for hooks that need to be wired up
// after construction.
func (t *Trainer) State() *TrainState { return &t.state }

// Run executes the training loop until cfg.Steps is reached or ctx is
// cancelled, grounded on tak/alphazero/trainer.py's train_loop: each
// step alternates a self-play rollout phase (serve mode) with a
// gradient-training phase (train mode), with the hook pipeline invoked
// at each boundary.
func (t *Trainer) Run(ctx context.Context) error {
	if err := t.runHooks(func(h Hook, s *TrainState) error { return h.BeforeRun(s, t.cfg) }); err != nil {
		return err
	}

	for t.state.Elapsed.Step < t.cfg.Steps {
		select {
		case <-ctx.Done():
			return t.finish(ctx.Err())
		default:
		}

		t.state.ResetStats()
		if err := t.runHooks(Hook.BeforeRollout); err != nil {
			return t.finish(err)
		}
		t.server.SetMode(oracle.ServeMode)

		transcripts, err := t.engine.PlayMany(t.cfg.RolloutsPerStep)
		if err != nil {
			return t.finish(err)
		}

		if err := t.runHooks(Hook.BeforeTrain); err != nil {
			return t.finish(err)
		}

		examples := ExamplesFromTranscripts(transcripts)
		kept := t.buffer.AddStep(examples)
		t.state.Stats["rollout_games"] = float64(len(transcripts))
		t.state.Stats["rollout_plies"] = float64(len(examples))
		t.state.Stats["rollout_unique_plies"] = float64(kept)
		t.state.Stats["replay_buffer_plies"] = float64(len(t.buffer.Flatten()))

		t.server.SetMode(oracle.TrainMode)
		loss, err := t.trainStep()
		if err != nil {
			return t.finish(err)
		}
		t.state.Stats["train_loss"] = float64(loss)
		t.noteValueLoss(loss)
		t.server.SetMode(oracle.ServeMode)

		t.state.Elapsed.Step++
		t.state.Elapsed.Epoch++

		if err := t.runHooks(Hook.AfterStep); err != nil {
			return t.finish(err)
		}
		if err := t.runHooks(Hook.Finalize); err != nil {
			return t.finish(err)
		}
		t.logStep()
	}

	return t.finish(nil)
}

// logStep emits one line with every stat the step accumulated, in
// stable key order.
func (t *Trainer) logStep() {
	keys := make([]string, 0, len(t.state.Stats))
	for k := range t.state.Stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	fmt.Fprintf(&b, "step=%d positions=%d", t.state.Elapsed.Step, t.state.Elapsed.Positions)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%.4g", k, t.state.Stats[k])
	}
	log.Print(b.String())
}

func (t *Trainer) finish(cause error) error {
	if err := t.runHooks(Hook.AfterRun); err != nil && cause == nil {
		cause = err
	}
	return cause
}

// noteValueLoss forwards the latest training loss to any MetricsSinkHook
// in the pipeline, so its next AfterStep post reports a fresh value.
func (t *Trainer) noteValueLoss(loss float32) {
	for _, h := range t.hooks {
		if sink, ok := h.(*MetricsSinkHook); ok {
			sink.NoteValueLoss(loss)
		}
	}
}

func (t *Trainer) runHooks(fn func(Hook, *TrainState) error) error {
	for _, h := range t.hooks {
		if err := fn(h, &t.state); err != nil {
			return err
		}
	}
	return nil
}

// trainStep updates the learning rate from the schedule, then runs
// ceil(train_positions/train_batch) minibatches over a shuffled view of
// the whole replay buffer, wrapping (and reshuffling) as needed, and
// returns the final minibatch's loss. Grounded on
// tak/alphazero/trainer.py's train_step minibatch loop.
func (t *Trainer) trainStep() (float32, error) {
	examples := t.buffer.Flatten()
	if len(examples) == 0 {
		return 0, nil
	}
	rand.Shuffle(len(examples), func(i, j int) { examples[i], examples[j] = examples[j], examples[i] })

	lr := t.lrSchedule.Value(t.state.Elapsed.Step)
	t.network.SetLearnRate(lr)
	t.state.Stats["lr"] = lr

	table := encoding.TableForSize(t.cfg.BoardSize)
	actionSpace := table.ActionSpaceSize()
	batchSize := t.network.Config().BatchSize
	minibatches := (t.cfg.TrainPositions + batchSize - 1) / batchSize

	var loss float32
	idx := 0
	for mb := 0; mb < minibatches; mb++ {
		batch := dual.Batch{
			Inputs:   make([]float32, 0, batchSize*dual.VocabSize*dual.SeqLen),
			Policies: make([]float32, 0, batchSize*actionSpace),
			Values:   make([]float32, 0, batchSize),
		}
		for row := 0; row < batchSize; row++ {
			if idx == len(examples) {
				idx = 0
				rand.Shuffle(len(examples), func(i, j int) { examples[i], examples[j] = examples[j], examples[i] })
			}
			ex := examples[idx]
			idx++
			batch.Inputs = append(batch.Inputs, encoding.OneHot(ex.Tokens, dual.VocabSize, dual.SeqLen)...)
			batch.Policies = append(batch.Policies, densePolicy(ex, actionSpace)...)
			batch.Values = append(batch.Values, ex.Value)
		}

		stepLoss, err := t.network.Step(batch)
		if err != nil {
			return 0, errors.Wrap(err, "train: network step")
		}
		loss = stepLoss
		t.state.Elapsed.Positions += batchSize
		if mb == 0 {
			t.state.Stats["train_loss.before"] = float64(stepLoss)
		}
	}
	return loss, nil
}

// densePolicy scatters an Example's sparse (move id, probability)
// pairs into a dense ActionSpace-width vector for the network's policy
// loss.
func densePolicy(ex Example, actionSpace int) []float32 {
	out := make([]float32, actionSpace)
	for i, id := range ex.MoveIDs {
		if id < 0 || id >= actionSpace || i >= len(ex.MoveProbs) {
			continue
		}
		out[id] = ex.MoveProbs[i]
	}
	return out
}

// Close stops the self-play worker pool and the inference server.
func (t *Trainer) Close() error {
	engineErr := t.engine.Stop()
	serverErr := t.server.Close()
	httpErr := t.httpSrv.Close()
	if engineErr != nil {
		return engineErr
	}
	if serverErr != nil {
		return serverErr
	}
	return httpErr
}
