package train

// Hook observes the training loop at fixed points, grounded on
// tak/alphazero/hooks.py / tak/alphazero/hooks/*.py: before_run,
// before_rollout, before_train, after_step, after_run, finalize. Each
// method is optional in spirit — embed Noop to implement only the ones
// a hook cares about. The trainer invokes every registered hook in
// registration order at each point.
type Hook interface {
	BeforeRun(state *TrainState, cfg Config) error
	BeforeRollout(state *TrainState) error
	BeforeTrain(state *TrainState) error
	AfterStep(state *TrainState) error
	AfterRun(state *TrainState) error
	Finalize(state *TrainState) error
}

// Noop implements Hook with no-op methods; embed it in a hook that only
// needs to override a subset.
type Noop struct{}

func (Noop) BeforeRun(*TrainState, Config) error { return nil }
func (Noop) BeforeRollout(*TrainState) error     { return nil }
func (Noop) BeforeTrain(*TrainState) error       { return nil }
func (Noop) AfterStep(*TrainState) error         { return nil }
func (Noop) AfterRun(*TrainState) error          { return nil }
func (Noop) Finalize(*TrainState) error          { return nil }
