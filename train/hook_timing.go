package train

import "time"

// TimingHook records wall-clock durations of the rollout and train
// phases of each step into the step stats, grounded on
// tak/alphazero/hooks.py's TimingHook.
type TimingHook struct {
	Noop
}

func (h *TimingHook) BeforeRollout(state *TrainState) error {
	state.StepStart = time.Now()
	return nil
}

func (h *TimingHook) BeforeTrain(state *TrainState) error {
	state.Stats["rollout_time"] = time.Since(state.StepStart).Seconds()
	state.TrainStart = time.Now()
	return nil
}

func (h *TimingHook) AfterStep(state *TrainState) error {
	now := time.Now()
	state.Stats["train_time"] = now.Sub(state.TrainStart).Seconds()
	state.Stats["step_time"] = now.Sub(state.StepStart).Seconds()
	return nil
}
