package train

import (
	"time"

	"github.com/alphatak/tak-az/dualnet"
)

// Elapsed tracks cumulative training progress across resumes, grounded
// on tak/alphazero/stats.py's Elapsed.
type Elapsed struct {
	Step      int `json:"step" yaml:"step"`
	Positions int `json:"positions" yaml:"positions"`
	Epoch     int `json:"epoch" yaml:"epoch"`
}

// TrainState is everything a snapshot needs to resume training exactly
// where it left off — the network, the replay buffer, and the elapsed
// counters — plus the per-step scratch the hook pipeline reads and
// writes. Grounded on tak/alphazero/trainer.py's TrainState.
type TrainState struct {
	Model   *dual.Dual
	Buffer  *ReplayBuffer
	Elapsed Elapsed

	// Stats accumulates one step's metrics; the trainer clears it at
	// the top of each step and logs it at the end, and hooks add their
	// own entries in between.
	Stats map[string]float64

	StepStart  time.Time
	TrainStart time.Time
}

// ResetStats clears the per-step stats dictionary.
func (s *TrainState) ResetStats() {
	s.Stats = map[string]float64{}
}
