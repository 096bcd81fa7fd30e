package train

import (
	"time"

	"github.com/pkg/errors"
)

// ConfigError reports an invalid training configuration; the trainer
// refuses to start (before spawning any worker) rather than fail
// mid-run.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "train: invalid config: " + e.Field + ": " + e.Reason
}

// Config holds one training run's hyperparameters, grounded on
// tak/alphazero/config.py's Config attrs class. Loaded from a run.yaml
// file via spf13/viper + gopkg.in/yaml.v3, matching niceyeti-tabular's
// FromYaml pattern.
type Config struct {
	BoardSize int `yaml:"size"`

	// Layers and DModel override the network's trunk depth and width;
	// zero keeps the size-derived defaults.
	Layers int    `yaml:"layers"`
	DModel int    `yaml:"d_model"`
	Device string `yaml:"device"`

	LearningRate  float64 `yaml:"lr"`
	LRWarmupSteps int     `yaml:"lr_warmup_steps"`

	DirichletAlpha  float64 `yaml:"dirichlet_alpha"`
	DirichletWeight float64 `yaml:"dirichlet_weight"`
	SearchC         float64 `yaml:"search_c"`
	CutoffProb      float64 `yaml:"cutoff_prob"`

	RolloutWorkers     int           `yaml:"rollout_workers"`
	RolloutSimulations int           `yaml:"rollout_simulations"`
	RolloutsPerStep    int           `yaml:"rollouts_per_step"`
	RolloutPlyLimit    int           `yaml:"rollout_ply_limit"`
	ResignThreshold    float64       `yaml:"rollout_resignation_threshold"`
	MoveTimeLimit      time.Duration `yaml:"move_time_limit"`

	ReplayBufferSteps int `yaml:"replay_buffer_steps"`
	TrainBatch        int `yaml:"train_batch"`
	TrainPositions    int `yaml:"train_positions"`

	SaveFreq int `yaml:"save_freq"`
	TestFreq int `yaml:"test_freq"`
	EvalFreq int `yaml:"eval_freq"`
	Steps    int `yaml:"train_steps"`

	OracleAddr string `yaml:"oracle_addr"`
	JobName    string `yaml:"job_name"`
	LoadModel  string `yaml:"load_model"`
}

// DefaultConfig returns tak/alphazero/config.py's default values.
func DefaultConfig() Config {
	return Config{
		BoardSize:          3,
		LearningRate:       1e-3,
		DirichletAlpha:     1.0,
		DirichletWeight:    0.25,
		SearchC:            4,
		CutoffProb:         1e-6,
		RolloutWorkers:     50,
		RolloutSimulations: 25,
		RolloutsPerStep:    100,
		RolloutPlyLimit:    200,
		ResignThreshold:    0.95,
		ReplayBufferSteps:  4,
		TrainBatch:         64,
		TrainPositions:     1024,
		SaveFreq:           10,
		Steps:              10,
	}
}

// Validate rejects configurations the run could not survive, grounded
// on spec.md §7's ConfigError policy: fail at startup, before any
// worker is spawned.
func (c Config) Validate() error {
	if c.BoardSize < 3 || c.BoardSize > 8 {
		return errors.WithStack(&ConfigError{Field: "size", Reason: "board size must be in 3..8"})
	}
	if c.Steps < 0 {
		return errors.WithStack(&ConfigError{Field: "train_steps", Reason: "must be non-negative"})
	}
	if c.RolloutWorkers <= 0 {
		return errors.WithStack(&ConfigError{Field: "rollout_workers", Reason: "need at least one worker"})
	}
	if c.RolloutsPerStep <= 0 {
		return errors.WithStack(&ConfigError{Field: "rollouts_per_step", Reason: "must be positive"})
	}
	if c.RolloutSimulations <= 0 && c.MoveTimeLimit <= 0 {
		return errors.WithStack(&ConfigError{Field: "rollout_simulations", Reason: "need a simulation or time budget"})
	}
	if c.ReplayBufferSteps <= 0 {
		return errors.WithStack(&ConfigError{Field: "replay_buffer_steps", Reason: "must be positive"})
	}
	if c.TrainBatch <= 0 || c.TrainPositions <= 0 {
		return errors.WithStack(&ConfigError{Field: "train_batch", Reason: "batch and position budgets must be positive"})
	}
	if c.LearningRate <= 0 {
		return errors.WithStack(&ConfigError{Field: "lr", Reason: "must be positive"})
	}
	switch c.Device {
	case "", "cpu", "cuda":
	default:
		return errors.WithStack(&ConfigError{Field: "device", Reason: "must be cpu or cuda"})
	}
	return nil
}
