package selfplay

import "time"

// WorkerConfig is the JSON-serialized configuration passed to a spawned
// worker process's stdin on startup, per spec.md §9's guidance to pass
// serialized config through spawn arguments and have the child construct
// all state from scratch rather than inherit it.
type WorkerConfig struct {
	BoardSize int `json:"board_size"`

	OracleAddr string `json:"oracle_addr"`

	SearchC          float32 `json:"search_c"`
	SearchCutoffProb float32 `json:"search_cutoff_prob"`
	DirichletAlpha   float64 `json:"dirichlet_alpha"`
	DirichletWeight  float64 `json:"dirichlet_weight"`

	SimulationsPerMove int           `json:"simulations_per_move"`
	MoveTimeLimit      time.Duration `json:"move_time_limit"`

	// MaxPlies caps game length; a game that reaches it is recorded as
	// a draw by cutoff.
	MaxPlies int `json:"max_plies"`

	// ResignThreshold stops a game once the root's expansion value is
	// at least this decisive in either direction; zero disables
	// resignation.
	ResignThreshold float32 `json:"resign_threshold"`

	// Seed pins the worker's search RNG; zero means the worker seeds
	// itself from process entropy at startup.
	Seed uint64 `json:"seed"`
}

// Command is sent from the orchestrator to a worker over its stdin
// command channel.
type Command struct {
	// Play requests N additional games be played and their transcripts
	// returned.
	Play int `json:"play,omitempty"`
	// Shutdown requests the worker exit cleanly once any in-flight game
	// finishes.
	Shutdown bool `json:"shutdown,omitempty"`
}

// WorkerMessage is sent from a worker to the orchestrator over its
// stdout transcript channel: exactly one of Transcript or Err is set.
type WorkerMessage struct {
	Transcript *Transcript `json:"transcript,omitempty"`
	Err        string      `json:"err,omitempty"`
}
