// Command train runs an AlphaZero-style training loop for Tak: it
// builds (or resumes) a network, starts its inference server, spawns a
// self-play worker pool against it, and alternates rollout/train steps
// until the configured step count is reached. Grounded on the teacher's
// cmd/train/main.go flag layout (flag package, log.SetFlags), adapted
// from the teacher's one-shot LearnAZ/SaveAZ call pair to the
// long-running, hook-driven loop in package train.
//
// Resumption: if <run-dir>/run.yaml exists it is loaded verbatim and
// the tuning flags are ignored; if <run-dir>/latest exists, training
// state (weights, optimizer-facing counters, replay buffer) is restored
// from that snapshot.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alphatak/tak-az/selfplay"
	"github.com/alphatak/tak-az/train"
)

var (
	runDir = flag.String("run-dir", "runs/default", "directory for run.yaml, checkpoints and snapshots")

	size   = flag.Int("size", 3, "board size")
	layers = flag.Int("layers", 0, "network trunk depth (0 = size-derived default)")
	dModel = flag.Int("d_model", 0, "network trunk width (0 = size-derived default)")
	device = flag.String("device", "cpu", "compute device {cpu,cuda}")

	batch = flag.Int("batch", 64, "training minibatch size")
	lr    = flag.Float64("lr", 1e-3, "learning rate")
	steps = flag.Int("steps", 10, "training steps to run")

	rolloutsPerStep   = flag.Int("rollouts-per-step", 100, "self-play games per step")
	replayBufferSteps = flag.Int("replay-buffer-steps", 4, "steps of history retained in the replay buffer")
	trainPositions    = flag.Int("train-positions", 1024, "positions consumed per training phase")

	rolloutWorkers     = flag.Int("rollout-workers", 50, "self-play worker processes")
	rolloutSimulations = flag.Int("rollout-simulations", 25, "MCTS simulations per rollout move")
	rolloutPlyLimit    = flag.Int("rollout-ply-limit", 200, "declare a draw past this many plies")
	resignThreshold    = flag.Float64("resign-threshold", 0.95, "resign when the root value is this decisive")

	noiseAlpha  = flag.Float64("noise-alpha", 1.0, "Dirichlet root-noise concentration (0 disables)")
	noiseWeight = flag.Float64("noise-weight", 0.25, "root-noise mixing weight")
	searchC     = flag.Float64("C", 4, "search exploration constant")

	saveFreq = flag.Int("save-freq", 10, "snapshot every N steps")
	testData = flag.String("test-data", "", "held-out example file for the test-loss hook")
	testFreq = flag.Int("test-freq", 0, "run the test-loss hook every N steps (0 disables)")
	evalFreq = flag.Int("eval-freq", 0, "run the eval hook every N steps (0 disables)")

	evalDriver   = flag.String("eval-driver", "", "external match driver command for the eval hook")
	evalOpponent = flag.String("eval-opponent", "", "opponent engine command passed to the eval driver as -p2")
	evalPlayer   = flag.String("eval-player", "", "engine command fronting the current model, passed as -p1")
	evalOpenings = flag.String("eval-openings", "", "openings file passed to the eval driver")

	jobName   = flag.String("job-name", "", "job name reported to the metrics sink")
	loadModel = flag.String("load-model", "", "initial checkpoint to load when starting fresh")
	metricsTo = flag.String("metrics-webhook", "", "URL to POST per-step stats to")
)

func main() {
	log.SetFlags(log.Ltime)

	// NewTrainer's self-play engine re-execs os.Executable() — this
	// binary's own path — with WorkerFlag, so this binary must be able
	// to play the worker role when re-invoked that way.
	if len(os.Args) > 1 && os.Args[1] == selfplay.WorkerFlag {
		if err := selfplay.RunWorkerFromStdio(os.Stdin, os.Stdout); err != nil {
			log.Fatalf("cmd/train: selfplay worker: %v", err)
		}
		return
	}
	flag.Parse()

	cfg, fresh := loadOrBuildConfig()

	hooks := []train.Hook{
		&train.TimingHook{},
		&train.SaveHook{RunDir: *runDir, Freq: cfg.SaveFreq},
	}
	if cfg.TestFreq > 0 && *testData != "" {
		examples, err := loadTestExamples(*testData)
		if err != nil {
			log.Fatalf("cmd/train: load test data: %v", err)
		}
		hooks = append(hooks, &train.TestLossHook{Freq: cfg.TestFreq, Examples: examples})
	}
	if cfg.EvalFreq > 0 && *evalDriver != "" {
		hooks = append(hooks, &train.EvalHook{
			RunDir:    *runDir,
			Freq:      cfg.EvalFreq,
			DriverCmd: *evalDriver,
			Player:    *evalPlayer,
			Opponent:  *evalOpponent,
			Openings:  *evalOpenings,
		})
	}
	if *metricsTo != "" {
		hooks = append(hooks, &train.MetricsSinkHook{WebhookURL: *metricsTo, JobName: cfg.JobName})
	}

	var trainer *train.Trainer
	var err error
	latest, lerr := train.LatestCheckpointDir(*runDir)
	if lerr != nil {
		log.Fatalf("cmd/train: resolve latest checkpoint: %v", lerr)
	}
	if latest != "" {
		log.Printf("cmd/train: resuming from %s", latest)
		trainer, err = train.Resume(cfg, latest, hooks...)
	} else {
		trainer, err = train.NewTrainer(cfg, hooks...)
	}
	if err != nil {
		log.Fatalf("cmd/train: %v", err)
	}
	defer trainer.Close()

	if fresh {
		if err := os.MkdirAll(*runDir, 0o755); err != nil {
			log.Fatalf("cmd/train: create run dir: %v", err)
		}
		if err := cfg.WriteYaml(filepath.Join(*runDir, "run.yaml")); err != nil {
			log.Fatalf("cmd/train: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("cmd/train: job=%s board_size=%d oracle=%s", cfg.JobName, cfg.BoardSize, trainer.OracleAddr())
	if err := trainer.Run(ctx); err != nil {
		log.Fatalf("cmd/train: training run failed: %v", err)
	}
	log.Print("cmd/train: done")
}

// loadOrBuildConfig prefers an existing <run-dir>/run.yaml verbatim and
// otherwise assembles a Config from the flags; fresh reports whether a
// new run.yaml should be written.
func loadOrBuildConfig() (train.Config, bool) {
	runYaml := filepath.Join(*runDir, "run.yaml")
	if _, err := os.Stat(runYaml); err == nil {
		cfg, err := train.FromYaml(runYaml)
		if err != nil {
			log.Fatalf("cmd/train: load %s: %v", runYaml, err)
		}
		log.Printf("cmd/train: using existing %s, ignoring tuning flags", runYaml)
		return cfg, false
	}

	cfg := train.DefaultConfig()
	cfg.BoardSize = *size
	cfg.Layers = *layers
	cfg.DModel = *dModel
	cfg.Device = *device
	cfg.TrainBatch = *batch
	cfg.LearningRate = *lr
	cfg.Steps = *steps
	cfg.RolloutsPerStep = *rolloutsPerStep
	cfg.ReplayBufferSteps = *replayBufferSteps
	cfg.TrainPositions = *trainPositions
	cfg.RolloutWorkers = *rolloutWorkers
	cfg.RolloutSimulations = *rolloutSimulations
	cfg.RolloutPlyLimit = *rolloutPlyLimit
	cfg.ResignThreshold = *resignThreshold
	cfg.DirichletAlpha = *noiseAlpha
	cfg.DirichletWeight = *noiseWeight
	cfg.SearchC = *searchC
	cfg.SaveFreq = *saveFreq
	cfg.TestFreq = *testFreq
	cfg.EvalFreq = *evalFreq
	cfg.JobName = *jobName
	cfg.LoadModel = *loadModel
	return cfg, true
}

// loadTestExamples reads a held-out dataset written by the selfplay
// CLI's -write-games flag: one JSON transcript per line.
func loadTestExamples(path string) ([]train.Example, error) {
	transcripts, err := selfplay.ReadTranscripts(path)
	if err != nil {
		return nil, err
	}
	return train.ExamplesFromTranscripts(transcripts), nil
}
