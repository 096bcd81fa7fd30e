package selfplay

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// WorkerFlag is the internal flag an orchestrator binary recognizes to
// switch into worker mode when re-exec'd by the engine.
const WorkerFlag = "-selfplay-worker"

// WorkerCrashError reports that a worker process exited or misbehaved
// unexpectedly.
type WorkerCrashError struct {
	WorkerIndex int
	Err         error
}

func (e *WorkerCrashError) Error() string {
	return "selfplay: worker crashed"
}
func (e *WorkerCrashError) Unwrap() error { return e.Err }

// job is one unit of work handed to a worker: play N games.
type job struct {
	count int
}

// MultiprocessSelfPlayEngine spawns NumWorkers real child OS processes
// (re-execs the running binary with WorkerFlag), feeds them
// WorkerConfig over stdin, and collects Transcripts over stdout.
// Grounded on tak/self_play.py's WorkerJob/entrypoint/play_many_games
// for the queue/crash-detection shape; per spec.md §9's re-architecture
// note, workers here are genuine OS processes rather than goroutines,
// so that each has independent RNG state and a crash cannot take down
// the orchestrator.
type MultiprocessSelfPlayEngine struct {
	cfg        WorkerConfig
	numWorkers int

	cmds  chan job
	games chan *Transcript

	shutdown  chan struct{}
	crashed   chan struct{}
	once      sync.Once
	crashOnce sync.Once

	wg sync.WaitGroup

	mu    sync.Mutex
	procs []*exec.Cmd
	errs  *multierror.Error
}

// NewMultiprocessSelfPlayEngine spawns numWorkers worker processes, each
// configured with cfg. The command queue is bounded at 2*numWorkers and
// the transcript queue at numWorkers, backpressuring the dispatcher the
// way tak/self_play.py's multiprocessing queues do.
func NewMultiprocessSelfPlayEngine(cfg WorkerConfig, numWorkers int) (*MultiprocessSelfPlayEngine, error) {
	if numWorkers <= 0 {
		return nil, errors.New("selfplay: need at least one worker")
	}
	e := &MultiprocessSelfPlayEngine{
		cfg:        cfg,
		numWorkers: numWorkers,
		cmds:       make(chan job, 2*numWorkers),
		games:      make(chan *Transcript, numWorkers),
		shutdown:   make(chan struct{}),
		crashed:    make(chan struct{}),
	}
	for i := 0; i < numWorkers; i++ {
		if err := e.spawn(i); err != nil {
			_ = e.Stop()
			return nil, err
		}
	}
	return e, nil
}

func (e *MultiprocessSelfPlayEngine) spawn(index int) error {
	exe, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "selfplay: resolve own executable")
	}

	cmd := exec.Command(exe, WorkerFlag)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errors.Wrap(err, "selfplay: open worker stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "selfplay: open worker stdout")
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "selfplay: start worker process")
	}
	e.mu.Lock()
	e.procs = append(e.procs, cmd)
	e.mu.Unlock()

	enc := json.NewEncoder(stdin)
	cfg := e.cfg
	if cfg.Seed != 0 {
		// A pinned seed still must not make sibling workers identical.
		cfg.Seed += uint64(index)
	}
	if err := enc.Encode(cfg); err != nil {
		return errors.Wrap(err, "selfplay: send worker config")
	}

	e.wg.Add(1)
	go e.driveWorker(index, cmd, stdin, stdout, enc)
	return nil
}

func (e *MultiprocessSelfPlayEngine) driveWorker(index int, cmd *exec.Cmd, stdin io.WriteCloser, stdout io.Reader, enc *json.Encoder) {
	defer e.wg.Done()
	defer stdin.Close()

	dec := json.NewDecoder(bufio.NewReader(stdout))

	for {
		select {
		case <-e.shutdown:
			_ = enc.Encode(Command{Shutdown: true})
			_ = cmd.Wait()
			return
		case j := <-e.cmds:
			if err := enc.Encode(Command{Play: j.count}); err != nil {
				e.recordCrash(index, err)
				_ = cmd.Process.Kill()
				return
			}
			for i := 0; i < j.count; i++ {
				var msg WorkerMessage
				if err := dec.Decode(&msg); err != nil {
					e.recordCrash(index, err)
					_ = cmd.Process.Kill()
					return
				}
				if msg.Err != "" {
					// A game-level failure (oracle unreachable after
					// retry, invariant failure) fails the whole step.
					e.recordCrash(index, errors.New(msg.Err))
					_ = cmd.Process.Kill()
					return
				}
				select {
				case e.games <- msg.Transcript:
				case <-e.shutdown:
					return
				}
			}
		}
	}
}

func (e *MultiprocessSelfPlayEngine) recordCrash(index int, err error) {
	e.mu.Lock()
	e.errs = multierror.Append(e.errs, &WorkerCrashError{WorkerIndex: index, Err: err})
	e.mu.Unlock()
	e.crashOnce.Do(func() { close(e.crashed) })
}

// killAll force-kills every worker process; used when a step fails and
// the survivors' in-flight games are worthless.
func (e *MultiprocessSelfPlayEngine) killAll() {
	e.mu.Lock()
	procs := append([]*exec.Cmd(nil), e.procs...)
	e.mu.Unlock()
	for _, p := range procs {
		if p.Process != nil {
			_ = p.Process.Kill()
		}
	}
}

// PlayMany requests n games in total across the worker pool and blocks
// until all of them are collected, polling for worker crashes on a
// one-second cycle the way tak/self_play.py's play_many_games polls
// exit codes. Any crash kills the remaining workers and fails the call.
func (e *MultiprocessSelfPlayEngine) PlayMany(n int) ([]*Transcript, error) {
	remaining := n
	per := (n + e.numWorkers - 1) / e.numWorkers

	out := make([]*Transcript, 0, n)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for len(out) < n {
		var dispatch chan job
		count := per
		if remaining > 0 {
			dispatch = e.cmds
			if count > remaining {
				count = remaining
			}
		}
		select {
		case dispatch <- job{count: count}:
			remaining -= count
		case t := <-e.games:
			out = append(out, t)
		case <-ticker.C:
			// Wake up to check the crash channel below even if no
			// worker is producing.
		case <-e.crashed:
			e.killAll()
			return nil, e.Err()
		case <-e.shutdown:
			return nil, errors.New("selfplay: engine is shutting down")
		}
		select {
		case <-e.crashed:
			e.killAll()
			return nil, e.Err()
		default:
		}
	}
	return out, nil
}

// Err returns the worker-crash errors recorded so far, if any.
func (e *MultiprocessSelfPlayEngine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.errs == nil {
		return nil
	}
	return e.errs.ErrorOrNil()
}

// Stop signals all workers to shut down and waits for them to exit,
// aggregating any errors with go-multierror, grounded on the teacher's
// agent.go Close.
func (e *MultiprocessSelfPlayEngine) Stop() error {
	e.once.Do(func() { close(e.shutdown) })
	e.wg.Wait()
	return e.Err()
}
