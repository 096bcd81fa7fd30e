package selfplay

import (
	"context"
	"time"

	"github.com/alphatak/tak-az/encoding"
	"github.com/alphatak/tak-az/mcts"
	"github.com/alphatak/tak-az/rules"
)

// Runner plays games against an Inferencer inside a single process — the
// logic a spawned worker process runs in a loop, factored out of main()
// so it can also be exercised directly by tests and by an in-process
// (non-multiprocess) caller.
type Runner struct {
	cfg WorkerConfig
	net mcts.Inferencer
}

// NewRunner returns a Runner that plays games per cfg against net.
func NewRunner(cfg WorkerConfig, net mcts.Inferencer) *Runner {
	return &Runner{cfg: cfg, net: net}
}

// PlayOne plays a single game to completion (or MaxPlies, declaring a
// draw), returning its transcript. Grounded on tak/self_play.py's
// play_one_game: each ply searches, records the regularized policy and
// the root's bootstrapped value as training targets, then samples the
// move to play from that same policy.
func (r *Runner) PlayOne(ctx context.Context) (*Transcript, error) {
	pos := rules.New(r.cfg.BoardSize)
	tree := mcts.NewTree(r.searchConfig(), r.net, pos, r.cfg.Seed)

	transcript := &Transcript{Size: r.cfg.BoardSize}

	for ply := 0; ; ply++ {
		if r.cfg.MaxPlies > 0 && ply >= r.cfg.MaxPlies {
			transcript.Result = rules.Result{Over: true, Reason: rules.Cutoff, Winner: rules.NoColor}
			return transcript, nil
		}
		if res := pos.Terminal(); res.Over {
			transcript.Result = res
			return transcript, nil
		}

		limits := mcts.SearchLimits{
			Deadline:    r.cfg.MoveTimeLimit,
			Simulations: r.cfg.SimulationsPerMove,
		}
		if limits.Deadline == 0 && limits.Simulations == 0 {
			limits.Deadline = time.Second
		}
		if err := tree.Search(ctx, limits); err != nil {
			return nil, err
		}

		if moverWins, resign := tree.ShouldResign(r.cfg.ResignThreshold); resign {
			winner := pos.ToMove()
			if !moverWins {
				winner = winner.Flip()
			}
			transcript.Result = rules.Result{Over: true, Reason: rules.Resignation, Winner: winner}
			return transcript, nil
		}

		ids, probs, err := tree.TreeProbs()
		if err != nil {
			return nil, err
		}
		tokens := encoding.Encode(pos)

		move, err := tree.SampleMove()
		if err != nil {
			return nil, err
		}

		transcript.Plies = append(transcript.Plies, Ply{
			Tokens:    tokens,
			MoveIDs:   ids,
			MoveProbs: probs,
			Value:     tree.Root().MeanValue(),
			Move:      move,
		})

		next, err := pos.Apply(move)
		if err != nil {
			return nil, err
		}
		pos = next

		if err := tree.UpdateRoot(move); err != nil {
			return nil, err
		}
	}
}

func (r *Runner) searchConfig() mcts.Config {
	cfg := mcts.DefaultConfig()
	if r.cfg.SearchC > 0 {
		cfg.C = r.cfg.SearchC
	}
	if r.cfg.SearchCutoffProb > 0 {
		cfg.CutoffProb = r.cfg.SearchCutoffProb
	}
	cfg.DirichletAlpha = r.cfg.DirichletAlpha
	cfg.DirichletWeight = r.cfg.DirichletWeight
	return cfg
}
