package train

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/alphatak/tak-az/mcts"
	"github.com/alphatak/tak-az/oracle"
	"github.com/alphatak/tak-az/render"
	"github.com/alphatak/tak-az/rules"
	"github.com/pkg/errors"
)

// EvalHook measures the current network against a fixed opponent every
// Freq steps and records win rate and an Elo estimate into the step
// stats. Grounded on tak/alphazero/hooks/eval.py's EvalHook. Two modes:
//
// With DriverCmd set, it shells out to an external match driver
// (taktician-style: `selfplay -size N -games=1 -summary=PATH -openings
// FILE -p1 CMD -p2 CMD`) and parses the summary JSON it produces.
//
// Otherwise it plays Games games in-process between the current model
// and OpponentNet, and writes a PNG of the final position to RunDir for
// visual inspection.
type EvalHook struct {
	Noop

	RunDir string
	Freq   int

	// Subprocess mode.
	DriverCmd string
	Player    string
	Opponent  string
	Openings  string

	// In-process mode.
	Games        int
	BoardSize    int
	Simulations  int
	OpponentNet  mcts.Inferencer
	SearchConfig mcts.Config

	size int // board size the subprocess match runs at; set by BeforeRun
}

func (h *EvalHook) BeforeRun(state *TrainState, cfg Config) error {
	h.size = cfg.BoardSize
	return nil
}

func (h *EvalHook) AfterStep(state *TrainState) error {
	if h.Freq <= 0 || state.Elapsed.Step%h.Freq != 0 {
		return nil
	}
	if h.DriverCmd != "" {
		return h.runSubprocessMatch(state)
	}
	if h.Games <= 0 {
		return nil
	}
	return h.runInProcessMatch(state)
}

// matchSummary mirrors the fields of the driver's summary JSON the hook
// reads; unknown fields are ignored.
type matchSummary struct {
	Stats struct {
		Players []struct {
			Wins int `json:"Wins"`
		} `json:"Players"`
		Ties   int `json:"Ties"`
		Cutoff int `json:"Cutoff"`
		White  int `json:"White"`
		Black  int `json:"Black"`
	} `json:"Stats"`
}

func (h *EvalHook) runSubprocessMatch(state *TrainState) error {
	tmp, err := os.MkdirTemp("", "tak-eval")
	if err != nil {
		return errors.Wrap(err, "train: create eval temp dir")
	}
	defer os.RemoveAll(tmp)
	summaryPath := filepath.Join(tmp, "summary.json")

	size := h.size
	if size == 0 {
		size = h.BoardSize
	}
	args := []string{
		"selfplay",
		"-size", strconv.Itoa(size),
		"-games=1",
		"-summary=" + summaryPath,
	}
	if h.Openings != "" {
		args = append(args, "-openings", h.Openings)
	}
	args = append(args, "-p1", h.Player, "-p2", h.Opponent)

	cmd := exec.Command(h.DriverCmd, args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		log.Printf("train: eval driver failed, skipping eval: %v", err)
		return nil
	}

	raw, err := os.ReadFile(summaryPath)
	if err != nil {
		return errors.Wrap(err, "train: read eval summary")
	}
	var summary matchSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return errors.Wrap(err, "train: parse eval summary")
	}
	if len(summary.Stats.Players) < 2 {
		return errors.New("train: eval summary is missing player stats")
	}

	games := summary.Stats.White + summary.Stats.Black + summary.Stats.Ties + summary.Stats.Cutoff
	if games == 0 {
		return errors.New("train: eval summary reports zero games")
	}
	wins := summary.Stats.Players[0].Wins
	score := (float64(wins) + float64(summary.Stats.Ties)/2) / float64(games)

	state.Stats["eval.win_rate"] = float64(wins) / float64(games)
	state.Stats["eval.elo"] = evalElo(score)
	log.Printf("train: step %d eval score=%.3f elo=%.1f", state.Elapsed.Step, score, evalElo(score))
	return nil
}

func (h *EvalHook) runInProcessMatch(state *TrainState) error {
	challenger := oracle.NewLocal(state.Model)
	wins, draws, losses, lastPos, err := h.playMatch(challenger)
	if err != nil {
		return err
	}

	total := float64(wins + draws + losses)
	score := 0.0
	if total > 0 {
		score = (float64(wins) + 0.5*float64(draws)) / total
	}
	elo := evalElo(score)
	if state.Stats != nil {
		state.Stats["eval.win_rate"] = float64(wins) / total
		state.Stats["eval.elo"] = elo
	}
	log.Printf("train: step %d eval %d/%d/%d (w/d/l) score=%.3f elo-delta=%.1f",
		state.Elapsed.Step, wins, draws, losses, score, elo)

	if lastPos != nil && h.RunDir != "" {
		if err := h.writeBoardImage(state.Elapsed.Step, lastPos); err != nil {
			return err
		}
	}
	return nil
}

func (h *EvalHook) playMatch(challenger mcts.Inferencer) (wins, draws, losses int, lastPos *rules.Position, err error) {
	ctx := context.Background()
	for g := 0; g < h.Games; g++ {
		challengerIsWhite := g%2 == 0
		pos := rules.New(h.BoardSize)

		var white, black mcts.Inferencer
		if challengerIsWhite {
			white, black = challenger, h.OpponentNet
		} else {
			white, black = h.OpponentNet, challenger
		}

		for !pos.Terminal().Over {
			net := white
			if pos.ToMove() == rules.Black {
				net = black
			}
			tree := mcts.NewTree(h.SearchConfig, net, pos, uint64(g)+1)
			if err := tree.Search(ctx, mcts.SearchLimits{Simulations: h.Simulations}); err != nil {
				return 0, 0, 0, nil, err
			}
			move, err := tree.SelectMove()
			if err != nil {
				return 0, 0, 0, nil, err
			}
			next, err := pos.Apply(move)
			if err != nil {
				return 0, 0, 0, nil, err
			}
			pos = next
		}

		result := pos.Terminal()
		lastPos = pos
		switch {
		case result.Winner == rules.NoColor:
			draws++
		case (result.Winner == rules.White) == challengerIsWhite:
			wins++
		default:
			losses++
		}
	}
	return wins, draws, losses, lastPos, nil
}

func (h *EvalHook) writeBoardImage(step int, pos *rules.Position) error {
	dir := filepath.Join(h.RunDir, stepDirName(step))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "train: create eval snapshot directory")
	}
	f, err := os.Create(filepath.Join(dir, "eval_board.png"))
	if err != nil {
		return errors.Wrap(err, "train: create eval_board.png")
	}
	defer f.Close()
	return render.Board(f, pos)
}

// evalElo converts a match score into an Elo rating delta against the
// opponent, grounded on tak/alphazero/hooks/eval.py: -400*log10(1/s-1),
// with the infinities at a 0% or 100% score preserved.
func evalElo(score float64) float64 {
	if score <= 0 {
		return math.Inf(-1)
	}
	if score >= 1 {
		return math.Inf(1)
	}
	return -400 * math.Log10(1/score-1)
}
