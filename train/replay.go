// Package train implements the outer training loop: the replay buffer,
// the hook pipeline, and snapshot/resume. Grounded on
// tak/alphazero/trainer.py (TrainState, train_step, save/load) and
// tak/alphazero/hooks/*.py; the teacher's agogo.go contributes the Go
// gob+JSON snapshot-file idiom.
package train

import (
	"github.com/alphatak/tak-az/encoding"
	"github.com/alphatak/tak-az/selfplay"
)

// Example is one training position: its token encoding (the network's
// input), the search policy target over move ids, the bootstrapped
// value target, and the final game result from the mover's perspective.
type Example struct {
	Size      int
	Tokens    []encoding.Token
	MoveIDs   []int
	MoveProbs []float32
	Value     float32
	Result    float32
}

// ReplayBuffer holds the last maxSteps steps worth of self-play
// examples, evicting the oldest step (FIFO) once full, and merges
// repeated positions within a step by averaging their targets.
// Grounded on tak/alphazero/trainer.py's train_step: replay_buffer is a
// list of per-step batches, dropped from the front once longer than
// replay_buffer_steps, with a dedup count taken over a set of tuples.
type ReplayBuffer struct {
	maxSteps int
	steps    [][]Example
}

// NewReplayBuffer returns an empty buffer retaining at most maxSteps
// steps of examples.
func NewReplayBuffer(maxSteps int) *ReplayBuffer {
	return &ReplayBuffer{maxSteps: maxSteps}
}

// AddStep appends one step's worth of self-play examples (typically the
// flattened transcripts of one rollout round), evicting the oldest step
// if the buffer is now over capacity. It returns the post-dedup example
// count for the step's stats.
func (b *ReplayBuffer) AddStep(examples []Example) int {
	deduped := dedupStep(examples)
	b.steps = append(b.steps, deduped)
	if b.maxSteps > 0 {
		for len(b.steps) > b.maxSteps {
			b.steps = b.steps[1:]
		}
	}
	return len(deduped)
}

// dedupStep merges examples that share the same (size, token encoding)
// position key within a single step: each target field of a merged row
// is the arithmetic mean of its occurrences. The per-position move-id
// sets are identical for identical positions, so policy vectors average
// elementwise.
func dedupStep(examples []Example) []Example {
	index := map[string]int{}
	counts := []int{}
	var out []Example
	for _, ex := range examples {
		key := exampleKey(ex)
		i, ok := index[key]
		if !ok {
			cp := ex
			cp.MoveProbs = append([]float32(nil), ex.MoveProbs...)
			index[key] = len(out)
			counts = append(counts, 1)
			out = append(out, cp)
			continue
		}
		counts[i]++
		n := float32(counts[i])
		prev := &out[i]
		prev.Value += (ex.Value - prev.Value) / n
		prev.Result += (ex.Result - prev.Result) / n
		for j := range prev.MoveProbs {
			if j < len(ex.MoveProbs) {
				prev.MoveProbs[j] += (ex.MoveProbs[j] - prev.MoveProbs[j]) / n
			}
		}
	}
	return out
}

func exampleKey(ex Example) string {
	key := make([]byte, 0, 1+len(ex.Tokens))
	key = append(key, byte(ex.Size))
	for _, tok := range ex.Tokens {
		key = append(key, byte(tok))
	}
	return string(key)
}

// Flatten returns every retained example across all steps, for building
// a training minibatch iterator.
func (b *ReplayBuffer) Flatten() []Example {
	var out []Example
	for _, step := range b.steps {
		out = append(out, step...)
	}
	return out
}

// Len returns the number of retained steps.
func (b *ReplayBuffer) Len() int { return len(b.steps) }

// Steps exposes the retained per-step batches for snapshotting.
func (b *ReplayBuffer) Steps() [][]Example { return b.steps }

// Restore replaces the buffer's contents with previously snapshotted
// steps, trimming to capacity from the oldest end.
func (b *ReplayBuffer) Restore(steps [][]Example) {
	b.steps = steps
	if b.maxSteps > 0 {
		for len(b.steps) > b.maxSteps {
			b.steps = b.steps[1:]
		}
	}
}

// ExamplesFromTranscripts flattens a batch of finished self-play games
// into training examples, one per ply, pairing each ply's bootstrapped
// search value with the game's final result.
func ExamplesFromTranscripts(transcripts []*selfplay.Transcript) []Example {
	var out []Example
	for _, t := range transcripts {
		for i, ply := range t.Plies {
			out = append(out, Example{
				Size:      t.Size,
				Tokens:    ply.Tokens,
				MoveIDs:   ply.MoveIDs,
				MoveProbs: ply.MoveProbs,
				Value:     ply.Value,
				Result:    t.Outcome(i),
			})
		}
	}
	return out
}
