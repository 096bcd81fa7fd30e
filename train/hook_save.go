package train

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// SaveNowFile is the sentinel whose presence in the run directory
// forces a snapshot at the next step boundary; the hook deletes it
// after honoring it.
const SaveNowFile = "SAVE_NOW"

// SaveHook periodically snapshots training state to RunDir, grounded on
// tak/alphazero/hooks/saving.py's SavingHook/save_snapshot: each
// snapshot lives under step_NNNNNN/, with a `latest` symlink retargeted
// atomically once the snapshot is fully written. A failed write is
// logged and skipped — `latest` keeps pointing at the last good
// snapshot — rather than aborting the run. The teacher's agogo.go
// SaveAZ/Load contributes the Go-side gob + YAML snapshot-file split.
type SaveHook struct {
	Noop

	RunDir string
	Freq   int
}

func (h *SaveHook) BeforeRun(state *TrainState, cfg Config) error {
	return os.MkdirAll(h.RunDir, 0o755)
}

func (h *SaveHook) AfterStep(state *TrainState) error {
	requested := h.checkAndClearSaveRequest()
	due := h.Freq > 0 && state.Elapsed.Step%h.Freq == 0
	if !due && !requested {
		return nil
	}
	if err := h.save(state); err != nil {
		log.Printf("train: snapshot failed, continuing: %v", err)
	}
	return nil
}

func (h *SaveHook) AfterRun(state *TrainState) error {
	if err := h.save(state); err != nil {
		log.Printf("train: final snapshot failed: %v", err)
	}
	return nil
}

// checkAndClearSaveRequest reports whether an operator dropped a
// SAVE_NOW sentinel into the run directory, deleting it if so.
func (h *SaveHook) checkAndClearSaveRequest() bool {
	if h.RunDir == "" {
		return false
	}
	flag := filepath.Join(h.RunDir, SaveNowFile)
	if _, err := os.Stat(flag); err != nil {
		return false
	}
	_ = os.Remove(flag)
	return true
}

// save writes a step_NNNNNN/ snapshot directory and retargets the
// `latest` symlink to point at it; the link moves only after the full
// snapshot write has succeeded.
func (h *SaveHook) save(state *TrainState) error {
	name := stepDirName(state.Elapsed.Step)
	stepDir := filepath.Join(h.RunDir, name)
	log.Printf("train: saving snapshot to %s", stepDir)
	if err := SaveCheckpoint(stepDir, state.Model, state.Buffer, state.Elapsed); err != nil {
		return err
	}

	latest := filepath.Join(h.RunDir, "latest")
	tmp := latest + ".tmp"
	_ = os.Remove(tmp)
	if err := os.Symlink(name, tmp); err != nil {
		return errors.Wrap(err, "train: create latest symlink")
	}
	if err := os.Rename(tmp, latest); err != nil {
		return errors.Wrap(err, "train: retarget latest symlink")
	}
	return nil
}

func stepDirName(step int) string {
	return fmt.Sprintf("step_%06d", step)
}
