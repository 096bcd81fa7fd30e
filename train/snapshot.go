package train

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/alphatak/tak-az/dualnet"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Snapshot file layout under a step_NNNNNN directory: the model config
// as YAML, the weight tensors and replay buffer as gob, and the elapsed
// counters as YAML. Grounded on tak/alphazero/hooks/saving.py's
// save_snapshot file set, with the teacher's agogo.go SaveAZ
// contributing the gob-for-weights idiom.
const (
	configFile  = "config.yaml"
	modelFile   = "model.gob"
	replayFile  = "replay_buffer.gob"
	elapsedFile = "elapsed.yaml"
)

// SaveCheckpoint writes net's config and weights, the replay buffer,
// and the elapsed counters to dir.
func SaveCheckpoint(dir string, net *dual.Dual, buffer *ReplayBuffer, elapsed Elapsed) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "train: create checkpoint directory")
	}

	confBytes, err := yaml.Marshal(net.Config())
	if err != nil {
		return errors.Wrap(err, "train: marshal model config")
	}
	if err := os.WriteFile(filepath.Join(dir, configFile), confBytes, 0o644); err != nil {
		return errors.Wrap(err, "train: write config.yaml")
	}

	weights, err := net.ExportWeights()
	if err != nil {
		return errors.Wrap(err, "train: export weights")
	}
	if err := writeGob(filepath.Join(dir, modelFile), weights); err != nil {
		return err
	}

	var steps [][]Example
	if buffer != nil {
		steps = buffer.Steps()
	}
	if err := writeGob(filepath.Join(dir, replayFile), steps); err != nil {
		return err
	}

	elapsedBytes, err := yaml.Marshal(elapsed)
	if err != nil {
		return errors.Wrap(err, "train: marshal elapsed counters")
	}
	if err := os.WriteFile(filepath.Join(dir, elapsedFile), elapsedBytes, 0o644); err != nil {
		return errors.Wrap(err, "train: write elapsed.yaml")
	}
	return nil
}

func writeGob(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "train: create %s", filepath.Base(path))
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		return errors.Wrapf(err, "train: gob-encode %s", filepath.Base(path))
	}
	return nil
}

func readGob(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "train: open %s", filepath.Base(path))
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return errors.Wrapf(err, "train: gob-decode %s", filepath.Base(path))
	}
	return nil
}

// LoadCheckpoint reconstructs a Dual network, the replay-buffer steps,
// and the elapsed counters saved in dir.
func LoadCheckpoint(dir string) (*dual.Dual, [][]Example, Elapsed, error) {
	confBytes, err := os.ReadFile(filepath.Join(dir, configFile))
	if err != nil {
		return nil, nil, Elapsed{}, errors.Wrap(err, "train: read config.yaml")
	}
	var conf dual.Config
	if err := yaml.Unmarshal(confBytes, &conf); err != nil {
		return nil, nil, Elapsed{}, errors.Wrap(err, "train: unmarshal config.yaml")
	}

	net, err := dual.New(conf)
	if err != nil {
		return nil, nil, Elapsed{}, errors.Wrap(err, "train: rebuild network from checkpoint config")
	}

	var weights [][]float32
	if err := readGob(filepath.Join(dir, modelFile), &weights); err != nil {
		return nil, nil, Elapsed{}, err
	}
	if err := net.ImportWeights(weights); err != nil {
		return nil, nil, Elapsed{}, errors.Wrap(err, "train: import checkpoint weights")
	}

	var steps [][]Example
	if err := readGob(filepath.Join(dir, replayFile), &steps); err != nil {
		// Older snapshots may predate buffer persistence; resume with
		// an empty buffer rather than refuse to start.
		steps = nil
	}

	elapsedBytes, err := os.ReadFile(filepath.Join(dir, elapsedFile))
	if err != nil {
		return nil, nil, Elapsed{}, errors.Wrap(err, "train: read elapsed.yaml")
	}
	var elapsed Elapsed
	if err := yaml.Unmarshal(elapsedBytes, &elapsed); err != nil {
		return nil, nil, Elapsed{}, errors.Wrap(err, "train: unmarshal elapsed.yaml")
	}
	return net, steps, elapsed, nil
}

// LatestCheckpointDir resolves the `latest` symlink SaveHook maintains
// under runDir, or "" if none exists yet. Relative link targets resolve
// against runDir.
func LatestCheckpointDir(runDir string) (string, error) {
	latest := filepath.Join(runDir, "latest")
	target, err := os.Readlink(latest)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrap(err, "train: resolve latest checkpoint symlink")
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(runDir, target)
	}
	return target, nil
}
