package train

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alphatak/tak-az/dualnet"
	"github.com/alphatak/tak-az/encoding"
)

func testNetwork(t *testing.T) *dual.Dual {
	t.Helper()
	conf := dual.DefaultConf(4, 10)
	conf.BatchSize = 1
	net, err := dual.New(conf)
	if err != nil {
		t.Fatal(err)
	}
	return net
}

func TestSaveLoadCheckpointRoundTrips(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "step_000001")

	net := testNetwork(t)
	defer net.Close()

	wantWeights, err := net.ExportWeights()
	if err != nil {
		t.Fatal(err)
	}

	buffer := NewReplayBuffer(2)
	buffer.AddStep([]Example{{Size: 4, Tokens: []encoding.Token{1, 2}, MoveIDs: []int{3}, MoveProbs: []float32{1}, Value: 0.5, Result: 1}})

	if err := SaveCheckpoint(dir, net, buffer, Elapsed{Step: 1, Positions: 42, Epoch: 1}); err != nil {
		t.Fatal(err)
	}

	loaded, steps, elapsed, err := LoadCheckpoint(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer loaded.Close()

	if elapsed.Step != 1 || elapsed.Positions != 42 || elapsed.Epoch != 1 {
		t.Fatalf("unexpected elapsed counters: %+v", elapsed)
	}
	if len(steps) != 1 || len(steps[0]) != 1 {
		t.Fatalf("expected the replay buffer to round-trip, got %v", steps)
	}
	if steps[0][0].Value != 0.5 || steps[0][0].Result != 1 {
		t.Fatalf("replay example targets did not survive the round trip: %+v", steps[0][0])
	}

	gotWeights, err := loaded.ExportWeights()
	if err != nil {
		t.Fatal(err)
	}
	for i := range wantWeights {
		for j := range wantWeights[i] {
			if wantWeights[i][j] != gotWeights[i][j] {
				t.Fatalf("weight %d[%d] mismatch after checkpoint round trip", i, j)
			}
		}
	}
}

func TestLatestCheckpointDirReturnsEmptyWhenMissing(t *testing.T) {
	dir, err := LatestCheckpointDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if dir != "" {
		t.Fatalf("expected empty result for a run directory with no checkpoints, got %q", dir)
	}
}

func TestLatestCheckpointDirResolvesRelativeLink(t *testing.T) {
	runDir := t.TempDir()
	stepDir := filepath.Join(runDir, "step_000003")
	if err := os.MkdirAll(stepDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("step_000003", filepath.Join(runDir, "latest")); err != nil {
		t.Fatal(err)
	}

	dir, err := LatestCheckpointDir(runDir)
	if err != nil {
		t.Fatal(err)
	}
	if dir != stepDir {
		t.Fatalf("expected %q, got %q", stepDir, dir)
	}
}
