package train

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveHookRetargetsLatestSymlink(t *testing.T) {
	dir := t.TempDir()
	net := testNetwork(t)
	defer net.Close()

	h := &SaveHook{RunDir: dir, Freq: 1}
	state := &TrainState{Model: net, Elapsed: Elapsed{Step: 1}}

	if err := h.AfterStep(state); err != nil {
		t.Fatal(err)
	}
	first, err := os.Readlink(filepath.Join(dir, "latest"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(first) != "step_000001" {
		t.Fatalf("expected latest to point at step_000001, got %s", first)
	}

	state.Elapsed.Step = 2
	if err := h.AfterStep(state); err != nil {
		t.Fatal(err)
	}
	second, err := os.Readlink(filepath.Join(dir, "latest"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(second) != "step_000002" {
		t.Fatalf("expected latest to retarget to step_000002, got %s", second)
	}
}

func TestSaveHookSkipsNonFreqSteps(t *testing.T) {
	dir := t.TempDir()
	net := testNetwork(t)
	defer net.Close()

	h := &SaveHook{RunDir: dir, Freq: 5}
	state := &TrainState{Model: net, Elapsed: Elapsed{Step: 3}}

	if err := h.AfterStep(state); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "step_000003")); !os.IsNotExist(err) {
		t.Fatal("expected step 3 to be skipped for Freq=5")
	}
}
