package train

import "testing"

func TestLinearWarmupRampsThenHolds(t *testing.T) {
	s := LinearWarmup{Start: 0, End: 1, WarmupSteps: 10}
	if got := s.Value(0); got != 0 {
		t.Fatalf("expected start value 0, got %f", got)
	}
	if got := s.Value(5); got != 0.5 {
		t.Fatalf("expected midpoint value 0.5, got %f", got)
	}
	if got := s.Value(10); got != 1 {
		t.Fatalf("expected end value 1 at warmup boundary, got %f", got)
	}
	if got := s.Value(20); got != 1 {
		t.Fatalf("expected value to hold at 1 past warmup, got %f", got)
	}
}

func TestConstantScheduleIgnoresStep(t *testing.T) {
	s := Constant(0.25)
	if s.Value(0) != 0.25 || s.Value(1000) != 0.25 {
		t.Fatal("expected Constant to ignore step")
	}
}
