package train

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMetricsSinkHookSkipsWhenNoWebhookConfigured(t *testing.T) {
	h := &MetricsSinkHook{}
	if err := h.AfterStep(&TrainState{}); err != nil {
		t.Fatal(err)
	}
}

func TestMetricsSinkHookPostsStepMetrics(t *testing.T) {
	var received metricsPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Error(err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := &MetricsSinkHook{WebhookURL: srv.URL, JobName: "tak-4x4"}
	h.NoteValueLoss(0.42)

	buf := NewReplayBuffer(10)
	state := &TrainState{Buffer: buf, Elapsed: Elapsed{Step: 7, Positions: 100, Epoch: 2}}
	if err := h.AfterStep(state); err != nil {
		t.Fatal(err)
	}

	if received.Job != "tak-4x4" || received.Step != 7 || received.Positions != 100 || received.Epoch != 2 {
		t.Fatalf("unexpected payload: %+v", received)
	}
	if received.ValueLoss != 0.42 {
		t.Fatalf("expected value loss 0.42, got %f", received.ValueLoss)
	}
}

func TestMetricsSinkHookErrorsOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := &MetricsSinkHook{WebhookURL: srv.URL}
	if err := h.AfterStep(&TrainState{}); err == nil {
		t.Fatal("expected an error for a non-2xx webhook response")
	}
}
