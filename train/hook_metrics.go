package train

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// MetricsSinkHook posts each step's stats to a webhook URL as JSON,
// standing in for the Weights & Biases sink tak/alphazero/hooks.py
// wires up by default; any HTTP collector (Grafana's webhook ingest,
// a local Prometheus pushgateway shim) can sit behind WebhookURL.
type MetricsSinkHook struct {
	Noop

	WebhookURL string
	JobName    string
	Client     *http.Client

	lastValueLoss float32
}

type metricsPayload struct {
	Job        string             `json:"job"`
	Step       int                `json:"step"`
	Positions  int                `json:"positions"`
	Epoch      int                `json:"epoch"`
	ValueLoss  float32            `json:"value_loss"`
	BufferSize int                `json:"buffer_steps"`
	Stats      map[string]float64 `json:"stats,omitempty"`
}

// NoteValueLoss records the most recent training loss for the next
// AfterStep post; the trainer calls this right after its last
// minibatch.
func (h *MetricsSinkHook) NoteValueLoss(loss float32) {
	h.lastValueLoss = loss
}

// finiteStats drops non-finite entries (an eval elo of ±Inf) that JSON
// cannot carry.
func finiteStats(stats map[string]float64) map[string]float64 {
	if stats == nil {
		return nil
	}
	out := make(map[string]float64, len(stats))
	for k, v := range stats {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[k] = v
	}
	return out
}

func (h *MetricsSinkHook) AfterStep(state *TrainState) error {
	if h.WebhookURL == "" {
		return nil
	}
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	payload := metricsPayload{
		Job:       h.JobName,
		Step:      state.Elapsed.Step,
		Positions: state.Elapsed.Positions,
		Epoch:     state.Elapsed.Epoch,
		ValueLoss: h.lastValueLoss,
		Stats:     finiteStats(state.Stats),
	}
	if state.Buffer != nil {
		payload.BufferSize = state.Buffer.Len()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "train: marshal metrics payload")
	}

	resp, err := client.Post(h.WebhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "train: post metrics")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.Errorf("train: metrics webhook returned status %s", resp.Status)
	}
	return nil
}
