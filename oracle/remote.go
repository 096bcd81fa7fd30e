package oracle

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/alphatak/tak-az/encoding"
	"github.com/alphatak/tak-az/rules"
	"github.com/pkg/errors"
)

// retryBackoff is how long a Remote client waits before its single
// retry of a failed transport call.
const retryBackoff = 250 * time.Millisecond

// Remote evaluates positions by calling a Server's /evaluate endpoint
// over HTTP, matching the "local loopback only" RPC contract. Grounded
// on tak/model/grpc.py's GRPCNetwork: encode, call, decode. A transport
// failure is retried once after a short backoff; a second failure is
// surfaced as UnavailableError and fails the worker.
type Remote struct {
	Client  *http.Client
	BaseURL string
}

// NewRemote returns a Remote oracle client pointed at baseURL (e.g.
// "http://127.0.0.1:5001").
func NewRemote(baseURL string) *Remote {
	return &Remote{Client: http.DefaultClient, BaseURL: baseURL}
}

func (r *Remote) Evaluate(ctx context.Context, pos *rules.Position) (Evaluation, error) {
	toks := encoding.Encode(pos)
	body := encodeTokenBody(pos.Size(), toks)

	eval, err := r.call(ctx, body)
	if err == nil {
		return eval, nil
	}
	select {
	case <-ctx.Done():
		return Evaluation{}, ctx.Err()
	case <-time.After(retryBackoff):
	}
	return r.call(ctx, body)
}

func (r *Remote) call(ctx context.Context, body []byte) (Evaluation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/evaluate", bytes.NewReader(body))
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "oracle: build request")
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := r.Client.Do(req)
	if err != nil {
		return Evaluation{}, errors.WithStack(&UnavailableError{Reason: "request failed", Cause: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Evaluation{}, errors.WithStack(&UnavailableError{Reason: "non-200 response: " + resp.Status})
	}

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "oracle: read response")
	}
	return decodeEvaluation(out)
}

func decodeEvaluation(out []byte) (Evaluation, error) {
	if len(out) < 4 || len(out)%4 != 0 {
		return Evaluation{}, errors.New("oracle: malformed response body")
	}
	n := len(out)/4 - 1
	policy := make([]float32, n)
	for i := 0; i < n; i++ {
		policy[i] = math.Float32frombits(binary.LittleEndian.Uint32(out[4*i:]))
	}
	value := math.Float32frombits(binary.LittleEndian.Uint32(out[len(out)-4:]))
	return Evaluation{Policy: policy, Value: value}, nil
}
