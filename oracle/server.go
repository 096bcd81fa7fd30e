package oracle

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alphatak/tak-az/dualnet"
	"github.com/alphatak/tak-az/encoding"
	"github.com/alphatak/tak-az/rules"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// Mode distinguishes the two ways a Server's underlying network is used:
// Serve mode runs low-latency forward passes for self-play workers;
// Train mode temporarily reclaims the network for gradient steps.
// Grounded on tak/alphazero/trainer.py's serve_mode/train_mode, which
// snapshot and restore device/dtype around training.
type Mode int32

const (
	ServeMode Mode = iota
	TrainMode
)

const (
	// maxBatch and maxWait mirror tak/model/server.py's worker_loop: drain
	// up to 8 requests non-blockingly, otherwise wait at most 1ms before
	// running a (possibly smaller) batch.
	maxBatch = 8
	maxWait  = time.Millisecond
)

type pendingRequest struct {
	size        int
	tokens      []encoding.Token
	actionSpace int
	ready       chan result
}

type result struct {
	eval Evaluation
	err  error
}

// Server batches concurrent evaluation requests onto a single
// underlying network, both for in-process callers (Evaluate) and for
// out-of-process callers reached over HTTP (the Remote client), so that
// the K=8-or-1ms batching policy applies uniformly regardless of which
// side of the process boundary a request originates from. Grounded on
// tak/model/server.py's Server/worker_loop; HTTP routing grounded on
// niceyeti-tabular's local control-plane use of gorilla/mux.
type Server struct {
	net  *dual.Dual
	mode int32 // atomic Mode

	queue  chan pendingRequest
	router *mux.Router

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewServer starts a Server's batching goroutine in front of net. The
// queue holds up to 80 pending requests, matching tak/model/server.py's
// MAX_QUEUE_DEPTH.
func NewServer(net *dual.Dual) *Server {
	s := &Server{
		net:   net,
		queue: make(chan pendingRequest, 80),
		stop:  make(chan struct{}),
	}
	s.router = mux.NewRouter()
	s.router.HandleFunc("/evaluate", s.handleEvaluate).Methods(http.MethodPost)

	s.wg.Add(1)
	go s.workerLoop()
	return s
}

// Router exposes the mux.Router for embedding into a larger HTTP server
// or for httptest.
func (s *Server) Router() http.Handler { return s.router }

// SetMode switches between serve and train mode. The batch worker loop
// reads the mode with an atomic load before running each batch.
func (s *Server) SetMode(m Mode) {
	atomic.StoreInt32(&s.mode, int32(m))
}

// Mode returns the server's current mode.
func (s *Server) Mode() Mode {
	return Mode(atomic.LoadInt32(&s.mode))
}

// Close stops the batching goroutine.
func (s *Server) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
	return nil
}

// Evaluate enqueues pos and blocks until the batching loop has produced
// a result (or ctx is cancelled). Implements the Oracle interface.
func (s *Server) Evaluate(ctx context.Context, pos *rules.Position) (Evaluation, error) {
	toks := encoding.Encode(pos)
	table := encoding.TableForSize(pos.Size())
	return s.evaluateTokens(ctx, pos.Size(), toks, table.ActionSpaceSize())
}

func (s *Server) evaluateTokens(ctx context.Context, size int, toks []encoding.Token, actionSpace int) (Evaluation, error) {
	req := pendingRequest{size: size, tokens: toks, actionSpace: actionSpace, ready: make(chan result, 1)}
	select {
	case s.queue <- req:
	case <-ctx.Done():
		return Evaluation{}, ctx.Err()
	case <-s.stop:
		return Evaluation{}, errors.WithStack(&UnavailableError{Reason: "server closed"})
	}
	select {
	case r := <-req.ready:
		return r.eval, r.err
	case <-ctx.Done():
		return Evaluation{}, ctx.Err()
	}
}

func (s *Server) workerLoop() {
	defer s.wg.Done()
	for {
		var batch []pendingRequest
		select {
		case <-s.stop:
			return
		case req := <-s.queue:
			batch = append(batch, req)
		}

	drain:
		for len(batch) < maxBatch {
			select {
			case req := <-s.queue:
				batch = append(batch, req)
			default:
				break drain
			}
		}
		if len(batch) < maxBatch {
			timer := time.NewTimer(maxWait)
		waitMore:
			for len(batch) < maxBatch {
				select {
				case req := <-s.queue:
					batch = append(batch, req)
				case <-timer.C:
					break waitMore
				}
			}
			timer.Stop()
		}

		// A batch formed while the trainer holds the network waits here
		// until serve mode resumes; callers stay blocked on their RPCs,
		// buffered in the queue.
		for s.Mode() == TrainMode {
			select {
			case <-s.stop:
				return
			case <-time.After(maxWait):
			}
		}

		s.runBatch(batch)
	}
}

// runBatch runs one forward pass over the drained batch. All requests
// share the network's fixed-size input tensor, so a full batch costs a
// single VM run rather than one per caller.
func (s *Server) runBatch(batch []pendingRequest) {
	chunk := s.net.Config().BatchSize
	if chunk > maxBatch {
		chunk = maxBatch
	}
	for start := 0; start < len(batch); start += chunk {
		end := start + chunk
		if end > len(batch) {
			end = len(batch)
		}
		s.runChunk(batch[start:end])
	}
}

func (s *Server) runChunk(batch []pendingRequest) {
	rows := make([][]float32, len(batch))
	for i, req := range batch {
		rows[i] = encoding.OneHot(req.tokens, dual.VocabSize, dual.SeqLen)
	}
	policies, values, err := s.net.InferBatch(rows)
	if err != nil {
		for _, req := range batch {
			req.ready <- result{err: errors.WithStack(&UnavailableError{Reason: "inference failed", Cause: err})}
		}
		return
	}
	for i, req := range batch {
		policy := policies[i]
		if len(policy) > req.actionSpace {
			policy = policy[:req.actionSpace]
		}
		req.ready <- result{eval: Evaluation{Policy: policy, Value: values[i]}}
	}
}

// handleEvaluate implements the HTTP wire contract: the request body
// starts with a one-byte board size followed by one unsigned byte per
// token (the vocabulary fits in a byte); the response body is the
// little-endian float32 policy array followed by a trailing float32
// value.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	size, toks, err := decodeTokenBody(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	table := encoding.TableForSize(size)

	eval, err := s.evaluateTokens(r.Context(), size, toks, table.ActionSpaceSize())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]byte, 4*len(eval.Policy)+4)
	for i, p := range eval.Policy {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(p))
	}
	binary.LittleEndian.PutUint32(out[len(out)-4:], math.Float32bits(eval.Value))
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(out)
}

func encodeTokenBody(size int, toks []encoding.Token) []byte {
	body := make([]byte, 1+len(toks))
	body[0] = byte(size)
	for i, t := range toks {
		body[1+i] = byte(t)
	}
	return body
}

func decodeTokenBody(body []byte) (size int, toks []encoding.Token, err error) {
	if len(body) < 1 {
		return 0, nil, errors.New("oracle: request body too short")
	}
	size = int(body[0])
	toks = make([]encoding.Token, len(body)-1)
	for i, b := range body[1:] {
		toks[i] = encoding.Token(b)
	}
	return size, toks, nil
}
