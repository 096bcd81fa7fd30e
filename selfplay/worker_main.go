package selfplay

import (
	"bufio"
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/alphatak/tak-az/oracle"
	"github.com/pkg/errors"
)

// RunWorkerFromStdio is the worker-process body MultiprocessSelfPlayEngine
// expects on the other end of its re-exec'd child's stdin/stdout: it reads
// one WorkerConfig, then loops reading Commands and writing WorkerMessages
// until told to shut down. Any binary that can call
// NewMultiprocessSelfPlayEngine must check for WorkerFlag at the top of
// main() and dispatch here when re-exec'd as a child, since os.Executable()
// always resolves to the running orchestrator's own binary, not a separate
// worker binary.
func RunWorkerFromStdio(stdin io.Reader, stdout io.Writer) error {
	dec := json.NewDecoder(bufio.NewReader(stdin))
	enc := json.NewEncoder(stdout)

	var cfg WorkerConfig
	if err := dec.Decode(&cfg); err != nil {
		return errors.Wrap(err, "selfplay: read worker config")
	}
	if cfg.Seed == 0 {
		// Seed from process entropy, grounded on tak/self_play.py's
		// entrypoint (secrets.randbits): sibling workers must explore
		// independently, not replicate each other.
		seed, err := entropySeed()
		if err != nil {
			return err
		}
		cfg.Seed = seed
	}

	net := oracle.NewRemote(cfg.OracleAddr)
	runner := NewRunner(cfg, net)
	ctx := context.Background()

	for {
		var cmd Command
		if err := dec.Decode(&cmd); err != nil {
			return nil
		}
		if cmd.Shutdown {
			return nil
		}
		for i := 0; i < cmd.Play; i++ {
			transcript, err := runner.PlayOne(ctx)
			msg := WorkerMessage{Transcript: transcript}
			if err != nil {
				msg = WorkerMessage{Err: err.Error()}
			}
			if err := enc.Encode(msg); err != nil {
				return errors.Wrap(err, "selfplay: write worker message")
			}
		}
	}
}

func entropySeed() (uint64, error) {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return 0, errors.Wrap(err, "selfplay: seed worker rng")
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
