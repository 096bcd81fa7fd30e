package selfplay

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// WriteTranscripts streams transcripts to w as JSON lines, the format
// the selfplay CLI's -write-games flag produces and the trainer's
// test-data loader consumes.
func WriteTranscripts(w io.Writer, transcripts []*Transcript) error {
	enc := json.NewEncoder(w)
	for _, t := range transcripts {
		if err := enc.Encode(t); err != nil {
			return errors.Wrap(err, "selfplay: encode transcript")
		}
	}
	return nil
}

// ReadTranscripts loads a JSON-lines transcript file written by
// WriteTranscripts.
func ReadTranscripts(path string) ([]*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "selfplay: open transcript file")
	}
	defer f.Close()

	var out []*Transcript
	dec := json.NewDecoder(bufio.NewReader(f))
	for {
		var t Transcript
		if err := dec.Decode(&t); err == io.EOF {
			return out, nil
		} else if err != nil {
			return nil, errors.Wrap(err, "selfplay: decode transcript")
		}
		out = append(out, &t)
	}
}
