package oracle

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/alphatak/tak-az/encoding"
)

func putFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func TestTokenBodyRoundTrips(t *testing.T) {
	toks := []encoding.Token{0, 1, 5, 9, encoding.Token(encoding.VocabSize - 1)}
	body := encodeTokenBody(5, toks)

	size, got, err := decodeTokenBody(body)
	if err != nil {
		t.Fatal(err)
	}
	if size != 5 {
		t.Fatalf("expected size 5, got %d", size)
	}
	if len(got) != len(toks) {
		t.Fatalf("expected %d tokens, got %d", len(toks), len(got))
	}
	for i := range toks {
		if got[i] != toks[i] {
			t.Fatalf("token %d: expected %v, got %v", i, toks[i], got[i])
		}
	}
}

func TestEvaluationResponseRoundTrips(t *testing.T) {
	eval := Evaluation{Policy: []float32{0.1, 0.2, 0.7}, Value: -0.5}

	out := make([]byte, 4*len(eval.Policy)+4)
	for i, p := range eval.Policy {
		putFloat32(out[4*i:], p)
	}
	putFloat32(out[len(out)-4:], eval.Value)

	got, err := decodeEvaluation(out)
	if err != nil {
		t.Fatal(err)
	}
	if got.Value != eval.Value {
		t.Fatalf("value mismatch: got %v want %v", got.Value, eval.Value)
	}
	for i := range eval.Policy {
		if got.Policy[i] != eval.Policy[i] {
			t.Fatalf("policy[%d] mismatch: got %v want %v", i, got.Policy[i], eval.Policy[i])
		}
	}
}
