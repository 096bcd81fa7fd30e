package dual

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	conf := DefaultConf(4, 10)
	conf.BatchSize = 1
	return conf
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	conf := testConfig()
	conf.ActionSpace = 0
	_, err := New(conf)
	assert.Error(t, err)
}

func TestInferReturnsValidPolicyAndValue(t *testing.T) {
	conf := testConfig()
	net, err := New(conf)
	require.NoError(t, err)
	defer net.Close()

	input := make([]float32, VocabSize*SeqLen)
	policy, value, err := net.Infer(input)
	require.NoError(t, err)
	assert.Len(t, policy, conf.ActionSpace)
	assert.True(t, validPolicy(policy), "expected a finite policy")
	assert.GreaterOrEqual(t, value, float32(-1))
	assert.LessOrEqual(t, value, float32(1))
}

func TestInferBatchRejectsOversizedBatch(t *testing.T) {
	conf := testConfig()
	net, err := New(conf)
	require.NoError(t, err)
	defer net.Close()

	rows := make([][]float32, conf.BatchSize+1)
	for i := range rows {
		rows[i] = make([]float32, VocabSize*SeqLen)
	}
	_, _, err = net.InferBatch(rows)
	assert.Error(t, err)
}

func TestStepRunsAndReturnsFiniteLoss(t *testing.T) {
	conf := testConfig()
	net, err := New(conf)
	require.NoError(t, err)
	defer net.Close()

	batch := Batch{
		Inputs:   make([]float32, conf.BatchSize*VocabSize*SeqLen),
		Policies: make([]float32, conf.BatchSize*conf.ActionSpace),
		Values:   make([]float32, conf.BatchSize),
	}
	// A uniform policy target keeps the cross-entropy finite.
	for i := range batch.Policies {
		batch.Policies[i] = 1 / float32(conf.ActionSpace)
	}

	loss, err := net.Step(batch)
	require.NoError(t, err)
	assert.False(t, loss != loss, "loss must not be NaN")
}

func TestExportImportWeightsRoundTrips(t *testing.T) {
	conf := testConfig()
	src, err := New(conf)
	require.NoError(t, err)
	defer src.Close()

	weights, err := src.ExportWeights()
	require.NoError(t, err)

	dst, err := New(conf)
	require.NoError(t, err)
	defer dst.Close()

	require.NoError(t, dst.ImportWeights(weights))

	dstWeights, err := dst.ExportWeights()
	require.NoError(t, err)
	assert.Equal(t, weights, dstWeights)
}
