package latent

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		DimLatent:   16,
		DimInput:    32,
		DimMemory:   8,
		LeakRate:    0.05,
		NormCeiling: 10.0,
		Seed:        42,
	}
}

func uniformAlpha(n int) []float64 {
	alpha := make([]float64, n)
	for i := range alpha {
		alpha[i] = 1.0 / float64(n)
	}
	return alpha
}

func TestUpdateAdvancesTickOnce(t *testing.T) {
	s := New(testConfig())
	obs := make([]float64, 32)
	obs[0] = 1.0

	_, err := s.Update(obs, uniformAlpha(32), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.Tick())

	_, err = s.Update(obs, uniformAlpha(32), make([]float64, 8))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), s.Tick())
}

func TestUpdateBoundedByTanhAndCeiling(t *testing.T) {
	cfg := testConfig()
	cfg.NormCeiling = 2.0
	s := New(cfg)
	rng := rand.New(rand.NewSource(3))

	for tick := 0; tick < 100; tick++ {
		obs := make([]float64, 32)
		for i := range obs {
			obs[i] = rng.NormFloat64() * 100.0
		}
		m, err := s.Update(obs, uniformAlpha(32), nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, m.Norm, cfg.NormCeiling+1e-9)
		for _, v := range s.Vector() {
			assert.False(t, math.IsNaN(v))
			assert.False(t, math.IsInf(v, 0))
		}
	}
}

func TestWeightsDeterministicFromSeed(t *testing.T) {
	a := New(testConfig())
	b := New(testConfig())
	obs := make([]float64, 32)
	for i := range obs {
		obs[i] = float64(i) / 10.0
	}

	ma, err := a.Update(obs, uniformAlpha(32), nil)
	require.NoError(t, err)
	mb, err := b.Update(obs, uniformAlpha(32), nil)
	require.NoError(t, err)

	assert.Equal(t, ma.Norm, mb.Norm)
	assert.Equal(t, a.Vector(), b.Vector())
}

func TestPredictFeedsSurprise(t *testing.T) {
	s := New(testConfig())
	obs := make([]float64, 32)
	for i := range obs {
		obs[i] = math.Sin(float64(i))
	}
	_, err := s.Update(obs, uniformAlpha(32), nil)
	require.NoError(t, err)

	pred := s.PredictNext(nil)
	require.Len(t, pred, 32)

	// Matching observation and prediction means zero surprise.
	delta, energy := Surprise(pred, pred)
	assert.Zero(t, energy)
	for _, d := range delta {
		assert.Zero(t, d)
	}

	_, energy = Surprise(obs, pred)
	assert.Greater(t, energy, 0.0)
}

func TestPredictActionScales(t *testing.T) {
	s := New(testConfig())
	obs := make([]float64, 32)
	obs[5] = 2.0
	_, err := s.Update(obs, uniformAlpha(32), nil)
	require.NoError(t, err)

	base := s.PredictNext(nil)
	scaled := s.PredictNext([]float64{1.0, 1.0})
	for i := range base {
		assert.InDelta(t, base[i]*1.1, scaled[i], 1e-12)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := New(testConfig())
	obs := make([]float64, 32)
	obs[1] = 0.7
	for tick := 0; tick < 5; tick++ {
		_, err := s.Update(obs, uniformAlpha(32), nil)
		require.NoError(t, err)
	}

	snap := s.Export()
	restored := New(testConfig())
	require.NoError(t, restored.Import(snap))

	assert.Equal(t, s.Vector(), restored.Vector())
	assert.Equal(t, s.Tick(), restored.Tick())

	// Both continue identically.
	ma, err := s.Update(obs, uniformAlpha(32), nil)
	require.NoError(t, err)
	mb, err := restored.Update(obs, uniformAlpha(32), nil)
	require.NoError(t, err)
	assert.Equal(t, ma, mb)
}

func TestUpdateDimensionMismatch(t *testing.T) {
	s := New(testConfig())
	_, err := s.Update(make([]float64, 5), uniformAlpha(5), nil)
	require.Error(t, err)
	_, err = s.Update(make([]float64, 32), uniformAlpha(3), nil)
	require.Error(t, err)
}
