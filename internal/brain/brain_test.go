package brain

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/cognitive-core/internal/audit"
	"github.com/danielpatrickdp/cognitive-core/internal/config"
	"github.com/danielpatrickdp/cognitive-core/internal/control"
	"github.com/danielpatrickdp/cognitive-core/internal/qvalue"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Dim = 4
	cfg.Seed = 7
	cfg.Sensor.Dim = 4
	cfg.Attention.Dim = 4
	cfg.Latent.DimInput = 4
	cfg.Latent.DimLatent = 8
	cfg.Latent.DimMemory = 8
	cfg.Latent.Seed = 7
	cfg.Episodic.MaxEpisodes = 30
	cfg.Prune.SoftBound = 20
	cfg.Prune.Interval = 10
	return cfg
}

func newBrain(t *testing.T) *Brain {
	t.Helper()
	b, err := New(testConfig(), nil, nil)
	require.NoError(t, err)
	return b
}

func sinObservation(tick int) []float64 {
	phase := float64(tick) * 0.2
	return []float64{
		math.Sin(phase),
		math.Cos(phase),
		0.5 * math.Sin(phase*0.5),
		0.1,
	}
}

func candidates() []qvalue.Candidate {
	return []qvalue.Candidate{
		{ID: "steady", Action: []float64{0.1, 0, 0, 0}, Complexity: 0.1, Resources: 0.1},
		{ID: "lurch", Action: []float64{1.8, 1.8, 1.8, 1.8}, Complexity: 0.9, Resources: 0.9},
	}
}

func TestTickProducesTelemetry(t *testing.T) {
	b := newBrain(t)
	out, err := b.Tick(context.Background(), TickInput{Observation: sinObservation(0)})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), out.Tick)
	assert.Equal(t, 1, out.Telemetry.Episodes)
	assert.Equal(t, 1, out.Telemetry.Concepts)
	assert.Positive(t, out.Telemetry.Latent.Norm)
	assert.NotEqual(t, int64(0), out.EpisodeID)
}

func TestTickRejectsBadObservation(t *testing.T) {
	b := newBrain(t)
	_, err := b.Tick(context.Background(), TickInput{Observation: []float64{1, 2}})
	assert.Error(t, err)
}

func TestTickHonorsContextCancel(t *testing.T) {
	b := newBrain(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Tick(ctx, TickInput{Observation: sinObservation(0)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelectorPrefersSteadyCandidate(t *testing.T) {
	b := newBrain(t)
	wins := 0
	total := 0
	for i := 0; i < 50; i++ {
		out, err := b.Tick(context.Background(), TickInput{
			Observation: sinObservation(i),
			Candidates:  candidates(),
			EnvRisk:     0.1,
		})
		require.NoError(t, err)
		if out.Decision == nil {
			continue
		}
		total++
		if out.Decision.CandidateID == "steady" {
			wins++
		}
	}
	require.Positive(t, total)
	assert.GreaterOrEqual(t, float64(wins)/float64(total), 0.9,
		"the low-cost low-risk candidate should dominate")
}

func TestNoFeasibleCandidateEmitsFallback(t *testing.T) {
	b := newBrain(t)
	out, err := b.Tick(context.Background(), TickInput{
		Observation: sinObservation(0),
		Candidates: []qvalue.Candidate{
			{ID: "wild", Action: []float64{50, 50, 50, 50}},
		},
		EnvRisk: 1.0,
	})
	require.NoError(t, err)
	assert.Equal(t, audit.VerdictBlocked, out.Verdict)
	require.Len(t, out.Action, 4)
	for _, v := range out.Action {
		assert.LessOrEqual(t, math.Abs(v), 0.5, "fallback stays inside the clip")
	}
}

func TestRecallFeedsWorkingBuffer(t *testing.T) {
	b := newBrain(t)
	var out TickOutput
	for i := 0; i < 8; i++ {
		var err error
		out, err = b.Tick(context.Background(), TickInput{Observation: []float64{0.6, 0.4, 0.2, 0.1}})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, out.Telemetry.Recalled, "top episodes are offered to the buffer each tick")
	assert.Positive(t, out.Telemetry.BufferItems)
}

func TestFullStoreForcesEvictionToRemember(t *testing.T) {
	cfg := testConfig()
	cfg.Episodic.MaxEpisodes = 5
	cfg.Prune.SoftBound = 5
	cfg.Prune.Interval = 1000
	cfg.Prune.MinAgeTicks = 100
	b, err := New(cfg, nil, nil)
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		out, err := b.Tick(context.Background(), TickInput{Observation: sinObservation(i)})
		require.NoError(t, err)
		assert.NotEqual(t, int64(0), out.EpisodeID, "every tick leaves an episode")
		assert.LessOrEqual(t, out.Telemetry.Episodes, 5)
		if i >= 5 {
			assert.Contains(t, out.Telemetry.Warnings, "episode stored after forced eviction")
		}
	}
}

func TestEpisodicStoreStaysBounded(t *testing.T) {
	b := newBrain(t)
	for i := 0; i < 90; i++ {
		out, err := b.Tick(context.Background(), TickInput{Observation: sinObservation(i)})
		require.NoError(t, err)
		assert.LessOrEqual(t, out.Telemetry.Episodes, 30)
	}
}

func TestSurpriseSpikeRaisesExploration(t *testing.T) {
	b := newBrain(t)
	for i := 0; i < 40; i++ {
		_, err := b.Tick(context.Background(), TickInput{Observation: []float64{0.5, 0.5, 0.5, 0.5}})
		require.NoError(t, err)
	}
	before := b.Params().Exploration

	var after float64
	for i := 0; i < 5; i++ {
		out, err := b.Tick(context.Background(), TickInput{Observation: []float64{8, -8, 8, -8}})
		require.NoError(t, err)
		after = out.Telemetry.Params.Exploration
	}
	assert.Greater(t, after, before)
}

func TestAdaptToContextChangesRegime(t *testing.T) {
	b := newBrain(t)
	require.NoError(t, b.AdaptToContext(control.ContextEmergency))
	out, err := b.Tick(context.Background(), TickInput{Observation: sinObservation(0)})
	require.NoError(t, err)
	assert.Equal(t, control.ContextEmergency, out.Telemetry.Regime)
	assert.Error(t, b.AdaptToContext(control.Context("bogus")))
}

func TestRetrieveAfterTicks(t *testing.T) {
	b := newBrain(t)
	for i := 0; i < 10; i++ {
		_, err := b.Tick(context.Background(), TickInput{
			Observation: sinObservation(i),
			Tags:        []string{"warmup"},
		})
		require.NoError(t, err)
	}
	got, err := b.Retrieve([]float64{0.5, 0.5, 0.2, 0.1}, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	concepts := b.Concepts(make([]float64, 8), 2)
	assert.NotEmpty(t, concepts)
}

func TestExportImportRoundTrip(t *testing.T) {
	b := newBrain(t)
	for i := 0; i < 20; i++ {
		_, err := b.Tick(context.Background(), TickInput{
			Observation: sinObservation(i),
			Candidates:  candidates(),
		})
		require.NoError(t, err)
	}
	blob, err := b.Export()
	require.NoError(t, err)

	restored, err := New(testConfig(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, restored.Import(blob))

	in := TickInput{Observation: sinObservation(20), Candidates: candidates()}
	want, err := b.Tick(context.Background(), in)
	require.NoError(t, err)
	got, err := restored.Tick(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, want, got, "restored brain continues identically")
}

func TestImportRejectsConfigMismatch(t *testing.T) {
	b := newBrain(t)
	blob, err := b.Export()
	require.NoError(t, err)

	other := testConfig()
	other.Latent.NormCeiling = 99.0
	mismatched, err := New(other, nil, nil)
	require.NoError(t, err)
	err = mismatched.Import(blob)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum")
}
