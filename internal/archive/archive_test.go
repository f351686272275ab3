package archive

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	s := openStore(t)
	payload := []byte(`{"tick":12}`)
	id, err := s.SaveSnapshot(payload, 12, "after warmup")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.LoadSnapshot(id)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestLoadMissingSnapshot(t *testing.T) {
	s := openStore(t)
	_, err := s.LoadSnapshot("no-such-id")
	assert.Error(t, err)
}

func TestLatestReturnsNewest(t *testing.T) {
	s := openStore(t)
	_, err := s.SaveSnapshot([]byte("first"), 1, "")
	require.NoError(t, err)
	_, err = s.SaveSnapshot([]byte("second"), 2, "latest")
	require.NoError(t, err)

	meta, payload, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), meta.Tick)
	assert.Equal(t, "latest", meta.Note)
	assert.Equal(t, []byte("second"), payload)
}

func TestLatestOnEmptyArchive(t *testing.T) {
	s := openStore(t)
	_, _, err := s.Latest()
	assert.Error(t, err)
}

func TestListSnapshots(t *testing.T) {
	s := openStore(t)
	for i := uint64(1); i <= 3; i++ {
		_, err := s.SaveSnapshot([]byte("x"), i, "")
		require.NoError(t, err)
	}
	metas, err := s.List()
	require.NoError(t, err)
	assert.Len(t, metas, 3)
}

func TestDecisionLogRoundTrip(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.LogDecision(Decision{
		Tick:        7,
		CandidateID: "steady",
		Verdict:     "pass",
		Confidence:  0.82,
		Surprise:    0.1,
	}))
	require.NoError(t, s.LogDecision(Decision{
		Tick:    8,
		Verdict: "blocked",
		Reason:  "confidence below block threshold",
	}))

	got, err := s.Decisions(10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(8), got[0].Tick, "newest first")
	assert.Equal(t, "", got[0].CandidateID)
	assert.Equal(t, "steady", got[1].CandidateID)
	assert.InDelta(t, 0.82, got[1].Confidence, 1e-9)
}
