package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeChunkID_Deterministic(t *testing.T) {
	a := MakeChunkID(MetricSleep, "2024-03-01", "abc123", 1)
	b := MakeChunkID(MetricSleep, "2024-03-01", "abc123", 1)

	assert.Equal(t, a, b)
	assert.Equal(t, ChunkID("sleep:2024-03-01:abc123:v1"), a)
}

func TestMakeChunkID_DistinguishesInputs(t *testing.T) {
	base := MakeChunkID(MetricSleep, "2024-03-01", "abc123", 1)

	assert.NotEqual(t, base, MakeChunkID(MetricReadiness, "2024-03-01", "abc123", 1))
	assert.NotEqual(t, base, MakeChunkID(MetricSleep, "2024-03-02", "abc123", 1))
	assert.NotEqual(t, base, MakeChunkID(MetricSleep, "2024-03-01", "def456", 1))
	assert.NotEqual(t, base, MakeChunkID(MetricSleep, "2024-03-01", "abc123", 2))
}

func TestChunkID_WithWindow(t *testing.T) {
	base := MakeChunkID(MetricSleep, "2024-03-01", "abc123", 1)

	assert.Equal(t, ChunkID("sleep:2024-03-01:abc123:v1#0"), base.WithWindow(0))
	assert.Equal(t, ChunkID("sleep:2024-03-01:abc123:v1#3"), base.WithWindow(3))
}

func TestDay_Ordering(t *testing.T) {
	// ISO dates sort chronologically as strings.
	assert.True(t, Day("2024-03-01") < Day("2024-03-02"))
	assert.True(t, Day("2024-02-28") < Day("2024-03-01"))
	assert.True(t, Day("2023-12-31") < Day("2024-01-01"))
}

func TestDayOf_TruncatesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 02:00 on March 2nd in UTC+9 is still March 1st in UTC.
	ts := time.Date(2024, 3, 2, 2, 0, 0, 0, loc)

	assert.Equal(t, Day("2024-03-01"), DayOf(ts))
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, Day("2024-03-01"), d)

	_, err = ParseDay("03/01/2024")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDay)
}

func TestDay_AddDays(t *testing.T) {
	assert.Equal(t, Day("2024-03-03"), Day("2024-03-01").AddDays(2))
	assert.Equal(t, Day("2024-02-29"), Day("2024-03-01").AddDays(-1)) // leap year
}

func TestFingerprintText_Deterministic(t *testing.T) {
	a := FingerprintText("On 2024-03-01, HRV averaged 42 ms.")
	b := FingerprintText("On 2024-03-01, HRV averaged 42 ms.")
	c := FingerprintText("On 2024-03-01, HRV averaged 43 ms.")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotZero(t, a)
}

func TestVectorEntry_Chunk(t *testing.T) {
	entry := &VectorEntry{
		ID:           "sleep:2024-03-01:abc:v1",
		Text:         "On 2024-03-01, sleep score was 78.",
		Metric:       MetricSleep,
		Day:          "2024-03-01",
		SourceID:     "abc",
		ModelVersion: "test-model",
		Vector:       []float32{0.1, 0.2},
	}

	chunk := entry.Chunk()
	assert.Equal(t, entry.ID, chunk.ID)
	assert.Equal(t, entry.Text, chunk.Text)
	assert.Equal(t, entry.Metric, chunk.Metric)
	assert.Equal(t, entry.Day, chunk.Day)
	assert.Equal(t, entry.SourceID, chunk.SourceID)
}

func TestSyncReport_Partial(t *testing.T) {
	full := &SyncReport{SucceededTypes: []MetricType{MetricSleep, MetricActivity}}
	assert.False(t, full.Partial())

	none := &SyncReport{FailedTypes: []MetricType{MetricSleep}}
	assert.False(t, none.Partial())

	partial := &SyncReport{
		SucceededTypes: []MetricType{MetricSleep},
		FailedTypes:    []MetricType{MetricActivity},
	}
	assert.True(t, partial.Partial())
}
