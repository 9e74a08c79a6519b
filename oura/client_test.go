package oura

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/ringsight/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("test-token",
		WithBaseURL(server.URL),
		WithRateLimit(1000, 1000))
	require.NoError(t, err)
	return client
}

func writePage(w http.ResponseWriter, docs []map[string]any, nextToken string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":       docs,
		"next_token": nextToken,
	})
}

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := NewClient("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestPull_Readiness(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pathReadiness, r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "2024-03-01", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2024-03-07", r.URL.Query().Get("end_date"))

		writePage(w, []map[string]any{
			{
				"id":                    "rd-1",
				"day":                   "2024-03-01",
				"score":                 85.0,
				"hrv_average":           52.0,
				"temperature_deviation": -0.2,
			},
		}, "")
	})

	records, err := client.Pull(context.Background(), core.MetricReadiness, "2024-03-01", "2024-03-07")
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "rd-1", r.SourceID)
	assert.Equal(t, core.Day("2024-03-01"), r.Day)
	assert.Equal(t, core.MetricReadiness, r.Metric)
	assert.Equal(t, 85.0, r.Payload["score"])
	assert.Equal(t, 52.0, r.Payload["average_hrv"])
	assert.Equal(t, -0.2, r.Payload["temperature_deviation"])
}

func TestPull_AliasFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writePage(w, []map[string]any{
			{
				"id":              "rd-2",
				"day":             "2024-03-02",
				"readiness_score": 70.0,
				"rest_heart_rate": 55.0,
			},
		}, "")
	})

	records, err := client.Pull(context.Background(), core.MetricReadiness, "2024-03-02", "2024-03-02")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 70.0, records[0].Payload["score"])
	assert.Equal(t, 55.0, records[0].Payload["resting_heart_rate"])
}

func TestPull_Pagination(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("next_token") == "" {
			writePage(w, []map[string]any{
				{"id": "a-1", "day": "2024-03-01", "steps": 9000.0},
			}, "page-2")
			return
		}
		assert.Equal(t, "page-2", r.URL.Query().Get("next_token"))
		writePage(w, []map[string]any{
			{"id": "a-2", "day": "2024-03-02", "steps": 12000.0},
		}, "")
	})

	records, err := client.Pull(context.Background(), core.MetricActivity, "2024-03-01", "2024-03-02")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a-1", records[0].SourceID)
	assert.Equal(t, "a-2", records[1].SourceID)
}

func TestPull_SleepMergesDailyScore(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case pathSleep:
			writePage(w, []map[string]any{
				{
					"id":                   "sl-1",
					"day":                  "2024-03-01",
					"total_sleep_duration": 26400.0,
					"efficiency":           92.0,
				},
			}, "")
		case pathDailySleep:
			writePage(w, []map[string]any{
				{"id": "ds-1", "day": "2024-03-01", "score": 81.0},
			}, "")
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	records, err := client.Pull(context.Background(), core.MetricSleep, "2024-03-01", "2024-03-01")
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "sl-1", r.SourceID, "identity comes from the session document")
	assert.Equal(t, 81.0, r.Payload["score"], "score comes from daily_sleep")
	assert.Equal(t, 26400.0, r.Payload["total_sleep_duration"])
}

func TestPull_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Pull(context.Background(), core.MetricActivity, "2024-03-01", "2024-03-01")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPull_RateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Pull(context.Background(), core.MetricActivity, "2024-03-01", "2024-03-01")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestPull_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Pull(context.Background(), core.MetricActivity, "2024-03-01", "2024-03-01")
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestPull_UnsupportedMetric(t *testing.T) {
	client, err := NewClient("token")
	require.NoError(t, err)

	_, err = client.Pull(context.Background(), core.MetricType("bogus"), "2024-03-01", "2024-03-01")
	assert.ErrorIs(t, err, ErrUnsupportedMetric)
}

func TestPull_NarrativeFromTags(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writePage(w, []map[string]any{
			{
				"id":    "a-3",
				"day":   "2024-03-03",
				"steps": 4000.0,
				"tags":  []any{"travel", "late dinner"},
			},
		}, "")
	})

	records, err := client.Pull(context.Background(), core.MetricActivity, "2024-03-03", "2024-03-03")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "travel, late dinner", records[0].Narrative)
}

func TestExtractNumeric(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   float64
		wantOK bool
	}{
		{"plain number", 61.5, 61.5, true},
		{"nil", nil, 0, false},
		{"string", "not a number", 0, false},
		{"average object", map[string]any{"average": 48.0}, 48, true},
		{"value object", map[string]any{"value": 12.0}, 12, true},
		{"sample series", map[string]any{"items": []any{
			map[string]any{"value": 40.0},
			map[string]any{"value": 60.0},
		}}, 50, true},
		{"list of samples", []any{map[string]any{"value": 7.0}}, 7, true},
		{"empty list", []any{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractNumeric(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 0.0001)
			}
		})
	}
}
