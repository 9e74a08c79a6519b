// Copyright 2025 Halcyon Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package oura

import (
	"context"
	"fmt"
	"strings"

	"github.com/halcyonlabs/ringsight/core"
)

// Collection paths, one per metric type. Sleep additionally consults
// daily_sleep for the nightly score.
const (
	pathSleep      = "/v2/usercollection/sleep"
	pathDailySleep = "/v2/usercollection/daily_sleep"
	pathReadiness  = "/v2/usercollection/daily_readiness"
	pathActivity   = "/v2/usercollection/daily_activity"
	pathHeartRate  = "/v2/usercollection/heart_rate"
)

// Pull fetches all documents of one metric type for the inclusive day
// range and converts them to health records. Documents with missing or
// unparsable fields are still returned; downstream validation classifies
// them as malformed.
func (c *Client) Pull(ctx context.Context, metric core.MetricType, start, end core.Day) ([]*core.HealthRecord, error) {
	switch metric {
	case core.MetricSleep:
		return c.pullSleep(ctx, start, end)
	case core.MetricReadiness:
		return c.pullDaily(ctx, pathReadiness, metric, start, end, readinessFields)
	case core.MetricActivity:
		return c.pullDaily(ctx, pathActivity, metric, start, end, activityFields)
	case core.MetricHRV:
		return c.pullDaily(ctx, pathHeartRate, metric, start, end, heartRateFields)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMetric, metric)
	}
}

// fieldSpec maps one payload key to the document field names that may
// carry it, tried in order. The API has renamed several fields over
// time, so each key lists its known aliases.
type fieldSpec struct {
	key     string
	aliases []string
}

var sleepFields = []fieldSpec{
	{"total_sleep_duration", []string{"total_sleep_duration"}},
	{"efficiency", []string{"efficiency", "sleep_efficiency"}},
	{"latency", []string{"latency", "sleep_latency"}},
	{"deep_sleep_duration", []string{"deep_sleep_duration", "deep_sleep"}},
	{"rem_sleep_duration", []string{"rem_sleep_duration", "rem_sleep"}},
	{"light_sleep_duration", []string{"light_sleep_duration", "light_sleep"}},
	{"average_breath", []string{"average_breath", "breath_rate"}},
	{"average_heart_rate", []string{"average_heart_rate", "heart_rate"}},
	{"average_hrv", []string{"hrv_average", "average_hrv", "hrv"}},
	{"resting_heart_rate", []string{"resting_heart_rate", "rest_heart_rate"}},
}

var readinessFields = []fieldSpec{
	{"score", []string{"score", "readiness_score"}},
	{"average_hrv", []string{"hrv_average", "average_hrv", "hrv", "hrv_balance"}},
	{"resting_heart_rate", []string{"resting_heart_rate", "rest_heart_rate", "heart_rate"}},
	{"temperature_deviation", []string{"temperature_deviation", "temperature"}},
}

var activityFields = []fieldSpec{
	{"score", []string{"score"}},
	{"steps", []string{"steps"}},
	{"inactive_time", []string{"inactive_time"}},
	{"active_calories", []string{"active_calories"}},
	{"total_calories", []string{"total_calories"}},
	{"average_met", []string{"average_met"}},
}

var heartRateFields = []fieldSpec{
	{"average_heart_rate", []string{"average_heart_rate", "heart_rate_average"}},
	{"resting_heart_rate", []string{"resting_heart_rate", "rest_heart_rate"}},
	{"max_heart_rate", []string{"max_heart_rate", "heart_rate_max"}},
	{"min_heart_rate", []string{"min_heart_rate", "heart_rate_min"}},
}

// pullSleep merges detailed sleep sessions with the nightly score from
// the daily_sleep collection, which is the only place the score lives.
func (c *Client) pullSleep(ctx context.Context, start, end core.Day) ([]*core.HealthRecord, error) {
	sessions, err := c.paginate(ctx, pathSleep, start, end)
	if err != nil {
		return nil, err
	}
	daily, err := c.paginate(ctx, pathDailySleep, start, end)
	if err != nil {
		return nil, err
	}

	scoreByDay := make(map[string]float64, len(daily))
	for _, doc := range daily {
		if score, ok := extractNumeric(doc["score"]); ok {
			scoreByDay[stringField(doc, "day")] = score
		}
	}

	records := make([]*core.HealthRecord, 0, len(sessions))
	for _, doc := range sessions {
		record := docToRecord(doc, core.MetricSleep, sleepFields)
		if score, ok := scoreByDay[string(record.Day)]; ok {
			record.Payload["score"] = score
		}
		records = append(records, record)
	}
	return records, nil
}

// pullDaily handles the single-collection metric types.
func (c *Client) pullDaily(ctx context.Context, path string, metric core.MetricType, start, end core.Day, fields []fieldSpec) ([]*core.HealthRecord, error) {
	docs, err := c.paginate(ctx, path, start, end)
	if err != nil {
		return nil, err
	}

	records := make([]*core.HealthRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, docToRecord(doc, metric, fields))
	}
	return records, nil
}

// docToRecord converts one raw API document into a health record.
func docToRecord(doc map[string]any, metric core.MetricType, fields []fieldSpec) *core.HealthRecord {
	day := core.Day(stringField(doc, "day"))

	sourceID := stringField(doc, "id")
	if sourceID == "" {
		sourceID = string(day)
	}

	payload := make(map[string]float64, len(fields))
	for _, f := range fields {
		for _, alias := range f.aliases {
			if v, ok := extractNumeric(doc[alias]); ok {
				payload[f.key] = v
				break
			}
		}
	}

	var narrative string
	if tags, ok := doc["tags"].([]any); ok {
		parts := make([]string, 0, len(tags))
		for _, tag := range tags {
			if s, ok := tag.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		narrative = strings.Join(parts, ", ")
	}

	return &core.HealthRecord{
		SourceID:  sourceID,
		Metric:    metric,
		Day:       day,
		Payload:   payload,
		Narrative: narrative,
	}
}

func stringField(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}

// extractNumeric pulls a number out of the loosely shaped values the API
// returns: a plain number, an object carrying an average, or a sample
// series.
func extractNumeric(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case map[string]any:
		for _, field := range []string{"average", "mean", "value", "hrv", "heart_rate"} {
			if n, ok := val[field].(float64); ok {
				return n, true
			}
		}
		if items, ok := val["items"].([]any); ok {
			var sum float64
			var count int
			for _, item := range items {
				m, ok := item.(map[string]any)
				if !ok {
					continue
				}
				if n, ok := m["value"].(float64); ok {
					sum += n
					count++
				}
			}
			if count > 0 {
				return sum / float64(count), true
			}
		}
	case []any:
		if len(val) > 0 {
			if m, ok := val[0].(map[string]any); ok {
				if n, ok := m["value"].(float64); ok {
					return n, true
				}
			}
		}
	}
	return 0, false
}
