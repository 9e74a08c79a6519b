package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// MetricType identifies a category of daily health data.
type MetricType string

const (
	// MetricSleep covers nightly sleep sessions and daily sleep scores.
	MetricSleep MetricType = "sleep"
	// MetricReadiness covers daily readiness scores and recovery signals.
	MetricReadiness MetricType = "readiness"
	// MetricActivity covers daily activity summaries.
	MetricActivity MetricType = "activity"
	// MetricHRV covers heart rate and heart rate variability summaries.
	MetricHRV MetricType = "hrv"
)

// MetricTypes lists every metric type a sync run covers, in sync order.
var MetricTypes = []MetricType{MetricSleep, MetricReadiness, MetricActivity, MetricHRV}

// Valid reports whether m is a known metric type.
func (m MetricType) Valid() bool {
	switch m {
	case MetricSleep, MetricReadiness, MetricActivity, MetricHRV:
		return true
	}
	return false
}

// Day is a calendar date in ISO 8601 form ("2006-01-02").
// The textual form sorts chronologically, so Day values compare with <.
type Day string

const dayLayout = "2006-01-02"

// DayOf truncates a time to its UTC calendar date.
func DayOf(t time.Time) Day {
	return Day(t.UTC().Format(dayLayout))
}

// ParseDay parses an ISO date string into a Day.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	return DayOf(t), nil
}

// Time returns the day as a UTC midnight timestamp.
func (d Day) Time() (time.Time, error) {
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDay, string(d))
	}
	return t, nil
}

// Valid reports whether the day parses as an ISO date.
func (d Day) Valid() bool {
	_, err := time.Parse(dayLayout, string(d))
	return err == nil
}

// AddDays returns the day shifted by n calendar days.
// Invalid days are returned unchanged.
func (d Day) AddDays(n int) Day {
	t, err := d.Time()
	if err != nil {
		return d
	}
	return DayOf(t.AddDate(0, 0, n))
}

// HealthRecord is one raw daily document pulled from the health-data
// provider. Records are transient: created per sync run, consumed by the
// chunker, then discarded.
type HealthRecord struct {
	SourceID  string             // provider-assigned document id
	Metric    MetricType         // which collection the record came from
	Day       Day                // calendar date the record describes
	Payload   map[string]float64 // numeric fields, keyed by provider field name
	Narrative string             // optional free-form text (tags, notes)
}

// ChunkID is the deterministic identity of an indexed chunk.
//
// The id is a pure function of (metric, day, sourceID, schemaVersion),
// so re-syncing the same period always addresses the same entries.
type ChunkID string

// MakeChunkID builds the base chunk id for a record.
func MakeChunkID(metric MetricType, day Day, sourceID string, schemaVersion int) ChunkID {
	return ChunkID(fmt.Sprintf("%s:%s:%s:v%d", metric, day, sourceID, schemaVersion))
}

// WithWindow derives the id of the i-th narrative window of a chunk.
// Window ids remain stable across re-chunking of unchanged text.
func (c ChunkID) WithWindow(i int) ChunkID {
	return ChunkID(fmt.Sprintf("%s#%d", c, i))
}

// Chunk is a unit of embeddable text derived from one health record.
type Chunk struct {
	ID       ChunkID
	Text     string
	Metric   MetricType
	Day      Day
	SourceID string
}

// VectorEntry is a chunk plus its embedding, as persisted in the index.
// Entries are durable and keyed by chunk id; an upsert under an existing
// id overwrites the previous entry.
type VectorEntry struct {
	ID           ChunkID
	Text         string
	Metric       MetricType
	Day          Day
	SourceID     string
	ModelVersion string    // embedding model that produced Vector
	Fingerprint  uint64    // content fingerprint of Text, see FingerprintText
	Vector       []float32 // embedding, normalized to unit length
	InsertedAt   time.Time
	UpdatedAt    time.Time
}

// Chunk returns the entry's chunk portion without the embedding.
func (e *VectorEntry) Chunk() *Chunk {
	return &Chunk{
		ID:       e.ID,
		Text:     e.Text,
		Metric:   e.Metric,
		Day:      e.Day,
		SourceID: e.SourceID,
	}
}

// FingerprintText computes a deterministic 64-bit content fingerprint
// using BLAKE2b. Identical text always produces the identical value, which
// lets the indexer skip re-embedding unchanged chunks.
func FingerprintText(text string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// ScoredChunk is one retrieval hit with its cosine similarity score.
type ScoredChunk struct {
	Entry *VectorEntry
	Score float32
}

// Answer is the final response to an ask request.
type Answer struct {
	Text          string
	CitedChunkIDs []ChunkID
}

// SyncReport summarizes one sync run.
type SyncReport struct {
	Start          Day
	End            Day
	SucceededTypes []MetricType
	FailedTypes    []MetricType
	Failures       map[MetricType]string // failure cause per failed type
	Indexed        int                   // chunks embedded and upserted
	Skipped        int                   // chunks skipped as unchanged
	Malformed      int                   // records dropped as malformed
}

// Partial reports whether some metric types failed while others succeeded.
func (r *SyncReport) Partial() bool {
	return len(r.FailedTypes) > 0 && len(r.SucceededTypes) > 0
}
