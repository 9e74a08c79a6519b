package badger

import (
	"fmt"

	"github.com/halcyonlabs/ringsight/core"
)

// Key prefixes for different data types.
// The trailing colon separates "vecent:" entry keys from "vecentd:" day
// index keys during prefix iteration.
const (
	entryPrefix    = "vecent"
	entryDayPrefix = "vecentd"
)

// makeEntryKey generates the primary key for a vector entry.
func makeEntryKey(id core.ChunkID) []byte {
	return []byte(fmt.Sprintf("%s:%s", entryPrefix, id))
}

// makeDayKey generates a composite key for the day index.
// Format: prefix:day:id. Days are fixed-width ISO dates, so
// lexicographic key order is chronological.
func makeDayKey(day core.Day, id core.ChunkID) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", entryDayPrefix, day, id))
}

// makePartialDayKey generates a seek position for day range scans.
func makePartialDayKey(day core.Day) []byte {
	return []byte(fmt.Sprintf("%s:%s", entryDayPrefix, day))
}
