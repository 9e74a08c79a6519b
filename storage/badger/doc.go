// Package badger provides a BadgerDB-backed implementation of the
// storage.VectorIndex interface.
//
// Entries are stored under composite string keys with a secondary day
// index for range-bounded queries. Similarity search is a brute-force
// scan scoring normalized vectors by dot product, which is exact and
// fast enough for the single-user index sizes this system targets.
package badger
