// Package ringsight answers natural-language questions about personal
// health metrics. It syncs daily records from the Oura API into a
// durable, embedding-versioned vector index and grounds model answers
// in retrieved chunks with citations.
//
// The Service type is the main entry point; cmd/ringsight wraps it in
// a CLI.
package ringsight
