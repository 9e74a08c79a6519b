// Package ingestion drives the sync pipeline: fetch daily health
// records per metric type, chunk them, embed the chunks, and upsert
// the results into the vector index.
//
// The pipeline is best-effort. A metric type whose fetch keeps failing
// is reported failed while the others proceed; malformed records and
// failed embedding batches are logged and skipped. Only an upstream
// auth failure aborts the run, since no later call can succeed.
package ingestion
