// Package chunk turns raw health records into embeddable text chunks
// with deterministic, content-addressed identities.
package chunk
