// Package retrieval answers questions over the vector index.
//
// The pipeline has three stages with separate types: Retriever embeds
// the question and pulls the nearest chunks, Composer folds the ranked
// chunks into a token-budgeted prompt, and Answerer runs the completion
// and attaches citations. Engine wires the three together.
package retrieval
