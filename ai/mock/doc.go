// Package mock provides deterministic test doubles for the ai package
// interfaces.
//
// The mock embedder derives unit vectors from an FNV hash of the input
// text, so identical text always embeds to the identical vector. This
// makes similarity-based assertions stable without any external service.
package mock
