// Package oura pulls daily health documents from the Oura v2 REST API
// and converts them into core.HealthRecords.
//
// The client paginates transparently via next_token, rate limits its
// own requests, and classifies failures as auth-fatal (ErrUnauthorized)
// or transient (everything else). It is deliberately permissive about
// document shape; downstream validation decides what is malformed.
package oura
