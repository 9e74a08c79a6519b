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

import "errors"

var (
	// ErrUnauthorized indicates the access token was rejected (401/403).
	// Retrying cannot help; callers should abort the run.
	ErrUnauthorized = errors.New("oura: unauthorized")

	// ErrRateLimited indicates the API returned 429. Transient.
	ErrRateLimited = errors.New("oura: rate limited")

	// ErrRequestFailed indicates a non-auth request failure (5xx,
	// transport errors, malformed responses). Transient.
	ErrRequestFailed = errors.New("oura: request failed")

	// ErrMissingToken indicates the client was built without a token.
	ErrMissingToken = errors.New("oura: access token is required")

	// ErrUnsupportedMetric indicates a metric type the client cannot pull.
	ErrUnsupportedMetric = errors.New("oura: unsupported metric type")
)
