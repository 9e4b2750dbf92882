// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package providers implements the asset-generation provider layer: the
// polymorphic Provider interface, the registry of configured providers, the
// priority-weighted failover selector and the shared usage counters.
//
// Logic Flow:
//  1. Build reads the [providers.*] configuration and constructs one Provider
//     per enabled entry (Imagen, OpenAI or a generic HTTP endpoint).
//  2. The Registry holds the immutable ProviderConfig list and the Provider
//     implementation behind each ID. It is replaced as a whole on reload.
//  3. The Selector filters the registry by capability, credentials and an
//     exclude set, then picks the top entry 70% of the time and a random one of
//     the top three otherwise.
//  4. UsageStats counts attempts and successes per provider under one mutex
//     and mirrors them into OpenTelemetry counters.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel causes wrapped by ProviderError.
var (
	ErrMalformedResponse = errors.New("malformed provider response")
	ErrEmptyResponse     = errors.New("provider returned no image")
	ErrNotImage          = errors.New("provider payload is not an image")
	ErrRateLimited       = errors.New("provider rate limit exceeded")
)

// Provider generates an image for a prompt. Implementations write the image to
// local disk and return its path, plus the remote URL when the provider exposes
// one. Every failure is reported as a *ProviderError.
type Provider interface {
	ID() string
	Generate(ctx context.Context, prompt string) (path string, url string, err error)
}

// ProviderError is a transient failure of a single provider call: network or
// HTTP failure, rate limiting or a malformed response. It always triggers
// failover and never leaves the generation coordinator.
type ProviderError struct {
	ProviderID  string
	StatusCode  int // HTTP status when known, 0 otherwise.
	RateLimited bool
	Err         error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: status %d: %v", e.ProviderID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.ProviderID, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err for provider id. A 429 status marks the error as
// rate limited.
func NewProviderError(id string, status int, err error) *ProviderError {
	if err == nil {
		err = fmt.Errorf("unexpected status %d", status)
	}
	return &ProviderError{
		ProviderID:  id,
		StatusCode:  status,
		RateLimited: status == http.StatusTooManyRequests || errors.Is(err, ErrRateLimited),
		Err:         err,
	}
}

// IsRateLimited reports whether err is a rate-limit ProviderError.
func IsRateLimited(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.RateLimited
}
