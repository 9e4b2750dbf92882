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

package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"
)

// Response formats understood by HTTPProvider.
const (
	// FormatStability posts a text_prompts body and reads artifacts[0].base64.
	FormatStability = "stability"
	// FormatURL posts {"text": prompt} and downloads the returned output_url.
	FormatURL = "url"
)

// maxImageBytes bounds how much of a response body is read.
const maxImageBytes = 32 << 20

// HTTPProviderOptions configures a generic JSON text-to-image endpoint.
type HTTPProviderOptions struct {
	ID         string
	Endpoint   string
	Format     string // FormatStability or FormatURL.
	APIKey     string
	AuthHeader string // Defaults to "Authorization".
	AuthScheme string // Prefix for the key, e.g. "Bearer". Empty sends the bare key.
	Width      int
	Height     int
	Client     *http.Client
	Limiter    *rate.Limiter // Optional.
	Sink       ImageSink
}

// HTTPProvider talks to text-to-image HTTP APIs that follow either the
// Stability or the "output_url" response convention.
type HTTPProvider struct {
	opts HTTPProviderOptions
}

// NewHTTPProvider creates a provider from opts.
func NewHTTPProvider(opts HTTPProviderOptions) *HTTPProvider {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.AuthHeader == "" {
		opts.AuthHeader = "Authorization"
	}
	if opts.Format == "" {
		opts.Format = FormatStability
	}
	return &HTTPProvider{opts: opts}
}

func (p *HTTPProvider) ID() string {
	return p.opts.ID
}

type stabilityPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type stabilityRequest struct {
	TextPrompts []stabilityPrompt `json:"text_prompts"`
	CfgScale    int               `json:"cfg_scale"`
	Height      int               `json:"height"`
	Width       int               `json:"width"`
	Samples     int               `json:"samples"`
	Steps       int               `json:"steps"`
}

type stabilityResponse struct {
	Artifacts []struct {
		Base64 string `json:"base64"`
	} `json:"artifacts"`
}

type urlRequest struct {
	Text string `json:"text"`
}

type urlResponse struct {
	OutputURL string `json:"output_url"`
}

// Generate posts the prompt and stores the returned image.
func (p *HTTPProvider) Generate(ctx context.Context, prompt string) (string, string, error) {
	if p.opts.Limiter != nil && !p.opts.Limiter.Allow() {
		return "", "", NewProviderError(p.opts.ID, 0, ErrRateLimited)
	}

	var body any
	switch p.opts.Format {
	case FormatURL:
		body = urlRequest{Text: prompt}
	default:
		body = stabilityRequest{
			TextPrompts: []stabilityPrompt{{Text: prompt, Weight: 1}},
			CfgScale:    7,
			Height:      p.opts.Height,
			Width:       p.opts.Width,
			Samples:     1,
			Steps:       30,
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", "", NewProviderError(p.opts.ID, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", "", NewProviderError(p.opts.ID, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.opts.APIKey != "" {
		value := p.opts.APIKey
		if p.opts.AuthScheme != "" {
			value = p.opts.AuthScheme + " " + value
		}
		req.Header.Set(p.opts.AuthHeader, value)
	}

	data, err := p.do(req)
	if err != nil {
		return "", "", err
	}

	switch p.opts.Format {
	case FormatURL:
		var out urlResponse
		if err := json.Unmarshal(data, &out); err != nil || out.OutputURL == "" {
			return "", "", NewProviderError(p.opts.ID, 0, ErrMalformedResponse)
		}
		img, err := p.download(ctx, out.OutputURL)
		if err != nil {
			return "", "", err
		}
		path, err := p.opts.Sink.Save(p.opts.ID, img)
		if err != nil {
			return "", "", err
		}
		return path, out.OutputURL, nil
	default:
		var out stabilityResponse
		if err := json.Unmarshal(data, &out); err != nil {
			return "", "", NewProviderError(p.opts.ID, 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err))
		}
		if len(out.Artifacts) == 0 {
			return "", "", NewProviderError(p.opts.ID, 0, ErrEmptyResponse)
		}
		img, err := base64.StdEncoding.DecodeString(out.Artifacts[0].Base64)
		if err != nil {
			return "", "", NewProviderError(p.opts.ID, 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err))
		}
		path, err := p.opts.Sink.Save(p.opts.ID, img)
		if err != nil {
			return "", "", err
		}
		return path, "", nil
	}
}

func (p *HTTPProvider) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewProviderError(p.opts.ID, 0, err)
	}
	return p.do(req)
}

func (p *HTTPProvider) do(req *http.Request) ([]byte, error) {
	resp, err := p.opts.Client.Do(req)
	if err != nil {
		return nil, NewProviderError(p.opts.ID, 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, NewProviderError(p.opts.ID, resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewProviderError(p.opts.ID, resp.StatusCode, fmt.Errorf("%s: %s", resp.Status, truncate(data, 256)))
	}
	return data, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
