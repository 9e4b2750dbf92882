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

package cloud

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// QuotaAwareImageModel wraps an image generation model with a client-side rate
// limiter so concurrent generation tasks stay inside the model's quota.
type QuotaAwareImageModel struct {
	ImagesConfig *genai.GenerateImagesConfig
	ModelName    string
	ModelHandle  *genai.Models
	RateLimit    *rate.Limiter
}

// NewQuotaAwareImageModel creates the wrapper. requestsPerSecond <= 0 disables
// the limiter.
func NewQuotaAwareImageModel(config *genai.GenerateImagesConfig, name string, handle *genai.Models, requestsPerSecond int) *QuotaAwareImageModel {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Every(time.Second / time.Duration(requestsPerSecond))
		burst = requestsPerSecond
	}
	return &QuotaAwareImageModel{
		ImagesConfig: config,
		ModelName:    name,
		ModelHandle:  handle,
		RateLimit:    rate.NewLimiter(limit, burst),
	}
}

// GenerateImages waits for a limiter token, bounded by ctx, then calls the
// model. A context that expires while waiting returns its error so the caller
// can fail over.
func (q *QuotaAwareImageModel) GenerateImages(ctx context.Context, prompt string) (*genai.GenerateImagesResponse, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for %s quota: %w", q.ModelName, err)
	}
	return q.ModelHandle.GenerateImages(ctx, q.ModelName, prompt, q.ImagesConfig)
}

// DefaultImagesConfig requests one portrait PNG.
func DefaultImagesConfig() *genai.GenerateImagesConfig {
	return &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    "9:16",
		OutputMIMEType: "image/png",
	}
}
