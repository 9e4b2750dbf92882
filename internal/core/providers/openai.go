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
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIImages is the subset of the OpenAI image service used here.
type OpenAIImages interface {
	Generate(ctx context.Context, body openai.ImageGenerateParams, opts ...option.RequestOption) (*openai.ImagesResponse, error)
}

// OpenAIProvider generates portrait images with DALL-E 3.
type OpenAIProvider struct {
	id     string
	images OpenAIImages
	model  string
	sink   ImageSink
}

// NewOpenAIProvider creates a provider. An empty model uses dall-e-3.
func NewOpenAIProvider(id string, images OpenAIImages, model string, sink ImageSink) *OpenAIProvider {
	if model == "" {
		model = string(openai.ImageModelDallE3)
	}
	return &OpenAIProvider{id: id, images: images, model: model, sink: sink}
}

func (p *OpenAIProvider) ID() string {
	return p.id
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, string, error) {
	resp, err := p.images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(p.model),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1024x1792,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", "", NewProviderError(p.id, apiErr.StatusCode, err)
		}
		return "", "", NewProviderError(p.id, 0, err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return "", "", NewProviderError(p.id, 0, ErrEmptyResponse)
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return "", "", NewProviderError(p.id, 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	path, err := p.sink.Save(p.id, data)
	if err != nil {
		return "", "", err
	}
	return path, resp.Data[0].URL, nil
}
