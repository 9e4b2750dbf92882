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
	"errors"

	"google.golang.org/genai"
)

// ImageModel is the subset of the rate-limited genai wrapper used by
// ImagenProvider.
type ImageModel interface {
	GenerateImages(ctx context.Context, prompt string) (*genai.GenerateImagesResponse, error)
}

// ImagenProvider generates images with an Imagen model on Vertex AI.
type ImagenProvider struct {
	id    string
	model ImageModel
	sink  ImageSink
}

// NewImagenProvider creates a provider backed by model.
func NewImagenProvider(id string, model ImageModel, sink ImageSink) *ImagenProvider {
	return &ImagenProvider{id: id, model: model, sink: sink}
}

func (p *ImagenProvider) ID() string {
	return p.id
}

// Generate asks the model for a single image and stores its bytes.
func (p *ImagenProvider) Generate(ctx context.Context, prompt string) (string, string, error) {
	resp, err := p.model.GenerateImages(ctx, prompt)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", "", NewProviderError(p.id, apiErr.Code, err)
		}
		return "", "", NewProviderError(p.id, 0, err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return "", "", NewProviderError(p.id, 0, ErrEmptyResponse)
	}
	img := resp.GeneratedImages[0]
	if img.Image == nil {
		if img.RAIFilteredReason != "" {
			return "", "", NewProviderError(p.id, 0, errors.New("filtered: "+img.RAIFilteredReason))
		}
		return "", "", NewProviderError(p.id, 0, ErrMalformedResponse)
	}
	path, err := p.sink.Save(p.id, img.Image.ImageBytes)
	if err != nil {
		return "", "", err
	}
	return path, img.Image.GCSURI, nil
}
