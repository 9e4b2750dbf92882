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

package providers_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/providers"
)

func TestHTTPProvider_Stability(t *testing.T) {
	img := pngBytes(t)
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"artifacts": []map[string]string{{"base64": base64.StdEncoding.EncodeToString(img)}},
		})
	}))
	defer srv.Close()

	p := providers.NewHTTPProvider(providers.HTTPProviderOptions{
		ID:         "stability",
		Endpoint:   srv.URL,
		APIKey:     "secret",
		AuthScheme: "Bearer",
		Width:      768,
		Height:     1344,
		Client:     srv.Client(),
		Sink:       providers.ImageSink{Dir: t.TempDir()},
	})
	assert.Equal(t, "stability", p.ID())

	path, url, err := p.Generate(context.Background(), "a lighthouse")
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Empty(t, url)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.EqualValues(t, 1344, gotBody["height"])
	prompts, _ := gotBody["text_prompts"].([]any)
	require.Len(t, prompts, 1)
}

func TestHTTPProvider_URLFormat(t *testing.T) {
	img := pngBytes(t)
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("api-key"))
		_ = json.NewEncoder(w).Encode(map[string]string{"output_url": srv.URL + "/image.png"})
	})
	mux.HandleFunc("/image.png", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(img)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	p := providers.NewHTTPProvider(providers.HTTPProviderOptions{
		ID:         "deepai",
		Endpoint:   srv.URL + "/generate",
		Format:     providers.FormatURL,
		APIKey:     "k",
		AuthHeader: "api-key",
		Client:     srv.Client(),
		Sink:       providers.ImageSink{Dir: t.TempDir()},
	})

	path, url, err := p.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, srv.URL+"/image.png", url)
}

func TestHTTPProvider_Failures(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     error
		rateLimited bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: "slow down", rateLimited: true},
		{name: "server error", status: http.StatusInternalServerError, body: "oops"},
		{name: "malformed", status: http.StatusOK, body: "{not json", wantErr: providers.ErrMalformedResponse},
		{name: "no artifacts", status: http.StatusOK, body: `{"artifacts":[]}`, wantErr: providers.ErrEmptyResponse},
		{name: "not an image", status: http.StatusOK, body: `{"artifacts":[{"base64":"` + base64.StdEncoding.EncodeToString([]byte("hello")) + `"}]}`, wantErr: providers.ErrNotImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := providers.NewHTTPProvider(providers.HTTPProviderOptions{
				ID:       "stability",
				Endpoint: srv.URL,
				Client:   srv.Client(),
				Sink:     providers.ImageSink{Dir: t.TempDir()},
			})
			_, _, err := p.Generate(context.Background(), "p")
			require.Error(t, err)

			var pe *providers.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.rateLimited, pe.RateLimited)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestHTTPProvider_LocalLimiter(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := providers.NewHTTPProvider(providers.HTTPProviderOptions{
		ID:       "limited",
		Endpoint: srv.URL,
		Client:   srv.Client(),
		Limiter:  rate.NewLimiter(rate.Limit(0), 0),
	})
	_, _, err := p.Generate(context.Background(), "p")
	assert.True(t, providers.IsRateLimited(err))
	assert.Zero(t, calls, "a denied request never reaches the endpoint")
}

type fakeImageModel struct {
	resp *genai.GenerateImagesResponse
	err  error
}

func (f fakeImageModel) GenerateImages(context.Context, string) (*genai.GenerateImagesResponse, error) {
	return f.resp, f.err
}

func TestImagenProvider(t *testing.T) {
	sink := providers.ImageSink{Dir: t.TempDir()}
	ok := providers.NewImagenProvider("imagen", fakeImageModel{resp: &genai.GenerateImagesResponse{
		GeneratedImages: []*genai.GeneratedImage{{Image: &genai.Image{ImageBytes: pngBytes(t), GCSURI: "gs://b/o.png"}}},
	}}, sink)
	path, url, err := ok.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, "gs://b/o.png", url)

	quota := providers.NewImagenProvider("imagen", fakeImageModel{err: genai.APIError{Code: 429, Message: "quota"}}, sink)
	_, _, err = quota.Generate(context.Background(), "p")
	assert.True(t, providers.IsRateLimited(err))

	filtered := providers.NewImagenProvider("imagen", fakeImageModel{resp: &genai.GenerateImagesResponse{
		GeneratedImages: []*genai.GeneratedImage{{RAIFilteredReason: "unsafe"}},
	}}, sink)
	_, _, err = filtered.Generate(context.Background(), "p")
	assert.ErrorContains(t, err, "filtered: unsafe")

	empty := providers.NewImagenProvider("imagen", fakeImageModel{resp: &genai.GenerateImagesResponse{}}, sink)
	_, _, err = empty.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, providers.ErrEmptyResponse)
}

type fakeOpenAIImages struct {
	resp *openai.ImagesResponse
	err  error
	got  openai.ImageGenerateParams
}

func (f *fakeOpenAIImages) Generate(_ context.Context, body openai.ImageGenerateParams, _ ...option.RequestOption) (*openai.ImagesResponse, error) {
	f.got = body
	return f.resp, f.err
}

func TestOpenAIProvider(t *testing.T) {
	images := &fakeOpenAIImages{resp: &openai.ImagesResponse{Data: []openai.Image{{B64JSON: base64.StdEncoding.EncodeToString(pngBytes(t))}}}}
	p := providers.NewOpenAIProvider("openai", images, "", providers.ImageSink{Dir: t.TempDir()})

	path, _, err := p.Generate(context.Background(), "a red fox")
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, "a red fox", images.got.Prompt)
	assert.Equal(t, openai.ImageModelDallE3, images.got.Model)
	assert.Equal(t, openai.ImageGenerateParamsSize1024x1792, images.got.Size)

	images.resp = &openai.ImagesResponse{}
	_, _, err = p.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, providers.ErrEmptyResponse)

	images.err = errors.New("connection reset")
	_, _, err = p.Generate(context.Background(), "p")
	var pe *providers.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "openai", pe.ProviderID)
}

func TestBuild(t *testing.T) {
	t.Setenv("TEST_STABILITY_KEY", "sk-test")
	t.Setenv("TEST_MISSING_KEY", "")

	config := cloud.NewConfig()
	config.Pipeline.WorkDir = t.TempDir()
	config.Providers = map[string]cloud.ProviderSettings{
		"stability": {Kind: cloud.ProviderKindHTTP, Priority: 3, Endpoint: "https://example.com", CredentialEnv: "TEST_STABILITY_KEY", RateLimit: 2},
		"openai":    {Kind: cloud.ProviderKindOpenAI, Priority: 2, CredentialEnv: "TEST_MISSING_KEY"},
		"disabled":  {Kind: cloud.ProviderKindHTTP, Disabled: true},
		"tts":       {Kind: cloud.ProviderKindExternal, Capability: "tts", Priority: 1},
	}

	entries, err := providers.Build(config, &cloud.ServiceClients{HTTPClient: http.DefaultClient})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byID := map[string]providers.Entry{}
	for _, e := range entries {
		byID[e.Config.ID] = e
	}
	assert.NotContains(t, byID, "disabled")

	assert.True(t, byID["stability"].Config.CredentialPresent)
	assert.Equal(t, model.CapabilityImage, byID["stability"].Config.Capability)
	require.NotNil(t, byID["stability"].Provider)
	assert.Equal(t, "stability", byID["stability"].Config.DisplayName)

	assert.False(t, byID["openai"].Config.CredentialPresent)
	assert.Nil(t, byID["openai"].Provider)

	assert.Equal(t, model.CapabilityTTS, byID["tts"].Config.Capability)
	assert.True(t, byID["tts"].Config.CredentialPresent, "no credential variable means ambient credentials")
	assert.Nil(t, byID["tts"].Provider)
}

func TestBuild_Errors(t *testing.T) {
	config := cloud.NewConfig()
	config.Providers = map[string]cloud.ProviderSettings{"x": {Kind: "carrier-pigeon"}}
	_, err := providers.Build(config, nil)
	assert.ErrorContains(t, err, "unknown kind")

	config.Providers = map[string]cloud.ProviderSettings{"x": {Kind: cloud.ProviderKindHTTP}}
	_, err = providers.Build(config, nil)
	assert.ErrorContains(t, err, "endpoint")

	config.Providers = map[string]cloud.ProviderSettings{"x": {Kind: cloud.ProviderKindImagen}}
	_, err = providers.Build(config, &cloud.ServiceClients{})
	assert.ErrorContains(t, err, "no imagen model")
}
