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
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"math/rand/v2"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/providers"
)

func cfg(id string, priority int, capability model.Capability, creds bool) providers.Entry {
	return providers.Entry{Config: model.ProviderConfig{
		ID:                id,
		Priority:          priority,
		Capability:        capability,
		CredentialPresent: creds,
	}}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestRegistry_SortsAndFilters(t *testing.T) {
	registry := providers.NewRegistry(
		cfg("stability", 3, model.CapabilityImage, true),
		cfg("openai", 2, model.CapabilityImage, false),
		cfg("b-imagen", 1, model.CapabilityImage, true),
		cfg("a-imagen", 1, model.CapabilityImage, true),
		cfg("elevenlabs", 1, model.CapabilityTTS, true),
	)

	ids := func(configs []model.ProviderConfig) []string {
		out := make([]string, 0, len(configs))
		for _, c := range configs {
			out = append(out, c.ID)
		}
		return out
	}

	assert.Equal(t, []string{"a-imagen", "b-imagen", "elevenlabs", "openai", "stability"}, ids(registry.Configs()))
	assert.Equal(t, []string{"a-imagen", "b-imagen", "stability"}, ids(registry.Eligible(model.CapabilityImage, nil)))

	exclude := providers.ExcludeSet{}
	exclude.Add("a-imagen")
	assert.True(t, exclude.Has("a-imagen"))
	assert.Equal(t, []string{"b-imagen", "stability"}, ids(registry.Eligible(model.CapabilityImage, exclude)))

	_, ok := registry.Provider("a-imagen")
	assert.False(t, ok, "entries without an implementation are tracked only")
}

func TestRegistry_Reload(t *testing.T) {
	registry := providers.NewRegistry(cfg("old", 1, model.CapabilityImage, true))
	snapshot := registry.Configs()

	registry.Reload([]providers.Entry{cfg("new", 1, model.CapabilityImage, true)})

	require.Len(t, registry.Configs(), 1)
	assert.Equal(t, "new", registry.Configs()[0].ID)
	assert.Equal(t, "old", snapshot[0].ID, "earlier snapshots are not mutated")
}

func TestSelector_NoEligible(t *testing.T) {
	registry := providers.NewRegistry(cfg("nocreds", 1, model.CapabilityImage, false))
	selector := providers.NewSelector(registry, rand.NewPCG(1, 2))

	_, ok := selector.Select(model.CapabilityImage, nil)
	assert.False(t, ok)
	_, ok = selector.Select(model.CapabilityScript, nil)
	assert.False(t, ok)
}

func TestSelector_PrefersTopAndStaysInTopN(t *testing.T) {
	registry := providers.NewRegistry(
		cfg("p1", 1, model.CapabilityImage, true),
		cfg("p2", 2, model.CapabilityImage, true),
		cfg("p3", 3, model.CapabilityImage, true),
		cfg("p4", 4, model.CapabilityImage, true),
	)
	selector := providers.NewSelector(registry, rand.NewPCG(42, 7))

	counts := map[string]int{}
	const n = 2000
	for range n {
		c, ok := selector.Select(model.CapabilityImage, nil)
		require.True(t, ok)
		counts[c.ID]++
	}

	assert.Zero(t, counts["p4"], "only the top three are ever picked")
	// Expected share of p1 is 0.7 + 0.3/3 = 0.8.
	share := float64(counts["p1"]) / n
	assert.InDelta(t, 0.8, share, 0.05)
	assert.Positive(t, counts["p2"])
	assert.Positive(t, counts["p3"])
}

func TestSelector_WeightsAndExclude(t *testing.T) {
	registry := providers.NewRegistry(
		cfg("p1", 1, model.CapabilityImage, true),
		cfg("p2", 2, model.CapabilityImage, true),
	)
	selector := providers.NewSelector(registry, rand.NewPCG(3, 4)).WithWeights(1, 3)

	for range 50 {
		c, ok := selector.Select(model.CapabilityImage, nil)
		require.True(t, ok)
		assert.Equal(t, "p1", c.ID)
	}

	exclude := providers.ExcludeSet{}
	exclude.Add("p1")
	c, ok := selector.Select(model.CapabilityImage, exclude)
	require.True(t, ok)
	assert.Equal(t, "p2", c.ID)

	exclude.Add("p2")
	_, ok = selector.Select(model.CapabilityImage, exclude)
	assert.False(t, ok)
}

func TestUsageStats_Concurrent(t *testing.T) {
	usage := providers.NewUsageStats()
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			usage.RecordAttempt(ctx, "a")
			usage.RecordAttempt(ctx, "b")
			usage.RecordSuccess(ctx, "a")
		}()
	}
	wg.Wait()

	assert.Equal(t, model.UsageStat{ProviderID: "a", Attempts: 50, Successes: 50}, usage.Get("a"))
	assert.Equal(t, model.UsageStat{ProviderID: "b", Attempts: 50}, usage.Get("b"))
	assert.Equal(t, model.UsageStat{ProviderID: "unknown"}, usage.Get("unknown"))

	snapshot := usage.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "a", snapshot[0].ProviderID)

	health := usage.Health([]model.ProviderConfig{{ID: "b"}, {ID: "c"}})
	require.Len(t, health, 2)
	assert.Equal(t, int64(50), health[0].Failures)
	assert.Zero(t, health[0].SuccessRate)
	assert.Zero(t, health[1].Attempts)
}

func TestProviderError(t *testing.T) {
	limited := providers.NewProviderError("stability", http.StatusTooManyRequests, nil)
	assert.True(t, providers.IsRateLimited(limited))
	assert.Equal(t, "provider stability: status 429: unexpected status 429", limited.Error())

	wrapped := providers.NewProviderError("x", 0, providers.ErrRateLimited)
	assert.True(t, providers.IsRateLimited(wrapped))
	assert.ErrorIs(t, wrapped, providers.ErrRateLimited)

	assert.False(t, providers.IsRateLimited(errors.New("plain")))
	assert.False(t, providers.IsRateLimited(providers.NewProviderError("x", 500, nil)))
}

func TestEnhancePrompt(t *testing.T) {
	got := providers.EnhancePrompt(model.VisualSegment{ConceptText: "  a lion at dusk ", StyleTag: "Cinematic", EmotionTag: "powerful"})
	assert.True(t, len(got) > 0)
	assert.Contains(t, got, "a lion at dusk, cinematic lighting")
	assert.Contains(t, got, "strong, bold")
	assert.Contains(t, got, "vertical 9:16 composition")

	unknown := providers.EnhancePrompt(model.VisualSegment{ConceptText: "x", StyleTag: "baroque", EmotionTag: "meh"})
	assert.NotContains(t, unknown, "baroque")
	assert.Contains(t, unknown, "x, high quality")
}

func TestImageSink(t *testing.T) {
	sink := providers.ImageSink{Dir: t.TempDir()}

	path, err := sink.Save("imagen", pngBytes(t))
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Contains(t, path, "imagen-")
	assert.True(t, bytes.HasSuffix([]byte(path), []byte(".png")))

	_, err = sink.Save("imagen", nil)
	assert.ErrorIs(t, err, providers.ErrEmptyResponse)

	_, err = sink.Save("imagen", []byte("<html>quota exceeded</html>"))
	assert.ErrorIs(t, err, providers.ErrNotImage)
	var pe *providers.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "imagen", pe.ProviderID)
}
