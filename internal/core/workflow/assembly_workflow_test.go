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

package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/generation"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/placeholder"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/probe"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/providers"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/render"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/services"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/verify"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/workflow"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// harness wires a workflow to fake providers and a scripted ffmpeg/ffprobe.
type harness struct {
	workflow *workflow.AssemblyWorkflow
	runner   *testutil.FakeRunner
	store    *services.LocalArtifactStore
	usage    *providers.UsageStats
	audio    string

	renderErr error // Returned by every ffmpeg call when set.
	fullRange bool  // Probe rendered files as full-range until remediated.
}

func newHarness(t *testing.T, keepAssets bool, entries func(imageDir string) []providers.Entry) *harness {
	t.Helper()
	base := t.TempDir()
	imageDir := filepath.Join(base, "images")
	require.NoError(t, os.MkdirAll(imageDir, 0o755))

	h := &harness{
		runner: &testutil.FakeRunner{},
		store:  services.NewLocalArtifactStore(filepath.Join(base, "artifacts")),
		usage:  providers.NewUsageStats(),
		audio:  filepath.Join(base, "narration.mp3"),
	}
	require.NoError(t, os.WriteFile(h.audio, []byte("mp3"), 0o644))

	h.runner.Handler = func(_ context.Context, name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "ffprobe":
			if slices.Contains(args, "-show_entries") {
				return []byte("24.000000\n"), nil, nil
			}
			path := args[len(args)-1]
			if h.fullRange && !strings.Contains(path, verify.FixedSuffix) {
				return []byte(testutil.FullRangeProbeJSON), nil, nil
			}
			return []byte(testutil.CompliantProbeJSON), nil, nil
		case "ffmpeg":
			if h.renderErr != nil {
				return nil, []byte("Error initializing output stream"), h.renderErr
			}
			return nil, nil, testutil.TouchOutput(args)
		}
		return nil, nil, fmt.Errorf("unexpected binary %s", name)
	}

	config := model.DefaultPipelineConfig()
	config.Width, config.Height = 108, 192
	config.WorkDir = filepath.Join(base, "work")
	config.OutputDir = filepath.Join(base, "output")
	config.KeepAssets = keepAssets

	registry := providers.NewRegistry(entries(imageDir)...)
	selector := providers.NewSelector(registry, rand.NewPCG(1, 2)).WithWeights(1, 3)
	renderer := placeholder.NewRenderer(config.Width, config.Height, filepath.Join(config.WorkDir, "placeholders"))
	prober := probe.NewFFProbe(h.runner, "ffprobe")
	verifier := verify.NewVerifier(prober)

	h.workflow = workflow.NewAssemblyWorkflow(config, workflow.Dependencies{
		Prober:     prober,
		Generator:  generation.NewCoordinator(config, registry, selector, h.usage, renderer),
		Renderer:   render.NewInvoker(config, h.runner),
		Verifier:   verifier,
		Remediator: verify.NewRemediator(h.runner, "ffmpeg", verifier),
		Store:      h.store,
	})
	return h
}

func (h *harness) request() *model.RenderRequest {
	return &model.RenderRequest{
		RunID:     "run-123",
		AudioPath: h.audio,
		Segments: []model.VisualSegment{
			{ID: "s1", ConceptText: "sunrise over a city", StartTime: 0, EndTime: 10},
			{ID: "s2", ConceptText: "runner on a bridge", StartTime: 12, EndTime: 20},
			{ID: "s3", ConceptText: "trophy on a desk", StartTime: 20, EndTime: 24},
		},
	}
}

func newChainContext(in any) cor.Context {
	c := cor.NewBaseContext()
	c.Add(cor.CtxIn, in)
	return c
}

func slotBounds(slots []model.TimelineSlot) [][2]float64 {
	out := make([][2]float64, 0, len(slots))
	for _, s := range slots {
		out = append(out, [2]float64{s.Start, s.End})
	}
	return out
}

func TestAssemblyWorkflow_EndToEnd(t *testing.T) {
	limited := testutil.RateLimitedProvider("p1")
	var images *testutil.FakeProvider
	h := newHarness(t, false, func(dir string) []providers.Entry {
		images = testutil.ImageProvider("p2", dir)
		return []providers.Entry{testutil.ImageEntry(limited, 1), testutil.ImageEntry(images, 2)}
	})

	result, err := h.workflow.Run(context.Background(), h.request())
	require.NoError(t, err)

	want := [][2]float64{{0, 12}, {12, 20}, {20, 24}}
	if diff := cmp.Diff(want, slotBounds(result.Slots)); diff != "" {
		t.Errorf("slots mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, result.Assets, 3)
	for _, a := range result.Assets {
		assert.Equal(t, "p2", a.ProviderUsed)
		assert.False(t, a.IsPlaceholder)
		assert.NoFileExists(t, a.FilePath, "generated images are removed after a successful run")
	}
	assert.Equal(t, int64(3), limited.Calls())
	assert.Equal(t, int64(3), images.Calls())
	assert.Equal(t, model.UsageStat{ProviderID: "p1", Attempts: 3}, h.usage.Get("p1"))
	assert.Equal(t, model.UsageStat{ProviderID: "p2", Attempts: 3, Successes: 3}, h.usage.Get("p2"))

	assert.Equal(t, "run-123", result.RunID)
	assert.Equal(t, 2, result.Transitions)
	assert.Zero(t, result.Placeholders)
	assert.True(t, result.Report.Passed)
	assert.False(t, result.Remediated)
	assert.Equal(t, h.store.StatePath(services.StateProcessed, "run-123", "run-123.mp4"), result.ArtifactPath)
	assert.FileExists(t, result.ArtifactPath)

	ffmpeg := h.runner.CallsTo("ffmpeg")
	require.Len(t, ffmpeg, 1)
	assert.Contains(t, ffmpeg[0].Args, "24.000", "the render is pinned to the narration length")
}

func TestAssemblyWorkflow_ProbesDurationAndKeepsAssets(t *testing.T) {
	h := newHarness(t, true, func(dir string) []providers.Entry {
		return []providers.Entry{testutil.ImageEntry(testutil.ImageProvider("p1", dir), 1)}
	})
	req := h.request()
	req.Segments = nil

	result, err := h.workflow.Run(context.Background(), req)
	require.NoError(t, err)

	probes := h.runner.CallsTo("ffprobe")
	require.NotEmpty(t, probes)
	assert.Contains(t, probes[0].Args, "format=duration")

	require.Len(t, result.Slots, 1)
	assert.Equal(t, model.DefaultSegmentID, result.Slots[0].Segment.ID)
	assert.Equal(t, 24.0, result.Slots[0].End)
	assert.Zero(t, result.Transitions)
	require.Len(t, result.Assets, 1)
	assert.FileExists(t, result.Assets[0].FilePath, "assets are kept when configured")
}

func TestAssemblyWorkflow_AllProvidersFail(t *testing.T) {
	h := newHarness(t, false, func(string) []providers.Entry {
		return []providers.Entry{
			testutil.ImageEntry(testutil.RateLimitedProvider("p1"), 1),
			testutil.ImageEntry(testutil.RateLimitedProvider("p2"), 2),
		}
	})

	result, err := h.workflow.Run(context.Background(), h.request())
	require.NoError(t, err, "placeholders never fail a run")
	assert.Equal(t, 3, result.Placeholders)
	for _, a := range result.Assets {
		assert.True(t, a.IsPlaceholder)
		assert.Equal(t, placeholder.ProviderID, a.ProviderUsed)
	}
	assert.True(t, result.Report.Passed)
}

func TestAssemblyWorkflow_RenderFailure(t *testing.T) {
	var dir string
	h := newHarness(t, false, func(d string) []providers.Entry {
		dir = d
		return []providers.Entry{testutil.ImageEntry(testutil.ImageProvider("p1", d), 1)}
	})
	h.renderErr = errors.New("exit status 1")

	result, err := h.workflow.Run(context.Background(), h.request())
	require.Error(t, err)

	var rerr *render.RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Stderr, "Error initializing output stream")
	assert.Len(t, result.Slots, 3)
	assert.Empty(t, result.ArtifactPath)

	left, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, left, "assets of a failed run are discarded")
}

func TestAssemblyWorkflow_Remediation(t *testing.T) {
	h := newHarness(t, false, func(dir string) []providers.Entry {
		return []providers.Entry{testutil.ImageEntry(testutil.ImageProvider("p1", dir), 1)}
	})
	h.fullRange = true

	t.Run("not requested", func(t *testing.T) {
		req := h.request()
		req.RunID = "run-plain"
		result, err := h.workflow.Run(context.Background(), req)
		require.NoError(t, err, "an incompatible artifact is reported, not raised")
		assert.False(t, result.Report.Passed)
		assert.True(t, result.Report.HasViolation(model.FieldPixelFormat))
		assert.Equal(t, h.store.StatePath(services.StatePending, "run-plain", "run-plain.mp4"), result.ArtifactPath)
	})

	t.Run("requested", func(t *testing.T) {
		req := h.request()
		req.RunID = "run-fixed"
		req.Remediate = true
		req.Publish = true
		result, err := h.workflow.Run(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, result.Remediated)
		assert.True(t, result.Report.Passed)

		published := h.store.StatePath(services.StatePublished, "run-fixed", "run-fixed"+verify.FixedSuffix+".mp4")
		assert.Equal(t, published, result.ArtifactPath)
		assert.Equal(t, published, result.PublishedURL)
		assert.FileExists(t, published)
		assert.NoFileExists(t, h.store.StatePath(services.StatePending, "run-fixed", "run-fixed.mp4"),
			"the incompatible original is removed")
	})
}

func TestAssemblyWorkflow_RawJSONInput(t *testing.T) {
	h := newHarness(t, false, func(dir string) []providers.Entry {
		return []providers.Entry{testutil.ImageEntry(testutil.ImageProvider("p1", dir), 1)}
	})
	raw := fmt.Sprintf(testutil.RenderRequestJSON, h.audio)

	chainCtx := newChainContext(raw)
	defer chainCtx.Close()
	require.True(t, h.workflow.IsExecutable(chainCtx))
	h.workflow.Execute(chainCtx)
	require.NoError(t, chainCtx.Err())

	result := workflow.Result(chainCtx)
	assert.Equal(t, "run-123", result.RunID)
	assert.Len(t, result.Slots, 3)
	assert.True(t, result.Report.Passed)
}

func TestAssemblyWorkflow_InvalidRequest(t *testing.T) {
	h := newHarness(t, false, func(string) []providers.Entry { return nil })

	_, err := h.workflow.Run(context.Background(), nil)
	assert.Error(t, err)

	result, err := h.workflow.Run(context.Background(), &model.RenderRequest{RunID: "r"})
	assert.ErrorIs(t, err, model.ErrMissingAudio)
	assert.Empty(t, result.Slots)
	assert.Empty(t, h.runner.Calls())
}

func TestAssemblyWorkflow_Cancelled(t *testing.T) {
	h := newHarness(t, false, func(string) []providers.Entry {
		return []providers.Entry{testutil.ImageEntry(testutil.HangingProvider("p1"), 1)}
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.workflow.Run(ctx, h.request())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.runner.CallsTo("ffmpeg"))
}
