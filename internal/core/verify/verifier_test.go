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

package verify_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/probe"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/render"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/verify"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/testutil"
)

// probeRunner answers ffprobe with a fixture chosen by path and records
// ffmpeg invocations.
func probeRunner(byPath map[string]string) *testutil.FakeRunner {
	return &testutil.FakeRunner{Handler: func(_ context.Context, name string, args []string) ([]byte, []byte, error) {
		if name == "ffmpeg" {
			return nil, nil, testutil.TouchOutput(args)
		}
		path := args[len(args)-1]
		data, ok := byPath[path]
		if !ok {
			return nil, []byte(path + ": No such file or directory"), errors.New("exit status 1")
		}
		return []byte(data), nil, nil
	}}
}

func newVerifier(runner *testutil.FakeRunner) *verify.Verifier {
	return verify.NewVerifier(probe.NewFFProbe(runner, ""))
}

func TestVerify_Compliant(t *testing.T) {
	v := newVerifier(probeRunner(map[string]string{"ok.mp4": testutil.CompliantProbeJSON}))
	report := v.Verify(context.Background(), "ok.mp4", model.DefaultCompatibilityProfile())

	assert.True(t, report.Passed)
	assert.Empty(t, report.Violations)
	assert.Equal(t, "ok.mp4", report.Path)
}

func TestVerify_FullRange(t *testing.T) {
	v := newVerifier(probeRunner(map[string]string{"bad.mp4": testutil.FullRangeProbeJSON}))
	report := v.Verify(context.Background(), "bad.mp4", model.DefaultCompatibilityProfile())

	assert.False(t, report.Passed)
	want := []model.Violation{
		{Field: model.FieldPixelFormat, Expected: "yuv420p", Actual: "yuvj420p"},
		{Field: model.FieldProfile, Expected: "baseline|main", Actual: "High"},
		{Field: model.FieldLevel, Expected: "<= 3.0", Actual: "4.0"},
		{Field: model.FieldChannels, Expected: "2", Actual: "1"},
	}
	if diff := cmp.Diff(want, report.Violations); diff != "" {
		t.Errorf("violations mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, report.HasViolation(model.FieldPixelFormat))
	assert.False(t, report.HasViolation(model.FieldSampleRate), "48 kHz is accepted")
}

func TestVerify_ProbeFailure(t *testing.T) {
	v := newVerifier(probeRunner(nil))
	report := v.Verify(context.Background(), "missing.mp4", model.DefaultCompatibilityProfile())

	assert.False(t, report.Passed)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, model.FieldProbe, report.Violations[0].Field)
	assert.Contains(t, report.Violations[0].Actual, "No such file")
}

func TestCheck(t *testing.T) {
	profile := model.DefaultCompatibilityProfile()

	silent := &model.MediaMetadata{HasVideo: true, VideoCodec: "h264", PixelFormat: "yuv420p", Profile: "Main", Level: 3.0}
	assert.Equal(t, []model.Violation{{Field: model.FieldAudioCodec, Expected: "aac", Actual: "none"}}, verify.Check(silent, profile))

	audioOnly := &model.MediaMetadata{HasAudio: true, AudioCodec: "aac", SampleRate: 22050, Channels: 2}
	assert.Equal(t, []model.Violation{
		{Field: model.FieldVideoCodec, Expected: "h264", Actual: "none"},
		{Field: model.FieldSampleRate, Expected: "44100|48000", Actual: "22050"},
	}, verify.Check(audioOnly, profile))

	vp9 := &model.MediaMetadata{HasVideo: true, VideoCodec: "vp9", PixelFormat: "yuv420p", HasAudio: true, AudioCodec: "opus", SampleRate: 48000, Channels: 2}
	got := verify.Check(vp9, profile)
	require.Len(t, got, 4)
	assert.Equal(t, model.FieldVideoCodec, got[0].Field)
	assert.Equal(t, model.Violation{Field: model.FieldProfile, Expected: "baseline|main", Actual: "none"}, got[1])
	assert.Equal(t, model.Violation{Field: model.FieldLevel, Expected: "<= 3.0", Actual: "unknown"}, got[2])
	assert.Equal(t, model.FieldAudioCodec, got[3].Field)

	lower := &model.MediaMetadata{HasVideo: true, VideoCodec: "H264", PixelFormat: "YUV420P", Profile: "Constrained Baseline", Level: 2.1,
		HasAudio: true, AudioCodec: "AAC", SampleRate: 44100, Channels: 2}
	assert.Empty(t, verify.Check(lower, profile))
}

func TestCheck_UnknownLevel(t *testing.T) {
	md, err := probe.ParseJSON([]byte(`{"streams":[
		{"codec_type":"video","codec_name":"h264","pix_fmt":"yuv420p","profile":"Main","level":-99},
		{"codec_type":"audio","codec_name":"aac","sample_rate":"44100","channels":2}
	],"format":{"duration":"4.0"}}`))
	require.NoError(t, err)
	assert.Zero(t, md.Level)

	profile := model.DefaultCompatibilityProfile()
	assert.Equal(t, []model.Violation{{Field: model.FieldLevel, Expected: "<= 3.0", Actual: "unknown"}}, verify.Check(md, profile))

	profile.MaxLevel = 0
	assert.Empty(t, verify.Check(md, profile))
}

func TestFixedPath(t *testing.T) {
	assert.Equal(t, "/out/run_fixed.mp4", verify.FixedPath("/out/run.mp4"))
	assert.Equal(t, "/out/run_fixed.mp4", verify.FixedPath("/out/run.mov"))
}

func TestRemediatorArgs(t *testing.T) {
	args := verify.Args("in.mp4", "out.mp4", model.DefaultCompatibilityProfile())
	want := []string{
		"-i", "in.mp4",
		"-vf", "scale=in_range=full:out_range=tv,format=yuv420p",
		"-c:v", "libx264",
		"-preset", "fast",
		"-profile:v", "baseline",
		"-level", "3.0",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-color_range", "tv",
		"-colorspace", "bt709",
		"-color_primaries", "bt709",
		"-color_trc", "bt709",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "44100",
		"-ac", "2",
		"-movflags", "+faststart",
		"-f", "mp4",
		"-y", "out.mp4",
	}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Errorf("Args() mismatch (-want +got):\n%s", diff)
	}
}

func TestRemediate(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "run.mp4")
	require.NoError(t, os.WriteFile(in, []byte("mp4"), 0o644))
	fixed := verify.FixedPath(in)

	runner := probeRunner(map[string]string{fixed: testutil.CompliantProbeJSON})
	r := verify.NewRemediator(runner, "", newVerifier(runner))

	out, report, err := r.Remediate(context.Background(), in, model.DefaultCompatibilityProfile())
	require.NoError(t, err)
	assert.Equal(t, fixed, out)
	assert.FileExists(t, fixed)
	assert.NoFileExists(t, fixed+render.PartialSuffix)
	assert.True(t, report.Passed)
	assert.FileExists(t, in, "the original is left for the caller")

	encodes := runner.CallsTo("ffmpeg")
	require.Len(t, encodes, 1)
	assert.Equal(t, fixed+render.PartialSuffix, encodes[0].Args[len(encodes[0].Args)-1])
}

func TestRemediate_Failure(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "run.mp4")
	runner := &testutil.FakeRunner{Handler: func(_ context.Context, _ string, args []string) ([]byte, []byte, error) {
		_ = testutil.TouchOutput(args)
		return nil, []byte("Conversion failed!"), errors.New("exit status 1")
	}}
	r := verify.NewRemediator(runner, "ffmpeg", newVerifier(runner))

	_, _, err := r.Remediate(context.Background(), in, model.DefaultCompatibilityProfile())

	var rerr *render.RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "Conversion failed!", rerr.Stderr)
	assert.NoFileExists(t, verify.FixedPath(in)+render.PartialSuffix)
	assert.NoFileExists(t, verify.FixedPath(in))
}
