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

package probe_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/probe"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/testutil"
)

func TestParseJSON(t *testing.T) {
	md, err := probe.ParseJSON([]byte(testutil.CompliantProbeJSON))
	require.NoError(t, err)
	assert.Equal(t, &model.MediaMetadata{
		VideoCodec:  "h264",
		PixelFormat: "yuv420p",
		Profile:     "Constrained Baseline",
		Level:       3.0,
		Width:       1080,
		Height:      1920,
		AudioCodec:  "aac",
		SampleRate:  44100,
		Channels:    2,
		Duration:    24,
		HasVideo:    true,
		HasAudio:    true,
	}, md)
}

func TestParseJSON_SkipsCoverArt(t *testing.T) {
	data := `{"streams":[
		{"codec_type":"video","codec_name":"mjpeg","pix_fmt":"yuvj444p","disposition":{"attached_pic":1}},
		{"codec_type":"audio","codec_name":"mp3","sample_rate":"44100","channels":2},
		{"codec_type":"video","codec_name":"h264","pix_fmt":"yuv420p","level":31},
		{"codec_type":"audio","codec_name":"aac","sample_rate":"48000","channels":1}
	],"format":{"duration":"n/a"}}`
	md, err := probe.ParseJSON([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, "h264", md.VideoCodec)
	assert.InDelta(t, 3.1, md.Level, 1e-9)
	assert.Equal(t, "mp3", md.AudioCodec, "the first audio stream wins")
	assert.Zero(t, md.Duration)
}

func TestParseJSON_Invalid(t *testing.T) {
	_, err := probe.ParseJSON([]byte("not json"))
	assert.Error(t, err)

	md, err := probe.ParseJSON([]byte(testutil.VideoOnlyProbeJSON))
	require.NoError(t, err)
	assert.True(t, md.HasVideo)
	assert.False(t, md.HasAudio)
}

func TestFFProbe_Probe(t *testing.T) {
	runner := &testutil.FakeRunner{Handler: func(context.Context, string, []string) ([]byte, []byte, error) {
		return []byte(testutil.FullRangeProbeJSON), nil, nil
	}}
	md, err := probe.NewFFProbe(runner, "").Probe(context.Background(), "bad.mp4")
	require.NoError(t, err)
	assert.Equal(t, "yuvj420p", md.PixelFormat)

	calls := runner.CallsTo("ffprobe")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", "bad.mp4"}, calls[0].Args)
}

func TestFFProbe_Duration(t *testing.T) {
	out := "24.052245\n"
	runner := &testutil.FakeRunner{Handler: func(context.Context, string, []string) ([]byte, []byte, error) {
		return []byte(out), nil, nil
	}}
	p := probe.NewFFProbe(runner, "/opt/ffprobe")

	d, err := p.Duration(context.Background(), "voice.mp3")
	require.NoError(t, err)
	assert.InDelta(t, 24.052245, d, 1e-9)
	assert.Equal(t, []string{"-v", "error", "-show_entries", "format=duration", "-of", "csv=p=0", "voice.mp3"}, runner.CallsTo("/opt/ffprobe")[0].Args)

	out = "N/A\n"
	_, err = p.Duration(context.Background(), "voice.mp3")
	assert.ErrorIs(t, err, probe.ErrNoDuration)

	failing := &testutil.FakeRunner{Handler: func(context.Context, string, []string) ([]byte, []byte, error) {
		return nil, []byte("voice.mp3: No such file or directory"), errors.New("exit status 1")
	}}
	_, err = probe.NewFFProbe(failing, "").Duration(context.Background(), "voice.mp3")
	assert.ErrorContains(t, err, "No such file")
}
