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

// Package probe reads stream metadata from media files with ffprobe.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/process"
)

// ErrNoDuration is returned when ffprobe reports no usable duration.
var ErrNoDuration = errors.New("media has no duration")

// FFProbe runs ffprobe through a process.Runner.
type FFProbe struct {
	runner process.Runner
	binary string
}

// NewFFProbe creates a prober. An empty binary uses "ffprobe" from PATH.
func NewFFProbe(runner process.Runner, binary string) *FFProbe {
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFProbe{runner: runner, binary: binary}
}

// Probe returns the stream metadata of path from a single JSON ffprobe call.
func (p *FFProbe) Probe(ctx context.Context, path string) (*model.MediaMetadata, error) {
	out, stderr, err := p.runner.Run(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %q: %w: %s", path, err, strings.TrimSpace(string(stderr)))
	}
	return ParseJSON(out)
}

// Duration returns the container duration of path in seconds.
func (p *FFProbe) Duration(ctx context.Context, path string) (float64, error) {
	out, stderr, err := p.runner.Run(ctx, p.binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %q: %w: %s", path, err, strings.TrimSpace(string(stderr)))
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrNoDuration, path)
	}
	return d, nil
}

// ParseJSON converts raw ffprobe JSON output into MediaMetadata. The first
// video stream that is not cover art and the first audio stream are used.
func ParseJSON(data []byte) (*model.MediaMetadata, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	md := &model.MediaMetadata{Duration: parseFloat(raw.Format.Duration)}
	for i := range raw.Streams {
		s := &raw.Streams[i]
		switch s.CodecType {
		case "video":
			if md.HasVideo || s.Disposition["attached_pic"] == 1 {
				continue
			}
			md.HasVideo = true
			md.VideoCodec = s.CodecName
			md.PixelFormat = s.PixFmt
			md.Profile = s.Profile
			md.Level = normalizeLevel(s.Level)
			md.Width = s.Width
			md.Height = s.Height
		case "audio":
			if md.HasAudio {
				continue
			}
			md.HasAudio = true
			md.AudioCodec = s.CodecName
			md.SampleRate = parseInt(s.SampleRate)
			md.Channels = s.Channels
		}
	}
	return md, nil
}

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

type ffprobeStream struct {
	Index       int            `json:"index"`
	CodecName   string         `json:"codec_name"`
	CodecType   string         `json:"codec_type"`
	Profile     string         `json:"profile"`
	Level       int            `json:"level"`
	PixFmt      string         `json:"pix_fmt"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Channels    int            `json:"channels"`
	SampleRate  string         `json:"sample_rate"`
	Disposition map[string]int `json:"disposition"`
}

// normalizeLevel turns the H.264 level_idc reported by ffprobe (30) into the
// conventional dotted value (3.0). Unknown levels (ffprobe reports -99) are
// reported as 0.
func normalizeLevel(level int) float64 {
	if level <= 0 {
		return 0
	}
	return float64(level) / 10
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
