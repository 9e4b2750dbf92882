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

package model

import (
	"fmt"
	"strings"
)

// Violation field names, used as the first word of every violation message.
const (
	FieldVideoCodec  = "videoCodec"
	FieldPixelFormat = "pixelFormat"
	FieldProfile     = "profile"
	FieldLevel       = "level"
	FieldAudioCodec  = "audioCodec"
	FieldSampleRate  = "sampleRate"
	FieldChannels    = "channels"
	FieldProbe       = "probe"
)

// CompatibilityProfile is the encoding contract a rendered artifact must meet
// to be playable on the target platform.
type CompatibilityProfile struct {
	VideoCodec       string   `json:"video_codec" toml:"video_codec"`
	PixelFormat      string   `json:"pixel_format" toml:"pixel_format"`
	Profiles         []string `json:"profiles" toml:"profiles"` // Accepted encoding profiles, e.g. baseline, main.
	MaxLevel         float64  `json:"max_level" toml:"max_level"`
	AudioCodec       string   `json:"audio_codec" toml:"audio_codec"`
	AudioSampleRates []int    `json:"audio_sample_rates" toml:"audio_sample_rates"`
	AudioChannels    int      `json:"audio_channels" toml:"audio_channels"`
	Width            int      `json:"width" toml:"width"`
	Height           int      `json:"height" toml:"height"`
}

// DefaultCompatibilityProfile is the broadly playable vertical video profile:
// H.264 baseline or main up to level 3.0 in yuv420p, with stereo AAC audio.
func DefaultCompatibilityProfile() CompatibilityProfile {
	return CompatibilityProfile{
		VideoCodec:       "h264",
		PixelFormat:      "yuv420p",
		Profiles:         []string{"baseline", "main"},
		MaxLevel:         3.0,
		AudioCodec:       "aac",
		AudioSampleRates: []int{44100, 48000},
		AudioChannels:    2,
		Width:            1080,
		Height:           1920,
	}
}

// AllowsProfile reports whether an encoder profile name is accepted. ffprobe
// reports names such as "Constrained Baseline" or "Main", so the comparison
// is case-insensitive and a constrained variant satisfies its base profile.
func (p CompatibilityProfile) AllowsProfile(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "constrained ")
	for _, allowed := range p.Profiles {
		if strings.EqualFold(strings.TrimSpace(allowed), n) {
			return true
		}
	}
	return false
}

// AllowsSampleRate reports whether rate is one of the accepted sample rates.
func (p CompatibilityProfile) AllowsSampleRate(rate int) bool {
	for _, r := range p.AudioSampleRates {
		if r == rate {
			return true
		}
	}
	return false
}

// MediaMetadata holds the stream parameters a metadata probe reports for a
// rendered file.
type MediaMetadata struct {
	VideoCodec  string  `json:"video_codec"`
	PixelFormat string  `json:"pixel_format"`
	Profile     string  `json:"profile"`
	Level       float64 `json:"level"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AudioCodec  string  `json:"audio_codec"`
	SampleRate  int     `json:"sample_rate"`
	Channels    int     `json:"channels"`
	Duration    float64 `json:"duration"`
	HasVideo    bool    `json:"has_video"`
	HasAudio    bool    `json:"has_audio"`
}

// Violation is a single mismatch between a probed file and a profile.
type Violation struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", v.Field, v.Expected, v.Actual)
}

// CompatibilityReport is the verdict for one rendered artifact.
type CompatibilityReport struct {
	Path       string      `json:"path"`
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations"`
}

// NewCompatibilityReport builds a report whose Passed flag is derived from
// the violations.
func NewCompatibilityReport(path string, violations []Violation) CompatibilityReport {
	if violations == nil {
		violations = []Violation{}
	}
	return CompatibilityReport{Path: path, Passed: len(violations) == 0, Violations: violations}
}

// Messages returns the violations rendered as strings.
func (r CompatibilityReport) Messages() []string {
	out := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.String())
	}
	return out
}

// HasViolation reports whether the report names the given field.
func (r CompatibilityReport) HasViolation(field string) bool {
	for _, v := range r.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}
