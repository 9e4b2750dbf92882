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
	"errors"
	"fmt"
	"time"
)

// ErrMissingAudio is returned when a render request has no narration track.
var ErrMissingAudio = errors.New("render request requires an audio path")

// RenderRequest starts one assembly run. AudioDuration may be zero, in which
// case the duration is probed from the audio file.
type RenderRequest struct {
	RunID         string          `json:"run_id,omitempty" yaml:"run_id"`
	AudioPath     string          `json:"audio_path" yaml:"audio_path"`
	AudioDuration float64         `json:"audio_duration,omitempty" yaml:"audio_duration"`
	Segments      []VisualSegment `json:"segments" yaml:"segments"`
	Remediate     bool            `json:"remediate,omitempty" yaml:"remediate"`
	Publish       bool            `json:"publish,omitempty" yaml:"publish"`
}

// Validate checks the request and every segment in it.
func (r *RenderRequest) Validate() error {
	if r.AudioPath == "" {
		return ErrMissingAudio
	}
	if r.AudioDuration < 0 {
		return fmt.Errorf("audio duration %.3f must not be negative", r.AudioDuration)
	}
	var errs []error
	for _, s := range r.Segments {
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RenderResult summarizes a completed run.
type RenderResult struct {
	RunID        string              `json:"run_id"`
	ArtifactPath string              `json:"artifact_path"`
	PublishedURL string              `json:"published_url,omitempty"`
	Slots        []TimelineSlot      `json:"slots"`
	Assets       []GeneratedAsset    `json:"assets"`
	Transitions  int                 `json:"transitions"`
	Report       CompatibilityReport `json:"report"`
	Remediated   bool                `json:"remediated"`
	Placeholders int                 `json:"placeholders"`
}

// PipelineConfig is the immutable set of tuning parameters handed to every
// pipeline component at construction time.
type PipelineConfig struct {
	MaxAttempts       int
	PerAttemptTimeout time.Duration
	Workers           int
	GapThreshold      float64
	MinSlotDuration   float64
	CrossfadeDuration float64
	Width             int
	Height            int
	FrameRate         int
	FillColor         string
	WorkDir           string
	OutputDir         string
	FFmpegPath        string
	FFprobePath       string
	Remediate         bool
	KeepAssets        bool // Keep generated images after a successful run.
	Profile           CompatibilityProfile
}

// DefaultPipelineConfig returns the defaults used when configuration leaves a
// value unset.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MaxAttempts:       3,
		PerAttemptTimeout: 60 * time.Second,
		Workers:           3,
		GapThreshold:      0.5,
		MinSlotDuration:   2.0,
		CrossfadeDuration: 0.5,
		Width:             1080,
		Height:            1920,
		FrameRate:         30,
		FillColor:         "black",
		WorkDir:           "work",
		OutputDir:         "output",
		FFmpegPath:        "ffmpeg",
		FFprobePath:       "ffprobe",
		Profile:           DefaultCompatibilityProfile(),
	}
}
