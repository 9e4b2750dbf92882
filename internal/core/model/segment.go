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

// Package model defines the value types that flow through the shorts assembly
// pipeline: the visual segments coming from the script analyzer, the timeline
// slots produced by the allocator, the assets produced by the generation
// coordinator, the transition plan consumed by the renderer and the
// compatibility data produced by the verifier.
//
// Values in this package are plain data. They carry JSON tags so the same types
// can be used for the HTTP API, Pub/Sub render requests and CLI segment files.
package model

import (
	"errors"
	"fmt"
	"math"
)

// Validation errors returned by VisualSegment.Validate.
var (
	ErrSegmentTimes = errors.New("segment start time must be before end time")
	ErrSegmentNaN   = errors.New("segment times must be finite numbers")
)

// Default tags used when a segment carries none, and for the synthetic segment
// that covers a run without any segments.
const (
	DefaultSegmentID  = "default"
	DefaultStyleTag   = "modern"
	DefaultEmotionTag = "inspiring"
)

// VisualSegment is a concept, a time range and the style/emotion tags that
// describe what a still image should depict for part of the narration.
type VisualSegment struct {
	ID          string  `json:"id" yaml:"id"`                     // Stable identifier assigned upstream.
	ConceptText string  `json:"concept" yaml:"concept"`           // Free text describing the image.
	StyleTag    string  `json:"style,omitempty" yaml:"style"`     // e.g. "luxury", "modern", "cinematic".
	EmotionTag  string  `json:"emotion,omitempty" yaml:"emotion"` // e.g. "inspiring", "powerful".
	StartTime   float64 `json:"start_time" yaml:"start_time"`     // Seconds from the start of the narration.
	EndTime     float64 `json:"end_time" yaml:"end_time"`         // Seconds from the start of the narration.
}

// Validate accepts a segment whose times are finite and strictly ordered.
// Upstream timing is approximate, so times outside the narration (a start of
// -0.05, an end past the audio) are accepted here and clamped by the
// allocator.
func (s VisualSegment) Validate() error {
	if math.IsNaN(s.StartTime) || math.IsNaN(s.EndTime) || math.IsInf(s.StartTime, 0) || math.IsInf(s.EndTime, 0) {
		return fmt.Errorf("segment %q: %w", s.ID, ErrSegmentNaN)
	}
	if s.StartTime >= s.EndTime {
		return fmt.Errorf("segment %q [%.3f, %.3f]: %w", s.ID, s.StartTime, s.EndTime, ErrSegmentTimes)
	}
	return nil
}

// Style returns the style tag, falling back to DefaultStyleTag.
func (s VisualSegment) Style() string {
	if s.StyleTag == "" {
		return DefaultStyleTag
	}
	return s.StyleTag
}

// Emotion returns the emotion tag, falling back to DefaultEmotionTag.
func (s VisualSegment) Emotion() string {
	if s.EmotionTag == "" {
		return DefaultEmotionTag
	}
	return s.EmotionTag
}

// DefaultSegment is the synthetic segment used when a run has no segments.
func DefaultSegment(totalDuration float64) VisualSegment {
	return VisualSegment{
		ID:          DefaultSegmentID,
		ConceptText: "",
		StyleTag:    DefaultStyleTag,
		EmotionTag:  DefaultEmotionTag,
		StartTime:   0,
		EndTime:     totalDuration,
	}
}

// TimelineSlot is one contiguous piece of the final timeline.
type TimelineSlot struct {
	Index   int           `json:"index"`
	Segment VisualSegment `json:"segment"` // The segment this slot illustrates.
	Start   float64       `json:"start"`
	End     float64       `json:"end"`
}

// Duration of the slot in seconds.
func (s TimelineSlot) Duration() float64 {
	return s.End - s.Start
}

// GeneratedAsset is an image produced for a slot. It is never mutated after the
// coordinator creates it.
type GeneratedAsset struct {
	SlotIndex     int    `json:"slot_index"`
	FilePath      string `json:"file_path"`
	ProviderUsed  string `json:"provider_used"`
	SourceURL     string `json:"source_url,omitempty"`
	IsPlaceholder bool   `json:"is_placeholder"`
}
