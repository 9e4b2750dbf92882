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

// Package verify checks rendered artifacts against a compatibility profile
// and, when asked, re-encodes the ones that fail.
//
// Logic Flow:
//  1. Verifier probes the file and compares each stream parameter with the
//     profile. Every mismatch becomes one Violation; a file that cannot be
//     probed yields a single "probe" violation.
//  2. Remediator is an optional second stage. It re-encodes a failing file
//     with settings derived from the profile and verifies the result again.
package verify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// Prober reads stream metadata from a file.
type Prober interface {
	Probe(ctx context.Context, path string) (*model.MediaMetadata, error)
}

// Verifier compares probed metadata with a profile. It never modifies files.
type Verifier struct {
	prober Prober
}

// NewVerifier creates a verifier backed by prober.
func NewVerifier(prober Prober) *Verifier {
	return &Verifier{prober: prober}
}

// Verify returns the compatibility report of path. Violations are data: the
// method has no error return.
func (v *Verifier) Verify(ctx context.Context, path string, profile model.CompatibilityProfile) model.CompatibilityReport {
	md, err := v.prober.Probe(ctx, path)
	if err != nil {
		return model.NewCompatibilityReport(path, []model.Violation{{
			Field:    model.FieldProbe,
			Expected: "readable media",
			Actual:   err.Error(),
		}})
	}
	return model.NewCompatibilityReport(path, Check(md, profile))
}

// Check lists the violations of md against profile.
func Check(md *model.MediaMetadata, profile model.CompatibilityProfile) []model.Violation {
	var out []model.Violation
	add := func(field, expected, actual string) {
		out = append(out, model.Violation{Field: field, Expected: expected, Actual: actual})
	}

	if !md.HasVideo {
		add(model.FieldVideoCodec, profile.VideoCodec, "none")
	} else {
		if !strings.EqualFold(md.VideoCodec, profile.VideoCodec) {
			add(model.FieldVideoCodec, profile.VideoCodec, md.VideoCodec)
		}
		if !strings.EqualFold(md.PixelFormat, profile.PixelFormat) {
			add(model.FieldPixelFormat, profile.PixelFormat, md.PixelFormat)
		}
		if len(profile.Profiles) > 0 && !profile.AllowsProfile(md.Profile) {
			add(model.FieldProfile, strings.Join(profile.Profiles, "|"), orNone(md.Profile))
		}
		if profile.MaxLevel > 0 {
			// ffprobe reports levels it cannot read as -99, normalized to 0.
			if md.Level <= 0 {
				add(model.FieldLevel, "<= "+level(profile.MaxLevel), "unknown")
			} else if md.Level > profile.MaxLevel {
				add(model.FieldLevel, "<= "+level(profile.MaxLevel), level(md.Level))
			}
		}
	}

	if !md.HasAudio {
		add(model.FieldAudioCodec, profile.AudioCodec, "none")
		return out
	}
	if !strings.EqualFold(md.AudioCodec, profile.AudioCodec) {
		add(model.FieldAudioCodec, profile.AudioCodec, md.AudioCodec)
	}
	if len(profile.AudioSampleRates) > 0 && !profile.AllowsSampleRate(md.SampleRate) {
		rates := make([]string, 0, len(profile.AudioSampleRates))
		for _, r := range profile.AudioSampleRates {
			rates = append(rates, strconv.Itoa(r))
		}
		add(model.FieldSampleRate, strings.Join(rates, "|"), strconv.Itoa(md.SampleRate))
	}
	if profile.AudioChannels > 0 && md.Channels != profile.AudioChannels {
		add(model.FieldChannels, strconv.Itoa(profile.AudioChannels), strconv.Itoa(md.Channels))
	}
	return out
}

func level(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
