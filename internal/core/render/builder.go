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

// Package render plans and executes the final encode: still images joined by
// crossfades over the narration track.
//
// Logic Flow:
//  1. Builder matches every slot to its asset and computes where each still
//     starts, how long it is shown and where it fades into the next one.
//  2. FilterGraph and Args turn the plan into a single ffmpeg invocation.
//  3. Invoker runs ffmpeg into a partial file and renames it into place once
//     the encode succeeded.
package render

import (
	"fmt"
	"math"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// Defaults for Builder.
const (
	DefaultCrossfadeDuration = 0.5
	DefaultFrameRate         = 30
	DefaultFillColor         = "black"
)

// Builder computes the transition plan of a run.
type Builder struct {
	Width             int
	Height            int
	FillColor         string
	CrossfadeDuration float64
	FrameRate         int
}

// NewBuilder creates a builder from the pipeline configuration.
func NewBuilder(config model.PipelineConfig) Builder {
	b := Builder{
		Width:             config.Width,
		Height:            config.Height,
		FillColor:         config.FillColor,
		CrossfadeDuration: config.CrossfadeDuration,
		FrameRate:         config.FrameRate,
	}
	if b.FillColor == "" {
		b.FillColor = DefaultFillColor
	}
	if b.CrossfadeDuration <= 0 {
		b.CrossfadeDuration = DefaultCrossfadeDuration
	}
	if b.FrameRate <= 0 {
		b.FrameRate = DefaultFrameRate
	}
	return b
}

// Build returns the plan for slots. Every slot must have an asset with a
// file; assets are matched by SlotIndex.
//
// With N slots the plan has N-1 crossfades. The crossfade between slot k and
// k+1 lasts d = min(CrossfadeDuration, dur(k), dur(k+1)) and is centred on the
// boundary between them, so the rendered length equals the timeline length.
func (b Builder) Build(runID string, slots []model.TimelineSlot, assets []model.GeneratedAsset) (*model.TransitionPlan, error) {
	if len(slots) == 0 {
		return nil, ErrNoSlots
	}
	byIndex := make(map[int]model.GeneratedAsset, len(assets))
	for _, a := range assets {
		byIndex[a.SlotIndex] = a
	}

	crop := model.CropSpec{Width: b.Width, Height: b.Height, FillColor: b.FillColor}
	total := slots[len(slots)-1].End
	plan := &model.TransitionPlan{
		RunID:         runID,
		Steps:         make([]model.TransitionStep, len(slots)),
		TotalDuration: total,
		FrameRate:     b.FrameRate,
	}

	for i, slot := range slots {
		asset, ok := byIndex[slot.Index]
		if !ok || asset.FilePath == "" {
			return nil, fmt.Errorf("slot %d: %w", slot.Index, ErrMissingAsset)
		}
		plan.Steps[i] = model.TransitionStep{Asset: asset, Crop: crop}
	}

	if len(slots) == 1 {
		plan.Steps[0].ClipStart = 0
		plan.Steps[0].ClipDuration = total
		return plan, nil
	}

	// Crossfade k blends slot k into slot k+1.
	for k := 0; k < len(slots)-1; k++ {
		d := math.Min(b.CrossfadeDuration, math.Min(slots[k].Duration(), slots[k+1].Duration()))
		plan.Steps[k].CrossfadeDurationToNext = d
		plan.Steps[k].CrossfadeOffset = slots[k].End - d/2
	}
	for i := range plan.Steps {
		start := 0.0
		if i > 0 {
			start = plan.Steps[i-1].CrossfadeOffset
		}
		end := total
		if i < len(plan.Steps)-1 {
			end = plan.Steps[i].CrossfadeOffset + plan.Steps[i].CrossfadeDurationToNext
		}
		plan.Steps[i].ClipStart = start
		plan.Steps[i].ClipDuration = end - start
	}
	return plan, nil
}
