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

// CropSpec scales an image to fit the target frame, preserving its aspect
// ratio, and pads the remainder with FillColor.
type CropSpec struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	FillColor string `json:"fill_color"`
}

// TransitionStep is one input of the render. ClipStart and ClipDuration place
// the still on the output timeline; the crossfade fields describe the blend into
// the next step and are zero for the last one.
type TransitionStep struct {
	Asset                   GeneratedAsset `json:"asset"`
	Crop                    CropSpec       `json:"crop"`
	ClipStart               float64        `json:"clip_start"`
	ClipDuration            float64        `json:"clip_duration"`
	CrossfadeDurationToNext float64        `json:"crossfade_duration_to_next"`
	CrossfadeOffset         float64        `json:"crossfade_offset"`
}

// TransitionPlan is the ordered render plan for a single run.
type TransitionPlan struct {
	RunID         string           `json:"run_id"`
	Steps         []TransitionStep `json:"steps"`
	TotalDuration float64          `json:"total_duration"`
	FrameRate     int              `json:"frame_rate"`
}

// Transitions returns the number of crossfades in the plan.
func (p *TransitionPlan) Transitions() int {
	n := 0
	for _, s := range p.Steps {
		if s.CrossfadeDurationToNext > 0 {
			n++
		}
	}
	return n
}
