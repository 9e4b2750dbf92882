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

// Package timeline maps visual segments onto a gap-free timeline covering the
// whole narration.
package timeline

import (
	"math"
	"sort"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// Defaults for Allocator.
const (
	DefaultGapThreshold    = 0.5
	DefaultMinSlotDuration = 2.0
)

// Allocator turns segments into slots. It has no state beyond its parameters,
// so one value can be shared by concurrent runs.
type Allocator struct {
	// GapThreshold is the largest gap between two segments that is left to
	// the contiguity rule; a wider gap is absorbed by the earlier slot.
	GapThreshold float64
	// MinSlotDuration is the shortest slot the allocator emits, except when
	// the whole timeline is shorter.
	MinSlotDuration float64
}

// NewAllocator creates an allocator from the pipeline configuration.
func NewAllocator(config model.PipelineConfig) Allocator {
	a := Allocator{GapThreshold: config.GapThreshold, MinSlotDuration: config.MinSlotDuration}
	if a.GapThreshold <= 0 {
		a.GapThreshold = DefaultGapThreshold
	}
	if a.MinSlotDuration <= 0 {
		a.MinSlotDuration = DefaultMinSlotDuration
	}
	return a
}

// Allocate returns contiguous slots covering [0, total].
//
// Logic Flow:
//  1. A non-positive total yields no slots.
//  2. Segments are ordered by start, end and ID, clamped to [0, total], and
//     dropped when nothing is left after clamping.
//  3. Without segments, or when total is shorter than MinSlotDuration, a
//     single slot covers the whole timeline.
//  4. Otherwise each slot starts where the previous one ended. Its end is the
//     segment end, pushed to the next segment start when the gap exceeds
//     GapThreshold, and to start+MinSlotDuration when shorter. The last
//     segment, and any slot leaving less than MinSlotDuration behind it, ends
//     at total.
//
// Slots are ordered, start at 0, end at total and satisfy
// slot[i].End == slot[i+1].Start.
func (a Allocator) Allocate(segments []model.VisualSegment, total float64) []model.TimelineSlot {
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return nil
	}
	minDur := a.MinSlotDuration
	if minDur <= 0 {
		minDur = DefaultMinSlotDuration
	}
	gap := a.GapThreshold
	if gap <= 0 {
		gap = DefaultGapThreshold
	}

	segs := normalize(segments, total)
	if len(segs) == 0 || total < minDur {
		seg := model.DefaultSegment(total)
		if len(segs) > 0 {
			seg = segs[0]
		}
		return []model.TimelineSlot{{Index: 0, Segment: seg, Start: 0, End: total}}
	}

	slots := make([]model.TimelineSlot, 0, len(segs))
	cursor := 0.0
	for i, seg := range segs {
		start := cursor
		end := seg.EndTime
		last := i == len(segs)-1

		if !last {
			next := segs[i+1].StartTime
			if next-end > gap {
				end = next
			}
		}
		if end < start+minDur {
			end = start + minDur
		}
		if last || total-end < minDur {
			end = total
		}
		end = math.Min(end, total)

		slots = append(slots, model.TimelineSlot{Index: len(slots), Segment: seg, Start: start, End: end})
		cursor = end
		if end >= total {
			break
		}
	}
	slots[len(slots)-1].End = total
	return slots
}

// normalize clamps and sorts a copy of segments.
func normalize(segments []model.VisualSegment, total float64) []model.VisualSegment {
	out := make([]model.VisualSegment, 0, len(segments))
	for _, s := range segments {
		if math.IsNaN(s.StartTime) || math.IsNaN(s.EndTime) {
			continue
		}
		s.StartTime = clamp(s.StartTime, 0, total)
		s.EndTime = clamp(s.EndTime, 0, total)
		if s.EndTime <= s.StartTime {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		if out[i].EndTime != out[j].EndTime {
			return out[i].EndTime < out[j].EndTime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
