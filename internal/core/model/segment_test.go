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

package model_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

func TestVisualSegment_Validate(t *testing.T) {
	tests := []struct {
		name       string
		start, end float64
		want       error
	}{
		{name: "ordered", start: 0, end: 4},
		{name: "approximate negative start", start: -0.05, end: 4},
		{name: "end past the narration", start: 20, end: 99},
		{name: "equal times", start: 3, end: 3, want: model.ErrSegmentTimes},
		{name: "reversed", start: 5, end: 1, want: model.ErrSegmentTimes},
		{name: "nan", start: math.NaN(), end: 4, want: model.ErrSegmentNaN},
		{name: "infinite", start: 0, end: math.Inf(1), want: model.ErrSegmentNaN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := model.VisualSegment{ID: "s", StartTime: tt.start, EndTime: tt.end}.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRenderRequest_Validate(t *testing.T) {
	req := &model.RenderRequest{AudioPath: "a.mp3", Segments: []model.VisualSegment{
		{ID: "s1", StartTime: -0.05, EndTime: 6},
		{ID: "s2", StartTime: 6, EndTime: 12},
	}}
	assert.NoError(t, req.Validate())

	req.Segments = append(req.Segments, model.VisualSegment{ID: "s3", StartTime: 9, EndTime: 8})
	assert.ErrorIs(t, req.Validate(), model.ErrSegmentTimes)

	assert.ErrorIs(t, (&model.RenderRequest{}).Validate(), model.ErrMissingAudio)
}
