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

package commands

import (
	"fmt"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// AudioDurationResolver fixes the timeline length. A duration carried by the
// request wins; otherwise the audio file is probed.
type AudioDurationResolver struct {
	cor.BaseCommand
	prober DurationProber
}

// NewAudioDurationResolver creates the duration stage.
//
// Inputs: ParamRequest (*model.RenderRequest)
// Outputs: ParamDuration (float64 seconds)
func NewAudioDurationResolver(name string, prober DurationProber) *AudioDurationResolver {
	return &AudioDurationResolver{
		BaseCommand: *cor.NewBaseCommandWithParams(name, ParamRequest, ParamDuration),
		prober:      prober,
	}
}

// Execute resolves the narration length in seconds.
func (c *AudioDurationResolver) Execute(context cor.Context) {
	req, _ := Get[*model.RenderRequest](context, c.GetInputParam())
	if req.AudioDuration > 0 {
		c.Succeed(context, req.AudioDuration)
		return
	}
	d, err := c.prober.Duration(context.GetContext(), req.AudioPath)
	if err != nil {
		c.Fail(context, fmt.Errorf("resolving audio duration: %w", err))
		return
	}
	c.Succeed(context, d)
}
