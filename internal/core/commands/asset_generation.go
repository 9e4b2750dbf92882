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
	"log/slog"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// AssetGeneration produces the image of every slot. The generated files belong
// to the run: they are registered to be discarded if the run fails.
type AssetGeneration struct {
	cor.BaseCommand
	generator AssetGenerator
}

// NewAssetGeneration creates the asset generation stage.
//
// Inputs: ParamSlots ([]model.TimelineSlot)
// Outputs: ParamAssets ([]model.GeneratedAsset), one per slot in slot order
func NewAssetGeneration(name string, generator AssetGenerator) *AssetGeneration {
	return &AssetGeneration{
		BaseCommand: *cor.NewBaseCommandWithParams(name, ParamSlots, ParamAssets),
		generator:   generator,
	}
}

// Execute generates every slot's image. Files produced before a failure are
// still registered for discard.
func (c *AssetGeneration) Execute(context cor.Context) {
	slots, _ := Get[[]model.TimelineSlot](context, c.GetInputParam())
	assets, err := c.generator.GenerateAll(context.GetContext(), slots)

	placeholders := 0
	for _, a := range assets {
		if a.FilePath != "" {
			context.AddDiscardOnFailure(a.FilePath)
		}
		if a.IsPlaceholder {
			placeholders++
		}
	}
	if err != nil {
		c.Fail(context, err)
		return
	}
	slog.InfoContext(context.GetContext(), "assets generated", "slots", len(slots), "placeholders", placeholders)
	c.Succeed(context, assets)
}
