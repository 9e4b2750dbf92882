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
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/services"
)

// ArtifactPublish moves a verified artifact to processed and, when the
// request asks for it, publishes it. An artifact that failed verification
// stays pending.
type ArtifactPublish struct {
	cor.BaseCommand
	store services.ArtifactStore
}

func NewArtifactPublish(name string, store services.ArtifactStore) *ArtifactPublish {
	return &ArtifactPublish{
		BaseCommand: *cor.NewBaseCommandWithParams(name, ParamArtifact, ParamArtifact),
		store:       store,
	}
}

// IsExecutable requires an artifact and its report.
func (c *ArtifactPublish) IsExecutable(context cor.Context) bool {
	return c.BaseCommand.IsExecutable(context) && context.Get(ParamReport) != nil
}

func (c *ArtifactPublish) Execute(context cor.Context) {
	path, _ := Get[string](context, c.GetInputParam())
	report, _ := Get[model.CompatibilityReport](context, ParamReport)
	req, _ := Get[*model.RenderRequest](context, ParamRequest)

	if !report.Passed {
		slog.WarnContext(context.GetContext(), "artifact left pending", "path", path, "violations", len(report.Violations))
		c.Succeed(context, path)
		return
	}

	processed, err := c.store.Process(context.GetContext(), req.RunID, path)
	if err != nil {
		c.Fail(context, fmt.Errorf("processing artifact: %w", err))
		return
	}
	if req.Publish {
		url, err := c.store.Publish(context.GetContext(), req.RunID, processed)
		if err != nil {
			c.Fail(context, fmt.Errorf("publishing artifact: %w", err))
			return
		}
		context.Add(ParamPublishedURL, url)
		// A local store moves the file itself; remote stores return a URL.
		if _, err := os.Stat(url); err == nil {
			processed = url
		}
	}
	c.Succeed(context, processed)
}
