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

// Package workflow combines the assembly commands into runnable pipelines and
// hosts the background jobs of the engine.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/commands"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/render"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/services"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/timeline"
)

// Dependencies are the collaborators of an AssemblyWorkflow.
type Dependencies struct {
	Prober     commands.DurationProber
	Generator  commands.AssetGenerator
	Renderer   commands.VideoRenderer
	Verifier   commands.ArtifactVerifier
	Remediator commands.ArtifactRemediator // Optional.
	Store      services.ArtifactStore
	Downloader commands.ObjectDownloader // Optional; required for gs:// audio.
}

// AssemblyWorkflow turns a render request into a verified video. It is a
// cor.Command, so the same instance serves Pub/Sub messages (raw JSON at
// CtxIn) and typed calls through Run.
type AssemblyWorkflow struct {
	cor.BaseCommand
	config model.PipelineConfig
	deps   Dependencies
	chain  cor.Chain
}

// NewAssemblyWorkflow creates the workflow and its chain.
func NewAssemblyWorkflow(config model.PipelineConfig, deps Dependencies) *AssemblyWorkflow {
	w := &AssemblyWorkflow{
		BaseCommand: *cor.NewBaseCommand("assembly-workflow"),
		config:      config,
		deps:        deps,
	}
	w.initializeChain()
	return w
}

// initializeChain builds the stages in execution order.
//
// Logic Flow:
//  1. Decode and validate the request.
//  2. Download gs:// narration, then resolve its length, probing the audio
//     when the request carries none.
//  3. Allocate timeline slots.
//  4. Generate one image per slot with provider failover.
//  5. Plan crossfades and render with ffmpeg; the output is stored as pending.
//  6. Verify the artifact, and re-encode it when remediation applies.
//  7. Move the artifact to processed and publish it when requested.
func (w *AssemblyWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewRenderRequestReader("render-request-reader"))
	out.AddCommand(commands.NewAudioFetch("audio-fetch", w.deps.Downloader, filepath.Join(w.config.WorkDir, "audio")))
	out.AddCommand(commands.NewAudioDurationResolver("audio-duration-resolver", w.deps.Prober))
	out.AddCommand(commands.NewTimelineAllocation("timeline-allocation", timeline.NewAllocator(w.config)))
	out.AddCommand(commands.NewAssetGeneration("asset-generation", w.deps.Generator))
	out.AddCommand(commands.NewTransitionPlanning("transition-planning", render.NewBuilder(w.config)))
	out.AddCommand(commands.NewVideoRender("video-render", w.deps.Renderer, w.deps.Store))
	out.AddCommand(commands.NewCompatibilityCheck("compatibility-check", w.deps.Verifier, w.config.Profile))
	out.AddCommand(commands.NewRemediation("remediation", w.deps.Remediator, w.config.Profile, w.config.Remediate))
	out.AddCommand(commands.NewArtifactPublish("artifact-publish", w.deps.Store))
	w.chain = out
}

// IsExecutable only requires a Go context; the first stage validates input.
func (w *AssemblyWorkflow) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil
}

// Execute runs the chain. On success the generated images are handed to the
// context as temp files unless the pipeline keeps them, so closing the
// context cleans up after the run.
func (w *AssemblyWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
	if context.HasErrors() || w.config.KeepAssets {
		return
	}
	assets, _ := commands.Get[[]model.GeneratedAsset](context, commands.ParamAssets)
	for _, a := range assets {
		if a.FilePath != "" {
			context.AddTempFile(a.FilePath)
		}
	}
}

// Run executes req and returns its result. The returned error joins every
// stage error; a render failure can be matched with errors.As against
// *render.RenderError.
func (w *AssemblyWorkflow) Run(ctx context.Context, req *model.RenderRequest) (*model.RenderResult, error) {
	if req == nil {
		return nil, errors.New("nil render request")
	}
	ctx, span := w.Tracer.Start(ctx, "assembly-run")
	defer span.End()

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, req)
	defer chainCtx.Close()

	w.Execute(chainCtx)

	result := Result(chainCtx)
	span.SetAttributes(attribute.String("run_id", result.RunID))
	if err := chainCtx.Err(); err != nil {
		span.SetStatus(codes.Error, "assembly failed")
		slog.ErrorContext(ctx, "assembly failed", "run_id", result.RunID, "error", err)
		return result, err
	}
	span.SetStatus(codes.Ok, "assembled")
	slog.InfoContext(ctx, "assembly complete",
		"run_id", result.RunID,
		"artifact", result.ArtifactPath,
		"slots", len(result.Slots),
		"placeholders", result.Placeholders,
		"passed", result.Report.Passed)
	return result, nil
}

// Result collects the outputs of a run from its context.
func Result(context cor.Context) *model.RenderResult {
	out := &model.RenderResult{}
	if req, ok := commands.Get[*model.RenderRequest](context, commands.ParamRequest); ok {
		out.RunID = req.RunID
	}
	out.Slots, _ = commands.Get[[]model.TimelineSlot](context, commands.ParamSlots)
	out.Assets, _ = commands.Get[[]model.GeneratedAsset](context, commands.ParamAssets)
	for _, a := range out.Assets {
		if a.IsPlaceholder {
			out.Placeholders++
		}
	}
	if plan, ok := commands.Get[*model.TransitionPlan](context, commands.ParamPlan); ok {
		out.Transitions = plan.Transitions()
	}
	out.ArtifactPath, _ = commands.Get[string](context, commands.ParamArtifact)
	out.Report, _ = commands.Get[model.CompatibilityReport](context, commands.ParamReport)
	out.Remediated, _ = commands.Get[bool](context, commands.ParamRemediated)
	out.PublishedURL, _ = commands.Get[string](context, commands.ParamPublishedURL)
	return out
}
