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

package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/process"
)

// PartialSuffix marks an output that is still being written.
const PartialSuffix = ".partial"

// Invoker runs the encoder for a plan.
type Invoker struct {
	runner    process.Runner
	ffmpeg    string
	outputDir string
	locks     *keyedMutex
	tracer    trace.Tracer
}

// NewInvoker creates an invoker writing to config.OutputDir.
func NewInvoker(config model.PipelineConfig, runner process.Runner) *Invoker {
	ffmpeg := config.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Invoker{
		runner:    runner,
		ffmpeg:    ffmpeg,
		outputDir: config.OutputDir,
		locks:     newKeyedMutex(),
		tracer:    otel.Tracer("render"),
	}
}

// OutputPath is the file a run renders to.
func (i *Invoker) OutputPath(runID string) string {
	return filepath.Join(i.outputDir, runID+".mp4")
}

// Render encodes plan with the narration at audioPath and returns the output
// path. total overrides the plan length when positive.
//
// Logic Flow:
//  1. Every input is checked to exist on disk.
//  2. Renders to the same output path are serialized.
//  3. ffmpeg writes to <out>.partial; on success the file is renamed to <out>.
//  4. On failure the partial file is removed. A cancelled context is reported
//     as such; any other failure is a *RenderError carrying stderr.
func (i *Invoker) Render(ctx context.Context, plan *model.TransitionPlan, audioPath string, total float64) (string, error) {
	ctx, span := i.tracer.Start(ctx, "render", trace.WithAttributes(
		attribute.String("run_id", plan.RunID),
		attribute.Int("inputs", len(plan.Steps))))
	defer span.End()

	if total > 0 {
		p := *plan
		p.TotalDuration = total
		plan = &p
	}
	if err := checkInputs(plan, audioPath); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	out := i.OutputPath(plan.RunID)
	unlock := i.locks.lock(out)
	defer unlock()

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	partial := out + PartialSuffix

	slog.InfoContext(ctx, "rendering", "run_id", plan.RunID, "inputs", len(plan.Steps), "duration", plan.TotalDuration, "output", out)
	_, stderr, err := i.runner.Run(ctx, i.ffmpeg, Args(plan, audioPath, partial)...)
	if err != nil {
		removePartial(partial)
		if ctxErr := ctx.Err(); ctxErr != nil {
			span.SetStatus(codes.Error, "cancelled")
			return "", fmt.Errorf("render cancelled: %w", ctxErr)
		}
		rerr := NewRenderError(process.ExitCode(err), stderr, err)
		span.SetStatus(codes.Error, rerr.Error())
		slog.ErrorContext(ctx, "render failed", "run_id", plan.RunID, "exit_code", rerr.ExitCode, "stderr", rerr.Stderr)
		return "", rerr
	}

	if _, err := os.Stat(partial); err != nil {
		span.SetStatus(codes.Error, ErrNoOutput.Error())
		return "", NewRenderError(0, stderr, ErrNoOutput)
	}
	if err := os.Rename(partial, out); err != nil {
		removePartial(partial)
		return "", fmt.Errorf("moving render output into place: %w", err)
	}
	span.SetStatus(codes.Ok, "rendered")
	return out, nil
}

func checkInputs(plan *model.TransitionPlan, audioPath string) error {
	if len(plan.Steps) == 0 {
		return ErrNoSlots
	}
	paths := make([]string, 0, len(plan.Steps)+1)
	for _, s := range plan.Steps {
		paths = append(paths, s.Asset.FilePath)
	}
	paths = append(paths, audioPath)
	for _, p := range paths {
		if p == "" {
			return fmt.Errorf("%w: empty path", ErrMissingInput)
		}
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%w: %s", ErrMissingInput, p)
		}
	}
	return nil
}

func removePartial(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove partial render", "file", path, "error", err)
	}
}

// keyedMutex hands out one mutex per key and forgets it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
