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

// Package generation turns timeline slots into image assets.
//
// Logic Flow:
//  1. For each slot the Coordinator asks the Selector for an image provider
//     that has not been tried yet for that slot.
//  2. The attempt runs under its own timeout. A failure or timeout excludes the
//     provider and the next one is tried, up to MaxAttempts.
//  3. When every attempt failed, or no provider is left, a placeholder image is
//     rendered instead. Generation therefore never fails a run.
//  4. GenerateAll runs slots on a bounded worker pool and returns the assets in
//     slot order.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/placeholder"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/providers"
)

// ErrAttemptTimeout is recorded when an attempt outlives PerAttemptTimeout.
var ErrAttemptTimeout = errors.New("generation attempt timed out")

// ErrNoImplementation is recorded when a selected provider has no
// implementation registered.
var ErrNoImplementation = errors.New("provider has no implementation")

// ErrProviderPanic is recorded when a provider panics during an attempt.
var ErrProviderPanic = errors.New("provider panicked")

// PlaceholderRenderer renders the fallback image of a slot.
type PlaceholderRenderer interface {
	Render(segment model.VisualSegment, index int) (string, error)
}

// Coordinator generates one asset per slot with provider failover.
type Coordinator struct {
	registry    *providers.Registry
	selector    *providers.Selector
	usage       *providers.UsageStats
	placeholder PlaceholderRenderer
	fallback    PlaceholderRenderer // Used when placeholder cannot write its directory.

	maxAttempts int
	timeout     time.Duration
	workers     int

	tracer trace.Tracer
	logger *slog.Logger
}

// NewCoordinator wires a coordinator from the pipeline configuration.
func NewCoordinator(
	config model.PipelineConfig,
	registry *providers.Registry,
	selector *providers.Selector,
	usage *providers.UsageStats,
	renderer PlaceholderRenderer) *Coordinator {

	c := &Coordinator{
		registry:    registry,
		selector:    selector,
		usage:       usage,
		placeholder: renderer,
		fallback:    placeholder.NewRenderer(config.Width, config.Height, os.TempDir()),
		maxAttempts: config.MaxAttempts,
		timeout:     config.PerAttemptTimeout,
		workers:     config.Workers,
		tracer:      otel.Tracer("generation"),
		logger:      slog.Default(),
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 3
	}
	if c.timeout <= 0 {
		c.timeout = 60 * time.Second
	}
	if c.workers <= 0 {
		c.workers = 3
	}
	return c
}

// WithLogger replaces the logger.
func (c *Coordinator) WithLogger(logger *slog.Logger) *Coordinator {
	if logger != nil {
		c.logger = logger
	}
	return c
}

type attemptResult struct {
	path string
	url  string
	err  error
}

// Generate produces the asset for slot. It does not return an error: failures
// are absorbed by failing over and, finally, by a placeholder. The only case
// without a usable file is a placeholder that could not be written anywhere,
// reported as an asset with an empty FilePath.
func (c *Coordinator) Generate(ctx context.Context, slot model.TimelineSlot) model.GeneratedAsset {
	ctx, span := c.tracer.Start(ctx, "generate_slot", trace.WithAttributes(attribute.Int("slot", slot.Index)))
	defer span.End()

	prompt := providers.EnhancePrompt(slot.Segment)
	exclude := providers.ExcludeSet{}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			break
		}
		cfg, ok := c.selector.Select(model.CapabilityImage, exclude)
		if !ok {
			c.logger.InfoContext(ctx, "no eligible provider left", "slot", slot.Index, "attempt", attempt)
			break
		}
		exclude.Add(cfg.ID)
		c.usage.RecordAttempt(ctx, cfg.ID)

		res := c.attempt(ctx, cfg.ID, prompt)
		if res.err == nil {
			c.usage.RecordSuccess(ctx, cfg.ID)
			span.SetAttributes(attribute.String("provider", cfg.ID))
			span.SetStatus(codes.Ok, "generated")
			return model.GeneratedAsset{
				SlotIndex:    slot.Index,
				FilePath:     res.path,
				ProviderUsed: cfg.ID,
				SourceURL:    res.url,
			}
		}
		c.logger.WarnContext(ctx, "generation attempt failed",
			"slot", slot.Index,
			"provider", cfg.ID,
			"attempt", attempt,
			"rate_limited", providers.IsRateLimited(res.err),
			"error", res.err)
	}

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return model.GeneratedAsset{SlotIndex: slot.Index, ProviderUsed: placeholder.ProviderID, IsPlaceholder: true}
	}
	c.logger.WarnContext(ctx, "generation exhausted, using placeholder", "slot", slot.Index, "tried", len(exclude))
	span.SetAttributes(attribute.Bool("placeholder", true))
	return c.placeholderAsset(ctx, slot)
}

// attempt runs one provider call under the per-attempt timeout. The call runs
// in its own goroutine; when it is abandoned, a file it writes later is
// removed so nothing leaks into the run directory.
func (c *Coordinator) attempt(ctx context.Context, id, prompt string) attemptResult {
	provider, ok := c.registry.Provider(id)
	if !ok {
		return attemptResult{err: providers.NewProviderError(id, 0, ErrNoImplementation)}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	results := make(chan attemptResult, 1)
	go func() {
		// A panicking provider is one more failed attempt.
		defer func() {
			if r := recover(); r != nil {
				results <- attemptResult{err: providers.NewProviderError(id, 0, fmt.Errorf("%w: %v", ErrProviderPanic, r))}
			}
		}()
		path, url, err := provider.Generate(attemptCtx, prompt)
		results <- attemptResult{path: path, url: url, err: err}
	}()

	select {
	case res := <-results:
		if res.err == nil && res.path == "" {
			res.err = providers.NewProviderError(id, 0, providers.ErrEmptyResponse)
		}
		return res
	case <-attemptCtx.Done():
		go discardLate(results)
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return attemptResult{err: providers.NewProviderError(id, 0, ErrAttemptTimeout)}
		}
		return attemptResult{err: providers.NewProviderError(id, 0, attemptCtx.Err())}
	}
}

// discardLate waits for an abandoned attempt and removes its output.
func discardLate(results <-chan attemptResult) {
	res := <-results
	if res.err == nil && res.path != "" {
		if err := os.Remove(res.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove abandoned asset", "file", res.path, "error", err)
		}
	}
}

func (c *Coordinator) placeholderAsset(ctx context.Context, slot model.TimelineSlot) model.GeneratedAsset {
	asset := model.GeneratedAsset{
		SlotIndex:     slot.Index,
		ProviderUsed:  placeholder.ProviderID,
		IsPlaceholder: true,
	}
	path, err := c.placeholder.Render(slot.Segment, slot.Index)
	if err != nil {
		c.logger.WarnContext(ctx, "placeholder write failed, retrying in temp dir", "slot", slot.Index, "error", err)
		path, err = c.fallback.Render(slot.Segment, slot.Index)
		if err != nil {
			c.logger.ErrorContext(ctx, "placeholder write failed", "slot", slot.Index, "error", err)
			return asset
		}
	}
	asset.FilePath = path
	return asset
}

// GenerateAll generates every slot on a pool of Workers goroutines and returns
// the assets ordered by slot. The only error is the cancellation of ctx.
func (c *Coordinator) GenerateAll(ctx context.Context, slots []model.TimelineSlot) ([]model.GeneratedAsset, error) {
	assets := make([]model.GeneratedAsset, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, slot := range slots {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			assets[i] = c.Generate(gctx, slot)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return assets, fmt.Errorf("generating assets: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return assets, fmt.Errorf("generating assets: %w", err)
	}
	return assets, nil
}
