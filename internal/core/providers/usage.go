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

package providers

import (
	"context"
	"log"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// UsageStats holds the attempt and success counters of every provider. It is
// the only mutable state shared by concurrent generation tasks.
type UsageStats struct {
	mu    sync.Mutex
	stats map[string]*model.UsageStat

	attemptCounter metric.Int64Counter
	successCounter metric.Int64Counter
}

// NewUsageStats creates empty counters.
func NewUsageStats() *UsageStats {
	meter := otel.Meter(cor.MeterName)
	attempts, err := meter.Int64Counter("provider.attempts")
	if err != nil {
		log.Printf("error creating provider attempt counter: %v\n", err)
	}
	successes, err := meter.Int64Counter("provider.successes")
	if err != nil {
		log.Printf("error creating provider success counter: %v\n", err)
	}
	return &UsageStats{
		stats:          make(map[string]*model.UsageStat),
		attemptCounter: attempts,
		successCounter: successes,
	}
}

func (u *UsageStats) entry(id string) *model.UsageStat {
	s, ok := u.stats[id]
	if !ok {
		s = &model.UsageStat{ProviderID: id}
		u.stats[id] = s
	}
	return s
}

// RecordAttempt counts one generation attempt against id.
func (u *UsageStats) RecordAttempt(ctx context.Context, id string) {
	u.mu.Lock()
	u.entry(id).Attempts++
	u.mu.Unlock()
	if u.attemptCounter != nil {
		u.attemptCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", id)))
	}
}

// RecordSuccess counts one successful attempt against id.
func (u *UsageStats) RecordSuccess(ctx context.Context, id string) {
	u.mu.Lock()
	u.entry(id).Successes++
	u.mu.Unlock()
	if u.successCounter != nil {
		u.successCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", id)))
	}
}

// Get returns a copy of the counters for id.
func (u *UsageStats) Get(id string) model.UsageStat {
	u.mu.Lock()
	defer u.mu.Unlock()
	if s, ok := u.stats[id]; ok {
		return *s
	}
	return model.UsageStat{ProviderID: id}
}

// Snapshot returns a copy of every counter, sorted by provider ID.
func (u *UsageStats) Snapshot() []model.UsageStat {
	u.mu.Lock()
	out := make([]model.UsageStat, 0, len(u.stats))
	for _, s := range u.stats {
		out = append(out, *s)
	}
	u.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderID < out[j].ProviderID })
	return out
}

// Health merges configs with their usage counters.
func (u *UsageStats) Health(configs []model.ProviderConfig) []model.ProviderHealth {
	out := make([]model.ProviderHealth, 0, len(configs))
	for _, c := range configs {
		s := u.Get(c.ID)
		out = append(out, model.ProviderHealth{
			ProviderConfig: c,
			Attempts:       s.Attempts,
			Successes:      s.Successes,
			Failures:       s.Failures(),
			SuccessRate:    s.SuccessRate(),
		})
	}
	return out
}
