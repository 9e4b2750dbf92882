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
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

const (
	// DefaultTopWeight is the probability of returning the best-ranked provider.
	DefaultTopWeight = 0.7
	// DefaultTopN is the size of the pool the random pick is drawn from.
	DefaultTopN = 3
)

// Selector chooses a provider for a request. The top-ranked provider is
// statistically preferred, but a share of traffic is spread over the next
// candidates so a single provider is not pushed into its rate limits.
type Selector struct {
	registry  *Registry
	topWeight float64
	topN      int

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewSelector creates a selector over registry. A nil source uses a
// time-seeded PCG generator.
func NewSelector(registry *Registry, src rand.Source) *Selector {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>1|1)
	}
	return &Selector{
		registry:  registry,
		topWeight: DefaultTopWeight,
		topN:      DefaultTopN,
		rng:       rand.New(src),
	}
}

// WithWeights overrides the top weight and pool size.
func (s *Selector) WithWeights(topWeight float64, topN int) *Selector {
	if topWeight >= 0 && topWeight <= 1 {
		s.topWeight = topWeight
	}
	if topN > 0 {
		s.topN = topN
	}
	return s
}

// Select returns a provider with the capability that is not excluded. The
// boolean is false when no eligible provider remains; callers treat that as
// exhaustion rather than an error.
func (s *Selector) Select(capability model.Capability, exclude ExcludeSet) (model.ProviderConfig, bool) {
	eligible := s.registry.Eligible(capability, exclude)
	if len(eligible) == 0 {
		return model.ProviderConfig{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng.Float64() < s.topWeight {
		return eligible[0], true
	}
	n := min(s.topN, len(eligible))
	return eligible[s.rng.IntN(n)], true
}
