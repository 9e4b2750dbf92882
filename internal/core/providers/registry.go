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
	"sort"
	"sync"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// ExcludeSet holds the IDs of providers already tried for a request.
type ExcludeSet map[string]struct{}

// Add marks id as tried.
func (e ExcludeSet) Add(id string) {
	e[id] = struct{}{}
}

// Has reports whether id was already tried.
func (e ExcludeSet) Has(id string) bool {
	_, ok := e[id]
	return ok
}

// Entry pairs a provider's configuration with its implementation. The
// implementation may be nil for providers that are only tracked (script and
// tts providers are configured here but served elsewhere).
type Entry struct {
	Config   model.ProviderConfig
	Provider Provider
}

// Registry is the read-mostly set of configured providers.
type Registry struct {
	mu      sync.RWMutex
	configs []model.ProviderConfig
	impls   map[string]Provider
}

// NewRegistry creates a registry holding entries.
func NewRegistry(entries ...Entry) *Registry {
	r := &Registry{}
	r.Reload(entries)
	return r
}

// Reload atomically replaces the full provider set. It is the only way the
// registry changes after construction.
func (r *Registry) Reload(entries []Entry) {
	configs := make([]model.ProviderConfig, 0, len(entries))
	impls := make(map[string]Provider, len(entries))
	for _, e := range entries {
		configs = append(configs, e.Config)
		if e.Provider != nil {
			impls[e.Config.ID] = e.Provider
		}
	}
	sortConfigs(configs)

	r.mu.Lock()
	r.configs = configs
	r.impls = impls
	r.mu.Unlock()
}

// Configs returns a copy of every configured provider, sorted by priority.
func (r *Registry) Configs() []model.ProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.ProviderConfig, len(r.configs))
	copy(out, r.configs)
	return out
}

// Provider returns the implementation registered for id.
func (r *Registry) Provider(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.impls[id]
	return p, ok
}

// Eligible returns the providers with the requested capability and present
// credentials that are not in exclude, sorted by ascending priority.
func (r *Registry) Eligible(capability model.Capability, exclude ExcludeSet) []model.ProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.ProviderConfig, 0, len(r.configs))
	for _, c := range r.configs {
		if c.Capability != capability || !c.CredentialPresent || exclude.Has(c.ID) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// sortConfigs orders by priority, breaking ties by ID so selection is stable
// for identical configuration.
func sortConfigs(configs []model.ProviderConfig) {
	sort.SliceStable(configs, func(i, j int) bool {
		if configs[i].Priority != configs[j].Priority {
			return configs[i].Priority < configs[j].Priority
		}
		return configs[i].ID < configs[j].ID
	})
}
