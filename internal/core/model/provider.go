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

package model

// Capability tags the kind of work a provider performs.
type Capability string

const (
	CapabilityImage  Capability = "image"
	CapabilityScript Capability = "script"
	CapabilityTTS    Capability = "tts"
)

// ProviderConfig describes a generation provider as loaded from configuration.
// It is replaced as a whole when the registry is reloaded, never edited in place.
type ProviderConfig struct {
	ID                string     `json:"id"`
	DisplayName       string     `json:"display_name"`
	Priority          int        `json:"priority"` // Lower is preferred.
	Capability        Capability `json:"capability"`
	CredentialPresent bool       `json:"credential_present"`
}

// UsageStat is a point-in-time copy of a provider's usage counters.
type UsageStat struct {
	ProviderID string `json:"provider_id"`
	Attempts   int64  `json:"attempts"`
	Successes  int64  `json:"successes"`
}

// Failures returns the number of attempts that did not succeed.
func (u UsageStat) Failures() int64 {
	return u.Attempts - u.Successes
}

// SuccessRate returns successes over attempts, or 0 when nothing was attempted.
func (u UsageStat) SuccessRate() float64 {
	if u.Attempts == 0 {
		return 0
	}
	return float64(u.Successes) / float64(u.Attempts)
}

// ProviderHealth is the API view of a provider: its configuration merged with
// its usage.
type ProviderHealth struct {
	ProviderConfig
	Attempts    int64   `json:"attempts"`
	Successes   int64   `json:"successes"`
	Failures    int64   `json:"failures"`
	SuccessRate float64 `json:"success_rate"`
}
