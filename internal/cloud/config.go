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

// Package cloud holds the process-level wiring of the assembly engine: the
// TOML configuration model, the layered configuration loader, the Google Cloud
// service clients and the Pub/Sub listener that turns render requests into
// pipeline runs.
package cloud

import (
	"time"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// Provider kinds understood by the provider factory.
const (
	ProviderKindImagen   = "imagen"
	ProviderKindOpenAI   = "openai"
	ProviderKindHTTP     = "http"
	ProviderKindExternal = "external" // Tracked only; served by a collaborator (script, tts).
)

// ProviderSettings describes one generation provider.
type ProviderSettings struct {
	Kind          string `toml:"kind"`           // One of the ProviderKind constants.
	DisplayName   string `toml:"display_name"`   // Human readable name.
	Priority      int    `toml:"priority"`       // Lower is preferred.
	Capability    string `toml:"capability"`     // image, script or tts.
	CredentialEnv string `toml:"credential_env"` // Environment variable holding the API key. Empty means ambient credentials.
	Model         string `toml:"model"`          // Model name for imagen and openai providers.
	Endpoint      string `toml:"endpoint"`       // URL for http providers.
	Format        string `toml:"format"`         // Response convention for http providers ("stability" or "url").
	AuthHeader    string `toml:"auth_header"`    // Header carrying the key for http providers.
	AuthScheme    string `toml:"auth_scheme"`    // Optional key prefix, e.g. "Bearer".
	RateLimit     int    `toml:"rate_limit"`     // Requests per second, 0 for unlimited.
	Disabled      bool   `toml:"disabled"`       // Skip this provider entirely.
}

// PipelineSettings tunes the assembly pipeline. Zero values fall back to
// model.DefaultPipelineConfig.
type PipelineSettings struct {
	MaxAttempts              int     `toml:"max_attempts"`
	PerAttemptTimeoutSeconds float64 `toml:"per_attempt_timeout_seconds"`
	Workers                  int     `toml:"workers"`
	GapThreshold             float64 `toml:"gap_threshold"`
	MinSlotDuration          float64 `toml:"min_slot_duration"`
	CrossfadeDuration        float64 `toml:"crossfade_duration"`
	Width                    int     `toml:"width"`
	Height                   int     `toml:"height"`
	FrameRate                int     `toml:"frame_rate"`
	FillColor                string  `toml:"fill_color"`
	WorkDir                  string  `toml:"work_dir"`
	OutputDir                string  `toml:"output_dir"`
	FFmpegPath               string  `toml:"ffmpeg_path"`
	FFprobePath              string  `toml:"ffprobe_path"`
	Remediate                bool    `toml:"remediate"`
	KeepAssets               bool    `toml:"keep_assets"`
}

// TopicSubscription is a Pub/Sub subscription delivering render requests.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The name of the dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The timeout for the subscription in seconds.
}

// Storage configures where artifacts are kept.
type Storage struct {
	ArtifactRoot     string `toml:"artifact_root"`      // Local root for pending/processed/published folders.
	Bucket           string `toml:"bucket"`             // When set, artifacts are stored in this GCS bucket.
	CredentialsFile  string `toml:"credentials_file"`   // Optional service account key for the storage client.
	SignedURLMinutes int    `toml:"signed_url_minutes"` // Lifetime of published URLs.
}

// Telemetry toggles the OpenTelemetry exporters.
type Telemetry struct {
	Enabled bool `toml:"enabled"`
}

// Server configures the HTTP API and background jobs.
type Server struct {
	Port                   int `toml:"port"`
	RefreshIntervalSeconds int `toml:"refresh_interval_seconds"` // Registry refresh tick; 0 disables it.
}

// Config is the root of the TOML configuration.
type Config struct {
	Application struct {
		Name                      string `toml:"name"`                         // The name of the application.
		GoogleProjectId           string `toml:"google_project_id"`            // The Google Cloud project ID.
		GoogleLocation            string `toml:"location"`                     // The Google Cloud location.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // The service account email used for signing GCS URLs.
	} `toml:"application"`
	Storage            Storage                      `toml:"storage"`
	Pipeline           PipelineSettings             `toml:"pipeline"`
	Profile            model.CompatibilityProfile   `toml:"profile"`
	Providers          map[string]ProviderSettings  `toml:"providers"`           // Keyed by provider ID.
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"` // Keyed by a logical name.
	Telemetry          Telemetry                    `toml:"telemetry"`
	Server             Server                       `toml:"server"`
}

// NewConfig returns a config with its maps initialised and the default
// compatibility profile in place.
func NewConfig() *Config {
	return &Config{
		Profile:            model.DefaultCompatibilityProfile(),
		Providers:          make(map[string]ProviderSettings),
		TopicSubscriptions: make(map[string]TopicSubscription),
	}
}

// PipelineConfig derives the immutable pipeline parameters, filling unset
// values from the defaults.
func (c *Config) PipelineConfig() model.PipelineConfig {
	out := model.DefaultPipelineConfig()
	p := c.Pipeline
	if p.MaxAttempts > 0 {
		out.MaxAttempts = p.MaxAttempts
	}
	if p.PerAttemptTimeoutSeconds > 0 {
		out.PerAttemptTimeout = time.Duration(p.PerAttemptTimeoutSeconds * float64(time.Second))
	}
	if p.Workers > 0 {
		out.Workers = p.Workers
	}
	if p.GapThreshold > 0 {
		out.GapThreshold = p.GapThreshold
	}
	if p.MinSlotDuration > 0 {
		out.MinSlotDuration = p.MinSlotDuration
	}
	if p.CrossfadeDuration > 0 {
		out.CrossfadeDuration = p.CrossfadeDuration
	}
	if p.Width > 0 {
		out.Width = p.Width
	}
	if p.Height > 0 {
		out.Height = p.Height
	}
	if p.FrameRate > 0 {
		out.FrameRate = p.FrameRate
	}
	if p.FillColor != "" {
		out.FillColor = p.FillColor
	}
	if p.WorkDir != "" {
		out.WorkDir = p.WorkDir
	}
	if p.OutputDir != "" {
		out.OutputDir = p.OutputDir
	}
	if p.FFmpegPath != "" {
		out.FFmpegPath = p.FFmpegPath
	}
	if p.FFprobePath != "" {
		out.FFprobePath = p.FFprobePath
	}
	out.Remediate = p.Remediate
	out.KeepAssets = p.KeepAssets

	profile := c.Profile
	defaults := model.DefaultCompatibilityProfile()
	if profile.VideoCodec == "" {
		profile.VideoCodec = defaults.VideoCodec
	}
	if profile.PixelFormat == "" {
		profile.PixelFormat = defaults.PixelFormat
	}
	if len(profile.Profiles) == 0 {
		profile.Profiles = defaults.Profiles
	}
	if profile.MaxLevel == 0 {
		profile.MaxLevel = defaults.MaxLevel
	}
	if profile.AudioCodec == "" {
		profile.AudioCodec = defaults.AudioCodec
	}
	if len(profile.AudioSampleRates) == 0 {
		profile.AudioSampleRates = defaults.AudioSampleRates
	}
	if profile.AudioChannels == 0 {
		profile.AudioChannels = defaults.AudioChannels
	}
	if profile.Width == 0 {
		profile.Width = out.Width
	}
	if profile.Height == 0 {
		profile.Height = out.Height
	}
	out.Profile = profile
	return out
}
