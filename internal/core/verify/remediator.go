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

package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/process"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/render"
)

// FixedSuffix is appended to the base name of a re-encoded file.
const FixedSuffix = "_fixed"

// Remediator re-encodes files that failed verification.
type Remediator struct {
	runner   process.Runner
	ffmpeg   string
	verifier *Verifier
}

// NewRemediator creates a remediator. An empty ffmpeg uses the binary on PATH.
func NewRemediator(runner process.Runner, ffmpeg string, verifier *Verifier) *Remediator {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Remediator{runner: runner, ffmpeg: ffmpeg, verifier: verifier}
}

// FixedPath returns where the re-encoded copy of path is written.
func FixedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + FixedSuffix + ".mp4"
}

// Args returns the ffmpeg arguments re-encoding in to out for profile.
func Args(in, out string, profile model.CompatibilityProfile) []string {
	encProfile := render.VideoProfile
	if len(profile.Profiles) > 0 {
		encProfile = strings.ToLower(profile.Profiles[0])
	}
	lvl := render.VideoLevel
	if profile.MaxLevel > 0 {
		lvl = fmt.Sprintf("%.1f", profile.MaxLevel)
	}
	pix := profile.PixelFormat
	if pix == "" {
		pix = render.PixelFormat
	}
	rate := render.AudioRate
	if len(profile.AudioSampleRates) > 0 {
		rate = strconv.Itoa(profile.AudioSampleRates[0])
	}
	channels := render.AudioLayout
	if profile.AudioChannels > 0 {
		channels = strconv.Itoa(profile.AudioChannels)
	}
	return []string{
		"-i", in,
		"-vf", "scale=in_range=full:out_range=tv,format=" + pix,
		"-c:v", render.VideoCodec,
		"-preset", "fast",
		"-profile:v", encProfile,
		"-level", lvl,
		"-crf", "23",
		"-pix_fmt", pix,
		"-color_range", "tv",
		"-colorspace", "bt709",
		"-color_primaries", "bt709",
		"-color_trc", "bt709",
		"-c:a", render.AudioCodec,
		"-b:a", render.AudioBitrate,
		"-ar", rate,
		"-ac", channels,
		"-movflags", "+faststart",
		"-f", "mp4",
		"-y", out,
	}
}

// Remediate re-encodes path for profile and verifies the copy. It returns
// the path of the copy and its report. A failed encode is a
// *render.RenderError and leaves no copy behind.
func (r *Remediator) Remediate(ctx context.Context, path string, profile model.CompatibilityProfile) (string, model.CompatibilityReport, error) {
	fixed := FixedPath(path)
	partial := fixed + render.PartialSuffix

	slog.InfoContext(ctx, "remediating artifact", "input", path, "output", fixed)
	_, stderr, err := r.runner.Run(ctx, r.ffmpeg, Args(path, partial, profile)...)
	if err != nil {
		remove(partial)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", model.CompatibilityReport{}, fmt.Errorf("remediation cancelled: %w", ctxErr)
		}
		return "", model.CompatibilityReport{}, render.NewRenderError(process.ExitCode(err), stderr, err)
	}
	if err := os.Rename(partial, fixed); err != nil {
		remove(partial)
		return "", model.CompatibilityReport{}, fmt.Errorf("moving remediated file into place: %w", err)
	}
	return fixed, r.verifier.Verify(ctx, fixed, profile), nil
}

func remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove partial file", "file", path, "error", err)
	}
}
