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
	"fmt"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// FinalLabel is the filter graph output mapped into the file.
const FinalLabel = "final"

// Encoder settings of the final render.
const (
	VideoCodec   = "libx264"
	VideoProfile = "baseline"
	VideoLevel   = "3.0"
	PixelFormat  = "yuv420p"
	AudioCodec   = "aac"
	AudioBitrate = "128k"
	AudioRate    = "44100"
	AudioLayout  = "2"
)

// seconds formats a duration for ffmpeg with millisecond precision.
func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// FilterGraph builds the -filter_complex value for plan. Each input is fitted
// into the frame, padded, converted to limited-range yuv420p and resampled to
// the frame rate; the inputs are then chained with fade crossfades. The graph
// output is labelled [final].
func FilterGraph(plan *model.TransitionPlan) string {
	parts := make([]string, 0, 2*len(plan.Steps))
	for i, step := range plan.Steps {
		c := step.Crop
		parts = append(parts, fmt.Sprintf(
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:%s,scale=in_range=full:out_range=tv,format=%s,setsar=1,fps=%d[v%d]",
			i, c.Width, c.Height, c.Width, c.Height, c.FillColor, PixelFormat, plan.FrameRate, i))
	}

	if len(plan.Steps) == 1 {
		parts = append(parts, fmt.Sprintf("[v0]trim=duration=%s,setpts=PTS-STARTPTS[%s]", seconds(plan.TotalDuration), FinalLabel))
		return strings.Join(parts, ";")
	}

	prev := "v0"
	for k := 0; k < len(plan.Steps)-1; k++ {
		out := fmt.Sprintf("t%d", k+1)
		if k == len(plan.Steps)-2 {
			out = FinalLabel
		}
		step := plan.Steps[k]
		parts = append(parts, fmt.Sprintf("[%s][v%d]xfade=transition=fade:duration=%s:offset=%s[%s]",
			prev, k+1, seconds(step.CrossfadeDurationToNext), seconds(step.CrossfadeOffset), out))
		prev = out
	}
	return strings.Join(parts, ";")
}

// Args returns the ffmpeg arguments rendering plan with audioPath into out.
func Args(plan *model.TransitionPlan, audioPath, out string) []string {
	fps := strconv.Itoa(plan.FrameRate)
	args := make([]string, 0, 8*len(plan.Steps)+48)
	for _, step := range plan.Steps {
		args = append(args,
			"-loop", "1",
			"-framerate", fps,
			"-t", seconds(step.ClipDuration),
			"-i", step.Asset.FilePath)
	}
	args = append(args, "-i", audioPath)

	args = append(args,
		"-filter_complex", FilterGraph(plan),
		"-map", "["+FinalLabel+"]",
		"-map", fmt.Sprintf("%d:a", len(plan.Steps)),
		"-c:v", VideoCodec,
		"-preset", "fast",
		"-tune", "stillimage",
		"-pix_fmt", PixelFormat,
		"-profile:v", VideoProfile,
		"-level", VideoLevel,
		"-color_range", "tv",
		"-colorspace", "bt709",
		"-color_primaries", "bt709",
		"-color_trc", "bt709",
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-ar", AudioRate,
		"-ac", AudioLayout,
		"-r", fps,
		"-t", seconds(plan.TotalDuration),
		"-movflags", "+faststart",
		"-avoid_negative_ts", "make_zero",
		"-fflags", "+genpts",
		"-max_muxing_queue_size", "1024",
		"-f", "mp4",
		"-y", out)
	return args
}
