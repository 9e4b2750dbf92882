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

package testutil

// CompliantProbeJSON is ffprobe output for an H.264 baseline 3.0 yuv420p
// video with 44.1 kHz stereo AAC.
const CompliantProbeJSON = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_type": "video",
      "profile": "Constrained Baseline",
      "level": 30,
      "pix_fmt": "yuv420p",
      "width": 1080,
      "height": 1920,
      "disposition": {"default": 1, "attached_pic": 0}
    },
    {
      "index": 1,
      "codec_name": "aac",
      "codec_type": "audio",
      "profile": "LC",
      "sample_rate": "44100",
      "channels": 2,
      "disposition": {"default": 1}
    }
  ],
  "format": {
    "filename": "out.mp4",
    "format_name": "mov,mp4,m4a,3gp,3g2,mj2",
    "duration": "24.000000"
  }
}`

// FullRangeProbeJSON is the same file encoded with the full-range yuvj420p
// pixel format, at High profile level 4.0 and 48 kHz mono audio.
const FullRangeProbeJSON = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_type": "video",
      "profile": "High",
      "level": 40,
      "pix_fmt": "yuvj420p",
      "width": 1080,
      "height": 1920
    },
    {
      "index": 1,
      "codec_name": "aac",
      "codec_type": "audio",
      "sample_rate": "48000",
      "channels": 1
    }
  ],
  "format": {"filename": "bad.mp4", "duration": "12.5"}
}`

// VideoOnlyProbeJSON has a video stream and no audio.
const VideoOnlyProbeJSON = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_type": "video",
      "profile": "Main",
      "level": 30,
      "pix_fmt": "yuv420p",
      "width": 1080,
      "height": 1920
    }
  ],
  "format": {"filename": "silent.mp4", "duration": "10.0"}
}`

// RenderRequestJSON is a request with three segments over 24 seconds.
const RenderRequestJSON = `{
  "run_id": "run-123",
  "audio_path": "%s",
  "audio_duration": 24,
  "segments": [
    {"id": "s1", "concept": "sunrise over a city", "style": "cinematic", "emotion": "inspiring", "start_time": 0, "end_time": 10},
    {"id": "s2", "concept": "runner on a bridge", "style": "modern", "emotion": "powerful", "start_time": 12, "end_time": 20},
    {"id": "s3", "concept": "trophy on a desk", "style": "luxury", "emotion": "successful", "start_time": 20, "end_time": 24}
  ]
}`
