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

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// ObjectDownloader streams a Cloud Storage object into w.
type ObjectDownloader interface {
	Download(ctx context.Context, obj cloud.GCSObject, w io.Writer) (int64, error)
}

// AudioFetch makes a gs:// narration track available to ffmpeg and ffprobe.
//
// Logic Flow:
//  1. Requests with a local audio path pass through untouched.
//  2. A gs:// path is parsed and the object streamed into a temp file in dir.
//  3. The temp file is owned by the run and removed when its context closes.
//  4. The request in the context is replaced by a copy pointing at the file.
type AudioFetch struct {
	cor.BaseCommand
	downloader ObjectDownloader
	dir        string
}

// NewAudioFetch creates the stage. downloader may be nil when no storage
// client is configured; gs:// requests then fail.
func NewAudioFetch(name string, downloader ObjectDownloader, dir string) *AudioFetch {
	return &AudioFetch{
		BaseCommand: *cor.NewBaseCommandWithParams(name, ParamRequest, ParamRequest),
		downloader:  downloader,
		dir:         dir,
	}
}

func (c *AudioFetch) Execute(context cor.Context) {
	req, _ := Get[*model.RenderRequest](context, c.GetInputParam())
	if !strings.HasPrefix(req.AudioPath, "gs://") {
		return
	}
	obj, err := cloud.ParseGCSURI(req.AudioPath)
	if err != nil {
		c.Fail(context, err)
		return
	}
	if c.downloader == nil {
		c.Fail(context, fmt.Errorf("no storage client configured for %s", req.AudioPath))
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.Fail(context, fmt.Errorf("creating audio directory: %w", err))
		return
	}

	tempFile, err := os.CreateTemp(c.dir, "audio-*"+path.Ext(obj.Name))
	if err != nil {
		c.Fail(context, fmt.Errorf("could not create temp file: %w", err))
		return
	}
	context.AddTempFile(tempFile.Name())

	written, err := c.downloader.Download(context.GetContext(), obj, tempFile)
	if closeErr := tempFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		c.Fail(context, err)
		return
	}
	slog.InfoContext(context.GetContext(), "downloaded narration", "uri", obj.URI(), "file", tempFile.Name(), "bytes", written)

	local := *req
	local.AudioPath = tempFile.Name()
	c.Succeed(context, &local)
}
