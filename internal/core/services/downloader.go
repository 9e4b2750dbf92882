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

package services

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/cloud"
)

// GCSDownloader streams Cloud Storage objects, e.g. narration tracks
// referenced by gs:// URIs in render requests.
type GCSDownloader struct {
	StorageClient *storage.Client
}

func NewGCSDownloader(client *storage.Client) *GCSDownloader {
	return &GCSDownloader{StorageClient: client}
}

// Download copies obj into w and returns the number of bytes written.
func (d *GCSDownloader) Download(ctx context.Context, obj cloud.GCSObject, w io.Writer) (int64, error) {
	reader, err := d.StorageClient.Bucket(obj.Bucket).Object(obj.Name).NewReader(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to create GCS reader for %s: %w", obj.URI(), err)
	}
	defer reader.Close()

	written, err := io.Copy(w, reader)
	if err != nil {
		return written, fmt.Errorf("failed to copy %s, %d bytes written: %w", obj.URI(), written, err)
	}
	return written, nil
}
