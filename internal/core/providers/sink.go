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
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

// ImageSink writes provider payloads to a directory. Payloads are sniffed
// before they are written so a provider that answers with an error page or an
// empty body fails over instead of handing the renderer a broken input.
type ImageSink struct {
	Dir string
}

// Save validates data as an image and writes it atomically under a random
// name carrying the detected extension.
func (s ImageSink) Save(providerID string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", NewProviderError(providerID, 0, ErrEmptyResponse)
	}
	if !filetype.IsImage(data) {
		return "", NewProviderError(providerID, 0, ErrNotImage)
	}
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "", NewProviderError(providerID, 0, ErrNotImage)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating image directory %s: %w", s.Dir, err)
	}
	path := filepath.Join(s.Dir, fmt.Sprintf("%s-%s.%s", providerID, uuid.NewString(), kind.Extension))
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing image %s: %w", path, err)
	}
	return path, nil
}
