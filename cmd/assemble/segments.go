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

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// segmentFile is the document form of a segment file. A file may also be a
// bare list of segments.
type segmentFile struct {
	AudioPath     string                `json:"audio_path" yaml:"audio_path"`
	AudioDuration float64               `json:"audio_duration" yaml:"audio_duration"`
	Segments      []model.VisualSegment `json:"segments" yaml:"segments"`
}

// LoadSegmentFile reads a JSON or YAML segment file, chosen by extension.
// Files without a known extension are read as YAML, which also accepts JSON.
func LoadSegmentFile(path string) (*segmentFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := parseSegments(data, strings.ToLower(filepath.Ext(path)) == ".json")
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

func parseSegments(data []byte, isJSON bool) (*segmentFile, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &segmentFile{}, nil
	}
	isList := trimmed[0] == '[' || trimmed[0] == '-'

	var doc segmentFile
	switch {
	case isJSON && isList:
		err := json.Unmarshal(trimmed, &doc.Segments)
		return &doc, err
	case isJSON:
		err := json.Unmarshal(trimmed, &doc)
		return &doc, err
	case isList:
		err := yaml.Unmarshal(trimmed, &doc.Segments)
		return &doc, err
	default:
		err := yaml.Unmarshal(trimmed, &doc)
		return &doc, err
	}
}
