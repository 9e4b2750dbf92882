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
	"strings"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

var styleTerms = map[string]string{
	"luxury":     "luxury, premium, elegant, gold accents, high-end, sophisticated",
	"modern":     "modern, clean, minimalist, contemporary, sleek, professional",
	"cinematic":  "cinematic lighting, dramatic, movie-style, high contrast, epic",
	"abstract":   "abstract, artistic, creative, unique perspective, stylized",
	"futuristic": "futuristic, sci-fi, neon lights, high-tech, digital, advanced",
}

var emotionTerms = map[string]string{
	"inspiring":  "uplifting, motivational, bright lighting, positive energy",
	"powerful":   "strong, bold, dramatic lighting, commanding presence",
	"confident":  "self-assured, professional, clear focus, determined",
	"ambitious":  "goal-oriented, forward-looking, dynamic, energetic",
	"successful": "achievement, victory, celebration, prosperity",
}

var technicalTerms = []string{
	"high quality",
	"4K resolution",
	"professional photography",
	"perfect composition",
	"vibrant colors",
	"sharp focus",
	"vertical 9:16 composition",
}

// EnhancePrompt expands a segment's concept text with the vocabulary of its
// style and emotion tags. Unknown tags contribute nothing.
func EnhancePrompt(segment model.VisualSegment) string {
	parts := make([]string, 0, 3+len(technicalTerms))
	if c := strings.TrimSpace(segment.ConceptText); c != "" {
		parts = append(parts, c)
	}
	if t, ok := styleTerms[strings.ToLower(segment.Style())]; ok {
		parts = append(parts, t)
	}
	if t, ok := emotionTerms[strings.ToLower(segment.Emotion())]; ok {
		parts = append(parts, t)
	}
	parts = append(parts, technicalTerms...)
	return strings.Join(parts, ", ")
}
