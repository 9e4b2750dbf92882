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
	"errors"
	"fmt"
	"strings"
)

// Build and render errors.
var (
	ErrNoSlots      = errors.New("no timeline slots to render")
	ErrMissingAsset = errors.New("slot has no generated asset")
	ErrMissingInput = errors.New("render input does not exist")
	ErrNoOutput     = errors.New("renderer produced no output file")
)

// stderrTail is the number of stderr bytes kept on a RenderError.
const stderrTail = 4096

// RenderError is a failed encoder run. It is fatal for the run and is never
// retried.
type RenderError struct {
	ExitCode int
	Stderr   string
	Err      error
}

// NewRenderError keeps the tail of stderr, where ffmpeg reports the cause.
func NewRenderError(exitCode int, stderr []byte, err error) *RenderError {
	s := string(stderr)
	if len(s) > stderrTail {
		s = s[len(s)-stderrTail:]
	}
	return &RenderError{ExitCode: exitCode, Stderr: strings.TrimSpace(s), Err: err}
}

func (e *RenderError) Error() string {
	msg := fmt.Sprintf("ffmpeg exited with code %d", e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + lastLine(e.Stderr)
	}
	return msg
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
