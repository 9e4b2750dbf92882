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

// Package process runs the external media tools. Every child is started in
// its own process group so cancelling a run also stops the helpers ffmpeg may
// spawn.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Sentinel errors returned by CheckBinaries.
var (
	ErrFFmpegNotFound  = errors.New("ffmpeg binary not found")
	ErrFFprobeNotFound = errors.New("ffprobe binary not found")
)

// DefaultWaitDelay is how long a cancelled process may take to exit before
// its pipes are closed forcibly.
const DefaultWaitDelay = 5 * time.Second

// Runner runs a command to completion and returns its output streams.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	WaitDelay time.Duration
}

// NewExecRunner returns a runner using DefaultWaitDelay.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{WaitDelay: DefaultWaitDelay}
}

// Run starts name in a new process group and waits for it. When ctx is done
// the whole group is killed and the returned error wraps ctx.Err().
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setGroup(cmd)
	cmd.Cancel = func() error {
		return killGroup(cmd)
	}
	cmd.WaitDelay = r.WaitDelay

	err := cmd.Run()
	if err != nil && ctx.Err() != nil {
		err = fmt.Errorf("%s: %w", name, ctx.Err())
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// ExitCode extracts the exit status from an error returned by Run, or -1.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// CheckBinaries verifies that both tools resolve on PATH (or as given paths).
func CheckBinaries(ffmpeg, ffprobe string) error {
	var errs []error
	if _, err := exec.LookPath(ffmpeg); err != nil {
		errs = append(errs, fmt.Errorf("%w: %s: %v", ErrFFmpegNotFound, ffmpeg, err))
	}
	if _, err := exec.LookPath(ffprobe); err != nil {
		errs = append(errs, fmt.Errorf("%w: %s: %v", ErrFFprobeNotFound, ffprobe, err))
	}
	return errors.Join(errs...)
}
