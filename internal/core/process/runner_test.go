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

package process_test

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/process"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_Output(t *testing.T) {
	requireShell(t)
	stdout, stderr, err := process.NewExecRunner().Run(context.Background(), "sh", "-c", "echo out; echo err >&2; exit 3")

	require.Error(t, err)
	assert.Equal(t, 3, process.ExitCode(err))
	assert.Equal(t, "out\n", string(stdout))
	assert.Equal(t, "err\n", string(stderr))
}

func TestExecRunner_Success(t *testing.T) {
	requireShell(t)
	stdout, _, err := process.NewExecRunner().Run(context.Background(), "sh", "-c", "printf ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(stdout))
}

func TestExecRunner_CancelKillsGroup(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	// The child sleep shares the group of the shell and is killed with it.
	_, _, err := process.NewExecRunner().Run(ctx, "sh", "-c", "sleep 30 & wait")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, -1, process.ExitCode(errors.New("not an exit error")))
	assert.Equal(t, -1, process.ExitCode(nil))
}

func TestCheckBinaries(t *testing.T) {
	err := process.CheckBinaries("definitely-not-ffmpeg-xyz", "definitely-not-ffprobe-xyz")
	assert.ErrorIs(t, err, process.ErrFFmpegNotFound)
	assert.ErrorIs(t, err, process.ErrFFprobeNotFound)

	requireShell(t)
	assert.NoError(t, process.CheckBinaries("sh", "sh"))

	err = process.CheckBinaries("sh", "definitely-not-ffprobe-xyz")
	assert.NotErrorIs(t, err, process.ErrFFmpegNotFound)
	assert.ErrorIs(t, err, process.ErrFFprobeNotFound)
}
