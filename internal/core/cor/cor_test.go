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

package cor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/cor"
)

// stepCommand appends its name to the string slice flowing through CtxIn.
type stepCommand struct {
	cor.BaseCommand
	fail error
	runs *int
}

func newStep(name string, fail error, runs *int) *stepCommand {
	return &stepCommand{BaseCommand: *cor.NewBaseCommand(name), fail: fail, runs: runs}
}

func (s *stepCommand) Execute(context cor.Context) {
	if s.runs != nil {
		*s.runs++
	}
	if s.fail != nil {
		s.Fail(context, s.fail)
		return
	}
	in, _ := context.Get(s.GetInputParam()).([]string)
	s.Succeed(context, append(append([]string(nil), in...), s.GetName()))
}

func TestChain_PipesOutputToInput(t *testing.T) {
	chain := cor.NewBaseChain("pipe")
	chain.AddCommand(newStep("a", nil, nil)).AddCommand(newStep("b", nil, nil)).AddCommand(newStep("c", nil, nil))
	assert.Equal(t, []string{"a", "b", "c"}, chain.Commands())

	chainCtx := cor.NewBaseContext()
	chainCtx.Add(cor.CtxIn, []string{"start"})
	require.True(t, chain.IsExecutable(chainCtx))

	chain.Execute(chainCtx)

	require.NoError(t, chainCtx.Err())
	assert.Equal(t, []string{"start", "a", "b", "c"}, chainCtx.Get(cor.CtxIn))
	assert.Nil(t, chainCtx.Get(cor.CtxOut))
}

func TestChain_StopsAtFirstError(t *testing.T) {
	var afterRuns int
	boom := errors.New("boom")
	chain := cor.NewBaseChain("stop")
	chain.AddCommand(newStep("a", nil, nil)).AddCommand(newStep("b", boom, nil)).AddCommand(newStep("c", nil, &afterRuns))

	chainCtx := cor.NewBaseContext()
	chainCtx.Add(cor.CtxIn, []string{})
	chain.Execute(chainCtx)

	assert.Equal(t, 0, afterRuns)
	assert.ErrorIs(t, chainCtx.Err(), boom)
	assert.Contains(t, chainCtx.GetErrors(), "b")
}

func TestChain_ContinueOnFailure(t *testing.T) {
	var afterRuns int
	chain := cor.NewBaseChain("continue")
	chain.ContinueOnFailure(true)
	chain.AddCommand(newStep("a", errors.New("first"), nil)).AddCommand(newStep("b", nil, &afterRuns))

	chainCtx := cor.NewBaseContext()
	chainCtx.Add(cor.CtxIn, []string{})
	chain.Execute(chainCtx)

	assert.Equal(t, 1, afterRuns)
	assert.True(t, chainCtx.HasErrors())
}

func TestChain_SkipsCommandWithoutInput(t *testing.T) {
	var runs int
	chain := cor.NewBaseChain("skip")
	chain.AddCommand(newStep("a", nil, &runs))

	chainCtx := cor.NewBaseContext()
	chain.Execute(chainCtx)

	assert.Equal(t, 0, runs)
	assert.False(t, chainCtx.HasErrors())
}

func TestChain_StopsWhenCancelled(t *testing.T) {
	var runs int
	chain := cor.NewBaseChain("cancel")
	chain.AddCommand(newStep("a", nil, &runs))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, []string{})
	chain.Execute(chainCtx)

	assert.Equal(t, 0, runs)
	assert.ErrorIs(t, chainCtx.Err(), context.Canceled)
	assert.Equal(t, ctx, chainCtx.GetContext())
}

func TestCommand_NamedParams(t *testing.T) {
	cmd := &stepCommand{BaseCommand: *cor.NewBaseCommandWithParams("named", "in", "out")}
	assert.Equal(t, "in", cmd.GetInputParam())
	assert.Equal(t, "out", cmd.GetOutputParam())
	assert.NotNil(t, cmd.GetSuccessCounter())
	assert.NotNil(t, cmd.GetErrorCounter())

	chainCtx := cor.NewBaseContext()
	assert.False(t, cmd.IsExecutable(chainCtx))
	chainCtx.Add("in", []string{"x"})
	require.True(t, cmd.IsExecutable(chainCtx))

	cmd.Execute(chainCtx)
	assert.Equal(t, []string{"x", "named"}, chainCtx.Get("out"))
	assert.Equal(t, []string{"x", "named"}, chainCtx.Get(cor.CtxOut))
}

func TestContext_Errors(t *testing.T) {
	chainCtx := cor.NewBaseContext()
	assert.NoError(t, chainCtx.Err())

	first, second := errors.New("first"), errors.New("second")
	chainCtx.AddError("b", first)
	chainCtx.AddError("b", second)
	chainCtx.AddError("a", errors.New("other"))
	chainCtx.AddError("c", nil)

	assert.Len(t, chainCtx.GetErrors(), 2)
	err := chainCtx.Err()
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	assert.Equal(t, "a: other\nb: first\nsecond", err.Error())
}

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func TestContext_CloseOnSuccessKeepsDiscardFiles(t *testing.T) {
	dir := t.TempDir()
	temp := touch(t, filepath.Join(dir, "temp"))
	kept := touch(t, filepath.Join(dir, "asset"))

	chainCtx := cor.NewBaseContext()
	chainCtx.AddTempFile(temp)
	chainCtx.AddTempFile(filepath.Join(dir, "already-gone"))
	chainCtx.AddDiscardOnFailure(kept)
	assert.Len(t, chainCtx.GetTempFiles(), 2)

	chainCtx.Close()

	assert.NoFileExists(t, temp)
	assert.FileExists(t, kept)
	assert.Empty(t, chainCtx.GetTempFiles())
}

func TestContext_CloseOnFailureRemovesDiscardFiles(t *testing.T) {
	dir := t.TempDir()
	asset := touch(t, filepath.Join(dir, "asset"))

	chainCtx := cor.NewBaseContext()
	chainCtx.AddDiscardOnFailure(asset)
	chainCtx.AddError("render", errors.New("failed"))
	chainCtx.Close()

	assert.NoFileExists(t, asset)
}
