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

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/providers"
)

// FakeProvider is a scripted providers.Provider.
type FakeProvider struct {
	ProviderID string
	Fn         func(ctx context.Context, prompt string) (string, string, error)
	calls      atomic.Int64
}

func (f *FakeProvider) ID() string {
	return f.ProviderID
}

func (f *FakeProvider) Generate(ctx context.Context, prompt string) (string, string, error) {
	f.calls.Add(1)
	return f.Fn(ctx, prompt)
}

// Calls returns how many times Generate was invoked.
func (f *FakeProvider) Calls() int64 {
	return f.calls.Load()
}

// RateLimitedProvider always fails with HTTP 429.
func RateLimitedProvider(id string) *FakeProvider {
	return &FakeProvider{ProviderID: id, Fn: func(context.Context, string) (string, string, error) {
		return "", "", providers.NewProviderError(id, 429, fmt.Errorf("too many requests"))
	}}
}

// HangingProvider blocks until its context ends.
func HangingProvider(id string) *FakeProvider {
	return &FakeProvider{ProviderID: id, Fn: func(ctx context.Context, _ string) (string, string, error) {
		<-ctx.Done()
		return "", "", providers.NewProviderError(id, 0, ctx.Err())
	}}
}

// ImageProvider writes a small PNG into dir on every call.
func ImageProvider(id, dir string) *FakeProvider {
	var n atomic.Int64
	return &FakeProvider{ProviderID: id, Fn: func(context.Context, string) (string, string, error) {
		path := filepath.Join(dir, fmt.Sprintf("%s-%d.png", id, n.Add(1)))
		if err := WritePNG(path, 8, 8); err != nil {
			return "", "", err
		}
		return path, "https://example.com/" + filepath.Base(path), nil
	}}
}

// ImageEntry registers a provider with credentials present.
func ImageEntry(p providers.Provider, priority int) providers.Entry {
	return providers.Entry{
		Config: model.ProviderConfig{
			ID:                p.ID(),
			DisplayName:       p.ID(),
			Priority:          priority,
			Capability:        model.CapabilityImage,
			CredentialPresent: true,
		},
		Provider: p,
	}
}

// WritePNG writes a solid w x h PNG to path.
func WritePNG(path string, w, h int) error {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: 40, G: 80, B: 160, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Call is one invocation recorded by FakeRunner.
type Call struct {
	Name string
	Args []string
}

// FakeRunner records invocations and answers them with Handler. Without a
// handler every call succeeds with empty output.
type FakeRunner struct {
	Handler func(ctx context.Context, name string, args []string) ([]byte, []byte, error)

	mu    sync.Mutex
	calls []Call
}

func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: append([]string(nil), args...)})
	f.mu.Unlock()
	if f.Handler == nil {
		return nil, nil, nil
	}
	return f.Handler(ctx, name, args)
}

// Calls returns the recorded invocations.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the invocations of the named binary.
func (f *FakeRunner) CallsTo(name string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// TouchOutput creates the file named by the last argument, the way ffmpeg
// writes its output.
func TouchOutput(args []string) error {
	if len(args) == 0 {
		return nil
	}
	out := args[len(args)-1]
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	return os.WriteFile(out, []byte("mp4"), 0o644)
}
