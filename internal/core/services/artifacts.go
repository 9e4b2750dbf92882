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

// Package services contains the stateful collaborators of the pipeline that
// outlive a single run: the artifact stores and the read-only provider view
// used by the API.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Artifact states. Each state is a folder (or object prefix) under the store
// root.
const (
	StatePending   = "pending"
	StateProcessed = "processed"
	StatePublished = "published"
)

// ArtifactStore tracks a rendered file through pending, processed and
// published. Pending and Process return the local path to keep working with;
// Publish returns the location consumers should use.
type ArtifactStore interface {
	Pending(ctx context.Context, runID, path string) (string, error)
	Process(ctx context.Context, runID, path string) (string, error)
	Publish(ctx context.Context, runID, path string) (string, error)
}

// LocalArtifactStore moves files between <Root>/<state>/<runID>/.
type LocalArtifactStore struct {
	Root string
}

// NewLocalArtifactStore creates a store rooted at root.
func NewLocalArtifactStore(root string) *LocalArtifactStore {
	return &LocalArtifactStore{Root: root}
}

func (s *LocalArtifactStore) Pending(ctx context.Context, runID, path string) (string, error) {
	return s.move(ctx, StatePending, runID, path)
}

func (s *LocalArtifactStore) Process(ctx context.Context, runID, path string) (string, error) {
	return s.move(ctx, StateProcessed, runID, path)
}

func (s *LocalArtifactStore) Publish(ctx context.Context, runID, path string) (string, error) {
	return s.move(ctx, StatePublished, runID, path)
}

// StatePath returns where a file named name is kept in state for runID.
func (s *LocalArtifactStore) StatePath(state, runID, name string) string {
	return filepath.Join(s.Root, state, runID, name)
}

func (s *LocalArtifactStore) move(ctx context.Context, state, runID, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := s.StatePath(state, runID, filepath.Base(path))
	if filepath.Clean(dst) == filepath.Clean(path) {
		return dst, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("creating %s directory: %w", state, err)
	}
	if err := MoveFile(path, dst); err != nil {
		return "", fmt.Errorf("moving artifact to %s: %w", state, err)
	}
	slog.DebugContext(ctx, "artifact moved", "run_id", runID, "state", state, "path", dst)
	return dst, nil
}

// MoveFile renames src to dst, copying when they live on different devices.
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
