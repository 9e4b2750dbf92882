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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/cloud"
)

// DefaultSignedURLExpiry is used when no expiry is configured.
const DefaultSignedURLExpiry = 60 * time.Minute

// GCSArtifactStore keeps artifacts in a Cloud Storage bucket under
// <state>/<runID>/<name>. The local file stays the working copy; objects
// record the state for consumers of the bucket.
type GCSArtifactStore struct {
	StorageClient *storage.Client                   // Client for Google Cloud Storage.
	IAMClient     *credentials.IamCredentialsClient // Signs URLs when SignerEmail is set.
	SignerEmail   string                            // Service account used to sign published URLs.
	Bucket        string                            // Destination bucket.
	Expiry        time.Duration                     // Lifetime of published URLs.
}

// NewGCSArtifactStore creates a store from the configuration and clients.
func NewGCSArtifactStore(config *cloud.Config, clients *cloud.ServiceClients) *GCSArtifactStore {
	expiry := time.Duration(config.Storage.SignedURLMinutes) * time.Minute
	if expiry <= 0 {
		expiry = DefaultSignedURLExpiry
	}
	return &GCSArtifactStore{
		StorageClient: clients.StorageClient,
		IAMClient:     clients.IAMClient,
		SignerEmail:   config.Application.SignerServiceAccountEmail,
		Bucket:        config.Storage.Bucket,
		Expiry:        expiry,
	}
}

// ObjectName returns the object holding name in state for runID.
func ObjectName(state, runID, name string) string {
	return path.Join(state, runID, name)
}

// Pending uploads the rendered file under pending/.
func (s *GCSArtifactStore) Pending(ctx context.Context, runID, localPath string) (string, error) {
	if _, err := s.upload(ctx, ObjectName(StatePending, runID, filepath.Base(localPath)), localPath); err != nil {
		return "", err
	}
	return localPath, nil
}

// Process uploads the verified file under processed/ and clears pending/.
func (s *GCSArtifactStore) Process(ctx context.Context, runID, localPath string) (string, error) {
	if _, err := s.upload(ctx, ObjectName(StateProcessed, runID, filepath.Base(localPath)), localPath); err != nil {
		return "", err
	}
	if err := s.deletePrefix(ctx, StatePending+"/"+runID+"/"); err != nil {
		slog.WarnContext(ctx, "failed to clear pending objects", "run_id", runID, "error", err)
	}
	return localPath, nil
}

// Publish copies the processed object to published/ and returns a signed URL
// for it.
func (s *GCSArtifactStore) Publish(ctx context.Context, runID, localPath string) (string, error) {
	name := filepath.Base(localPath)
	bucket := s.StorageClient.Bucket(s.Bucket)
	src := bucket.Object(ObjectName(StateProcessed, runID, name))
	dst := bucket.Object(ObjectName(StatePublished, runID, name))

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		if !errors.Is(err, storage.ErrObjectNotExist) {
			return "", fmt.Errorf("copying %s to published: %w", src.ObjectName(), err)
		}
		if _, err := s.upload(ctx, dst.ObjectName(), localPath); err != nil {
			return "", err
		}
	}
	return s.SignedURL(ctx, dst.ObjectName())
}

// SignedURL returns a V4 GET URL for object. With a signer email the bytes are
// signed through the IAM credentials API, otherwise the client's own
// credentials are used.
func (s *GCSArtifactStore) SignedURL(ctx context.Context, object string) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(s.Expiry),
	}
	if s.SignerEmail != "" && s.IAMClient != nil {
		opts.GoogleAccessID = s.SignerEmail
		opts.SignBytes = func(b []byte) ([]byte, error) {
			resp, err := s.IAMClient.SignBlob(ctx, &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			})
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		}
	}
	u, err := s.StorageClient.Bucket(s.Bucket).SignedURL(object, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", s.Bucket, object, err)
	}
	return u, nil
}

func (s *GCSArtifactStore) upload(ctx context.Context, object, localPath string) (cloud.GCSObject, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return cloud.GCSObject{}, fmt.Errorf("failed to open file %s: %w", localPath, err)
	}
	defer f.Close()

	out := cloud.GCSObject{Bucket: s.Bucket, Name: object, MIMEType: "video/mp4"}
	writer := s.StorageClient.Bucket(s.Bucket).Object(object).NewWriter(ctx)
	writer.ContentType = out.MIMEType
	if written, err := io.Copy(writer, f); err != nil {
		_ = writer.Close()
		return cloud.GCSObject{}, fmt.Errorf("failed to copy to GCS, %d bytes written: %w", written, err)
	}
	if err := writer.Close(); err != nil {
		return cloud.GCSObject{}, fmt.Errorf("failed to close GCS writer: %w", err)
	}
	slog.InfoContext(ctx, "uploaded artifact", "uri", out.URI())
	return out, nil
}

func (s *GCSArtifactStore) deletePrefix(ctx context.Context, prefix string) error {
	bucket := s.StorageClient.Bucket(s.Bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	var errs []error
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return err
		}
		if err := bucket.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
