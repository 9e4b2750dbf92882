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

package cloud

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/api/option"
	"google.golang.org/genai"
)

// ServiceClients is the dependency container for every external client the
// engine uses. Clients are only created when the configuration needs them, so
// a purely local setup runs without any Google Cloud credentials.
type ServiceClients struct {
	StorageClient   *storage.Client                   // Client for Google Cloud Storage (GCS); nil without a bucket.
	PubsubClient    *pubsub.Client                    // Client for Google Cloud Pub/Sub; nil without subscriptions.
	GenAIClient     *genai.Client                     // Client for Vertex AI; nil without imagen providers.
	IAMClient       *credentials.IamCredentialsClient // Client for IAM to sign GCS URLs; nil without a signer.
	HTTPClient      *http.Client                      // Instrumented client shared by HTTP providers.
	PubSubListeners map[string]*PubSubListener        // Active listeners, keyed by the logical name from the config.
	ImageModels     map[string]*QuotaAwareImageModel  // Rate-limited imagen models, keyed by provider ID.
}

// Close releases every client that was created.
func (c *ServiceClients) Close() error {
	var err error
	if c.StorageClient != nil {
		err = errors.Join(err, c.StorageClient.Close())
	}
	if c.PubsubClient != nil {
		err = errors.Join(err, c.PubsubClient.Close())
	}
	if c.IAMClient != nil {
		err = errors.Join(err, c.IAMClient.Close())
	}
	return err
}

// NewHTTPClient returns an http.Client whose transport records a span per
// outbound request.
func NewHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// NewCloudServiceClients creates the clients required by config.
//
// Inputs:
//   - ctx: The context used for client creation.
//   - config: The loaded application configuration.
//
// Outputs:
//   - *ServiceClients: The initialised clients. Clients not needed by the
//     configuration are left nil.
//   - error: The first client creation failure.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	cloud = &ServiceClients{
		HTTPClient:      NewHTTPClient(),
		PubSubListeners: make(map[string]*PubSubListener),
		ImageModels:     make(map[string]*QuotaAwareImageModel),
	}

	if config.Storage.Bucket != "" {
		var opts []option.ClientOption
		if config.Storage.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(config.Storage.CredentialsFile))
		}
		cloud.StorageClient, err = storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, err
		}
		if config.Application.SignerServiceAccountEmail != "" {
			cloud.IAMClient, err = credentials.NewIamCredentialsClient(ctx)
			if err != nil {
				return nil, err
			}
		}
	}

	if len(config.TopicSubscriptions) > 0 {
		cloud.PubsubClient, err = pubsub.NewClient(ctx, config.Application.GoogleProjectId)
		if err != nil {
			return nil, err
		}
		for subKey, values := range config.TopicSubscriptions {
			listener, err := NewPubSubListener(cloud.PubsubClient, values.Name, time.Duration(values.TimeoutInSeconds)*time.Second, nil)
			if err != nil {
				return nil, err
			}
			cloud.PubSubListeners[subKey] = listener
		}
	}

	for id, p := range config.Providers {
		if p.Disabled || p.Kind != ProviderKindImagen {
			continue
		}
		if cloud.GenAIClient == nil {
			slog.Info("creating genai client", "project", config.Application.GoogleProjectId, "location", config.Application.GoogleLocation)
			cloud.GenAIClient, err = genai.NewClient(ctx, &genai.ClientConfig{
				Project:  config.Application.GoogleProjectId,
				Location: config.Application.GoogleLocation,
				Backend:  genai.BackendVertexAI,
			})
			if err != nil {
				slog.Error("error creating genai client", "error", err)
				return nil, err
			}
		}
		cloud.ImageModels[id] = NewQuotaAwareImageModel(DefaultImagesConfig(), p.Model, cloud.GenAIClient.Models, p.RateLimit)
	}

	return cloud, nil
}
