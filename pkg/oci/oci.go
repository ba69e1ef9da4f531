/*
 *     Copyright 2025 The Dragonfly Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package oci

import (
	"context"
	"fmt"
	"net/url"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Client moves cache snapshots in and out of an OCI registry. Blobs are
// held in memory, which suits avatar sized content.
type Client interface {
	// PullBlob pulls the blob described by desc and verifies its digest.
	PullBlob(ctx context.Context, name string, desc ocispec.Descriptor) ([]byte, error)

	// PullManifest resolves reference and decodes the image manifest.
	PullManifest(ctx context.Context, name, reference string) (ocispec.Manifest, error)

	// PushBlob uploads blob unless the repository already has it.
	PushBlob(ctx context.Context, name, mediaType string, blob []byte) (ocispec.Descriptor, error)

	// PushManifest uploads manifest and tags it with tag.
	PushManifest(ctx context.Context, name, tag string, manifest ocispec.Manifest) (ocispec.Descriptor, error)

	// Exists reports whether reference resolves in the repository.
	Exists(ctx context.Context, name, reference string) (bool, error)
}

// Registry is the registry cache snapshots are pushed to.
type Registry struct {
	// Endpoint is the registry URL, e.g. https://registry.example.com.
	Endpoint string `yaml:"endpoint"`

	// Namespace prefixes every repository name.
	Namespace string `yaml:"namespace"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Insecure skips TLS verification.
	Insecure bool `yaml:"insecure"`
}

// New creates a registry client.
func New(registry Registry) (Client, error) {
	u, err := url.Parse(registry.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid registry endpoint %q: %w", registry.Endpoint, err)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("invalid registry endpoint %q: missing host", registry.Endpoint)
	}

	return newClient(u, registry), nil
}
