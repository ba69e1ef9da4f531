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
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"
)

// maxManifestBytes bounds a pulled snapshot manifest.
const maxManifestBytes = 4 * 1024 * 1024

// client is the oras backed implementation of Client.
type client struct {
	// namespace prefixes every repository name.
	namespace string

	// host is the registry host, with port.
	host string

	// plainHTTP talks to the registry without TLS.
	plainHTTP bool

	// client authenticates registry requests.
	client *auth.Client
}

func newClient(u *url.URL, registry Registry) *client {
	httpClient := &http.Client{
		Transport: retry.NewTransport(&http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: registry.Insecure,
			},
		}),
	}

	return &client{
		namespace: registry.Namespace,
		host:      u.Host,
		plainHTTP: u.Scheme == "http",
		client: &auth.Client{
			Cache: auth.NewCache(),
			Credential: auth.StaticCredential(u.Host, auth.Credential{
				Username: registry.Username,
				Password: registry.Password,
			}),
			Client: httpClient,
		},
	}
}

// repositoryName builds the OCI repository name, e.g. host/namespace/name.
func (c *client) repositoryName(name string) string {
	return path.Join(c.host, c.namespace, name)
}

func (c *client) repository(name string) (*remote.Repository, error) {
	repo, err := remote.NewRepository(c.repositoryName(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create repository for %q: %w", name, err)
	}

	repo.Client = c.client
	repo.PlainHTTP = c.plainHTTP
	return repo, nil
}

// PullBlob implements Client.
func (c *client) PullBlob(ctx context.Context, name string, desc ocispec.Descriptor) ([]byte, error) {
	repo, err := c.repository(name)
	if err != nil {
		return nil, err
	}

	data, err := content.FetchAll(ctx, repo.Blobs(), desc)
	if err != nil {
		return nil, fmt.Errorf("failed to pull blob %s from %q: %w", desc.Digest, name, err)
	}

	return data, nil
}

// PullManifest implements Client.
func (c *client) PullManifest(ctx context.Context, name, reference string) (ocispec.Manifest, error) {
	repo, err := c.repository(name)
	if err != nil {
		return ocispec.Manifest{}, err
	}

	_, data, err := oras.FetchBytes(ctx, repo, reference, oras.FetchBytesOptions{MaxBytes: maxManifestBytes})
	if err != nil {
		return ocispec.Manifest{}, fmt.Errorf("failed to pull manifest %q from %q: %w", reference, name, err)
	}

	var manifest ocispec.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return ocispec.Manifest{}, fmt.Errorf("failed to decode manifest: %w", err)
	}

	return manifest, nil
}

// PushBlob implements Client.
func (c *client) PushBlob(ctx context.Context, name, mediaType string, blob []byte) (ocispec.Descriptor, error) {
	repo, err := c.repository(name)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	desc := content.NewDescriptorFromBytes(mediaType, blob)

	// The same default image is shared by many avatars and snapshots.
	exists, err := repo.Blobs().Exists(ctx, desc)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("failed to check blob %s: %w", desc.Digest, err)
	}

	if !exists {
		if err := repo.Blobs().Push(ctx, desc, bytes.NewReader(blob)); err != nil {
			return ocispec.Descriptor{}, fmt.Errorf("failed to push blob %s: %w", desc.Digest, err)
		}
	}

	return desc, nil
}

// PushManifest implements Client.
func (c *client) PushManifest(ctx context.Context, name, tag string, manifest ocispec.Manifest) (ocispec.Descriptor, error) {
	repo, err := c.repository(name)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	data, err := json.Marshal(manifest)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("failed to marshal manifest: %w", err)
	}

	desc := content.NewDescriptorFromBytes(ocispec.MediaTypeImageManifest, data)
	if err := repo.PushReference(ctx, desc, bytes.NewReader(data), tag); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("failed to push manifest %s:%s: %w", name, tag, err)
	}

	return desc, nil
}

// Exists implements Client.
func (c *client) Exists(ctx context.Context, name, reference string) (bool, error) {
	repo, err := c.repository(name)
	if err != nil {
		return false, err
	}

	if _, err := repo.Resolve(ctx, reference); err != nil {
		if errors.Is(err, errdef.ErrNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("failed to resolve %q in %q: %w", reference, name, err)
	}

	return true, nil
}
