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

package diskcache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"golang.org/x/sync/errgroup"

	"d7y.io/gravatar/internal/metadata"
	"d7y.io/gravatar/internal/storage"
	"d7y.io/gravatar/pkg/oci"
)

// snapshotConfig is the config blob of a cache snapshot.
type snapshotConfig struct {
	// CreatedAt is when the snapshot was taken.
	CreatedAt time.Time `json:"createdAt"`

	// Entries maps avatar URLs to their index entries.
	Entries map[string]metadata.Entry `json:"entries"`
}

// Snapshot implements Cache.
func (c *cache) Snapshot(ctx context.Context, name, version string) error {
	if c.registry == nil {
		return ErrRegistryNotConfigured
	}

	// Forbid overwriting an existing snapshot.
	exists, err := c.registry.Exists(ctx, name, version)
	if err != nil {
		return fmt.Errorf("failed to check snapshot: %w", err)
	}

	if exists {
		return ErrSnapshotAlreadyExists
	}

	config := snapshotConfig{
		CreatedAt: time.Now(),
		Entries:   make(map[string]metadata.Entry),
	}

	digests := make(map[string]struct{})
	if err := c.metadata.IterateEntries(ctx, func(key string, entry metadata.Entry) error {
		if _, err := c.storage.StatContent(ctx, storage.ParseFilenameFromDigest(entry.Digest)); err != nil {
			slog.Warn("skipping entry without content", "key", key, "digest", entry.Digest, "err", err)
			return nil
		}

		config.Entries[key] = entry
		digests[entry.Digest] = struct{}{}
		return nil
	}); err != nil {
		return fmt.Errorf("failed to iterate entries: %w", err)
	}

	var (
		mu     sync.Mutex
		eg     errgroup.Group
		layers = make([]ocispec.Descriptor, 0, len(digests))
	)
	eg.SetLimit(c.snapshotConcurrency)

	for digest := range digests {
		eg.Go(func() error {
			data, err := c.storage.ReadContent(ctx, storage.ParseFilenameFromDigest(digest))
			if err != nil {
				return fmt.Errorf("failed to read content %s: %w", digest, err)
			}

			blob, err := c.registry.PushBlob(ctx, name, oci.MediaTypeCacheContent, data)
			if err != nil {
				return fmt.Errorf("failed to push content %s: %w", digest, err)
			}

			mu.Lock()
			layers = append(layers, oci.ContentDescriptor(blob, digest))
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}

	sort.Slice(layers, func(i, j int) bool {
		return layers[i].Digest < layers[j].Digest
	})

	configBytes, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Push the config blob.
	configDesc, err := c.registry.PushBlob(ctx, name, oci.MediaTypeCacheConfig, configBytes)
	if err != nil {
		return fmt.Errorf("failed to push config blob: %w", err)
	}

	// Push the manifest blob.
	if _, err := c.registry.PushManifest(ctx, name, version, oci.BuildManifest(configDesc, layers)); err != nil {
		return fmt.Errorf("failed to push manifest blob: %w", err)
	}

	slog.Info("cache snapshot pushed", "name", name, "version", version, "entries", len(config.Entries), "blobs", len(layers))
	return nil
}

// Restore implements Cache.
func (c *cache) Restore(ctx context.Context, name, version string) error {
	if c.registry == nil {
		return ErrRegistryNotConfigured
	}

	// Pull the manifest from registry to get the index.
	manifest, err := c.registry.PullManifest(ctx, name, version)
	if err != nil {
		return fmt.Errorf("failed to pull manifest: %w", err)
	}

	if manifest.ArtifactType != oci.ArtifactTypeCacheManifest {
		return fmt.Errorf("unexpected artifact type %q", manifest.ArtifactType)
	}

	// Pull the config blob from registry.
	configBytes, err := c.registry.PullBlob(ctx, name, manifest.Config)
	if err != nil {
		return fmt.Errorf("failed to pull config blob: %w", err)
	}

	var config snapshotConfig
	if err := json.Unmarshal(configBytes, &config); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	// Keep entries fetched more recently than the snapshot.
	entries := make(map[string]metadata.Entry, len(config.Entries))
	wanted := make(map[string]struct{})
	for key, entry := range config.Entries {
		local, err := c.metadata.GetEntry(ctx, key)
		if err != nil && !errors.Is(err, metadata.ErrKeyNotFound) {
			return fmt.Errorf("failed to get entry: %w", err)
		}

		if local != nil && local.FetchedAt.After(entry.FetchedAt) {
			continue
		}

		entries[key] = entry
		wanted[entry.Digest] = struct{}{}
	}

	var eg errgroup.Group
	eg.SetLimit(c.restoreConcurrency)

	for _, layer := range manifest.Layers {
		digest := layer.Annotations[oci.AnnotationContentDigest]
		if digest == "" {
			return fmt.Errorf("layer %s has no content digest", layer.Digest)
		}

		if _, ok := wanted[digest]; !ok {
			continue
		}

		eg.Go(func() error {
			// The content is already stored locally.
			if _, err := c.storage.StatContent(ctx, storage.ParseFilenameFromDigest(digest)); err == nil {
				return nil
			}

			data, err := c.registry.PullBlob(ctx, name, layer)
			if err != nil {
				return fmt.Errorf("failed to pull content %s: %w", digest, err)
			}

			// Verify before writing, a mismatching blob never touches stored content.
			if got := storage.Digest(data); got != digest {
				return fmt.Errorf("content digest mismatch: expected %s, got %s", digest, got)
			}

			if _, err := c.storage.WriteContent(ctx, bytes.NewReader(data)); err != nil {
				return fmt.Errorf("failed to write content %s: %w", digest, err)
			}

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}

	for key, entry := range entries {
		if _, err := c.storage.StatContent(ctx, storage.ParseFilenameFromDigest(entry.Digest)); err != nil {
			slog.Warn("skipping entry without content", "key", key, "digest", entry.Digest)
			continue
		}

		orphaned, err := c.metadata.PutEntry(ctx, key, entry)
		if err != nil {
			return fmt.Errorf("failed to store entry: %w", err)
		}

		c.pruneContent(ctx, orphaned)
	}

	slog.Info("cache snapshot restored", "name", name, "version", version, "entries", len(entries))
	return nil
}
