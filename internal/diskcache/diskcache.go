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

// Package diskcache persists downloaded avatars in a content addressed store
// indexed by bbolt, and moves the whole cache through an OCI registry.
package diskcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"d7y.io/gravatar/internal/gc"
	"d7y.io/gravatar/internal/metadata"
	"d7y.io/gravatar/internal/storage"
	"d7y.io/gravatar/pkg/image"
	"d7y.io/gravatar/pkg/oci"
)

var (
	// ErrSnapshotAlreadyExists indicates that the snapshot already exists.
	ErrSnapshotAlreadyExists = errors.New("snapshot already exists")

	// ErrRegistryNotConfigured is returned by Snapshot and Restore without a registry.
	ErrRegistryNotConfigured = errors.New("registry not configured")
)

const (
	// defaultSnapshotConcurrency is the default concurrency limit for snapshot operations.
	defaultSnapshotConcurrency = 5

	// defaultRestoreConcurrency is the default concurrency limit for restore operations.
	defaultRestoreConcurrency = 5
)

// Cache is the persistent avatar tier.
type Cache interface {
	image.Store

	// Export links or copies the stored image for key to destPath.
	Export(ctx context.Context, key, destPath string) error

	// Snapshot pushes the whole cache to the registry as name:version.
	Snapshot(ctx context.Context, name, version string) error

	// Restore pulls name:version from the registry into the cache.
	Restore(ctx context.Context, name, version string) error

	// GC returns a garbage collector for the cache.
	GC(opts ...gc.Option) gc.GC

	// Close closes the index.
	Close() error
}

// Option is a function that configures a Cache.
type Option func(*cache)

// WithRegistry enables Snapshot and Restore.
func WithRegistry(registry oci.Client) Option {
	return func(c *cache) {
		c.registry = registry
	}
}

// WithSnapshotConcurrency sets how many blobs are pushed at once.
func WithSnapshotConcurrency(n int) Option {
	return func(c *cache) {
		if n > 0 {
			c.snapshotConcurrency = n
		}
	}
}

// WithRestoreConcurrency sets how many blobs are pulled at once.
func WithRestoreConcurrency(n int) Option {
	return func(c *cache) {
		if n > 0 {
			c.restoreConcurrency = n
		}
	}
}

// cache is the implementation of Cache.
type cache struct {
	// rootDir is the root directory of the cache.
	rootDir string

	// snapshotConcurrency is the concurrency limit for snapshot operations.
	snapshotConcurrency int

	// restoreConcurrency is the concurrency limit for restore operations.
	restoreConcurrency int

	// metadata is the index of stored images.
	metadata metadata.Metadata

	// storage holds the image bytes.
	storage storage.Storage

	// registry is the registry snapshots are pushed to, nil when disabled.
	registry oci.Client
}

// New opens the cache under rootDir.
func New(rootDir string, opts ...Option) (Cache, error) {
	if rootDir == "" {
		return nil, errors.New("root directory is required")
	}

	st, err := storage.New(rootDir)
	if err != nil {
		return nil, err
	}

	md, err := metadata.New(rootDir)
	if err != nil {
		return nil, err
	}

	c := &cache{
		rootDir:             rootDir,
		snapshotConcurrency: defaultSnapshotConcurrency,
		restoreConcurrency:  defaultRestoreConcurrency,
		metadata:            md,
		storage:             st,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Load implements image.Store.
func (c *cache) Load(ctx context.Context, key string) (*image.StoredImage, error) {
	entry, err := c.metadata.GetEntry(ctx, key)
	if err != nil {
		if errors.Is(err, metadata.ErrKeyNotFound) {
			return nil, image.ErrNotStored
		}

		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	data, err := c.storage.ReadContent(ctx, storage.ParseFilenameFromDigest(entry.Digest))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("stored content is missing, dropping entry", "key", key, "digest", entry.Digest)
			if err := c.Remove(ctx, key); err != nil && !errors.Is(err, image.ErrNotStored) {
				slog.Warn("failed to drop entry", "key", key, "err", err)
			}

			return nil, image.ErrNotStored
		}

		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	// Touch the entry for refreshing the last accessed time.
	if err := c.metadata.TouchEntry(ctx, key); err != nil {
		slog.Warn("failed to touch entry", "key", key, "err", err)
	}

	return &image.StoredImage{
		Data: data,
		Meta: image.Meta{
			ContentType:  entry.ContentType,
			ETag:         entry.ETag,
			LastModified: entry.LastModified,
			FetchedAt:    entry.FetchedAt,
		},
	}, nil
}

// Save implements image.Store.
func (c *cache) Save(ctx context.Context, key string, data []byte, meta image.Meta) error {
	info, err := c.storage.WriteContent(ctx, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}

	fetchedAt := meta.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	orphaned, err := c.metadata.PutEntry(ctx, key, metadata.Entry{
		URL:            key,
		Digest:         storage.ContentDigest(info.Name()),
		ContentType:    meta.ContentType,
		Size:           info.Size(),
		ETag:           meta.ETag,
		LastModified:   meta.LastModified,
		FetchedAt:      fetchedAt,
		LastAccessedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to store entry: %w", err)
	}

	c.pruneContent(ctx, orphaned)
	return nil
}

// Touch implements image.Store.
func (c *cache) Touch(ctx context.Context, key string) error {
	entry, err := c.metadata.GetEntry(ctx, key)
	if err != nil {
		if errors.Is(err, metadata.ErrKeyNotFound) {
			return image.ErrNotStored
		}

		return fmt.Errorf("failed to get entry: %w", err)
	}

	now := time.Now()
	entry.FetchedAt = now
	entry.LastAccessedAt = now
	if _, err := c.metadata.PutEntry(ctx, key, *entry); err != nil {
		return fmt.Errorf("failed to store entry: %w", err)
	}

	return nil
}

// Remove implements image.Store.
func (c *cache) Remove(ctx context.Context, key string) error {
	pruned, err := c.metadata.Prune(ctx, key)
	if err != nil {
		if errors.Is(err, metadata.ErrKeyNotFound) {
			return image.ErrNotStored
		}

		return fmt.Errorf("failed to prune entry: %w", err)
	}

	c.pruneContent(ctx, pruned)
	return nil
}

// pruneContent removes content no entry references anymore.
func (c *cache) pruneContent(ctx context.Context, contents []metadata.Content) {
	for _, content := range contents {
		if err := c.storage.Prune(ctx, storage.ParseFilenameFromDigest(content.Digest)); err != nil {
			slog.Warn("failed to prune content", "digest", content.Digest, "err", err)
		}
	}
}

// Export implements Cache.
func (c *cache) Export(ctx context.Context, key, destPath string) error {
	entry, err := c.metadata.GetEntry(ctx, key)
	if err != nil {
		if errors.Is(err, metadata.ErrKeyNotFound) {
			return image.ErrNotStored
		}

		return fmt.Errorf("failed to get entry: %w", err)
	}

	if err := c.storage.Export(ctx, storage.ParseFilenameFromDigest(entry.Digest), destPath); err != nil {
		return err
	}

	if err := c.metadata.TouchEntry(ctx, key); err != nil {
		slog.Warn("failed to touch entry", "key", key, "err", err)
	}

	return nil
}

// GC implements Cache.
func (c *cache) GC(opts ...gc.Option) gc.GC {
	return gc.New(c.rootDir, c.metadata, c.storage, opts...)
}

// Close implements Cache.
func (c *cache) Close() error {
	return c.metadata.Close()
}
