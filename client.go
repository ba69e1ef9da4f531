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

package gravatar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"d7y.io/gravatar/internal/diskcache"
	"d7y.io/gravatar/internal/gc"
	"d7y.io/gravatar/pkg/api"
	"d7y.io/gravatar/pkg/avatar"
	"d7y.io/gravatar/pkg/image"
	"d7y.io/gravatar/pkg/oci"
)

// defaultPrefetchConcurrency is the default concurrency limit for prefetches.
const defaultPrefetchConcurrency = 8

// gravatar is the implementation of Gravatar.
type gravatar struct {
	// prefetchConcurrency is the concurrency limit for prefetches.
	prefetchConcurrency int

	// builder builds avatar URLs.
	builder *avatar.Builder

	// images fetches avatar images.
	images image.Downloader

	// api is the REST client.
	api api.Client

	// disk is the persistent cache, nil when disabled.
	disk diskcache.Cache

	// stopGC stops the background garbage collector.
	stopGC context.CancelFunc

	// gcDone is closed when the background garbage collector returns.
	gcDone chan struct{}

	// closeOnce guards Close.
	closeOnce sync.Once
}

// validate validates the configuration of the client.
func validate(config Config) error {
	if config.PrefetchConcurrency != nil && *config.PrefetchConcurrency <= 0 {
		return errors.New("prefetch concurrency must be positive")
	}

	if config.Registry.Endpoint != "" && config.Cache.RootDir == "" {
		return errors.New("registry requires a cache root directory")
	}

	if config.Cache.MaxAge != nil && *config.Cache.MaxAge < 0 {
		return errors.New("cache max age must not be negative")
	}

	if config.Cache.MaxImageSize != nil && *config.Cache.MaxImageSize <= 0 {
		return errors.New("max image size must be positive")
	}

	if gcConfig := config.Cache.GC; gcConfig.DiskHighThresholdPercent != nil && gcConfig.DiskLowThresholdPercent != nil &&
		*gcConfig.DiskLowThresholdPercent > *gcConfig.DiskHighThresholdPercent {
		return errors.New("gc low threshold must not exceed the high threshold")
	}

	return nil
}

// NewGravatar creates a new client instance.
func NewGravatar(config Config) (*gravatar, error) {
	if err := validate(config); err != nil {
		return nil, err
	}

	avatarBaseURL := avatar.DefaultBaseURL
	if config.AvatarBaseURL != "" {
		avatarBaseURL = config.AvatarBaseURL
	}

	builder, err := avatar.NewBuilder(avatarBaseURL)
	if err != nil {
		return nil, err
	}

	apiOpts := []api.Option{
		api.WithAPIKey(config.APIKey),
		api.WithUserAgent(config.UserAgent),
	}
	if config.APIBaseURL != "" {
		apiOpts = append(apiOpts, api.WithBaseURL(config.APIBaseURL))
	}

	apiClient, err := api.New(apiOpts...)
	if err != nil {
		return nil, err
	}

	prefetchConcurrency := defaultPrefetchConcurrency
	if config.PrefetchConcurrency != nil {
		prefetchConcurrency = *config.PrefetchConcurrency
	}

	g := &gravatar{
		prefetchConcurrency: prefetchConcurrency,
		builder:             builder,
		api:                 apiClient,
		stopGC:              func() {},
		gcDone:              make(chan struct{}),
	}

	imageOpts := []image.Option{image.WithUserAgent(config.UserAgent)}
	if maxAge := config.Cache.MaxAge; maxAge != nil {
		imageOpts = append(imageOpts, image.WithMaxAge(*maxAge))
	}

	if maxImageSize := config.Cache.MaxImageSize; maxImageSize != nil {
		imageOpts = append(imageOpts, image.WithMaxImageSize(*maxImageSize))
	}

	if config.Cache.RootDir != "" {
		disk, err := newDiskCache(config)
		if err != nil {
			return nil, err
		}

		g.disk = disk
		imageOpts = append(imageOpts, image.WithStore(disk))

		if !config.Cache.GC.Disabled {
			// Run the gc service in background.
			ctx, cancel := context.WithCancel(context.Background())
			g.stopGC = cancel
			collector := disk.GC(gcOptions(config.Cache.GC)...)
			go func() {
				defer close(g.gcDone)
				collector.Run(ctx)
			}()
		}
	}

	if g.disk == nil || config.Cache.GC.Disabled {
		close(g.gcDone)
	}

	g.images = image.New(imageOpts...)
	return g, nil
}

// newDiskCache opens the persistent cache and its registry.
func newDiskCache(config Config) (diskcache.Cache, error) {
	var opts []diskcache.Option
	if concurrency := config.Cache.SnapshotConcurrency; concurrency != nil {
		opts = append(opts, diskcache.WithSnapshotConcurrency(*concurrency))
	}

	if concurrency := config.Cache.RestoreConcurrency; concurrency != nil {
		opts = append(opts, diskcache.WithRestoreConcurrency(*concurrency))
	}

	if config.Registry.Endpoint != "" {
		registry, err := oci.New(config.Registry)
		if err != nil {
			return nil, err
		}

		opts = append(opts, diskcache.WithRegistry(registry))
	}

	disk, err := diskcache.New(config.Cache.RootDir, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	return disk, nil
}

// gcOptions converts the configuration into gc options.
func gcOptions(config GC) []gc.Option {
	opts := []gc.Option{}
	if interval := config.Interval; interval != nil {
		opts = append(opts, gc.WithInterval(*interval))
	}

	if diskHighThresholdPercent := config.DiskHighThresholdPercent; diskHighThresholdPercent != nil {
		opts = append(opts, gc.WithDiskHighThresholdPercent(*diskHighThresholdPercent))
	}

	if diskLowThresholdPercent := config.DiskLowThresholdPercent; diskLowThresholdPercent != nil {
		opts = append(opts, gc.WithDiskLowThresholdPercent(*diskLowThresholdPercent))
	}

	if batchSize := config.BatchSize; batchSize != nil {
		opts = append(opts, gc.WithBatchSize(*batchSize))
	}

	if minRetentionPeriod := config.MinRetentionPeriod; minRetentionPeriod != nil {
		opts = append(opts, gc.WithMinRetentionPeriod(*minRetentionPeriod))
	}

	if maxCacheSize := config.MaxCacheSize; maxCacheSize != nil {
		opts = append(opts, gc.WithMaxCacheSize(*maxCacheSize))
	}

	return opts
}

// AvatarURL implements Gravatar.
func (g *gravatar) AvatarURL(id avatar.Identifier, opts avatar.QueryOptions) (*url.URL, error) {
	return g.builder.URL(id, opts)
}

// FetchAvatar implements Gravatar.
func (g *gravatar) FetchAvatar(ctx context.Context, id avatar.Identifier, opts avatar.QueryOptions, fetchOpts ...image.FetchOption) (*image.Result, error) {
	u, err := g.builder.URL(id, opts)
	if err != nil {
		return nil, err
	}

	return g.images.Fetch(ctx, u, fetchOpts...)
}

// FetchImage implements Gravatar.
func (g *gravatar) FetchImage(ctx context.Context, u *url.URL, fetchOpts ...image.FetchOption) (*image.Result, error) {
	return g.images.Fetch(ctx, u, fetchOpts...)
}

// Prefetch implements Gravatar. Every avatar is attempted and the first
// failure is returned.
func (g *gravatar) Prefetch(ctx context.Context, ids []avatar.Identifier, opts avatar.QueryOptions) error {
	var eg errgroup.Group
	eg.SetLimit(g.prefetchConcurrency)

	for _, id := range ids {
		eg.Go(func() error {
			if _, err := g.FetchAvatar(ctx, id, opts); err != nil {
				slog.Warn("failed to prefetch avatar", "hash", id.Hash(), "err", err)
				return fmt.Errorf("failed to prefetch avatar %s: %w", id.Hash(), err)
			}

			return nil
		})
	}

	return eg.Wait()
}

// FetchProfile implements Gravatar.
func (g *gravatar) FetchProfile(ctx context.Context, id avatar.Identifier) (*api.Profile, error) {
	hash := id.Hash()
	if hash == "" {
		return nil, avatar.ErrEmptyIdentifier
	}

	return g.api.Profile(ctx, hash)
}

// CheckAssociatedEmail implements Gravatar.
func (g *gravatar) CheckAssociatedEmail(ctx context.Context, token, email string) (bool, error) {
	return g.api.AssociatedEmail(ctx, token, avatar.HashEmail(email))
}

// ListAvatars implements Gravatar. An empty email lists the avatars
// without marking a selected one.
func (g *gravatar) ListAvatars(ctx context.Context, token, email string) ([]api.Avatar, error) {
	return g.api.ListAvatars(ctx, token, avatar.Email(email).Hash())
}

// UploadAvatar implements Gravatar.
func (g *gravatar) UploadAvatar(ctx context.Context, req *api.UploadRequest) (*api.Avatar, error) {
	return g.api.UploadAvatar(ctx, req)
}

// SelectAvatar implements Gravatar.
func (g *gravatar) SelectAvatar(ctx context.Context, token, imageID, email string) error {
	return g.api.SelectAvatar(ctx, token, imageID, avatar.HashEmail(email))
}

// ExportAvatar implements Gravatar.
func (g *gravatar) ExportAvatar(ctx context.Context, u *url.URL, destPath string) error {
	if g.disk == nil {
		return ErrCacheDisabled
	}

	if _, err := g.images.Fetch(ctx, u); err != nil {
		return err
	}

	return g.disk.Export(ctx, u.String(), destPath)
}

// SnapshotCache implements Gravatar.
func (g *gravatar) SnapshotCache(ctx context.Context, name, version string) error {
	if g.disk == nil {
		return ErrCacheDisabled
	}

	return g.disk.Snapshot(ctx, name, version)
}

// RestoreCache implements Gravatar.
func (g *gravatar) RestoreCache(ctx context.Context, name, version string) error {
	if g.disk == nil {
		return ErrCacheDisabled
	}

	return g.disk.Restore(ctx, name, version)
}

// Close implements Gravatar.
func (g *gravatar) Close() error {
	var err error
	g.closeOnce.Do(func() {
		g.stopGC()
		<-g.gcDone
		if g.disk != nil {
			err = g.disk.Close()
		}
	})

	return err
}
