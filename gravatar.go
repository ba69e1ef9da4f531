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

// Package gravatar is a client for Gravatar avatars and profiles. Avatar
// images are fetched through a memory tier, an optional persistent tier and
// the network, and concurrent fetches of the same URL share one download.
package gravatar

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"d7y.io/gravatar/pkg/api"
	"d7y.io/gravatar/pkg/avatar"
	"d7y.io/gravatar/pkg/image"
	"d7y.io/gravatar/pkg/oci"
)

var (
	// instance is the singleton instance of the client.
	instance Gravatar

	// mu protects instance initialization.
	mu sync.Mutex

	// initialized indicates whether the instance has been successfully initialized.
	initialized bool
)

// ErrCacheDisabled is returned by operations that need the persistent cache
// when Config.Cache.RootDir is empty.
var ErrCacheDisabled = errors.New("persistent cache is disabled")

// Gravatar is the client for avatars and profiles.
type Gravatar interface {
	// AvatarURL builds the avatar URL for id.
	AvatarURL(id avatar.Identifier, opts avatar.QueryOptions) (*url.URL, error)

	// FetchAvatar fetches the avatar of id.
	FetchAvatar(ctx context.Context, id avatar.Identifier, opts avatar.QueryOptions, fetchOpts ...image.FetchOption) (*image.Result, error)

	// FetchImage fetches the image at u.
	FetchImage(ctx context.Context, u *url.URL, fetchOpts ...image.FetchOption) (*image.Result, error)

	// Prefetch warms the caches with the avatars of ids.
	Prefetch(ctx context.Context, ids []avatar.Identifier, opts avatar.QueryOptions) error

	// FetchProfile fetches the public profile of id.
	FetchProfile(ctx context.Context, id avatar.Identifier) (*api.Profile, error)

	// CheckAssociatedEmail reports whether email belongs to the token's account.
	CheckAssociatedEmail(ctx context.Context, token, email string) (bool, error)

	// ListAvatars lists the avatars of the token's account.
	ListAvatars(ctx context.Context, token, email string) ([]api.Avatar, error)

	// UploadAvatar uploads an image to the token's account.
	UploadAvatar(ctx context.Context, req *api.UploadRequest) (*api.Avatar, error)

	// SelectAvatar makes imageID the avatar of email.
	SelectAvatar(ctx context.Context, token, imageID, email string) error

	// ExportAvatar fetches the image at u and links the stored copy to destPath.
	ExportAvatar(ctx context.Context, u *url.URL, destPath string) error

	// SnapshotCache pushes the persistent cache to the registry.
	SnapshotCache(ctx context.Context, name, version string) error

	// RestoreCache pulls a persistent cache snapshot from the registry.
	RestoreCache(ctx context.Context, name, version string) error

	// Close stops the garbage collector and closes the persistent cache.
	Close() error
}

// Config defines the configuration for the client.
type Config struct {
	// APIKey authenticates profile requests, optional.
	APIKey string `yaml:"apiKey"`

	// UserAgent is sent with every request.
	UserAgent string `yaml:"userAgent"`

	// AvatarBaseURL overrides avatar.DefaultBaseURL.
	AvatarBaseURL string `yaml:"avatarBaseURL"`

	// APIBaseURL overrides api.DefaultBaseURL.
	APIBaseURL string `yaml:"apiBaseURL"`

	// PrefetchConcurrency is the maximum number of concurrent prefetches.
	PrefetchConcurrency *int `yaml:"prefetchConcurrency"`

	// Cache is the persistent cache configuration.
	Cache Cache `yaml:"cache"`

	// Registry is the OCI registry cache snapshots are pushed to.
	Registry oci.Registry `yaml:"registry"`
}

// Cache defines the persistent cache configuration.
type Cache struct {
	// RootDir is the root directory of the cache, empty disables it.
	RootDir string `yaml:"rootDir"`

	// MaxAge is how long a stored avatar is served without revalidation.
	MaxAge *time.Duration `yaml:"maxAge"`

	// MaxImageSize bounds a downloaded image in bytes.
	MaxImageSize *int64 `yaml:"maxImageSize"`

	// SnapshotConcurrency is the maximum number of blobs pushed at once.
	SnapshotConcurrency *int `yaml:"snapshotConcurrency"`

	// RestoreConcurrency is the maximum number of blobs pulled at once.
	RestoreConcurrency *int `yaml:"restoreConcurrency"`

	// GC is the garbage collection configuration.
	GC GC `yaml:"gc"`
}

// GC defines the garbage collection configuration for the persistent cache.
type GC struct {
	// Disabled turns the background garbage collector off.
	Disabled bool `yaml:"disabled"`

	// Interval is the interval at which garbage collection is performed.
	Interval *time.Duration `yaml:"interval"`

	// DiskHighThresholdPercent is the disk usage percentage that triggers garbage collection.
	DiskHighThresholdPercent *float64 `yaml:"diskHighThresholdPercent"`

	// DiskLowThresholdPercent is the disk usage percentage garbage collection shrinks to.
	DiskLowThresholdPercent *float64 `yaml:"diskLowThresholdPercent"`

	// BatchSize is the number of avatars to process in each batch.
	BatchSize *int `yaml:"batchSize"`

	// MinRetentionPeriod is the minimum retention period for avatars.
	MinRetentionPeriod *time.Duration `yaml:"minRetentionPeriod"`

	// MaxCacheSize bounds the stored avatars in bytes.
	MaxCacheSize *int64 `yaml:"maxCacheSize"`
}

// New creates a new client instance using the singleton pattern.
// If initialization fails, subsequent calls can retry with a new config.
// Once successfully initialized, all subsequent calls return the same instance.
func New(config Config) (Gravatar, error) {
	mu.Lock()
	defer mu.Unlock()

	// If already successfully initialized, return the existing instance.
	if initialized {
		return instance, nil
	}

	// Try to initialize.
	client, err := NewGravatar(config)
	if err != nil {
		// Keep initialized as false, allowing retry on next call.
		return nil, err
	}

	// Mark as successfully initialized.
	instance = client
	initialized = true
	return instance, nil
}
