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

package image

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Cache is the memory tier holding ready images by URL.
type Cache interface {
	// Get returns the image stored for key.
	Get(key string) (*Image, bool)

	// Set stores img for key, replacing any previous image.
	Set(key string, img *Image)

	// Remove drops the image stored for key.
	Remove(key string)
}

// MemoryCache is a Cache backed by a map.
type MemoryCache struct {
	mu     sync.RWMutex
	images map[string]*Image
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{images: make(map[string]*Image)}
}

func (c *MemoryCache) Get(key string) (*Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	img, ok := c.images[key]
	return img, ok
}

func (c *MemoryCache) Set(key string, img *Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.images[key] = img
}

func (c *MemoryCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.images, key)
}

// Len returns the number of cached images.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.images)
}

// Clear drops every cached image.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.images)
}

// ErrNotStored is returned by a Store that holds nothing for a key.
var ErrNotStored = errors.New("image not stored")

// Meta describes a stored image and the validators used to revalidate it.
type Meta struct {
	// ContentType is the MIME type of the stored bytes.
	ContentType string

	// ETag is the entity tag the server returned.
	ETag string

	// LastModified is the Last-Modified header the server returned.
	LastModified string

	// FetchedAt is when the image was last downloaded or revalidated.
	FetchedAt time.Time
}

// StoredImage is an image read back from a Store.
type StoredImage struct {
	Meta

	// Data is the raw encoded image.
	Data []byte
}

// Store is the persistent tier.
type Store interface {
	// Load returns the image stored for key, or ErrNotStored.
	Load(ctx context.Context, key string) (*StoredImage, error)

	// Save stores data for key.
	Save(ctx context.Context, key string, data []byte, meta Meta) error

	// Touch marks the image stored for key as revalidated now.
	Touch(ctx context.Context, key string) error

	// Remove drops the image stored for key.
	Remove(ctx context.Context, key string) error
}
