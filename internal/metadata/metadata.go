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
package metadata

import (
	"context"
	"time"
)

// Metadata is the index of the persistent avatar cache. Entries are keyed by
// the avatar URL and point at content addressed blobs, which may be shared by
// several entries (every hash without an avatar gets the same default image).
type Metadata interface {
	// GetEntry retrieves the cache entry for the given key.
	GetEntry(ctx context.Context, key string) (*Entry, error)

	// PutEntry stores the cache entry for the given key and references its content.
	// Content that was referenced only by the replaced entry is returned for pruning.
	PutEntry(ctx context.Context, key string, entry Entry) ([]Content, error)

	// TouchEntry updates the entry's LastAccessedAt timestamp.
	TouchEntry(ctx context.Context, key string) error

	// IterateEntries iterates over all cache entries.
	IterateEntries(ctx context.Context, fn func(key string, entry Entry) error) error

	// GetContent retrieves the content record for the given digest.
	GetContent(ctx context.Context, digest string) (*Content, error)

	// GetContentRefs retrieves the keys referencing the given digest.
	GetContentRefs(ctx context.Context, digest string) (*ContentRefs, error)

	// Prune removes the entry and dereferences its content.
	// It returns the content no longer referenced by any entry.
	Prune(ctx context.Context, key string) ([]Content, error)

	// Close closes the underlying database.
	Close() error
}

// Entry is a cached avatar response.
type Entry struct {
	// URL is the avatar URL the entry was fetched from.
	URL string `json:"url"`

	// Digest is the content digest of the response body, e.g. xxh3:1234567890abcdef.
	Digest string `json:"digest"`

	// ContentType is the Content-Type of the response.
	ContentType string `json:"contentType"`

	// Size is the size of the response body in bytes.
	Size int64 `json:"size"`

	// ETag is the validator returned by the server, if any.
	ETag string `json:"etag,omitempty"`

	// LastModified is the Last-Modified header returned by the server, if any.
	LastModified string `json:"lastModified,omitempty"`

	// FetchedAt is when the body was last fetched or revalidated.
	FetchedAt time.Time `json:"fetchedAt"`

	// CreatedAt is the timestamp when the entry was created.
	CreatedAt time.Time `json:"createdAt"`

	// LastAccessedAt is the timestamp when the entry was last served.
	LastAccessedAt time.Time `json:"lastAccessedAt"`
}

// Content is a content addressed blob in the storage.
type Content struct {
	// Digest is the digest of the blob.
	Digest string `json:"digest"`

	// Size is the size of the blob in bytes.
	Size int64 `json:"size"`
}

// ContentRefs is the index from content to the entries referencing it.
type ContentRefs struct {
	// References is the list of entry keys.
	References []string `json:"references"`
}

// New creates a new metadata instance.
func New(rootDir string) (Metadata, error) {
	return newBbolt(rootDir)
}
