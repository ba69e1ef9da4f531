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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	bboltdb "go.etcd.io/bbolt"
)

// ErrKeyNotFound is returned when a key is not found.
var ErrKeyNotFound = errors.New("key not found")

const (
	// entryBucketName is the name of the avatar entry bucket.
	entryBucketName = "entries"

	// contentBucketName is the name of the content bucket.
	contentBucketName = "content"

	// contentRefsBucketName is the name of the content references bucket.
	contentRefsBucketName = "content_refs"

	// metadataDirName is the name of the metadata directory.
	metadataDirName = "metadata"

	// metadataDBName is the name of the metadata database.
	metadataDBName = "gravatar.db"
)

// bbolt is a metadata storage implementation using bbolt db.
type bbolt struct {
	// db is the bbolt database instance.
	db *bboltdb.DB
}

// newBbolt creates a new bbolt metadata storage.
func newBbolt(rootDir string) (*bbolt, error) {
	dir := filepath.Join(rootDir, metadataDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure metadata directory: %w", err)
	}

	// A second process holding the lock must not hang the caller forever.
	db, err := bboltdb.Open(filepath.Join(dir, metadataDBName), 0o600, &bboltdb.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata db: %w", err)
	}

	err = db.Update(func(tx *bboltdb.Tx) error {
		for _, name := range []string{entryBucketName, contentBucketName, contentRefsBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}

		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return &bbolt{db: db}, nil
}

func getFromBucket(tx *bboltdb.Tx, bucketName, key string, v any) error {
	bucket := tx.Bucket([]byte(bucketName))
	if bucket == nil {
		return fmt.Errorf("bucket %s not found", bucketName)
	}

	val := bucket.Get([]byte(key))
	if val == nil {
		return ErrKeyNotFound
	}

	if err := json.Unmarshal(val, v); err != nil {
		return fmt.Errorf("unmarshal failed for key %s in %s: %w", key, bucketName, err)
	}

	return nil
}

func putToBucket(tx *bboltdb.Tx, bucketName, key string, v any) error {
	bucket := tx.Bucket([]byte(bucketName))
	if bucket == nil {
		return fmt.Errorf("bucket %s not found", bucketName)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal failed for key %s in %s: %w", key, bucketName, err)
	}

	return bucket.Put([]byte(key), data)
}

// addRef records that key references the content.
func addRef(tx *bboltdb.Tx, content Content, key string) error {
	if err := putToBucket(tx, contentBucketName, content.Digest, content); err != nil {
		return fmt.Errorf("failed to store content %s: %w", content.Digest, err)
	}

	var refs ContentRefs
	err := getFromBucket(tx, contentRefsBucketName, content.Digest, &refs)
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		return fmt.Errorf("failed to read content refs for %s: %w", content.Digest, err)
	}

	if !slices.Contains(refs.References, key) {
		refs.References = append(refs.References, key)
	}

	return putToBucket(tx, contentRefsBucketName, content.Digest, refs)
}

// dropRef removes key from the references of digest. When nothing references
// the content any more, its records are deleted and the content is returned.
func dropRef(tx *bboltdb.Tx, digest, key string) (*Content, error) {
	var refs ContentRefs
	if err := getFromBucket(tx, contentRefsBucketName, digest, &refs); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read content refs for %s: %w", digest, err)
	}

	refs.References = slices.DeleteFunc(refs.References, func(ref string) bool {
		return ref == key
	})

	if len(refs.References) > 0 {
		if err := putToBucket(tx, contentRefsBucketName, digest, refs); err != nil {
			return nil, fmt.Errorf("failed to update content refs for %s: %w", digest, err)
		}

		return nil, nil
	}

	content := Content{Digest: digest}
	if err := getFromBucket(tx, contentBucketName, digest, &content); err != nil && !errors.Is(err, ErrKeyNotFound) {
		return nil, fmt.Errorf("failed to read content %s: %w", digest, err)
	}

	if err := tx.Bucket([]byte(contentRefsBucketName)).Delete([]byte(digest)); err != nil {
		return nil, fmt.Errorf("failed to delete content refs for %s: %w", digest, err)
	}

	if err := tx.Bucket([]byte(contentBucketName)).Delete([]byte(digest)); err != nil {
		return nil, fmt.Errorf("failed to delete content %s: %w", digest, err)
	}

	return &content, nil
}

// GetEntry retrieves the cache entry for the given key.
func (b *bbolt) GetEntry(_ context.Context, key string) (*Entry, error) {
	var entry Entry
	if err := b.db.View(func(tx *bboltdb.Tx) error {
		return getFromBucket(tx, entryBucketName, key, &entry)
	}); err != nil {
		return nil, err
	}

	return &entry, nil
}

// PutEntry stores the cache entry for the given key and references its content.
func (b *bbolt) PutEntry(_ context.Context, key string, entry Entry) ([]Content, error) {
	var orphaned []Content
	err := b.db.Update(func(tx *bboltdb.Tx) error {
		var previous Entry
		err := getFromBucket(tx, entryBucketName, key, &previous)
		switch {
		case err == nil:
			if entry.CreatedAt.IsZero() {
				entry.CreatedAt = previous.CreatedAt
			}
		case errors.Is(err, ErrKeyNotFound):
		default:
			return fmt.Errorf("failed to read previous entry: %w", err)
		}

		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now()
		}

		if err := addRef(tx, Content{Digest: entry.Digest, Size: entry.Size}, key); err != nil {
			return err
		}

		if previous.Digest != "" && previous.Digest != entry.Digest {
			content, err := dropRef(tx, previous.Digest, key)
			if err != nil {
				return err
			}

			if content != nil {
				orphaned = append(orphaned, *content)
			}
		}

		return putToBucket(tx, entryBucketName, key, entry)
	})
	if err != nil {
		return nil, err
	}

	return orphaned, nil
}

// TouchEntry updates the entry's LastAccessedAt timestamp.
func (b *bbolt) TouchEntry(_ context.Context, key string) error {
	return b.db.Update(func(tx *bboltdb.Tx) error {
		var entry Entry
		if err := getFromBucket(tx, entryBucketName, key, &entry); err != nil {
			return fmt.Errorf("failed to get entry for touch: %w", err)
		}

		entry.LastAccessedAt = time.Now()
		return putToBucket(tx, entryBucketName, key, entry)
	})
}

// IterateEntries iterates over all cache entries.
func (b *bbolt) IterateEntries(_ context.Context, fn func(key string, entry Entry) error) error {
	return b.db.View(func(tx *bboltdb.Tx) error {
		bucket := tx.Bucket([]byte(entryBucketName))
		if bucket == nil {
			return fmt.Errorf("entry bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			if k == nil || v == nil {
				return nil
			}

			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshal entry for key %q: %w", string(k), err)
			}

			return fn(string(k), entry)
		})
	})
}

// GetContent retrieves the content record for the given digest.
func (b *bbolt) GetContent(_ context.Context, digest string) (*Content, error) {
	var content Content
	if err := b.db.View(func(tx *bboltdb.Tx) error {
		return getFromBucket(tx, contentBucketName, digest, &content)
	}); err != nil {
		return nil, err
	}

	return &content, nil
}

// GetContentRefs retrieves the keys referencing the given digest.
func (b *bbolt) GetContentRefs(_ context.Context, digest string) (*ContentRefs, error) {
	var refs ContentRefs
	if err := b.db.View(func(tx *bboltdb.Tx) error {
		return getFromBucket(tx, contentRefsBucketName, digest, &refs)
	}); err != nil {
		return nil, err
	}

	return &refs, nil
}

// Prune removes the entry and dereferences its content.
func (b *bbolt) Prune(_ context.Context, key string) ([]Content, error) {
	var pruned []Content
	err := b.db.Update(func(tx *bboltdb.Tx) error {
		var entry Entry
		if err := getFromBucket(tx, entryBucketName, key, &entry); err != nil {
			return fmt.Errorf("failed to get entry for prune: %w", err)
		}

		if err := tx.Bucket([]byte(entryBucketName)).Delete([]byte(key)); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}

		content, err := dropRef(tx, entry.Digest, key)
		if err != nil {
			return err
		}

		if content != nil {
			pruned = append(pruned, *content)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return pruned, nil
}

// Close closes the bbolt database.
func (b *bbolt) Close() error {
	return b.db.Close()
}
