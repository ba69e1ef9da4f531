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
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"d7y.io/gravatar/internal/gc"
	"d7y.io/gravatar/internal/metadata"
	"d7y.io/gravatar/internal/storage"
	"d7y.io/gravatar/pkg/image"
	"d7y.io/gravatar/pkg/oci"
	"d7y.io/gravatar/pkg/oci/ocitest"
)

const (
	testKey      = "https://gravatar.com/avatar/a919f0e9932ec2c866cf67ec327efb57b47ff3085acd375529af076d1ac56f27?s=80"
	testOtherKey = "https://gravatar.com/avatar/a919f0e9932ec2c866cf67ec327efb57b47ff3085acd375529af076d1ac56f27?s=200"
)

func newTestCache(t *testing.T, opts ...Option) *cache {
	t.Helper()

	c, err := New(t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, c.Close())
	})

	return c.(*cache)
}

func testMeta() image.Meta {
	return image.Meta{
		ContentType:  "image/png",
		ETag:         `"v1"`,
		LastModified: "Wed, 21 Oct 2015 07:28:00 GMT",
		FetchedAt:    time.Now().Add(-time.Hour).Truncate(time.Second),
	}
}

func TestNew(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	c := newTestCache(t, WithSnapshotConcurrency(2), WithRestoreConcurrency(0))
	assert.Equal(t, 2, c.snapshotConcurrency)
	assert.Equal(t, defaultRestoreConcurrency, c.restoreConcurrency)
	assert.Nil(t, c.registry)
}

func TestCache_SaveLoad(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	_, err := c.Load(ctx, testKey)
	assert.ErrorIs(t, err, image.ErrNotStored)

	meta := testMeta()
	require.NoError(t, c.Save(ctx, testKey, []byte("png bytes"), meta))

	stored, err := c.Load(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("png bytes"), stored.Data)
	assert.Equal(t, meta.ContentType, stored.ContentType)
	assert.Equal(t, meta.ETag, stored.ETag)
	assert.Equal(t, meta.LastModified, stored.LastModified)
	assert.True(t, meta.FetchedAt.Equal(stored.FetchedAt))

	entry, err := c.metadata.GetEntry(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, testKey, entry.URL)
	assert.Equal(t, int64(len("png bytes")), entry.Size)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestCache_SaveDefaultsFetchedAt(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	before := time.Now()
	require.NoError(t, c.Save(ctx, testKey, []byte("png bytes"), image.Meta{ContentType: "image/png"}))

	stored, err := c.Load(ctx, testKey)
	require.NoError(t, err)
	assert.False(t, stored.FetchedAt.Before(before))
}

func TestCache_SaveReplacesContent(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Save(ctx, testKey, []byte("old"), testMeta()))
	old, err := c.metadata.GetEntry(ctx, testKey)
	require.NoError(t, err)

	require.NoError(t, c.Save(ctx, testKey, []byte("new"), testMeta()))

	_, err = c.storage.StatContent(ctx, storage.ParseFilenameFromDigest(old.Digest))
	assert.True(t, os.IsNotExist(err), "replaced content should be pruned")

	stored, err := c.Load(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), stored.Data)
}

func TestCache_SharedContent(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Save(ctx, testKey, []byte("default image"), testMeta()))
	require.NoError(t, c.Save(ctx, testOtherKey, []byte("default image"), testMeta()))

	entry, err := c.metadata.GetEntry(ctx, testKey)
	require.NoError(t, err)
	filename := storage.ParseFilenameFromDigest(entry.Digest)

	require.NoError(t, c.Remove(ctx, testKey))
	_, err = c.storage.StatContent(ctx, filename)
	assert.NoError(t, err, "content is still referenced")

	require.NoError(t, c.Remove(ctx, testOtherKey))
	_, err = c.storage.StatContent(ctx, filename)
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, c.Remove(ctx, testKey), image.ErrNotStored)
}

func TestCache_Touch(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	assert.ErrorIs(t, c.Touch(ctx, testKey), image.ErrNotStored)

	meta := testMeta()
	require.NoError(t, c.Save(ctx, testKey, []byte("png bytes"), meta))

	before := time.Now()
	require.NoError(t, c.Touch(ctx, testKey))

	stored, err := c.Load(ctx, testKey)
	require.NoError(t, err)
	assert.False(t, stored.FetchedAt.Before(before))
	assert.Equal(t, meta.ETag, stored.ETag)
}

func TestCache_LoadMissingContent(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Save(ctx, testKey, []byte("png bytes"), testMeta()))
	entry, err := c.metadata.GetEntry(ctx, testKey)
	require.NoError(t, err)

	require.NoError(t, os.Remove(c.storage.GetContentPath(ctx, storage.ParseFilenameFromDigest(entry.Digest))))

	_, err = c.Load(ctx, testKey)
	assert.ErrorIs(t, err, image.ErrNotStored)

	// The dangling entry is dropped.
	_, err = c.metadata.GetEntry(ctx, testKey)
	assert.Error(t, err)
}

func TestCache_Export(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	dest := filepath.Join(t.TempDir(), "avatars", "me.png")
	assert.ErrorIs(t, c.Export(ctx, testKey, dest), image.ErrNotStored)

	require.NoError(t, c.Save(ctx, testKey, []byte("png bytes"), testMeta()))
	require.NoError(t, c.Export(ctx, testKey, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("png bytes"), data)
}

func TestCache_GC(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Save(ctx, testKey, []byte("png bytes"), testMeta()))

	collector := c.GC(gc.WithDiskHighThresholdPercent(100), gc.WithDiskLowThresholdPercent(100))
	require.NotNil(t, collector)
	collector.RunOnce(ctx)

	// Nothing is collected below the thresholds.
	_, err := c.Load(ctx, testKey)
	assert.NoError(t, err)
}

func TestCache_SnapshotWithoutRegistry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	assert.ErrorIs(t, c.Snapshot(ctx, "cache", "v1"), ErrRegistryNotConfigured)
	assert.ErrorIs(t, c.Restore(ctx, "cache", "v1"), ErrRegistryNotConfigured)
}

func TestCache_SnapshotAndRestore(t *testing.T) {
	ctx := context.Background()
	registry := ocitest.NewRegistry(t)
	client, err := oci.New(oci.Registry{Endpoint: registry.URL, Namespace: "gravatar"})
	require.NoError(t, err)

	src := newTestCache(t, WithRegistry(client))
	require.NoError(t, src.Save(ctx, testKey, []byte("small"), testMeta()))
	require.NoError(t, src.Save(ctx, testOtherKey, []byte("large"), testMeta()))

	require.NoError(t, src.Snapshot(ctx, "cache", "v1"))
	assert.ErrorIs(t, src.Snapshot(ctx, "cache", "v1"), ErrSnapshotAlreadyExists)

	// Two content blobs and the config.
	assert.Equal(t, 3, registry.BlobCount("gravatar/cache"))

	dst := newTestCache(t, WithRegistry(client))
	require.NoError(t, dst.Restore(ctx, "cache", "v1"))

	for key, want := range map[string]string{testKey: "small", testOtherKey: "large"} {
		stored, err := dst.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte(want), stored.Data)
		assert.Equal(t, "image/png", stored.ContentType)
	}

	// Restoring again is idempotent.
	require.NoError(t, dst.Restore(ctx, "cache", "v1"))

	assert.Error(t, dst.Restore(ctx, "cache", "missing"))
}

func TestCache_RestoreKeepsNewerEntries(t *testing.T) {
	ctx := context.Background()
	registry := ocitest.NewRegistry(t)
	client, err := oci.New(oci.Registry{Endpoint: registry.URL})
	require.NoError(t, err)

	src := newTestCache(t, WithRegistry(client))
	require.NoError(t, src.Save(ctx, testKey, []byte("from snapshot"), testMeta()))
	require.NoError(t, src.Snapshot(ctx, "cache", "v1"))

	dst := newTestCache(t, WithRegistry(client))
	fresh := testMeta()
	fresh.FetchedAt = time.Now()
	require.NoError(t, dst.Save(ctx, testKey, []byte("local"), fresh))

	require.NoError(t, dst.Restore(ctx, "cache", "v1"))

	stored, err := dst.Load(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("local"), stored.Data)

	// Content of skipped entries is not pulled.
	size, err := dst.storage.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len("local")), size)
}

func TestCache_RestoreDigestMismatch(t *testing.T) {
	ctx := context.Background()
	registry := ocitest.NewRegistry(t)
	client, err := oci.New(oci.Registry{Endpoint: registry.URL})
	require.NoError(t, err)

	dst := newTestCache(t, WithRegistry(client))
	require.NoError(t, dst.Save(ctx, testOtherKey, []byte("live"), testMeta()))

	// The layer carries the bytes of live local content under another digest.
	claimed := storage.Digest([]byte("claimed"))
	blob, err := client.PushBlob(ctx, "cache", oci.MediaTypeCacheContent, []byte("live"))
	require.NoError(t, err)

	config, err := json.Marshal(snapshotConfig{
		CreatedAt: time.Now(),
		Entries: map[string]metadata.Entry{
			testKey: {URL: testKey, Digest: claimed, ContentType: "image/png", Size: int64(len("claimed"))},
		},
	})
	require.NoError(t, err)

	configDesc, err := client.PushBlob(ctx, "cache", oci.MediaTypeCacheConfig, config)
	require.NoError(t, err)

	manifest := oci.BuildManifest(configDesc, []ocispec.Descriptor{oci.ContentDescriptor(blob, claimed)})
	_, err = client.PushManifest(ctx, "cache", "v1", manifest)
	require.NoError(t, err)

	assert.ErrorContains(t, dst.Restore(ctx, "cache", "v1"), "content digest mismatch")

	stored, err := dst.Load(ctx, testOtherKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("live"), stored.Data)

	_, err = dst.Load(ctx, testKey)
	assert.ErrorIs(t, err, image.ErrNotStored)
}
