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
package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDiskUsage(t *testing.T) {
	t.Run("cache directory", func(t *testing.T) {
		usage, err := GetDiskUsage(t.TempDir())
		require.NoError(t, err)

		assert.Positive(t, usage.Total)
		assert.LessOrEqual(t, usage.Used, usage.Total)
		assert.LessOrEqual(t, usage.Available, usage.Total)
		assert.InDelta(t, float64(usage.Used)/float64(usage.Total)*100, usage.UsedPercent, 0.001)
	})

	t.Run("same filesystem as parent", func(t *testing.T) {
		root := t.TempDir()
		child := filepath.Join(root, "storage")
		require.NoError(t, os.Mkdir(child, 0o755))

		parent, err := GetDiskUsage(root)
		require.NoError(t, err)
		nested, err := GetDiskUsage(child)
		require.NoError(t, err)
		assert.Equal(t, parent.Total, nested.Total)
	})

	for _, path := range []string{"", filepath.Join(os.TempDir(), "gravatar-missing", "cache")} {
		usage, err := GetDiskUsage(path)
		assert.Error(t, err, "path %q", path)
		assert.Nil(t, usage)
	}
}

func TestDirSize(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "content", "xxh3"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "content", "xxh3", "a"), make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "content", "xxh3", "b"), make([]byte, 28), 0o644))

	size, err := DirSize(root)
	require.NoError(t, err)
	assert.Equal(t, int64(128), size)

	_, err = DirSize(filepath.Join(root, "missing"))
	assert.Error(t, err)
}
