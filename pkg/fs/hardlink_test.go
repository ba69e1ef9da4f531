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

func writeAvatar(t *testing.T, path string, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestHardLink(t *testing.T) {
	t.Run("links cached avatar", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "avatar")
		dst := filepath.Join(dir, "avatar.png")
		writeAvatar(t, src, "png-bytes")

		require.NoError(t, HardLink(src, dst))

		content, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(content))

		srcInfo, err := os.Stat(src)
		require.NoError(t, err)
		assert.True(t, isSameFile(srcInfo, dst))
	})

	t.Run("missing source", func(t *testing.T) {
		dir := t.TempDir()
		err := HardLink(filepath.Join(dir, "missing"), filepath.Join(dir, "dst"))
		assert.Error(t, err)
	})

	t.Run("idempotent for the same inode", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "avatar")
		dst := filepath.Join(dir, "avatar.png")
		writeAvatar(t, src, "png-bytes")

		require.NoError(t, HardLink(src, dst))
		require.NoError(t, HardLink(src, dst))
	})

	t.Run("refuses to replace a different file", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "avatar")
		dst := filepath.Join(dir, "avatar.png")
		writeAvatar(t, src, "new")
		writeAvatar(t, dst, "old")

		assert.Error(t, HardLink(src, dst))
	})

	t.Run("missing destination directory", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "avatar")
		writeAvatar(t, src, "png-bytes")

		assert.Error(t, HardLink(src, filepath.Join(dir, "nope", "avatar.png")))
	})
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "avatar")
	dst := filepath.Join(dir, "copy.png")
	writeAvatar(t, src, "jpeg-bytes")

	require.NoError(t, CopyFile(src, dst))

	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(content))

	srcInfo, err := os.Stat(src)
	require.NoError(t, err)
	assert.False(t, isSameFile(srcInfo, dst))

	assert.Error(t, CopyFile(filepath.Join(dir, "missing"), dst))
}

func TestLinkOrCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "avatar")
	dst := filepath.Join(dir, "out.png")
	writeAvatar(t, src, "gif-bytes")

	require.NoError(t, LinkOrCopy(src, dst))
	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "gif-bytes", string(content))

	other := filepath.Join(dir, "other.png")
	writeAvatar(t, other, "other")
	assert.Error(t, LinkOrCopy(src, other), "an unrelated existing file is never overwritten")
}

func TestIsSameFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	writeAvatar(t, src, "a")
	srcInfo, err := os.Stat(src)
	require.NoError(t, err)

	linked := filepath.Join(dir, "linked")
	require.NoError(t, os.Link(src, linked))
	assert.True(t, isSameFile(srcInfo, linked))

	different := filepath.Join(dir, "b")
	writeAvatar(t, different, "b")
	assert.False(t, isSameFile(srcInfo, different))

	assert.False(t, isSameFile(srcInfo, filepath.Join(dir, "missing")))
}
