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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// HardLink links dst to the existing file src.
// It is a no-op when dst is already the same inode as src, and it refuses to
// replace a different file at dst.
func HardLink(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat source file %q: %w", src, err)
	}

	if isSameFile(srcInfo, dst) {
		return nil
	}

	if err := os.Link(src, dst); err != nil {
		// Another goroutine may have linked it concurrently.
		if errors.Is(err, os.ErrExist) {
			if isSameFile(srcInfo, dst) {
				return nil
			}

			return fmt.Errorf("destination %q already exists and is not the same file as %q", dst, src)
		}

		return fmt.Errorf("failed to create hard link from %q to %q: %w", src, dst, err)
	}

	return nil
}

// CopyFile copies src to dst through a temporary file in dst's directory,
// so readers never observe a partially written dst.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %q: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".copy-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %q: %w", dst, err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to copy %q: %w", src, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("failed to chmod %q: %w", tmpPath, err)
	}

	return os.Rename(tmpPath, dst)
}

// LinkOrCopy hard links src to dst, falling back to a copy when the two paths
// live on different filesystems or the filesystem has no hard links.
func LinkOrCopy(src, dst string) error {
	err := HardLink(src, dst)
	if err == nil {
		return nil
	}

	if _, statErr := os.Stat(dst); statErr == nil {
		return err
	}

	slog.Debug("hard link failed, copying instead", "src", src, "dst", dst, "err", err)
	return CopyFile(src, dst)
}

// isSameFile reports whether dst exists and is the same inode as srcInfo.
func isSameFile(srcInfo os.FileInfo, dst string) bool {
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return false
	}

	return os.SameFile(srcInfo, dstInfo)
}
