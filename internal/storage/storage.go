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

package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/xxh3"

	"d7y.io/gravatar/pkg/fs"
)

const (
	// ContentHashAlgorithm is the hash algorithm used for content addressing.
	ContentHashAlgorithm = "xxh3"

	// DirPerm is the default permission for directories.
	DirPerm = 0o755

	// ContentPerm is the permission of content files.
	ContentPerm = 0o644

	// TempContentPattern is the pattern for temporary content files.
	TempContentPattern = ".content-*"
)

// ContentDigest returns the digest by adding the hash algorithm prefix.
func ContentDigest(filename string) string {
	return fmt.Sprintf("%s:%s", ContentHashAlgorithm, filename)
}

// Digest returns the content digest data would be stored under.
func Digest(data []byte) string {
	return ContentDigest(contentFilename(xxh3.Hash(data)))
}

func contentFilename(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}

// ParseFilenameFromDigest parses the filename from the digest.
func ParseFilenameFromDigest(digest string) string {
	parts := strings.SplitN(digest, ":", 2)
	if len(parts) != 2 {
		return digest
	}

	return parts[1]
}

// Storage stores avatar bodies as content addressed files.
type Storage interface {
	// StatContent returns the content info.
	StatContent(ctx context.Context, filename string) (os.FileInfo, error)

	// WriteContent writes the content read from r and names it by its hash.
	WriteContent(ctx context.Context, r io.Reader) (os.FileInfo, error)

	// ReadContent reads the whole content.
	ReadContent(ctx context.Context, filename string) ([]byte, error)

	// GetContentPath returns the path to the content.
	GetContentPath(ctx context.Context, filename string) string

	// Export links or copies the content to destPath.
	Export(ctx context.Context, filename, destPath string) error

	// Prune removes the content file.
	Prune(ctx context.Context, filename string) error

	// Size returns the total size of the stored content in bytes.
	Size(ctx context.Context) (int64, error)
}

// New creates a new storage instance.
func New(rootDir string) (Storage, error) {
	contentDir := filepath.Join(rootDir, "storage", "content", ContentHashAlgorithm)
	if err := os.MkdirAll(contentDir, DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create content directory: %w", err)
	}

	return &storage{contentDir: contentDir}, nil
}

// storage is the implementation of Storage interface.
type storage struct {
	contentDir string
}

// contentPath resolves filename inside the content directory.
func (s *storage) contentPath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("invalid content filename %q", filename)
	}

	return filepath.Join(s.contentDir, filename), nil
}

// StatContent implements the Storage.StatContent.
func (s *storage) StatContent(ctx context.Context, filename string) (os.FileInfo, error) {
	path, err := s.contentPath(filename)
	if err != nil {
		return nil, err
	}

	return os.Stat(path)
}

// WriteContent implements the Storage.WriteContent.
func (s *storage) WriteContent(ctx context.Context, r io.Reader) (os.FileInfo, error) {
	tempFile, err := os.CreateTemp(s.contentDir, TempContentPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary content file: %w", err)
	}
	tempPath := tempFile.Name()
	defer func() {
		// Only removes something if the rename below did not happen.
		_ = os.Remove(tempPath)
	}()

	hasher := xxh3.New()
	if _, err := io.Copy(io.MultiWriter(tempFile, hasher), r); err != nil {
		_ = tempFile.Close()
		return nil, fmt.Errorf("failed to write content: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}

	hash := contentFilename(hasher.Sum64())
	finalPath := filepath.Join(s.contentDir, hash)

	// Identical content is already stored, keep the existing inode so exported
	// hard links stay valid.
	if info, err := os.Stat(finalPath); err == nil {
		return info, nil
	}

	if err := os.Chmod(tempPath, ContentPerm); err != nil {
		return nil, fmt.Errorf("failed to chmod content file %s: %w", hash, err)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		return nil, fmt.Errorf("failed to rename temp file to %s: %w", hash, err)
	}

	return os.Stat(finalPath)
}

// ReadContent implements the Storage.ReadContent.
func (s *storage) ReadContent(ctx context.Context, filename string) ([]byte, error) {
	path, err := s.contentPath(filename)
	if err != nil {
		return nil, err
	}

	return os.ReadFile(path)
}

// GetContentPath implements the Storage.GetContentPath.
func (s *storage) GetContentPath(ctx context.Context, filename string) string {
	return filepath.Join(s.contentDir, filename)
}

// Export implements the Storage.Export.
func (s *storage) Export(ctx context.Context, filename, destPath string) error {
	srcPath, err := s.contentPath(filename)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(destPath), DirPerm); err != nil {
		return fmt.Errorf("failed to ensure destination directory for %q: %w", destPath, err)
	}

	if err := fs.LinkOrCopy(srcPath, destPath); err != nil {
		return fmt.Errorf("failed to export content %s to %q: %w", filename, destPath, err)
	}

	return nil
}

// Prune implements the Storage.Prune.
func (s *storage) Prune(ctx context.Context, filename string) error {
	path, err := s.contentPath(filename)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove content file", "path", path, "err", err)
	}

	// Pruning is best-effort.
	return nil
}

// Size implements the Storage.Size.
func (s *storage) Size(ctx context.Context) (int64, error) {
	return fs.DirSize(s.contentDir)
}
