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
	"fmt"
	"io/fs"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// DiskUsage is the usage of the filesystem holding the avatar cache.
type DiskUsage struct {
	Total       uint64
	Used        uint64
	Available   uint64
	UsedPercent float64
}

// GetDiskUsage returns the usage of the filesystem that contains path.
func GetDiskUsage(path string) (*DiskUsage, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return nil, fmt.Errorf("statfs %q failed: %w", path, err)
	}

	blockSize := uint64(stat.Bsize)
	total := stat.Blocks * blockSize
	used := total - stat.Bfree*blockSize

	usage := &DiskUsage{
		Total:     total,
		Used:      used,
		Available: stat.Bavail * blockSize,
	}
	if total > 0 {
		usage.UsedPercent = float64(used) / float64(total) * 100
	}

	return usage, nil
}

// DirSize sums the sizes of the regular files below root.
func DirSize(root string) (int64, error) {
	var size int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		size += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk %q: %w", root, err)
	}

	return size, nil
}
