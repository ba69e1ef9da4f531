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
package gc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"d7y.io/gravatar/internal/metadata"
	"d7y.io/gravatar/internal/storage"
	"d7y.io/gravatar/pkg/fs"
)

// Option is a function that configures a GC instance.
type Option func(*gc)

// WithInterval sets the interval for garbage collection.
func WithInterval(interval time.Duration) Option {
	return func(g *gc) {
		if interval > 0 {
			g.interval = interval
		}
	}
}

// WithDiskHighThresholdPercent sets the disk usage percentage that triggers garbage collection.
func WithDiskHighThresholdPercent(percent float64) Option {
	return func(g *gc) {
		if percent >= 0 && percent <= 100 {
			g.diskHighThresholdPercent = percent
		}
	}
}

// WithDiskLowThresholdPercent sets the disk usage percentage garbage collection shrinks to.
func WithDiskLowThresholdPercent(percent float64) Option {
	return func(g *gc) {
		if percent >= 0 && percent <= 100 && percent <= g.diskHighThresholdPercent {
			g.diskLowThresholdPercent = percent
		}
	}
}

// WithBatchSize sets the number of entries to collect in each GC round.
func WithBatchSize(size int) Option {
	return func(g *gc) {
		if size > 0 {
			g.batchSize = size
		}
	}
}

// WithMinRetentionPeriod sets the minimum retention period for entries.
// Entries served within this period are not eligible for GC.
func WithMinRetentionPeriod(period time.Duration) Option {
	return func(g *gc) {
		if period > 0 {
			g.minRetentionPeriod = period
		}
	}
}

// WithMaxCacheSize bounds the total size of the stored avatars in bytes.
// Zero disables the size budget.
func WithMaxCacheSize(size int64) Option {
	return func(g *gc) {
		if size >= 0 {
			g.maxCacheSize = size
		}
	}
}

const (
	// defaultGCInterval is the default interval for garbage collection.
	defaultGCInterval = 5 * time.Minute

	// defaultDiskHighThresholdPercent is the default disk usage percentage that triggers garbage collection.
	defaultDiskHighThresholdPercent = 90.0

	// defaultDiskLowThresholdPercent is the default disk usage percentage garbage collection shrinks to.
	defaultDiskLowThresholdPercent = 70.0

	// defaultGCBatchSize is the default number of entries to collect in each GC round.
	defaultGCBatchSize = 50

	// defaultMinRetentionPeriod is the default minimum retention period for entries.
	defaultMinRetentionPeriod = 5 * time.Minute

	// maxGCAttempts is the maximum number of batches pruned in one run.
	maxGCAttempts = 100
)

// ErrNoCandidate indicates no GC candidate found.
var ErrNoCandidate = errors.New("no GC candidate found")

// GC prunes least recently used avatars from the persistent cache.
type GC interface {
	// Run runs garbage collection every interval until ctx is done.
	Run(ctx context.Context)

	// RunOnce performs a single garbage collection pass.
	RunOnce(ctx context.Context)
}

// New creates a new GC instance.
func New(rootDir string, metadata metadata.Metadata, storage storage.Storage, opts ...Option) *gc {
	gc := &gc{
		rootDir:                  rootDir,
		interval:                 defaultGCInterval,
		diskHighThresholdPercent: defaultDiskHighThresholdPercent,
		diskLowThresholdPercent:  defaultDiskLowThresholdPercent,
		batchSize:                defaultGCBatchSize,
		minRetentionPeriod:       defaultMinRetentionPeriod,
		metadata:                 metadata,
		storage:                  storage,
		diskUsage:                fs.GetDiskUsage,
	}

	for _, opt := range opts {
		opt(gc)
	}

	return gc
}

// gc is the GC instance.
type gc struct {
	// rootDir is the root directory of the cache.
	rootDir string

	// interval is the duration between garbage collection runs.
	interval time.Duration

	// diskHighThresholdPercent is the disk usage percentage that triggers garbage collection.
	diskHighThresholdPercent float64

	// diskLowThresholdPercent is the disk usage percentage garbage collection shrinks to.
	diskLowThresholdPercent float64

	// maxCacheSize is the size budget of the stored content, zero means unbounded.
	maxCacheSize int64

	// batchSize is the number of entries to collect in each GC round.
	batchSize int

	// minRetentionPeriod is the minimum retention period for entries.
	minRetentionPeriod time.Duration

	// storage is the storage instance.
	storage storage.Storage

	// metadata is the metadata manager.
	metadata metadata.Metadata

	// diskUsage reports the usage of the filesystem holding rootDir.
	diskUsage func(path string) (*fs.DiskUsage, error)
}

// Run starts the garbage collection process.
func (g *gc) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("GC loop stopped due to context cancellation")
			return
		case <-ticker.C:
			g.run(ctx)
		}
	}
}

// RunOnce performs a single garbage collection pass.
func (g *gc) RunOnce(ctx context.Context) {
	g.run(ctx)
}

// pressure is the cache's view of how full the disk and the size budget are.
type pressure struct {
	usedPercent float64
	cacheSize   int64
}

func (g *gc) measure(ctx context.Context) (pressure, error) {
	usage, err := g.diskUsage(g.rootDir)
	if err != nil {
		return pressure{}, fmt.Errorf("failed to get disk usage: %w", err)
	}

	p := pressure{usedPercent: usage.UsedPercent}
	if g.maxCacheSize > 0 {
		size, err := g.storage.Size(ctx)
		if err != nil {
			return pressure{}, fmt.Errorf("failed to get cache size: %w", err)
		}

		p.cacheSize = size
	}

	return p, nil
}

func (g *gc) overBudget(p pressure) bool {
	return g.maxCacheSize > 0 && p.cacheSize > g.maxCacheSize
}

func (g *gc) run(ctx context.Context) {
	p, err := g.measure(ctx)
	if err != nil {
		slog.Error("failed to measure cache pressure", "err", err)
		return
	}

	slog.Info("current cache pressure",
		"used_percent", fmt.Sprintf("%.2f%%", p.usedPercent),
		"high_threshold", fmt.Sprintf("%.2f%%", g.diskHighThresholdPercent),
		"low_threshold", fmt.Sprintf("%.2f%%", g.diskLowThresholdPercent),
		"cache_size", p.cacheSize,
		"max_cache_size", g.maxCacheSize)

	diskPressure := p.usedPercent >= g.diskHighThresholdPercent
	if !diskPressure && !g.overBudget(p) {
		slog.Info("cache below thresholds, skipping GC")
		return
	}

	slog.Info("cache above thresholds, starting GC",
		"disk_pressure", diskPressure,
		"over_budget", g.overBudget(p))

	attempt := 0
	for (diskPressure && p.usedPercent >= g.diskLowThresholdPercent) || g.overBudget(p) {
		if err := ctx.Err(); err != nil {
			slog.Info("GC interrupted by context", "err", err)
			break
		}

		if attempt >= maxGCAttempts {
			slog.Warn("max GC attempts reached, stopping GC loop",
				"attempts", attempt,
				"used_percent", fmt.Sprintf("%.2f%%", p.usedPercent))
			break
		}

		candidates, err := g.collectBatch(ctx)
		if err != nil {
			if errors.Is(err, ErrNoCandidate) {
				slog.Info("no more GC candidates")
			} else {
				slog.Error("failed to collect GC candidates", "err", err)
			}
			break
		}

		if err := g.pruneBatch(ctx, candidates); err != nil {
			slog.Error("batch prune failed", "err", err)
			break
		}

		attempt++

		p, err = g.measure(ctx)
		if err != nil {
			slog.Error("failed to refresh cache pressure after prune", "err", err)
			break
		}
	}

	slog.Info("GC completed",
		"final_used_percent", fmt.Sprintf("%.2f%%", p.usedPercent),
		"final_cache_size", p.cacheSize,
		"attempts", attempt)
}

// collectBatch returns up to g.batchSize least recently used entry keys.
// Only entries not served within minRetentionPeriod are considered.
func (g *gc) collectBatch(ctx context.Context) ([]string, error) {
	type entryWithKey struct {
		key   string
		entry metadata.Entry
	}

	minAccessTime := time.Now().Add(-g.minRetentionPeriod)

	var entries []entryWithKey
	if err := g.metadata.IterateEntries(ctx, func(key string, entry metadata.Entry) error {
		if entry.LastAccessedAt.After(minAccessTime) {
			return nil
		}

		entries = append(entries, entryWithKey{key: key, entry: entry})
		return nil
	}); err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, ErrNoCandidate
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].entry.LastAccessedAt.Before(entries[j].entry.LastAccessedAt)
	})

	n := min(g.batchSize, len(entries))
	keys := make([]string, n)
	for i := range n {
		keys[i] = entries[i].key
	}

	slog.Info("collected GC candidates",
		"count", len(keys),
		"oldest_access", entries[0].entry.LastAccessedAt,
		"retention_cutoff", minAccessTime)

	return keys, nil
}

// pruneBatch removes the entries and the content nothing else references.
// Each target is re-validated first, since it may have been served or
// removed between collection and pruning.
func (g *gc) pruneBatch(ctx context.Context, targets []string) error {
	totalPruned := 0
	skipped := 0
	minAccessTime := time.Now().Add(-g.minRetentionPeriod)

	for _, target := range targets {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		entry, err := g.metadata.GetEntry(ctx, target)
		if err != nil {
			if errors.Is(err, metadata.ErrKeyNotFound) {
				slog.Debug("entry already deleted, skipping", "target", target)
			} else {
				slog.Warn("failed to re-validate entry, skipping", "target", target, "err", err)
			}
			skipped++
			continue
		}

		if entry.LastAccessedAt.After(minAccessTime) {
			slog.Info("entry was recently accessed, skipping GC",
				"target", target,
				"last_accessed", entry.LastAccessedAt,
				"retention_cutoff", minAccessTime)
			skipped++
			continue
		}

		prunedContent, err := g.metadata.Prune(ctx, target)
		if err != nil {
			slog.Warn("failed to prune entry, skipping", "target", target, "err", err)
			skipped++
			continue
		}

		slog.Debug("pruned entry",
			"target", target,
			"content_count", len(prunedContent),
			"last_accessed", entry.LastAccessedAt)
		totalPruned += len(prunedContent)

		for _, content := range prunedContent {
			if err := g.storage.Prune(ctx, storage.ParseFilenameFromDigest(content.Digest)); err != nil {
				slog.Error("failed to prune content file", "digest", content.Digest, "err", err)
			}
		}
	}

	slog.Info("batch GC completed",
		"targets_attempted", len(targets),
		"targets_pruned", len(targets)-skipped,
		"targets_skipped", skipped,
		"content_files_pruned", totalPruned)
	return nil
}
