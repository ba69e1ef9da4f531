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
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"oras.land/oras-go/v2/registry/remote/retry"
)

const (
	// defaultMaxAge is how long a stored image is served without revalidation.
	defaultMaxAge = 24 * time.Hour

	// defaultMaxImageSize bounds a downloaded image body (avatars are at most 2048x2048).
	defaultMaxImageSize = 10 * 1024 * 1024

	// defaultUserAgent is sent with every image request.
	defaultUserAgent = "d7y-gravatar"

	// forcePrefix separates forced flights from regular ones. It cannot start
	// an http(s) URL, so it never collides with a regular key.
	forcePrefix = "force:"
)

// Downloader fetches images through the memory, persistent and network tiers.
type Downloader interface {
	// Fetch returns the image at u. Concurrent fetches of the same URL share one download.
	Fetch(ctx context.Context, u *url.URL, opts ...FetchOption) (*Result, error)
}

// Option is a function that configures a Downloader.
type Option func(*downloader)

// WithCache sets the memory tier.
func WithCache(cache Cache) Option {
	return func(d *downloader) {
		if cache != nil {
			d.cache = cache
		}
	}
}

// WithStore enables the persistent tier.
func WithStore(store Store) Option {
	return func(d *downloader) {
		d.store = store
	}
}

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(d *downloader) {
		if client != nil {
			d.client = client
		}
	}
}

// WithProcessor sets the default processor.
func WithProcessor(processor Processor) Option {
	return func(d *downloader) {
		if processor != nil {
			d.processor = processor
		}
	}
}

// WithMaxAge sets how long a stored image is served without revalidation.
func WithMaxAge(maxAge time.Duration) Option {
	return func(d *downloader) {
		if maxAge >= 0 {
			d.maxAge = maxAge
		}
	}
}

// WithMaxImageSize sets the largest accepted response body in bytes.
func WithMaxImageSize(size int64) Option {
	return func(d *downloader) {
		if size > 0 {
			d.maxImageSize = size
		}
	}
}

// WithUserAgent sets the User-Agent header of image requests.
func WithUserAgent(userAgent string) Option {
	return func(d *downloader) {
		if userAgent != "" {
			d.userAgent = userAgent
		}
	}
}

// FetchOption configures a single fetch.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	forceRefresh bool
	processor    Processor
}

// WithForceRefresh skips the memory and persistent tiers.
func WithForceRefresh() FetchOption {
	return func(o *fetchOptions) {
		o.forceRefresh = true
	}
}

// WithFetchProcessor overrides the processor for one fetch. When the fetch
// joins a download already in progress, the processor of the first caller is used.
func WithFetchProcessor(processor Processor) FetchOption {
	return func(o *fetchOptions) {
		if processor != nil {
			o.processor = processor
		}
	}
}

// New creates a Downloader.
func New(opts ...Option) Downloader {
	return newDownloader(opts...)
}

func newDownloader(opts ...Option) *downloader {
	d := &downloader{
		cache:        NewMemoryCache(),
		client:       &http.Client{Transport: retry.NewTransport(http.DefaultTransport)},
		processor:    DefaultProcessor{},
		maxAge:       defaultMaxAge,
		maxImageSize: defaultMaxImageSize,
		userAgent:    defaultUserAgent,
		flights:      make(map[string]*flight),
		forced:       make(map[string]uint64),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// downloader implements Downloader.
type downloader struct {
	// cache is the memory tier.
	cache Cache

	// store is the persistent tier, nil when disabled.
	store Store

	// client performs the downloads.
	client *http.Client

	// processor turns downloaded bytes into images.
	processor Processor

	// maxAge is how long a stored image is served without revalidation.
	maxAge time.Duration

	// maxImageSize is the largest accepted response body.
	maxImageSize int64

	// userAgent is sent with every request.
	userAgent string

	// group runs one load per flight key.
	group singleflight.Group

	// mu guards flights, generation and forced.
	mu sync.Mutex

	// flights tracks the waiters of every load in progress.
	flights map[string]*flight

	// generation numbers flights in the order they start.
	generation uint64

	// forced holds, per cache key, the generation of the latest forced
	// flight. Flights started before it must not write the tiers.
	forced map[string]uint64

	// commitMu serializes the tier writes of completed flights.
	commitMu sync.Mutex
}

// flight is a load in progress and the callers waiting for it.
type flight struct {
	// key is the cache key the flight loads.
	key string

	// generation orders the flight against the other flights of key.
	generation uint64

	// ctx is detached from the callers and cancelled when the last one leaves.
	ctx    context.Context
	cancel context.CancelFunc

	// waiters is the number of callers waiting for the result.
	waiters int

	// do runs the load, shared by every caller of the flight.
	do func() (any, error)
}

func (d *downloader) Fetch(ctx context.Context, u *url.URL, opts ...FetchOption) (*Result, error) {
	if u == nil {
		return nil, ErrInvalidURL
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, u.String())
	}

	o := fetchOptions{processor: d.processor}
	for _, opt := range opts {
		opt(&o)
	}

	key := u.String()
	if !o.forceRefresh {
		if img, ok := d.cache.Get(key); ok {
			slog.Debug("serving image from memory", "url", key)
			return &Result{Image: img, SourceURL: u, Source: SourceMemory}, nil
		}
	}

	flightKey := key
	if o.forceRefresh {
		flightKey = forcePrefix + key
	}

	f, ch := d.join(ctx, flightKey, key, o.forceRefresh, func(fctx context.Context, f *flight) (*Result, error) {
		return d.load(fctx, f, u, o)
	})

	select {
	case res := <-ch:
		d.leave(flightKey, f)
		if res.Err != nil {
			return nil, res.Err
		}

		shared := res.Val.(*Result)
		return &Result{Image: shared.Image, SourceURL: u, Source: shared.Source}, nil
	case <-ctx.Done():
		d.leave(flightKey, f)
		slog.Debug("caller stopped waiting for image", "url", key, "err", ctx.Err())
		return nil, ctx.Err()
	}
}

// join registers the caller as a waiter of the flight for flightKey,
// starting the flight if none is in progress. The returned channel
// belongs to the caller and receives the flight's result once.
func (d *downloader) join(ctx context.Context, flightKey, key string, force bool, load func(context.Context, *flight) (*Result, error)) (*flight, <-chan singleflight.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if f, ok := d.flights[flightKey]; ok {
		f.waiters++
		return f, d.group.DoChan(flightKey, f.do)
	}

	d.generation++
	fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f := &flight{key: key, generation: d.generation, ctx: fctx, cancel: cancel, waiters: 1}
	f.do = func() (any, error) {
		defer d.finish(flightKey, f)
		return load(fctx, f)
	}

	if force {
		d.forced[key] = f.generation
	}

	d.flights[flightKey] = f
	return f, d.group.DoChan(flightKey, f.do)
}

// finish unregisters a completed flight so later callers start a new one.
func (d *downloader) finish(flightKey string, f *flight) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.unregister(flightKey, f)
}

// unregister removes f from the flights in progress and forgets the forced
// generation of its key once no flight of that key is left.
func (d *downloader) unregister(flightKey string, f *flight) bool {
	if d.flights[flightKey] != f {
		return false
	}

	delete(d.flights, flightKey)
	_, regular := d.flights[f.key]
	_, force := d.flights[forcePrefix+f.key]
	if !regular && !force {
		delete(d.forced, f.key)
	}

	return true
}

// leave drops a waiter. The last waiter to leave a flight still in
// progress cancels it.
func (d *downloader) leave(flightKey string, f *flight) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}

	if d.unregister(flightKey, f) {
		d.group.Forget(flightKey)
		slog.Debug("cancelling abandoned image fetch", "key", flightKey)
	}

	f.cancel()
}

// waiting returns the number of callers waiting on the flight for flightKey.
func (d *downloader) waiting(flightKey string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if f, ok := d.flights[flightKey]; ok {
		return f.waiters
	}

	return 0
}

// superseded reports whether a forced flight started after f.
func (d *downloader) superseded(f *flight) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.forced[f.key] > f.generation
}

// fetched is a resolved image and what the persistent tier should keep of it.
type fetched struct {
	result *Result

	// data and meta are saved to the persistent tier when data is not nil.
	data []byte
	meta Meta

	// revalidated marks a stored image confirmed by the origin.
	revalidated bool
}

// load resolves the image and updates both tiers with the outcome, unless
// the flight was abandoned or a newer forced flight of the same key started.
func (d *downloader) load(ctx context.Context, f *flight, u *url.URL, o fetchOptions) (*Result, error) {
	dl, err := d.resolve(ctx, u, f.key, o)

	// An abandoned flight says nothing about the image itself.
	if err != nil && ctx.Err() != nil {
		return nil, err
	}

	d.commitMu.Lock()
	defer d.commitMu.Unlock()

	if d.superseded(f) {
		slog.Debug("discarding superseded image fetch", "url", f.key, "generation", f.generation)
		if err != nil {
			return nil, err
		}

		return dl.result, nil
	}

	if err != nil {
		d.cache.Remove(f.key)
		if d.store != nil {
			if err := d.store.Remove(ctx, f.key); err != nil && !errors.Is(err, ErrNotStored) {
				slog.Warn("failed to remove stored image", "url", f.key, "err", err)
			}
		}

		return nil, err
	}

	if d.store != nil {
		switch {
		case dl.data != nil:
			if err := d.store.Save(ctx, f.key, dl.data, dl.meta); err != nil {
				slog.Warn("failed to store image", "url", f.key, "err", err)
			}
		case dl.revalidated:
			if err := d.store.Touch(ctx, f.key); err != nil {
				slog.Warn("failed to touch stored image", "url", f.key, "err", err)
			}
		}
	}

	d.cache.Set(f.key, dl.result.Image)
	return dl.result, nil
}

// resolve serves the image from the persistent tier when fresh, and
// downloads or revalidates it otherwise.
func (d *downloader) resolve(ctx context.Context, u *url.URL, key string, o fetchOptions) (*fetched, error) {
	var stored *StoredImage
	if d.store != nil && !o.forceRefresh {
		s, err := d.store.Load(ctx, key)
		switch {
		case err == nil:
			stored = s
		case errors.Is(err, ErrNotStored):
		default:
			slog.Warn("failed to load stored image", "url", key, "err", err)
		}
	}

	if stored != nil && time.Since(stored.FetchedAt) < d.maxAge {
		img, err := d.process(ctx, o.processor, stored.Data, stored.ContentType)
		if err == nil {
			slog.Debug("serving image from disk", "url", key, "fetched_at", stored.FetchedAt)
			return &fetched{result: &Result{Image: img, SourceURL: u, Source: SourceDisk}}, nil
		}

		slog.Warn("stored image is unreadable, downloading again", "url", key, "err", err)
		stored = nil
	}

	return d.download(ctx, u, key, stored, o.processor)
}

// download performs the GET, conditional when a stale stored image exists.
func (d *downloader) download(ctx context.Context, u *url.URL, key string, stored *StoredImage, processor Processor) (*fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "image/*")
	if stored != nil {
		if stored.ETag != "" {
			req.Header.Set("If-None-Match", stored.ETag)
		}

		if stored.LastModified != "" {
			req.Header.Set("If-Modified-Since", stored.LastModified)
		}
	}

	slog.Debug("downloading image", "url", key, "conditional", stored != nil)
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && stored != nil {
		img, err := d.process(ctx, processor, stored.Data, stored.ContentType)
		if err != nil {
			return nil, err
		}

		slog.Debug("stored image revalidated", "url", key)
		return &fetched{result: &Result{Image: img, SourceURL: u, Source: SourceDisk}, revalidated: true}, nil
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{URL: key, StatusCode: resp.StatusCode}
	}

	if resp.ContentLength > d.maxImageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrImageTooLarge, resp.ContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	if int64(len(data)) > d.maxImageSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, d.maxImageSize)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	img, err := d.process(ctx, processor, data, contentType)
	if err != nil {
		return nil, err
	}

	return &fetched{
		result: &Result{Image: img, SourceURL: u, Source: SourceNetwork},
		data:   data,
		meta: Meta{
			ContentType:  contentType,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			FetchedAt:    time.Now(),
		},
	}, nil
}

func (d *downloader) process(ctx context.Context, processor Processor, data []byte, contentType string) (*Image, error) {
	img, err := processor.Process(ctx, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessorFailed, err)
	}

	return img, nil
}
