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

// Package image downloads avatar images and serves them through a memory
// tier and an optional persistent tier, coalescing concurrent requests for
// the same URL into a single download.
package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"net/url"

	// Register the decoders the avatar service serves.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

var (
	// ErrInvalidURL is returned for a missing or non-HTTP(S) image URL.
	ErrInvalidURL = errors.New("invalid image URL")

	// ErrNotFound matches a *StatusError carrying 404.
	ErrNotFound = errors.New("image not found")

	// ErrImageTooLarge is returned when a response body exceeds the size limit.
	ErrImageTooLarge = errors.New("image too large")

	// ErrProcessorFailed wraps errors returned by a Processor.
	ErrProcessorFailed = errors.New("image processing failed")
)

// StatusError is returned when the image server answers with a non-2xx status.
type StatusError struct {
	// URL is the requested image URL.
	URL string

	// StatusCode is the HTTP status code of the response.
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// Is reports 404 responses as ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Source tells which tier answered a fetch.
type Source int

const (
	// SourceNetwork means the image was downloaded.
	SourceNetwork Source = iota

	// SourceMemory means the image came from the memory tier.
	SourceMemory

	// SourceDisk means the image came from the persistent tier.
	SourceDisk
)

func (s Source) String() string {
	switch s {
	case SourceMemory:
		return "memory"
	case SourceDisk:
		return "disk"
	default:
		return "network"
	}
}

// Image is a downloaded and processed image.
type Image struct {
	// Data is the raw encoded image.
	Data []byte

	// ContentType is the MIME type of Data.
	ContentType string

	// Decoded is the decoded image, nil if the processor does not decode.
	Decoded image.Image

	// Width is the width of the image in pixels.
	Width int

	// Height is the height of the image in pixels.
	Height int
}

// Result is the outcome of a fetch.
type Result struct {
	// Image is the processed image.
	Image *Image

	// SourceURL is the URL the caller asked for.
	SourceURL *url.URL

	// Source is the tier that served the image.
	Source Source
}

// Processor turns downloaded bytes into an Image.
type Processor interface {
	Process(ctx context.Context, data []byte, contentType string) (*Image, error)
}

// ProcessorFunc adapts a function to a Processor.
type ProcessorFunc func(ctx context.Context, data []byte, contentType string) (*Image, error)

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, data []byte, contentType string) (*Image, error) {
	return f(ctx, data, contentType)
}

// DefaultProcessor decodes PNG, JPEG and GIF images.
type DefaultProcessor struct{}

// Process decodes data and records its dimensions.
func (DefaultProcessor) Process(_ context.Context, data []byte, contentType string) (*Image, error) {
	decoded, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if contentType == "" {
		contentType = "image/" + format
	}

	bounds := decoded.Bounds()
	return &Image{
		Data:        data,
		ContentType: contentType,
		Decoded:     decoded,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
	}, nil
}
