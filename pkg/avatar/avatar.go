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

// Package avatar builds and parses Gravatar avatar URLs.
package avatar

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// DefaultBaseURL is the avatar endpoint.
const DefaultBaseURL = "https://gravatar.com/avatar"

const (
	// MinSize is the smallest size the avatar service renders.
	MinSize = 1

	// MaxSize is the largest size the avatar service renders.
	MaxSize = 2048
)

var (
	// ErrEmptyIdentifier is returned when an identifier has no email or hash.
	ErrEmptyIdentifier = errors.New("empty avatar identifier")

	// ErrInvalidHash is returned for hash identifiers that are not MD5 or SHA-256 hex digests.
	ErrInvalidHash = errors.New("invalid avatar hash")

	// ErrInvalidSize is returned for sizes outside [MinSize, MaxSize].
	ErrInvalidSize = errors.New("invalid avatar size")

	// ErrNotAvatarURL is returned by Parse for URLs that do not point at an avatar.
	ErrNotAvatarURL = errors.New("not an avatar URL")
)

// HashEmail returns the hex SHA-256 of the trimmed, lowercased email.
func HashEmail(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// Identifier selects an avatar by email or by hash.
type Identifier struct {
	email string
	hash  string
}

// Email identifies an avatar by email address.
func Email(email string) Identifier {
	return Identifier{email: email}
}

// Hash identifies an avatar by an already hashed email.
func Hash(hash string) Identifier {
	return Identifier{hash: hash}
}

// Hash returns the avatar hash, or an empty string for an empty identifier.
func (id Identifier) Hash() string {
	if id.hash != "" {
		return strings.ToLower(strings.TrimSpace(id.hash))
	}

	if strings.TrimSpace(id.email) == "" {
		return ""
	}

	return HashEmail(id.email)
}

func (id Identifier) String() string {
	return id.Hash()
}

// Rating is the highest content rating an avatar may have.
type Rating string

const (
	RatingG  Rating = "g"
	RatingPG Rating = "pg"
	RatingR  Rating = "r"
	RatingX  Rating = "x"
)

// DefaultImage is what the service returns when no avatar exists.
type DefaultImage string

const (
	// DefaultImageNotFound makes the service answer 404.
	DefaultImageNotFound      DefaultImage = "404"
	DefaultImageMysteryPerson DefaultImage = "mp"
	DefaultImageIdenticon     DefaultImage = "identicon"
	DefaultImageMonsterID     DefaultImage = "monsterid"
	DefaultImageWavatar       DefaultImage = "wavatar"
	DefaultImageRetro         DefaultImage = "retro"
	DefaultImageRobohash      DefaultImage = "robohash"
	DefaultImageBlank         DefaultImage = "blank"
)

// CustomDefaultImage uses the image at u as the default.
func CustomDefaultImage(u *url.URL) DefaultImage {
	return DefaultImage(u.String())
}

// QueryOptions are the avatar query parameters. Zero values are omitted.
type QueryOptions struct {
	// Size is the edge length in pixels.
	Size int

	// Rating is the highest allowed rating.
	Rating Rating

	// DefaultImage is served when no avatar exists.
	DefaultImage DefaultImage

	// ForceDefault always serves DefaultImage.
	ForceDefault bool
}

func (o QueryOptions) validate() error {
	if o.Size != 0 && (o.Size < MinSize || o.Size > MaxSize) {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidSize, o.Size, MinSize, MaxSize)
	}

	return nil
}

// Values encodes the options as query parameters.
func (o QueryOptions) Values() url.Values {
	v := url.Values{}
	if o.Size != 0 {
		v.Set("s", strconv.Itoa(o.Size))
	}

	if o.Rating != "" {
		v.Set("r", string(o.Rating))
	}

	if o.DefaultImage != "" {
		v.Set("d", string(o.DefaultImage))
	}

	if o.ForceDefault {
		v.Set("f", "y")
	}

	return v
}

// parseQuery reads options back from a query, accepting the long parameter names too.
func parseQuery(q url.Values) QueryOptions {
	first := func(keys ...string) string {
		for _, k := range keys {
			if v := q.Get(k); v != "" {
				return v
			}
		}
		return ""
	}

	var o QueryOptions
	if size, err := strconv.Atoi(first("s", "size")); err == nil {
		o.Size = size
	}

	o.Rating = Rating(strings.ToLower(first("r", "rating")))
	o.DefaultImage = DefaultImage(first("d", "default"))
	switch strings.ToLower(first("f", "forcedefault")) {
	case "y", "yes", "true", "1":
		o.ForceDefault = true
	}

	return o
}

// Builder builds avatar URLs against a base URL.
type Builder struct {
	baseURL *url.URL
}

// NewBuilder creates a Builder for baseURL.
func NewBuilder(baseURL string) (*Builder, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL %q: %w", baseURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base URL scheme %q", u.Scheme)
	}

	return &Builder{baseURL: u}, nil
}

var defaultBuilder = &Builder{baseURL: &url.URL{Scheme: "https", Host: "gravatar.com", Path: "/avatar"}}

// URL builds the avatar URL for id.
func (b *Builder) URL(id Identifier, opts QueryOptions) (*url.URL, error) {
	hash := id.Hash()
	if hash == "" {
		return nil, ErrEmptyIdentifier
	}

	if !isHash(hash) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHash, hash)
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}

	u := *b.baseURL
	u.Path = path.Join("/", b.baseURL.Path, hash)
	u.RawPath = ""
	u.RawQuery = opts.Values().Encode()
	return &u, nil
}

// URL builds the avatar URL for id against DefaultBaseURL.
func URL(id Identifier, opts QueryOptions) (*url.URL, error) {
	return defaultBuilder.URL(id, opts)
}

// AvatarURL is a parsed avatar URL.
type AvatarURL struct {
	// Hash is the avatar hash.
	Hash string

	// Options are the query options the URL carried.
	Options QueryOptions

	// base is the URL without query, the canonical avatar URL.
	base url.URL
}

// Parse recognises an avatar URL and extracts its hash and options.
func Parse(raw string) (*AvatarURL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAvatarURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrNotAvatarURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host != "gravatar.com" && !strings.HasSuffix(host, ".gravatar.com") {
		return nil, fmt.Errorf("%w: host %q", ErrNotAvatarURL, host)
	}

	dir, file := path.Split(u.Path)
	if path.Clean(dir) != "/avatar" {
		return nil, fmt.Errorf("%w: path %q", ErrNotAvatarURL, u.Path)
	}

	hash := strings.ToLower(strings.TrimSuffix(file, path.Ext(file)))
	if !isHash(hash) {
		return nil, fmt.Errorf("%w: hash %q", ErrNotAvatarURL, file)
	}

	base := *u
	base.Path = "/avatar/" + hash
	base.RawPath = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &AvatarURL{
		Hash:    hash,
		Options: parseQuery(u.Query()),
		base:    base,
	}, nil
}

// isHash accepts MD5 and SHA-256 hex digests.
func isHash(s string) bool {
	if len(s) != 32 && len(s) != 64 {
		return false
	}

	_, err := hex.DecodeString(s)
	return err == nil
}

// Canonical returns the URL without query options.
func (a *AvatarURL) Canonical() *url.URL {
	u := a.base
	return &u
}

// URL returns the URL with the parsed options.
func (a *AvatarURL) URL() *url.URL {
	u := a.base
	u.RawQuery = a.Options.Values().Encode()
	return &u
}

// WithOptions returns the URL with its query replaced by opts.
func (a *AvatarURL) WithOptions(opts QueryOptions) (*url.URL, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	u := a.base
	u.RawQuery = opts.Values().Encode()
	return &u, nil
}
