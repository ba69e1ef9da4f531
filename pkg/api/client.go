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

// Package api is a client for the Gravatar REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"oras.land/oras-go/v2/registry/remote/retry"
)

const (
	// DefaultBaseURL is the API endpoint.
	DefaultBaseURL = "https://api.gravatar.com/v3"

	// defaultUserAgent is sent when no user agent is configured.
	defaultUserAgent = "d7y-gravatar"

	// HeaderRequestID carries the request ID of every call.
	HeaderRequestID = "X-Request-Id"

	// maxErrorBodySize bounds the error body read from a failed response.
	maxErrorBodySize = 64 * 1024
)

// Client is the interface for the Gravatar REST API.
type Client interface {
	// Profile returns the public profile for a hash or profile slug.
	Profile(ctx context.Context, id string) (*Profile, error)

	// AssociatedEmail reports whether the email hash belongs to the token's account.
	AssociatedEmail(ctx context.Context, token, emailHash string) (bool, error)

	// ListAvatars lists the avatars of the token's account, marking the one
	// selected for emailHash.
	ListAvatars(ctx context.Context, token, emailHash string) ([]Avatar, error)

	// UploadAvatar uploads an image to the token's account.
	UploadAvatar(ctx context.Context, req *UploadRequest) (*Avatar, error)

	// SelectAvatar makes imageID the avatar of emailHash.
	SelectAvatar(ctx context.Context, token, imageID, emailHash string) error
}

// UploadRequest describes an avatar upload.
type UploadRequest struct {
	// Token is the OAuth access token of the account.
	Token string

	// EmailHash is the email the avatar is uploaded for.
	EmailHash string

	// Image is the image content.
	Image io.Reader

	// Filename is sent with the multipart part.
	Filename string

	// ContentType is the MIME type of Image, detected when empty.
	ContentType string

	// Select makes the uploaded image the avatar of EmailHash.
	Select bool
}

// Option is a function that configures a Client.
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	userAgent  string
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithAPIKey authenticates public calls with an API key.
func WithAPIKey(apiKey string) Option {
	return func(o *options) {
		o.apiKey = apiKey
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(o *options) {
		if userAgent != "" {
			o.userAgent = userAgent
		}
	}
}

// New creates a Client.
func New(opts ...Option) (Client, error) {
	o := &options{
		baseURL:   DefaultBaseURL,
		userAgent: defaultUserAgent,
	}

	for _, opt := range opts {
		opt(o)
	}

	u, err := url.Parse(o.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api base URL %q: %w", o.baseURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base URL %q: unsupported scheme", o.baseURL)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   30 * time.Second,
			Transport: retry.NewTransport(http.DefaultTransport),
		}
	}

	return &client{
		baseURL:      u,
		httpClient:   httpClient,
		uploadClient: withoutRetry(httpClient),
		apiKey:       o.apiKey,
		userAgent:    o.userAgent,
	}, nil
}

// withoutRetry returns a copy of c that sends each request once.
func withoutRetry(c *http.Client) *http.Client {
	t, ok := c.Transport.(*retry.Transport)
	if !ok {
		return c
	}

	once := *c
	once.Transport = t.Base
	return &once
}

type client struct {
	baseURL    *url.URL
	httpClient *http.Client

	// uploadClient sends requests that must not be repeated.
	uploadClient *http.Client

	apiKey    string
	userAgent string
}

// request describes one API call.
type request struct {
	method      string
	path        []string
	query       url.Values
	token       string
	body        []byte
	contentType string

	// once disables retries, a repeated upload would create a second avatar.
	once bool
}

func (c *client) Profile(ctx context.Context, id string) (*Profile, error) {
	if id == "" {
		return nil, errors.New("empty profile identifier")
	}

	var profile Profile
	if err := c.do(ctx, &request{method: http.MethodGet, path: []string{"profiles", id}}, &profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

func (c *client) AssociatedEmail(ctx context.Context, token, emailHash string) (bool, error) {
	if token == "" {
		return false, ErrMissingToken
	}

	var resp associatedResponse
	if err := c.do(ctx, &request{
		method: http.MethodGet,
		path:   []string{"me", "associated-email"},
		query:  url.Values{"email_hash": {emailHash}},
		token:  token,
	}, &resp); err != nil {
		return false, err
	}

	return resp.Associated, nil
}

func (c *client) ListAvatars(ctx context.Context, token, emailHash string) ([]Avatar, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	query := url.Values{}
	if emailHash != "" {
		query.Set("selected_email_hash", emailHash)
	}

	var avatars []Avatar
	if err := c.do(ctx, &request{
		method: http.MethodGet,
		path:   []string{"me", "avatars"},
		query:  query,
		token:  token,
	}, &avatars); err != nil {
		return nil, err
	}

	return avatars, nil
}

func (c *client) UploadAvatar(ctx context.Context, req *UploadRequest) (*Avatar, error) {
	if req.Token == "" {
		return nil, ErrMissingToken
	}

	if req.Image == nil {
		return nil, errors.New("upload has no image")
	}

	body, contentType, err := encodeUpload(req)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	if req.EmailHash != "" {
		query.Set("selected_email_hash", req.EmailHash)
	}
	query.Set("select_avatar", strconv.FormatBool(req.Select))

	var avatar Avatar
	if err := c.do(ctx, &request{
		method:      http.MethodPost,
		path:        []string{"me", "avatars"},
		query:       query,
		token:       req.Token,
		body:        body,
		contentType: contentType,
		once:        true,
	}, &avatar); err != nil {
		return nil, err
	}

	return &avatar, nil
}

// encodeUpload writes the image as the multipart field "image".
func encodeUpload(req *UploadRequest) ([]byte, string, error) {
	data, err := io.ReadAll(req.Image)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	filename := req.Filename
	if filename == "" {
		filename = "avatar"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart part: %w", err)
	}

	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to write multipart part: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return buf.Bytes(), mw.FormDataContentType(), nil
}

func (c *client) SelectAvatar(ctx context.Context, token, imageID, emailHash string) error {
	if token == "" {
		return ErrMissingToken
	}

	body, err := json.Marshal(selectAvatarRequest{EmailHash: emailHash})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	return c.do(ctx, &request{
		method:      http.MethodPost,
		path:        []string{"me", "avatars", imageID, "email"},
		token:       token,
		body:        body,
		contentType: "application/json",
	}, nil)
}

// do sends r and decodes a successful response into out when out is not nil.
func (c *client) do(ctx context.Context, r *request, out any) error {
	u := c.baseURL.JoinPath(r.path...)
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderRequestID, requestID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	switch {
	case r.token != "":
		req.Header.Set("Authorization", "Bearer "+r.token)
	case c.apiKey != "":
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpClient := c.httpClient
	if r.once {
		httpClient = c.uploadClient
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s %s: %w", r.method, u.Path, err)
	}
	defer resp.Body.Close()

	slog.Debug("gravatar api request completed",
		"method", r.method,
		"path", u.Path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return newResponseError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrDecoding, err)
	}

	return nil
}

func newResponseError(resp *http.Response) error {
	respErr := &ResponseError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		slog.Warn("failed to read error response", "status", resp.StatusCode, "err", err)
		return respErr
	}

	var payload ErrorPayload
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		respErr.Payload = &payload
	}

	return respErr
}
