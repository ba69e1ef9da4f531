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

package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound matches responses with status 404.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized matches responses with status 401 or 403.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited matches responses with status 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrMissingToken is returned when an authenticated call has no access token.
	ErrMissingToken = errors.New("missing access token")

	// ErrDecoding wraps errors decoding a response body.
	ErrDecoding = errors.New("failed to decode response")
)

// ErrorPayload is the error body returned by the API.
type ErrorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ResponseError is returned for non-2xx responses.
type ResponseError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Payload is the decoded error body, nil if the body was not an error payload.
	Payload *ErrorPayload
}

func (e *ResponseError) Error() string {
	if e.Payload == nil || e.Payload.Error == "" {
		return fmt.Sprintf("gravatar api returned status %d", e.StatusCode)
	}

	if e.Payload.Code != "" {
		return fmt.Sprintf("gravatar api returned status %d: %s (%s)", e.StatusCode, e.Payload.Error, e.Payload.Code)
	}

	return fmt.Sprintf("gravatar api returned status %d: %s", e.StatusCode, e.Payload.Error)
}

// Is matches the sentinel errors for the status code.
func (e *ResponseError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}
