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

// Package ocitest provides an in-memory OCI distribution registry for tests.
package ocitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	godigest "github.com/opencontainers/go-digest"
)

// Registry is an in-memory registry serving the subset of the distribution
// API used by blob and manifest push, pull and tagging.
type Registry struct {
	*httptest.Server

	mu        sync.Mutex
	blobs     map[string][]byte
	manifests map[string]manifest
	tags      map[string]string
	uploads   int
}

type manifest struct {
	mediaType string
	data      []byte
}

// NewRegistry starts a registry that is closed when the test ends.
func NewRegistry(t testing.TB) *Registry {
	t.Helper()

	r := &Registry{
		blobs:     make(map[string][]byte),
		manifests: make(map[string]manifest),
		tags:      make(map[string]string),
	}
	r.Server = httptest.NewServer(http.HandlerFunc(r.serveHTTP))
	t.Cleanup(r.Close)
	return r
}

// BlobCount returns the number of blobs stored in repository.
func (r *Registry) BlobCount(repository string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for key := range r.blobs {
		if strings.HasPrefix(key, repository+"@") {
			n++
		}
	}
	return n
}

func (r *Registry) serveHTTP(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path == "/v2/" || req.URL.Path == "/v2" {
		w.WriteHeader(http.StatusOK)
		return
	}

	rest, ok := strings.CutPrefix(req.URL.Path, "/v2/")
	if !ok {
		http.NotFound(w, req)
		return
	}

	if i := strings.Index(rest, "/blobs/uploads/"); i >= 0 {
		r.serveUpload(w, req, rest[:i], rest[i+len("/blobs/uploads/"):])
		return
	}

	if i := strings.LastIndex(rest, "/blobs/"); i >= 0 {
		r.serveBlob(w, req, rest[:i], rest[i+len("/blobs/"):])
		return
	}

	if i := strings.LastIndex(rest, "/manifests/"); i >= 0 {
		r.serveManifest(w, req, rest[:i], rest[i+len("/manifests/"):])
		return
	}

	http.NotFound(w, req)
}

func (r *Registry) serveUpload(w http.ResponseWriter, req *http.Request, repository, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case req.Method == http.MethodPost && id == "":
		r.uploads++
		w.Header().Set("Location", fmt.Sprintf("/v2/%s/blobs/uploads/%d", repository, r.uploads))
		w.WriteHeader(http.StatusAccepted)
	case req.Method == http.MethodPut:
		data, err := io.ReadAll(req.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BLOB_UPLOAD_INVALID")
			return
		}

		digest := req.URL.Query().Get("digest")
		if godigest.FromBytes(data).String() != digest {
			writeError(w, http.StatusBadRequest, "DIGEST_INVALID")
			return
		}

		r.blobs[repository+"@"+digest] = data
		w.Header().Set("Location", fmt.Sprintf("/v2/%s/blobs/%s", repository, digest))
		w.Header().Set("Docker-Content-Digest", digest)
		w.WriteHeader(http.StatusCreated)
	default:
		writeError(w, http.StatusMethodNotAllowed, "UNSUPPORTED")
	}
}

func (r *Registry) serveBlob(w http.ResponseWriter, req *http.Request, repository, digest string) {
	r.mu.Lock()
	data, ok := r.blobs[repository+"@"+digest]
	r.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "BLOB_UNKNOWN")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Docker-Content-Digest", digest)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if req.Method == http.MethodGet {
		_, _ = w.Write(data)
	}
}

func (r *Registry) serveManifest(w http.ResponseWriter, req *http.Request, repository, reference string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.Method == http.MethodPut {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "MANIFEST_INVALID")
			return
		}

		digest := godigest.FromBytes(data).String()
		r.manifests[repository+"@"+digest] = manifest{mediaType: req.Header.Get("Content-Type"), data: data}
		if _, err := godigest.Parse(reference); err != nil {
			r.tags[repository+":"+reference] = digest
		}

		w.Header().Set("Location", fmt.Sprintf("/v2/%s/manifests/%s", repository, digest))
		w.Header().Set("Docker-Content-Digest", digest)
		w.WriteHeader(http.StatusCreated)
		return
	}

	digest := reference
	if _, err := godigest.Parse(reference); err != nil {
		digest = r.tags[repository+":"+reference]
	}

	m, ok := r.manifests[repository+"@"+digest]
	if !ok {
		writeError(w, http.StatusNotFound, "MANIFEST_UNKNOWN")
		return
	}

	w.Header().Set("Content-Type", m.mediaType)
	w.Header().Set("Docker-Content-Digest", digest)
	w.Header().Set("Content-Length", strconv.Itoa(len(m.data)))
	w.WriteHeader(http.StatusOK)
	if req.Method == http.MethodGet {
		_, _ = w.Write(m.data)
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"errors": []map[string]string{{"code": code, "message": strings.ToLower(code)}},
	})
}
