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
package oci

import (
	"github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

const (
	// ArtifactTypeCacheManifest specifies the artifact type of an avatar cache snapshot.
	ArtifactTypeCacheManifest = "application/vnd.d7y.gravatar.cache.manifest.v1+json"

	// MediaTypeCacheConfig specifies the media type of the snapshot index.
	MediaTypeCacheConfig = "application/vnd.d7y.gravatar.cache.config.v1+json"

	// MediaTypeCacheContent specifies the media type of a cached image blob.
	MediaTypeCacheContent = "application/vnd.d7y.gravatar.cache.content.v1"

	// AnnotationContentDigest records the local content digest of a layer.
	AnnotationContentDigest = "io.d7y.gravatar.content.digest"
)

// ContentDescriptor annotates a pushed image blob with its local content digest.
func ContentDescriptor(blob ocispec.Descriptor, contentDigest string) ocispec.Descriptor {
	blob.MediaType = MediaTypeCacheContent
	blob.Annotations = map[string]string{
		AnnotationContentDigest: contentDigest,
	}

	return blob
}

// BuildManifest builds the snapshot manifest from the pushed config and content layers.
func BuildManifest(config ocispec.Descriptor, layers []ocispec.Descriptor) ocispec.Manifest {
	if layers == nil {
		layers = []ocispec.Descriptor{}
	}

	return ocispec.Manifest{
		Versioned: specs.Versioned{
			SchemaVersion: 2,
		},
		MediaType:    ocispec.MediaTypeImageManifest,
		ArtifactType: ArtifactTypeCacheManifest,
		Config:       config,
		Layers:       layers,
	}
}
