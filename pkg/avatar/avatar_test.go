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

package avatar

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHash = "a919f0e9932ec2c866cf67ec327efb57b47ff3085acd375529af076d1ac56f27"

func TestHashEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
	}{
		{name: "plain", email: "beau@dentedreality.com.au"},
		{name: "mixed case", email: "Beau@DentedReality.com.au"},
		{name: "surrounding whitespace", email: "  beau@dentedreality.com.au \n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, testHash, HashEmail(tc.email))
		})
	}
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, testHash, Email("Beau@DentedReality.com.au").Hash())
	assert.Equal(t, testHash, Hash(strings.ToUpper(testHash)).Hash())
	assert.Equal(t, testHash, Hash(testHash).String())
	assert.Empty(t, Email("   ").Hash())
	assert.Empty(t, Identifier{}.Hash())
}

func TestURL(t *testing.T) {
	tests := []struct {
		name    string
		id      Identifier
		opts    QueryOptions
		want    string
		wantErr error
	}{
		{
			name: "no options",
			id:   Hash(testHash),
			want: "https://gravatar.com/avatar/" + testHash,
		},
		{
			name: "all options",
			id:   Email("beau@dentedreality.com.au"),
			opts: QueryOptions{Size: 120, Rating: RatingPG, DefaultImage: DefaultImageIdenticon, ForceDefault: true},
			want: "https://gravatar.com/avatar/" + testHash + "?d=identicon&f=y&r=pg&s=120",
		},
		{
			name: "default image 404",
			id:   Hash(testHash),
			opts: QueryOptions{DefaultImage: DefaultImageNotFound},
			want: "https://gravatar.com/avatar/" + testHash + "?d=404",
		},
		{
			name: "custom default image is escaped",
			id:   Hash(testHash),
			opts: QueryOptions{DefaultImage: CustomDefaultImage(&url.URL{Scheme: "https", Host: "example.com", Path: "/a.png"})},
			want: "https://gravatar.com/avatar/" + testHash + "?d=https%3A%2F%2Fexample.com%2Fa.png",
		},
		{
			name:    "empty identifier",
			id:      Email(""),
			wantErr: ErrEmptyIdentifier,
		},
		{
			name: "md5 hash",
			id:   Hash("0BC83CB571CD1C50BA6F3E8A78EF1346"),
			want: "https://gravatar.com/avatar/0bc83cb571cd1c50ba6f3e8a78ef1346",
		},
		{
			name:    "path traversal",
			id:      Hash("../x"),
			wantErr: ErrInvalidHash,
		},
		{
			name:    "not hex",
			id:      Hash(strings.Repeat("z", 64)),
			wantErr: ErrInvalidHash,
		},
		{
			name:    "size too large",
			id:      Hash(testHash),
			opts:    QueryOptions{Size: MaxSize + 1},
			wantErr: ErrInvalidSize,
		},
		{
			name:    "negative size",
			id:      Hash(testHash),
			opts:    QueryOptions{Size: -1},
			wantErr: ErrInvalidSize,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u, err := URL(tc.id, tc.opts)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, u.String())
		})
	}
}

func TestURL_DefaultBaseURL(t *testing.T) {
	u, err := URL(Hash(testHash), QueryOptions{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u.String(), DefaultBaseURL+"/"))
}

func TestBuilder(t *testing.T) {
	b, err := NewBuilder("http://127.0.0.1:8080/custom/avatar/")
	require.NoError(t, err)

	u, err := b.URL(Hash(testHash), QueryOptions{Size: 64})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/custom/avatar/"+testHash+"?s=64", u.String())

	_, err = NewBuilder("ftp://gravatar.com/avatar")
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	t.Run("with options", func(t *testing.T) {
		a, err := Parse("https://www.gravatar.com/avatar/" + strings.ToUpper(testHash) + ".png?size=80&rating=X&d=mp&forcedefault=y")
		require.NoError(t, err)
		assert.Equal(t, testHash, a.Hash)
		assert.Equal(t, QueryOptions{Size: 80, Rating: RatingX, DefaultImage: DefaultImageMysteryPerson, ForceDefault: true}, a.Options)
		assert.Equal(t, "https://www.gravatar.com/avatar/"+testHash, a.Canonical().String())
		assert.Equal(t, "https://www.gravatar.com/avatar/"+testHash+"?d=mp&f=y&r=x&s=80", a.URL().String())
	})

	t.Run("md5 hash", func(t *testing.T) {
		a, err := Parse("https://secure.gravatar.com/avatar/205e460b479e2e5b48aec07710c08d50")
		require.NoError(t, err)
		assert.Equal(t, "205e460b479e2e5b48aec07710c08d50", a.Hash)
		assert.Equal(t, QueryOptions{}, a.Options)
	})

	t.Run("with options replaced", func(t *testing.T) {
		a, err := Parse("https://gravatar.com/avatar/" + testHash + "?s=80")
		require.NoError(t, err)

		u, err := a.WithOptions(QueryOptions{Size: 200})
		require.NoError(t, err)
		assert.Equal(t, "https://gravatar.com/avatar/"+testHash+"?s=200", u.String())

		_, err = a.WithOptions(QueryOptions{Size: 5000})
		assert.ErrorIs(t, err, ErrInvalidSize)
	})

	for _, raw := range []string{
		"https://example.com/avatar/" + testHash,
		"https://gravatar.com/profile/" + testHash,
		"https://gravatar.com/avatar/not-a-hash",
		"https://gravatar.com/avatar/",
		"ftp://gravatar.com/avatar/" + testHash,
		"https://notgravatar.com/avatar/" + testHash,
		"://bad",
	} {
		t.Run("rejects "+raw, func(t *testing.T) {
			_, err := Parse(raw)
			assert.ErrorIs(t, err, ErrNotAvatarURL)
		})
	}
}
