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

package main

import (
	"bytes"
	goimage "image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"d7y.io/gravatar"
	"d7y.io/gravatar/pkg/avatar"
)

const testEmail = "beau@dentedreality.com.au"

// resetFlags restores the package level flag values after a test.
func resetFlags(t *testing.T) {
	t.Helper()

	t.Cleanup(func() {
		config = gravatar.Config{}
		size, rating, defaultImage, forceDefault = 0, "", "", false
		outputPath, forceRefresh = "", false
		token, email, selectUpload = "", "", false
	})
}

func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	return cmd, &out
}

func newAvatarServer(t *testing.T) *httptest.Server {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, goimage.NewGray(goimage.Rect(0, 0, 4, 4))))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
	t.Cleanup(server.Close)
	return server
}

func TestParseIdentifier(t *testing.T) {
	hash := avatar.HashEmail(testEmail)

	assert.Equal(t, hash, parseIdentifier(testEmail).Hash())
	assert.Equal(t, hash, parseIdentifier(hash).Hash())
	assert.Equal(t, hash, parseIdentifier(strings.ToUpper(hash)).Hash())
	assert.Equal(t, hash, parseIdentifier("https://gravatar.com/avatar/"+hash+"?s=80").Hash())
	assert.Equal(t, "00000000000000000000000000000000", parseIdentifier(strings.Repeat("0", 32)).Hash())
}

func TestRunURL(t *testing.T) {
	resetFlags(t)
	size, defaultImage = 80, string(avatar.DefaultImageIdenticon)

	cmd, out := newTestCommand()
	require.NoError(t, runURL(cmd, []string{testEmail}))
	assert.Equal(t, "https://gravatar.com/avatar/"+avatar.HashEmail(testEmail)+"?d=identicon&s=80\n", out.String())

	size = avatar.MaxSize + 1
	assert.ErrorIs(t, runURL(cmd, []string{testEmail}), avatar.ErrInvalidSize)
}

func TestRunAvatar(t *testing.T) {
	resetFlags(t)
	server := newAvatarServer(t)

	t.Run("without cache", func(t *testing.T) {
		config = gravatar.Config{AvatarBaseURL: server.URL + "/avatar"}
		outputPath = filepath.Join(t.TempDir(), "out", "avatar.png")

		cmd, out := newTestCommand()
		require.NoError(t, runAvatar(cmd, []string{testEmail}))
		assert.Contains(t, out.String(), "4x4 image/png (network)")

		_, err := os.Stat(outputPath)
		assert.NoError(t, err)
	})

	t.Run("with cache", func(t *testing.T) {
		config = gravatar.Config{
			AvatarBaseURL: server.URL + "/avatar",
			Cache:         gravatar.Cache{RootDir: t.TempDir(), GC: gravatar.GC{Disabled: true}},
		}
		outputPath = filepath.Join(t.TempDir(), "avatar.png")

		cmd, _ := newTestCommand()
		require.NoError(t, runAvatar(cmd, []string{testEmail}))

		// The second run is served from the persistent cache.
		cmd, out := newTestCommand()
		require.NoError(t, runAvatar(cmd, []string{testEmail}))
		assert.Contains(t, out.String(), "(disk)")

		_, err := os.Stat(outputPath)
		assert.NoError(t, err)
	})
}

func TestRunSelect_MissingEmail(t *testing.T) {
	resetFlags(t)

	cmd, _ := newTestCommand()
	assert.ErrorIs(t, runSelect(cmd, []string{"img-1"}), errMissingEmail)

	selectUpload = true
	assert.ErrorIs(t, runUpload(cmd, []string{"avatar.png"}), errMissingEmail)
}

func TestRunCache_Disabled(t *testing.T) {
	resetFlags(t)

	cmd, _ := newTestCommand()
	assert.ErrorIs(t, runCacheSnapshot(cmd, []string{"avatars", "v1"}), gravatar.ErrCacheDisabled)
	assert.ErrorIs(t, runCacheRestore(cmd, []string{"avatars", "v1"}), gravatar.ErrCacheDisabled)
}

func TestRootCmd(t *testing.T) {
	resetFlags(t)
	clearConfigEnv(t)
	t.Cleanup(func() {
		apiKey, rootDir, configPath = "", "", ""
		rootCmd.SetArgs(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"url", "--size", "40", "--api-key", "flag-key", testEmail})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "https://gravatar.com/avatar/"+avatar.HashEmail(testEmail)+"?s=40\n", out.String())
	assert.Equal(t, "flag-key", config.APIKey)
}
