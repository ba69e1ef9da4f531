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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"d7y.io/gravatar/pkg/avatar"
	"d7y.io/gravatar/pkg/image"
)

var (
	// Avatar query flags.
	size         int
	rating       string
	defaultImage string
	forceDefault bool

	// Avatar fetch flags.
	outputPath   string
	forceRefresh bool
)

// urlCmd prints the avatar URL of an email or hash.
var urlCmd = &cobra.Command{
	Use:   "url EMAIL|HASH",
	Short: "Print the avatar URL of an email or hash",
	Args:  cobra.ExactArgs(1),
	RunE:  runURL,
}

// avatarCmd downloads an avatar.
var avatarCmd = &cobra.Command{
	Use:   "avatar EMAIL|HASH",
	Short: "Download an avatar",
	Long: `Download an avatar through the memory and persistent caches.

With --root-dir the avatar is kept in the persistent cache and linked to
--output, otherwise the downloaded bytes are written to --output.`,
	Args: cobra.ExactArgs(1),
	RunE: runAvatar,
}

// profileCmd prints a public profile.
var profileCmd = &cobra.Command{
	Use:   "profile EMAIL|HASH",
	Short: "Print the public profile of an email or hash as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfile,
}

func init() {
	for _, cmd := range []*cobra.Command{urlCmd, avatarCmd} {
		cmd.Flags().IntVarP(&size, "size", "s", 0, "Avatar size in pixels (1-2048)")
		cmd.Flags().StringVarP(&rating, "rating", "r", "", "Highest allowed rating (g, pg, r, x)")
		cmd.Flags().StringVarP(&defaultImage, "default", "d", "", "Default image (404, mp, identicon, monsterid, wavatar, retro, robohash, blank or a URL)")
		cmd.Flags().BoolVar(&forceDefault, "force-default", false, "Always serve the default image")
	}

	avatarCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (required)")
	avatarCmd.Flags().BoolVar(&forceRefresh, "force", false, "Bypass the caches")
	_ = avatarCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(urlCmd)
	rootCmd.AddCommand(avatarCmd)
	rootCmd.AddCommand(profileCmd)
}

// parseIdentifier accepts an email or an avatar hash.
func parseIdentifier(arg string) avatar.Identifier {
	if u, err := avatar.Parse(arg); err == nil {
		return avatar.Hash(u.Hash)
	}

	if isHash(arg) {
		return avatar.Hash(arg)
	}

	return avatar.Email(arg)
}

// isHash accepts MD5 and SHA-256 hex digests.
func isHash(s string) bool {
	if len(s) != 32 && len(s) != 64 {
		return false
	}

	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}

	return true
}

// queryOptions builds the avatar query from the flags.
func queryOptions() avatar.QueryOptions {
	return avatar.QueryOptions{
		Size:         size,
		Rating:       avatar.Rating(rating),
		DefaultImage: avatar.DefaultImage(defaultImage),
		ForceDefault: forceDefault,
	}
}

func runURL(cmd *cobra.Command, args []string) error {
	g, err := newClient()
	if err != nil {
		return err
	}
	defer g.Close()

	u, err := g.AvatarURL(parseIdentifier(args[0]), queryOptions())
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), u.String())
	return nil
}

func runAvatar(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	g, err := newClient()
	if err != nil {
		return err
	}
	defer g.Close()

	u, err := g.AvatarURL(parseIdentifier(args[0]), queryOptions())
	if err != nil {
		return err
	}

	var fetchOpts []image.FetchOption
	if forceRefresh {
		fetchOpts = append(fetchOpts, image.WithForceRefresh())
	}

	res, err := g.FetchImage(ctx, u, fetchOpts...)
	if err != nil {
		return err
	}

	if config.Cache.RootDir != "" {
		if err := g.ExportAvatar(ctx, u, outputPath); err != nil {
			return err
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		if err := os.WriteFile(outputPath, res.Image.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write avatar: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %dx%d %s (%s)\n", outputPath, res.Image.Width, res.Image.Height, res.Image.ContentType, res.Source)
	return nil
}

func runProfile(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	g, err := newClient()
	if err != nil {
		return err
	}
	defer g.Close()

	profile, err := g.FetchProfile(ctx, parseIdentifier(args[0]))
	if err != nil {
		return err
	}

	return printJSON(cmd, profile)
}

// printJSON writes v as indented JSON to the command output.
func printJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
