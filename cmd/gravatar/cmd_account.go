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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"d7y.io/gravatar/pkg/api"
	"d7y.io/gravatar/pkg/avatar"
)

var (
	// Account flags.
	token        string
	email        string
	selectUpload bool
)

// errMissingEmail is returned by account commands without --email.
var errMissingEmail = errors.New("--email is required")

// associatedCmd checks whether an email belongs to the account.
var associatedCmd = &cobra.Command{
	Use:   "associated EMAIL",
	Short: "Check whether an email belongs to the account of --token",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssociated,
}

// avatarsCmd lists the avatars of the account.
var avatarsCmd = &cobra.Command{
	Use:   "avatars",
	Short: "List the avatars of the account of --token as JSON",
	Args:  cobra.NoArgs,
	RunE:  runAvatars,
}

// uploadCmd uploads an avatar.
var uploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Upload an image to the account of --token",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

// selectCmd selects an avatar for an email.
var selectCmd = &cobra.Command{
	Use:   "select IMAGE_ID",
	Short: "Make an uploaded image the avatar of --email",
	Args:  cobra.ExactArgs(1),
	RunE:  runSelect,
}

func init() {
	for _, cmd := range []*cobra.Command{associatedCmd, avatarsCmd, uploadCmd, selectCmd} {
		cmd.Flags().StringVarP(&token, "token", "t", os.Getenv(envToken), "OAuth access token (or set GRAVATAR_TOKEN env)")
	}

	for _, cmd := range []*cobra.Command{avatarsCmd, uploadCmd, selectCmd} {
		cmd.Flags().StringVarP(&email, "email", "e", "", "Email the avatar belongs to")
	}

	uploadCmd.Flags().BoolVar(&selectUpload, "select", false, "Make the uploaded image the avatar of --email")

	rootCmd.AddCommand(associatedCmd)
	rootCmd.AddCommand(avatarsCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(selectCmd)
}

func runAssociated(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	g, err := newClient()
	if err != nil {
		return err
	}
	defer g.Close()

	associated, err := g.CheckAssociatedEmail(ctx, token, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), associated)
	return nil
}

func runAvatars(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	g, err := newClient()
	if err != nil {
		return err
	}
	defer g.Close()

	avatars, err := g.ListAvatars(ctx, token, email)
	if err != nil {
		return err
	}

	return printJSON(cmd, avatars)
}

func runUpload(cmd *cobra.Command, args []string) error {
	if selectUpload && email == "" {
		return errMissingEmail
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	g, err := newClient()
	if err != nil {
		return err
	}
	defer g.Close()

	req := &api.UploadRequest{
		Token:    token,
		Image:    f,
		Filename: filepath.Base(args[0]),
		Select:   selectUpload,
	}
	if email != "" {
		req.EmailHash = avatar.HashEmail(email)
	}

	uploaded, err := g.UploadAvatar(ctx, req)
	if err != nil {
		return err
	}

	return printJSON(cmd, uploaded)
}

func runSelect(cmd *cobra.Command, args []string) error {
	if email == "" {
		return errMissingEmail
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	g, err := newClient()
	if err != nil {
		return err
	}
	defer g.Close()

	if err := g.SelectAvatar(ctx, token, args[0], email); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "selected %s for %s\n", args[0], email)
	return nil
}
