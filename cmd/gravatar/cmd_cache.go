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
	"fmt"

	"github.com/spf13/cobra"
)

// cacheCmd is the parent command for persistent cache management.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persistent avatar cache",
	Long: `Move the persistent avatar cache through an OCI registry.

Available subcommands:
  snapshot - Push the cache as NAME:VERSION
  restore  - Pull NAME:VERSION into the cache`,
}

// cacheSnapshotCmd pushes the cache to the registry.
var cacheSnapshotCmd = &cobra.Command{
	Use:   "snapshot NAME VERSION",
	Short: "Push the persistent cache to the registry",
	Args:  cobra.ExactArgs(2),
	RunE:  runCacheSnapshot,
}

// cacheRestoreCmd pulls a snapshot from the registry.
var cacheRestoreCmd = &cobra.Command{
	Use:   "restore NAME VERSION",
	Short: "Pull a cache snapshot from the registry",
	Args:  cobra.ExactArgs(2),
	RunE:  runCacheRestore,
}

func init() {
	cacheCmd.AddCommand(cacheSnapshotCmd)
	cacheCmd.AddCommand(cacheRestoreCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheSnapshot(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	g, err := newClient()
	if err != nil {
		return err
	}
	defer g.Close()

	if err := g.SnapshotCache(ctx, args[0], args[1]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "pushed %s:%s\n", args[0], args[1])
	return nil
}

func runCacheRestore(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	g, err := newClient()
	if err != nil {
		return err
	}
	defer g.Close()

	if err := g.RestoreCache(ctx, args[0], args[1]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "restored %s:%s\n", args[0], args[1])
	return nil
}
