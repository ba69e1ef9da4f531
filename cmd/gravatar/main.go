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
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"d7y.io/gravatar"
)

var (
	// Global flags.
	configPath string
	apiKey     string
	rootDir    string
	verbose    bool
	timeout    time.Duration

	// config is the resolved configuration of the current invocation.
	config gravatar.Config
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "gravatar",
	Short: "Gravatar avatars and profiles from the command line",
	Long: `gravatar builds avatar URLs, fetches avatars through a persistent cache,
reads public profiles and manages the avatars of an account.

Configuration is read from .env, the --config YAML file and GRAVATAR_*
environment variables, in that order, and flags override all of them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		applyFlags(cmd, &cfg)
		config = cfg
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gravatar API key (or set GRAVATAR_API_KEY env)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root-dir", "", "Persistent cache directory (or set GRAVATAR_ROOT_DIR env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "Operation timeout")
}

// applyFlags overrides cfg with the flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *gravatar.Config) {
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = apiKey
	}

	if cmd.Flags().Changed("root-dir") {
		cfg.Cache.RootDir = rootDir
	}
}

// newClient creates a client for a single command.
func newClient() (gravatar.Gravatar, error) {
	g, err := gravatar.NewGravatar(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create gravatar client: %w", err)
	}

	return g, nil
}

// commandContext bounds a command by the --timeout flag.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
