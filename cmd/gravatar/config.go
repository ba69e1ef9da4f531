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
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"d7y.io/gravatar"
)

// envFile is loaded from the working directory when present.
const envFile = ".env"

// Environment variables overriding the configuration file.
const (
	envAPIKey            = "GRAVATAR_API_KEY"
	envUserAgent         = "GRAVATAR_USER_AGENT"
	envRootDir           = "GRAVATAR_ROOT_DIR"
	envToken             = "GRAVATAR_TOKEN"
	envRegistryEndpoint  = "GRAVATAR_REGISTRY_ENDPOINT"
	envRegistryNamespace = "GRAVATAR_REGISTRY_NAMESPACE"
	envRegistryUsername  = "GRAVATAR_REGISTRY_USERNAME"
	envRegistryPassword  = "GRAVATAR_REGISTRY_PASSWORD"
	envRegistryInsecure  = "GRAVATAR_REGISTRY_INSECURE"
)

// loadConfig reads .env, the YAML file at path and the environment.
func loadConfig(path string) (gravatar.Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load env file", "path", envFile, "err", err)
	}

	var cfg gravatar.Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return gravatar.Config{}, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return gravatar.Config{}, fmt.Errorf("failed to parse config file %q: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return gravatar.Config{}, err
	}

	return cfg, nil
}

// applyEnv overrides cfg with the GRAVATAR_* environment variables that are set.
func applyEnv(cfg *gravatar.Config) error {
	overrides := map[string]*string{
		envAPIKey:            &cfg.APIKey,
		envUserAgent:         &cfg.UserAgent,
		envRootDir:           &cfg.Cache.RootDir,
		envRegistryEndpoint:  &cfg.Registry.Endpoint,
		envRegistryNamespace: &cfg.Registry.Namespace,
		envRegistryUsername:  &cfg.Registry.Username,
		envRegistryPassword:  &cfg.Registry.Password,
	}

	for key, field := range overrides {
		if v, ok := os.LookupEnv(key); ok {
			*field = v
		}
	}

	if v, ok := os.LookupEnv(envRegistryInsecure); ok {
		insecure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", envRegistryInsecure, v, err)
		}

		cfg.Registry.Insecure = insecure
	}

	return nil
}
