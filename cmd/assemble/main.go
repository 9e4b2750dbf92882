// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main is the one-shot command line front end of the assembly engine.
//
// Commands:
//   - render: Assemble a short from a segment file and a narration track.
//   - verify: Check an existing file against the compatibility profile.
//   - check: Verify that ffmpeg and ffprobe can be found.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/telemetry"
)

var (
	configDir  string
	runtimeEnv string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "assemble",
	Short:         "Assemble narrated vertical shorts",
	Long:          "Generate one image per narration segment with provider failover, stitch them with crossfades over the audio and verify the result plays on mobile.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		_, err := telemetry.SetupLogging(telemetry.LoggingOptions{Level: level, Stdout: cmd.ErrOrStderr()})
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "configs", "directory holding the .env TOML files")
	rootCmd.PersistentFlags().StringVar(&runtimeEnv, "runtime", "local", "configuration runtime overriding the base file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(renderCmd, verifyCmd, checkCmd)
}

// loadConfig reads the layered configuration selected by the global flags.
func loadConfig() (*cloud.Config, error) {
	if err := os.Setenv(cloud.EnvConfigFilePrefix, configDir); err != nil {
		return nil, err
	}
	if err := os.Setenv(cloud.EnvConfigRuntime, runtimeEnv); err != nil {
		return nil, err
	}
	if err := cloud.LoadEnv(); err != nil {
		return nil, err
	}
	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
