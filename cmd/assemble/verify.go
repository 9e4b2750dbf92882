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

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/probe"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/process"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Check a video against the compatibility profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		pipeline := config.PipelineConfig()
		verifier := verify.NewVerifier(probe.NewFFProbe(process.NewExecRunner(), pipeline.FFprobePath))

		report := verifier.Verify(cmd.Context(), args[0], config.Profile)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		if !report.Passed {
			return fmt.Errorf("%d compatibility violations", len(report.Violations))
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that ffmpeg and ffprobe are installed",
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		pipeline := config.PipelineConfig()
		if err := process.CheckBinaries(pipeline.FFmpegPath, pipeline.FFprobePath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ffmpeg: %s\nffprobe: %s\n", pipeline.FFmpegPath, pipeline.FFprobePath)
		return nil
	},
}
