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
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/process"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/workflow"
)

var renderOpts struct {
	segments   string
	audio      string
	duration   float64
	out        string
	runID      string
	remediate  bool
	publish    bool
	keepAssets bool
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Assemble a short from segments and narration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		if renderOpts.out != "" {
			config.Pipeline.OutputDir = renderOpts.out
		}
		if renderOpts.keepAssets {
			config.Pipeline.KeepAssets = true
		}

		req := &model.RenderRequest{
			RunID:         renderOpts.runID,
			AudioPath:     renderOpts.audio,
			AudioDuration: renderOpts.duration,
			Remediate:     renderOpts.remediate,
			Publish:       renderOpts.publish,
		}
		if renderOpts.segments != "" {
			doc, err := LoadSegmentFile(renderOpts.segments)
			if err != nil {
				return err
			}
			req.Segments = doc.Segments
			if req.AudioPath == "" {
				req.AudioPath = doc.AudioPath
			}
			if req.AudioDuration == 0 {
				req.AudioDuration = doc.AudioDuration
			}
		}
		if err := req.Validate(); err != nil {
			return err
		}

		ctx := cmd.Context()
		clients, err := cloud.NewCloudServiceClients(ctx, config)
		if err != nil {
			return err
		}
		defer clients.Close()

		engine, err := workflow.NewEngine(config, clients, process.NewExecRunner(), nil)
		if err != nil {
			return err
		}

		result, runErr := engine.Workflow.Run(ctx, req)
		if result != nil {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return errors.Join(runErr, err)
			}
		}
		if runErr != nil {
			return runErr
		}
		if !result.Report.Passed {
			return fmt.Errorf("%s is not compatible: %v", result.ArtifactPath, result.Report.Messages())
		}
		return nil
	},
}

func init() {
	f := renderCmd.Flags()
	f.StringVarP(&renderOpts.segments, "segments", "s", "", "segment file (.json or .yaml)")
	f.StringVarP(&renderOpts.audio, "audio", "a", "", "narration audio file")
	f.Float64Var(&renderOpts.duration, "duration", 0, "audio duration in seconds; probed when 0")
	f.StringVarP(&renderOpts.out, "out", "o", "", "output directory")
	f.StringVar(&renderOpts.runID, "run-id", "", "run identifier; generated when empty")
	f.BoolVar(&renderOpts.remediate, "remediate", false, "re-encode an incompatible result")
	f.BoolVar(&renderOpts.publish, "publish", false, "publish the artifact after verification")
	f.BoolVar(&renderOpts.keepAssets, "keep-assets", false, "keep generated images after the run")
}
