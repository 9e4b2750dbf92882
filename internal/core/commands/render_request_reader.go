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

package commands

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// RenderRequestReader is the first stage of the chain. It accepts the raw
// JSON of a render request (from Pub/Sub or the API) or an already decoded
// *model.RenderRequest, assigns a run ID when none is set and validates it.
type RenderRequestReader struct {
	cor.BaseCommand
}

// NewRenderRequestReader reads from CtxIn and writes ParamRequest.
func NewRenderRequestReader(name string) *RenderRequestReader {
	return &RenderRequestReader{BaseCommand: *cor.NewBaseCommandWithParams(name, cor.CtxIn, ParamRequest)}
}

func (c *RenderRequestReader) Execute(context cor.Context) {
	var req *model.RenderRequest
	switch in := context.Get(c.GetInputParam()).(type) {
	case *model.RenderRequest:
		cp := *in
		req = &cp
	case string:
		req = &model.RenderRequest{}
		if err := json.Unmarshal([]byte(in), req); err != nil {
			c.Fail(context, fmt.Errorf("failed to unmarshal render request: %w", err))
			return
		}
	case []byte:
		req = &model.RenderRequest{}
		if err := json.Unmarshal(in, req); err != nil {
			c.Fail(context, fmt.Errorf("failed to unmarshal render request: %w", err))
			return
		}
	default:
		c.Fail(context, fmt.Errorf("unsupported render request input %T", in))
		return
	}

	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	if err := req.Validate(); err != nil {
		c.Fail(context, fmt.Errorf("invalid render request %s: %w", req.RunID, err))
		return
	}
	c.Succeed(context, req)
}
