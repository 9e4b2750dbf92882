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

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/render"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error    string               `json:"error"`
	ExitCode *int                 `json:"exit_code,omitempty"`
	Stderr   string               `json:"stderr,omitempty"`
	Result   *model.RenderResult  `json:"result,omitempty"`
}

// RenderRouter registers POST /renders.
func RenderRouter(r *gin.RouterGroup, h *Handlers) {
	r.POST("/renders", func(c *gin.Context) {
		var req model.RenderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}

		result, err := h.Runner.Run(c.Request.Context(), &req)
		if err != nil {
			status, body := renderFailure(err)
			body.Result = result
			slog.ErrorContext(c.Request.Context(), "render request failed", "status", status, "error", err)
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

// renderFailure maps a run error to an HTTP status.
func renderFailure(err error) (int, ErrorResponse) {
	var renderErr *render.RenderError
	switch {
	case errors.As(err, &renderErr):
		code := renderErr.ExitCode
		return http.StatusBadGateway, ErrorResponse{Error: err.Error(), ExitCode: &code, Stderr: renderErr.Stderr}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()}
	case errors.Is(err, model.ErrMissingAudio),
		errors.Is(err, model.ErrSegmentTimes),
		errors.Is(err, model.ErrSegmentNaN):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: err.Error()}
	}
}

// ProviderRouter registers the provider routes.
func ProviderRouter(r *gin.RouterGroup, h *Handlers) {
	providers := r.Group("/providers")
	{
		providers.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, h.Providers.Configs())
		})
		providers.GET("/usage", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"usage":  h.Providers.UsageStats(),
				"health": h.Providers.Health(),
			})
		})
		providers.POST("/reload", func(c *gin.Context) {
			configs, err := h.Providers.Reload(c.Request.Context())
			if err != nil {
				c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
				return
			}
			c.JSON(http.StatusOK, configs)
		})
	}
}

// VerifyRequest names the file to verify.
type VerifyRequest struct {
	Path string `json:"path" binding:"required"`
}

// VerifyRouter registers POST /verify.
func VerifyRouter(r *gin.RouterGroup, h *Handlers) {
	r.POST("/verify", func(c *gin.Context) {
		var req VerifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, h.Verifier.Verify(c.Request.Context(), req.Path, h.Profile))
	})
}

// Stats summarises provider usage.
type Stats struct {
	Providers   int     `json:"providers"`
	Eligible    int     `json:"eligible"`
	Attempts    int64   `json:"attempts"`
	Successes   int64   `json:"successes"`
	SuccessRate float64 `json:"success_rate"`
}

// Dashboard registers GET /stats.
func Dashboard(r *gin.RouterGroup, h *Handlers) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			var out Stats
			for _, p := range h.Providers.Health() {
				out.Providers++
				if p.CredentialPresent {
					out.Eligible++
				}
				out.Attempts += p.Attempts
				out.Successes += p.Successes
			}
			if out.Attempts > 0 {
				out.SuccessRate = float64(out.Successes) / float64(out.Attempts)
			}
			c.JSON(http.StatusOK, out)
		})
	}
}
