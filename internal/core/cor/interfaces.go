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

// Package cor (Chain of Responsibility) provides the building blocks the
// assembly pipeline is made of. Each pipeline stage is a Command; a Chain runs
// commands in order over a shared Context that carries the run's data, the
// errors raised so far and the files owned by the run.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys used to pipe data between commands. After
// every command the chain moves the value at CtxOut to CtxIn.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// MeterName is the instrumentation scope of every pipeline metric.
const MeterName = "github.com/jaycherian/gcp-go-shorts-assembly"

// Context is the state shared by the commands of one run.
type Context interface {
	// SetContext replaces the Go context, typically with one carrying the
	// current span.
	SetContext(context context.Context)
	// GetContext returns the Go context used for cancellation and tracing.
	GetContext() context.Context

	Add(key string, value any) Context
	Get(key string) any
	Remove(key string)

	// AddError records err against the command that raised it.
	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool
	// Err joins every recorded error, or returns nil.
	Err() error

	// AddTempFile registers a file removed by Close unconditionally.
	AddTempFile(file string)
	GetTempFiles() []string
	// AddDiscardOnFailure registers a file removed by Close only when the run
	// has errors.
	AddDiscardOnFailure(file string)

	// Close removes the files owned by the run.
	Close()
}

// Executable is anything that can run against a Context.
type Executable interface {
	Execute(context Context)
}

// Command is a single named stage with its own telemetry.
type Command interface {
	Executable

	GetName() string
	GetInputParam() string
	GetOutputParam() string
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command made of other commands.
type Chain interface {
	Command

	// ContinueOnFailure makes the chain run later commands after an error.
	ContinueOnFailure(bool) Chain
	AddCommand(command Command) Chain
}
