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

// Package cor (Chain of Responsibility) is the workflow framework the
// pipeline stages run on. A workflow is a Chain of Commands sharing one
// Context; the chain pipes each command's primary output into the next
// command's primary input and stops, by default, at the first error.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// CtxIn is the default key a command reads its primary input from. The
	// chain populates it with the previous command's output.
	CtxIn = "__IN__"
	// CtxOut is the default key a command writes its primary output to.
	CtxOut = "__OUT__"
)

// Context is the shared state for one workflow execution: a property bag for
// data flowing between commands, the collected errors, and the Go context
// carrying cancellation and trace information.
type Context interface {
	SetContext(context context.Context)
	GetContext() context.Context

	// Add stores a value for later commands. Returns the Context so calls
	// can be chained.
	Add(key string, value interface{}) Context
	Get(key string) interface{}
	Remove(key string)

	// AddError records a command failure, keyed by the command name.
	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool

	// AddTempFile registers a file to be deleted when the context closes.
	AddTempFile(file string)
	GetTempFiles() []string

	// Close removes all registered temporary files. Defer it at the start
	// of a workflow run.
	Close()
}

// Executable is anything with a single unit of execution logic.
type Executable interface {
	Execute(context Context)
}

// Command is an atomic, reusable unit of work within a chain.
type Command interface {
	Executable

	GetName() string

	// GetInputParam and GetOutputParam name the context keys this command
	// reads from and writes to.
	GetInputParam() string
	GetOutputParam() string

	// IsExecutable is the precondition check the chain runs before Execute.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is an ordered sequence of commands. A Chain is itself a Command, so
// chains nest.
type Chain interface {
	Command

	// ContinueOnFailure controls whether later commands still run once an
	// earlier one has recorded an error.
	ContinueOnFailure(bool) Chain

	AddCommand(command Command) Chain
}
