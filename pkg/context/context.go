// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package context defines an internal context type.
//
// The given Context conforms to the standard Go context, but mandates
// additional methods that are specific to the kernel. For example, the
// Debugf, Infof and Warningf methods will log to the task that issued the
// call rather than the global logger.
package context

import (
	stdcontext "context"

	"gvisor.dev/uvm/pkg/log"
)

// A Context represents a thread of execution (hereafter "goroutine" to reflect
// Go idiosyncrasy). It carries state associated with the goroutine across API
// boundaries.
//
// While Context exists for essentially the same reasons as Go's standard
// context.Context, the standard type represents the state of an operation
// rather than that of a goroutine. This is a critical distinction:
//
//   - Unlike context.Context, which "may be passed to functions running in
//     different goroutines", it is *not safe* to use the same Context in
//     multiple concurrent goroutines.
//
//   - It is *not safe* to retain a Context passed to a function beyond the
//     scope of that function call.
type Context interface {
	stdcontext.Context
	log.Logger
}

// logContext binds a Logger to a standard context.
type logContext struct {
	stdcontext.Context
	log.Logger
}

// WithLogger returns a Context that logs to l and otherwise behaves like
// ctx.
func WithLogger(ctx stdcontext.Context, l log.Logger) Context {
	return logContext{Context: ctx, Logger: l}
}

// WithValue returns a copy of parent in which the value associated with key
// is val.
func WithValue(parent Context, key, val any) Context {
	return logContext{
		Context: stdcontext.WithValue(parent, key, val),
		Logger:  parent,
	}
}

// FromStd wraps a standard context, logging to the global logger.
func FromStd(ctx stdcontext.Context) Context {
	if c, ok := ctx.(Context); ok {
		return c
	}
	return WithLogger(ctx, log.Log())
}

// Background returns an empty context using the default logger.
//
// Background is meant for process entry points and tests. Code running on
// behalf of a task should use a context derived from that task.
func Background() Context {
	return FromStd(stdcontext.Background())
}
