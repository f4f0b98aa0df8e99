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

package kernel

import (
	"gvisor.dev/uvm/pkg/log"
)

// Debugf creates a debug log that includes the task ID.
func (t *Task) Debugf(fmt string, v ...any) {
	if log.IsLogging(log.Debug) {
		log.Log().DebugfAtDepth(1, t.logPrefix+fmt, v...)
	}
}

// Infof logs at the info level (including the task ID).
func (t *Task) Infof(fmt string, v ...any) {
	if log.IsLogging(log.Info) {
		log.Log().InfofAtDepth(1, t.logPrefix+fmt, v...)
	}
}

// Warningf logs a warning string (including the task ID).
func (t *Task) Warningf(fmt string, v ...any) {
	if log.IsLogging(log.Warning) {
		log.Log().WarningfAtDepth(1, t.logPrefix+fmt, v...)
	}
}

// IsLogging returns true iff this level is being logged.
func (t *Task) IsLogging(level log.Level) bool {
	return log.IsLogging(level)
}
