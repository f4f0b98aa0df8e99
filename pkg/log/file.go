// Copyright 2026 The gVisor Authors.
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

package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileOpts contains options for creating a log file.
type FileOpts struct {
	// Command is substituted for %COMMAND% in the log pattern.
	Command string

	// Timestamp is substituted for %TIMESTAMP% in the log pattern. The zero
	// value means time.Now().
	Timestamp time.Time
}

// Build constructs the log file path based on the given pattern.
func (o FileOpts) Build(logPattern string) string {
	ts := o.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	r := strings.NewReplacer(
		"%TIMESTAMP%", fmt.Sprintf("%d", ts.UnixNano()),
		"%COMMAND%", o.Command,
	)
	return r.Replace(logPattern)
}

// OpenFile opens a log file for appending. It uses opts to construct the log
// file path based on the given logPattern. An empty pattern returns a nil
// file and no error.
func OpenFile(logPattern string, opts FileOpts) (*os.File, error) {
	if len(logPattern) == 0 {
		return nil, nil
	}

	// Replace variables in the log pattern.
	logPath := opts.Build(logPattern)

	// Create parent directory if it doesn't exist.
	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0775); err != nil {
		return nil, fmt.Errorf("error creating dir %q: %v", dir, err)
	}

	f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0664)
	if err != nil {
		return nil, fmt.Errorf("error opening file %q: %v", logPath, err)
	}
	return f, nil
}
