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

// Package util groups a bunch of common helper functions used by commands.
package util

import (
	"fmt"
	"io"
	"os"
	"time"

	"gvisor.dev/uvm/pkg/log"
)

// ErrorLogger is where error messages should be written to. These messages are
// consumed by the user; the debug log may be discarded.
var ErrorLogger io.Writer = os.Stderr

// Errorf logs error to the debug log and to ErrorLogger, without exiting.
func Errorf(format string, args ...any) {
	log.Warningf("ERROR: "+format, args...)
	writeError(format, args...)
}

// Fatalf logs the same way as Errorf, then exits with status 128.
func Fatalf(format string, args ...any) {
	log.Warningf("FATAL ERROR: "+format, args...)
	writeError(format, args...)
	os.Exit(128)
}

func writeError(format string, args ...any) {
	if ErrorLogger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(ErrorLogger, "%s %s\n", time.Now().Format(time.RFC3339), msg)
}
