// Copyright 2018 Google LLC
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
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

// GoogleEmitter is a wrapper that emits logs in a format compatible with
// package github.com/golang/glog:
//
//	Lmmdd hh:mm:ss.uuuuuu pid file:line] msg
//
// The pid is right-aligned to seven columns as glog does.
type GoogleEmitter struct {
	// Emitter is the underlying emitter.
	Emitter
}

// levelChar maps a level to its glog header character.
var levelChar = [...]byte{Warning: 'W', Info: 'I', Debug: 'D'}

// pid is the padded process ID used in every header.
var pid = appendPadded(nil, os.Getpid(), 7, ' ')

// appendPadded appends v in decimal, left-padded with pad to width columns.
func appendPadded(b []byte, v, width int, pad byte) []byte {
	var digits [20]byte
	d := strconv.AppendInt(digits[:0], int64(v), 10)
	for i := len(d); i < width; i++ {
		b = append(b, pad)
	}
	return append(b, d...)
}

// Emit emits the message, google-style.
func (g GoogleEmitter) Emit(depth int, level Level, timestamp time.Time, format string, args ...any) {
	b := make([]byte, 0, 64+len(format))

	c := byte('?')
	if int(level) < len(levelChar) && levelChar[level] != 0 {
		c = levelChar[level]
	}
	b = append(b, c)

	_, month, day := timestamp.Date()
	hour, minute, second := timestamp.Clock()
	b = appendPadded(b, int(month), 2, '0')
	b = appendPadded(b, day, 2, '0')
	b = append(b, ' ')
	b = appendPadded(b, hour, 2, '0')
	b = append(b, ':')
	b = appendPadded(b, minute, 2, '0')
	b = append(b, ':')
	b = appendPadded(b, second, 2, '0')
	b = append(b, '.')
	b = appendPadded(b, timestamp.Nanosecond()/1000, 6, '0')
	b = append(b, ' ')
	b = append(b, pid...)
	b = append(b, ' ')

	// Syscall tracing is guarded by IsLogging(Debug), so runtime.Caller
	// only runs for lines that are emitted.
	if _, file, line, ok := runtime.Caller(depth + 1); ok {
		b = append(b, filepath.Base(file)...)
		b = append(b, ':')
		b = strconv.AppendInt(b, int64(line), 10)
	} else {
		b = append(b, "???:0"...)
	}
	b = append(b, "] "...)
	b = append(b, format...)
	b = append(b, '\n')

	g.Emitter.Emit(depth+1, level, timestamp, string(b), args...)
}
