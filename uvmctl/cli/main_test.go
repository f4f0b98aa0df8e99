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

package cli

import (
	"bytes"
	"regexp"
	"testing"
	"time"

	"gvisor.dev/uvm/pkg/log"
)

func TestNewEmitter(t *testing.T) {
	ts := time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)
	for _, tc := range []struct {
		format string
		want   *regexp.Regexp
	}{
		{
			format: "text",
			want:   regexp.MustCompile(`^I0102 03:04:05\.000000 +\d+ main_test\.go:\d+\] frames 4096\n$`),
		},
		{
			format: "json",
			want:   regexp.MustCompile(`^\{"msg":"frames 4096","level":"info","time":"[^"]+","caller":"main_test\.go:\d+"\}\n$`),
		},
	} {
		t.Run(tc.format, func(t *testing.T) {
			var buf bytes.Buffer
			newEmitter(tc.format, &buf).Emit(0, log.Info, ts, "frames %d", 4096)
			if !tc.want.Match(buf.Bytes()) {
				t.Errorf("%s emitter wrote %q, want match for %v", tc.format, buf.String(), tc.want)
			}
		})
	}
}
