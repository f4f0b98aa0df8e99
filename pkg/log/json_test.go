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

package log

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLevelUnmarshal(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: `"warning"`, want: Warning},
		{in: `"info"`, want: Info},
		{in: `"debug"`, want: Debug},
		{in: "0", want: Warning},
		{in: "2", want: Debug},
		{in: `"trace"`, wantErr: true},
		{in: "3", wantErr: true},
	} {
		var got Level
		err := got.UnmarshalJSON([]byte(tc.in))
		if (err != nil) != tc.wantErr {
			t.Errorf("UnmarshalJSON(%s) = %v, want error %t", tc.in, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("UnmarshalJSON(%s) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := Level(7).MarshalJSON(); err == nil {
		t.Errorf("MarshalJSON of an unknown level succeeded")
	}
}

func TestJSONEmitter(t *testing.T) {
	tw := &testWriter{}
	e := JSONEmitter{Writer: &Writer{Next: tw}}
	e.Emit(0, Info, time.Unix(0, 0).UTC(), "sbrk(%d)", 4096)
	e.Emit(0, Warning, time.Unix(1, 0).UTC(), "munmap(%#x, %d) failed", 0x1000, 4096)

	// The Writer terminates each object with a separate newline write.
	lines := strings.Split(strings.TrimSuffix(strings.Join(tw.lines, ""), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), lines)
	}
	for i, want := range []struct {
		msg   string
		level Level
	}{
		{"sbrk(4096)", Info},
		{"munmap(0x1000, 4096) failed", Warning},
	} {
		var got jsonLog
		if err := json.Unmarshal([]byte(lines[i]), &got); err != nil {
			t.Fatalf("json.Unmarshal(%q) failed: %v", lines[i], err)
		}
		if got.Msg != want.msg || got.Level != want.level {
			t.Errorf("line %d: got (%q, %v), want (%q, %v)", i, got.Msg, got.Level, want.msg, want.level)
		}
		if !strings.HasPrefix(got.Caller, "json_test.go:") {
			t.Errorf("line %d: caller got %q, want json_test.go:<line>", i, got.Caller)
		}
	}
}
