// Copyright 2020 The gVisor Authors.
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

package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newFlagSet(t *testing.T, args ...string) *flag.FlagSet {
	t.Helper()
	testFlags := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(testFlags)
	if err := testFlags.Parse(args); err != nil {
		t.Fatalf("Parse(%q): %v", args, err)
	}
	return testFlags
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "uvm.toml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	c, err := NewFromFlags(newFlagSet(t))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestFromFlags(t *testing.T) {
	c, err := NewFromFlags(newFlagSet(t,
		"--frames=64",
		"--heap-base=0x20000000",
		"--debug",
		"--log-format=json",
		"--strace",
		"--strace-syscalls=mmap, munmap,",
	))
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		Frames:         64,
		HeapBase:       0x20000000,
		LogFormat:      "json",
		Debug:          true,
		Strace:         true,
		StraceSyscalls: "mmap, munmap,",
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"mmap", "munmap"}, c.StraceSyscallNames()); diff != "" {
		t.Errorf("StraceSyscallNames() mismatch (-want +got):\n%s", diff)
	}
}

func TestFileWithFlagOverride(t *testing.T) {
	path := writeConfig(t, `
frames = 128
heap_base = 0x30000000
debug = true
log = "/tmp/uvm-%COMMAND%.log"
`)
	c, err := NewFromFlags(newFlagSet(t, "--config="+path, "--frames=32"))
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		Frames:      32,
		HeapBase:    0x30000000,
		LogFilename: "/tmp/uvm-%COMMAND%.log",
		LogFormat:   "text",
		Debug:       true,
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		contents string
		want     string
	}{
		{
			name:     "unknown key",
			contents: "frames = 8\nplatform = \"kvm\"\n",
			want:     "unknown keys",
		},
		{
			name:     "wrong type",
			contents: "frames = \"many\"\n",
			want:     "loading config",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.contents))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Load() = %v, want error containing %q", err, tc.want)
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("Load of a missing file succeeded")
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		args []string
	}{
		{"no frames", []string{"--frames=0"}},
		{"misaligned heap", []string{"--heap-base=0x10000010"}},
		{"heap beyond user space", []string{"--heap-base=0x4000000000"}},
		{"log format", []string{"--log-format=json-k8s"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewFromFlags(newFlagSet(t, tc.args...)); err == nil {
				t.Errorf("NewFromFlags(%q) succeeded", tc.args)
			}
		})
	}
}
