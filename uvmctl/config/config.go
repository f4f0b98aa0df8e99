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

// Package config provides basic infrastructure to set configuration settings
// for uvmctl. Each setting can be set from a TOML file and overridden by a
// command line flag of the same name.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"gvisor.dev/uvm/pkg/hostarch"
	"gvisor.dev/uvm/pkg/log"
)

// Config holds configuration that is not part of a scenario.
type Config struct {
	// Frames is the number of page frames of physical memory.
	Frames uint64 `toml:"frames" flag:"frames"`

	// HeapBase is the heap origin of every task. Zero selects the kernel's
	// default.
	HeapBase uint64 `toml:"heap_base" flag:"heap-base"`

	// LogFilename is the filename to log to, if not empty. %COMMAND% and
	// %TIMESTAMP% are substituted.
	LogFilename string `toml:"log" flag:"log"`

	// LogFormat is the log format: "text" or "json".
	LogFormat string `toml:"log_format" flag:"log-format"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `toml:"debug" flag:"debug"`

	// AlsoLogToStderr allows to send log messages to stderr.
	AlsoLogToStderr bool `toml:"alsologtostderr" flag:"alsologtostderr"`

	// Strace indicates that strace should be enabled.
	Strace bool `toml:"strace" flag:"strace"`

	// StraceSyscalls is the set of syscalls to trace (comma-separated
	// values). If StraceEnable is true and this string is empty, then all
	// syscalls will be traced.
	StraceSyscalls string `toml:"strace_syscalls" flag:"strace-syscalls"`
}

// Default returns the configuration used when neither a file nor flags set
// a value.
func Default() *Config {
	return &Config{
		Frames:    DefaultFrames,
		LogFormat: "text",
	}
}

// DefaultFrames is the default size of physical memory: 16MiB.
const DefaultFrames = 4096

// Load reads a TOML configuration file over the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, fmt.Errorf("loading config %q: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("loading config %q: unknown keys %v", path, undecoded)
	}
	return c, nil
}

// Validate checks that c is usable.
func (c *Config) Validate() error {
	if c.Frames == 0 {
		return fmt.Errorf("frames must be positive")
	}
	if c.HeapBase != 0 {
		if c.HeapBase%hostarch.PageSize != 0 || c.HeapBase >= uint64(hostarch.MaxUserAddress) {
			return fmt.Errorf("heap base %#x must be page-aligned and below %#x", c.HeapBase, hostarch.MaxUserAddress)
		}
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q, must be 'text' or 'json'", c.LogFormat)
	}
	return nil
}

// StraceSyscallNames returns the syscalls named by StraceSyscalls, or nil if
// all syscalls are traced.
func (c *Config) StraceSyscallNames() []string {
	if c.StraceSyscalls == "" {
		return nil
	}
	var names []string
	for _, name := range strings.Split(c.StraceSyscalls, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config.Frames: %d", c.Frames)
	log.Infof("Config.HeapBase: %#x", c.HeapBase)
	log.Infof("Config.Debug: %t", c.Debug)
	log.Infof("Config.LogFormat: %s", c.LogFormat)
	log.Infof("Config.Strace: %t, %q", c.Strace, c.StraceSyscalls)
}
