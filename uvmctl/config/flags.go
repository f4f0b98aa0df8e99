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
	"fmt"
	"reflect"
	"strconv"
)

// configFlag names the TOML file flag. It is not a Config field.
const configFlag = "config"

// RegisterFlags registers flags used to populate Config.
func RegisterFlags(flagSet *flag.FlagSet) {
	def := Default()

	flagSet.String(configFlag, "", "TOML file with default settings. Flags given on the command line override it.")

	// Physical memory and address space layout.
	flagSet.Uint64("frames", def.Frames, "number of 4KiB page frames of physical memory.")
	flagSet.Uint64("heap-base", def.HeapBase, "page-aligned heap origin of every task. Zero selects the kernel default.")

	// Debugging flags.
	flagSet.String("log", def.LogFilename, "file path where internal debug information is written, default is stderr. The following variables are available: %TIMESTAMP%, %COMMAND%.")
	flagSet.String("log-format", def.LogFormat, "log format: text (default) or json.")
	flagSet.Bool("debug", def.Debug, "enable debug logging.")
	flagSet.Bool("alsologtostderr", def.AlsoLogToStderr, "send log messages to stderr as well as to the log file.")

	// Debugging flags: strace related.
	flagSet.Bool("strace", def.Strace, "enable strace.")
	flagSet.String("strace-syscalls", def.StraceSyscalls, "comma-separated list of syscalls to trace. If --strace is true and this list is empty, then all syscalls will be traced.")
}

// NewFromFlags creates a new Config with values coming from the command line.
// If the config flag is set, the file is loaded first and only flags set
// explicitly on the command line override it.
func NewFromFlags(flagSet *flag.FlagSet) (*Config, error) {
	conf := Default()
	if f := flagSet.Lookup(configFlag); f != nil && f.Value.String() != "" {
		var err error
		if conf, err = Load(f.Value.String()); err != nil {
			return nil, err
		}
	}

	set := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	obj := reflect.ValueOf(conf).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		name, ok := st.Field(i).Tag.Lookup("flag")
		if !ok || !set[name] {
			continue
		}
		fl := flagSet.Lookup(name)
		if fl == nil {
			return nil, fmt.Errorf("flag %q not registered", name)
		}
		if err := setField(obj.Field(i), fl.Value.String()); err != nil {
			return nil, fmt.Errorf("flag %q: %w", name, err)
		}
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func setField(field reflect.Value, s string) error {
	switch field.Kind() {
	case reflect.Bool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		field.SetBool(v)
	case reflect.Uint64:
		v, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return err
		}
		field.SetUint(v)
	case reflect.String:
		field.SetString(s)
	default:
		return fmt.Errorf("unsupported type %s", field.Type())
	}
	return nil
}
