// Copyright 2019 The gVisor Authors.
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

// Package scenario describes scripted tasks and runs them against a kernel.
//
// A scenario is a YAML document listing tasks. Each task is a sequence of
// steps, run in order on the task's own goroutine; tasks run concurrently.
// A step either invokes a syscall the way user code would after loading its
// registers, or inspects the task's memory:
//
//	tasks:
//	- name: timer
//	  steps:
//	  - syscall: mmap
//	    args: [0x1000, 0x2000, 3]
//	    want: 0
//	  - syscall: get_time
//	    args: [0x1ff8, 0]
//	  - timeval: 0x1ff8
//	  - syscall: exit
//	    args: [0]
package scenario

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	yaml "gopkg.in/yaml.v2"
	"gvisor.dev/uvm/pkg/hostarch"
	"gvisor.dev/uvm/pkg/sentry/kernel"
)

// Scenario is a set of tasks.
type Scenario struct {
	Tasks []Task `yaml:"tasks"`
}

// Task is a scripted task.
type Task struct {
	// Name is the task's name. If empty, the kernel names it.
	Name string `yaml:"name"`

	// Entry and Stack are the task's initial instruction and stack
	// pointers.
	Entry uint64 `yaml:"entry"`
	Stack uint64 `yaml:"stack"`

	// Steps are run in order.
	Steps []Step `yaml:"steps"`
}

// Step is one action of a task. Exactly one of Syscall, Sleep, Poke, Peek,
// Timeval, TaskInfo and Maps must be set.
type Step struct {
	// Syscall is a syscall name from the kernel's table or a number.
	Syscall string `yaml:"syscall"`

	// Args are the syscall arguments, a0 first. Negative values are
	// sign-extended.
	Args []int64 `yaml:"args"`

	// Want, if set, is the value the syscall must return.
	Want *int64 `yaml:"want"`

	// Sleep pauses the task.
	Sleep time.Duration `yaml:"sleep"`

	// Poke writes to the task's memory.
	Poke *Poke `yaml:"poke"`

	// Peek reads a uint64 from the task's memory.
	Peek *Peek `yaml:"peek"`

	// Timeval reads a Timeval written by get_time at this address. Each
	// one read by a task must not be earlier than the last.
	Timeval *uint64 `yaml:"timeval"`

	// TaskInfo reads a TaskInfo written by task_info.
	TaskInfo *TaskInfoCheck `yaml:"task_info"`

	// Maps records the task's memory map.
	Maps bool `yaml:"maps"`

	// sysno is Syscall, resolved.
	sysno uintptr
}

// Poke writes Data, or the little-endian Value if Data is empty, at Addr.
type Poke struct {
	Addr  uint64 `yaml:"addr"`
	Data  string `yaml:"data"`
	Value uint64 `yaml:"value"`
}

// Peek reads a uint64 at Addr. If Want is set, the value must match.
type Peek struct {
	Addr uint64  `yaml:"addr"`
	Want *uint64 `yaml:"want"`
}

// TaskInfoCheck reads a TaskInfo at Addr and checks the fields that are set.
type TaskInfoCheck struct {
	Addr uint64 `yaml:"addr"`

	// Status is the expected status name, e.g. "Running".
	Status string `yaml:"status"`

	// Calls maps syscall names to expected counts.
	Calls map[string]uint32 `yaml:"calls"`

	calls map[uintptr]uint32
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open scenario: %w", err)
	}
	defer f.Close()
	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("unable to decode %q: %w", path, err)
	}
	return s, nil
}

// Parse decodes a scenario. Unknown fields are rejected.
func Parse(r io.Reader) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)
	if err := dec.Decode(&s); err != nil {
		return nil, err
	}
	if len(s.Tasks) == 0 {
		return nil, fmt.Errorf("scenario has no tasks")
	}
	return &s, nil
}

// Resolve checks every step and resolves syscall names against table.
func (s *Scenario) Resolve(table *kernel.SyscallTable) error {
	names := make(map[string]uintptr)
	for sysno, sc := range table.Table {
		names[sc.Name] = sysno
	}
	lookup := func(name string) (uintptr, error) {
		if sysno, ok := names[name]; ok {
			return sysno, nil
		}
		n, err := strconv.ParseUint(name, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("unknown syscall %q", name)
		}
		return uintptr(n), nil
	}

	for ti := range s.Tasks {
		task := &s.Tasks[ti]
		for si := range task.Steps {
			step := &task.Steps[si]
			if err := step.resolve(lookup); err != nil {
				return fmt.Errorf("task %d (%s) step %d: %w", ti, task.Name, si, err)
			}
		}
	}
	return nil
}

func (step *Step) resolve(lookup func(string) (uintptr, error)) error {
	actions := 0
	for _, set := range []bool{
		step.Syscall != "",
		step.Sleep != 0,
		step.Poke != nil,
		step.Peek != nil,
		step.Timeval != nil,
		step.TaskInfo != nil,
		step.Maps,
	} {
		if set {
			actions++
		}
	}
	if actions != 1 {
		return fmt.Errorf("step must have exactly one action, has %d", actions)
	}

	switch {
	case step.Syscall != "":
		if len(step.Args) > 6 {
			return fmt.Errorf("%s: %d arguments, at most 6", step.Syscall, len(step.Args))
		}
		sysno, err := lookup(step.Syscall)
		if err != nil {
			return err
		}
		step.sysno = sysno
	case step.Sleep < 0:
		return fmt.Errorf("negative sleep %v", step.Sleep)
	case step.TaskInfo != nil:
		step.TaskInfo.calls = make(map[uintptr]uint32)
		for name, n := range step.TaskInfo.Calls {
			sysno, err := lookup(name)
			if err != nil {
				return err
			}
			step.TaskInfo.calls[sysno] = n
		}
	}
	return nil
}

func addr(v uint64) hostarch.Addr {
	return hostarch.Addr(v)
}
