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

package scenario

import (
	stdcontext "context"
	"fmt"
	"maps"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"gvisor.dev/uvm/pkg/abi/linux"
	"gvisor.dev/uvm/pkg/context"
	"gvisor.dev/uvm/pkg/marshal/primitive"
	"gvisor.dev/uvm/pkg/sentry/arch"
	"gvisor.dev/uvm/pkg/sentry/kernel"
)

// Result is the outcome of one task.
type Result struct {
	// Name and TID identify the task.
	Name string
	TID  kernel.ThreadID

	// Steps is the number of steps run.
	Steps int

	// Failures describes every step that did not behave as expected.
	Failures []string

	// Exited is set if the task called exit. ExitCode is meaningful only
	// then.
	Exited   bool
	ExitCode int32

	// Yields is the number of times the task yielded.
	Yields uint64

	// RunTime is the time since the task was first scheduled.
	RunTime time.Duration

	// Maps holds the memory maps recorded by maps steps.
	Maps [][]byte

	// Syscalls counts the task's invocations of each syscall number, as
	// reported by task_info.
	Syscalls map[uintptr]uint32
}

// OK returns true if no step failed.
func (r *Result) OK() bool {
	return len(r.Failures) == 0
}

func (r *Result) failf(step int, format string, v ...any) {
	r.Failures = append(r.Failures, fmt.Sprintf("step %d: ", step)+fmt.Sprintf(format, v...))
}

// Run creates the tasks of s in k and runs them concurrently, each on its
// own goroutine. s must have been resolved against k's syscall table.
//
// Step failures are reported in the results. The error is non-nil only if
// the scenario could not be run, e.g. ctx was cancelled.
func Run(ctx stdcontext.Context, k *kernel.Kernel, s *Scenario) ([]*Result, error) {
	kctx := context.FromStd(ctx)
	tasks := make([]*kernel.Task, len(s.Tasks))
	results := make([]*Result, len(s.Tasks))
	for i, ts := range s.Tasks {
		t, err := k.CreateTask(kctx, kernel.CreateTaskArgs{
			Name:  ts.Name,
			Entry: addr(ts.Entry),
			Stack: addr(ts.Stack),
		})
		if err != nil {
			return nil, fmt.Errorf("creating task %d: %w", i, err)
		}
		tasks[i] = t
		results[i] = &Result{Name: t.Name(), TID: t.ThreadID()}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range tasks {
		g.Go(func() error {
			return runTask(gctx, tasks[i], s.Tasks[i].Steps, results[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// runTask runs steps on t. It is t's task goroutine.
func runTask(ctx stdcontext.Context, t *kernel.Task, steps []Step, res *Result) error {
	var lastTime linux.Timeval
	defer func() {
		res.Yields = t.YieldCount()
		res.RunTime = t.RunTime()
		res.Syscalls = make(map[uintptr]uint32)
		for sysno, n := range t.TaskInfo().SyscallTimes {
			if n != 0 {
				res.Syscalls[uintptr(sysno)] = n
			}
		}
	}()

	for i := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		step := &steps[i]
		res.Steps++

		switch {
		case step.Syscall != "":
			var args arch.SyscallArguments
			for j, v := range step.Args {
				args[j].Value = uintptr(v)
			}
			ret, exited := t.Invoke(step.sysno, args)
			if exited {
				res.Exited = true
				res.ExitCode = t.ExitCode()
				if rest := len(steps) - i - 1; rest > 0 {
					res.failf(i, "%d steps after exit", rest)
				}
				return nil
			}
			if step.Want != nil && ret != *step.Want {
				res.failf(i, "%s returned %d, want %d", step.Syscall, ret, *step.Want)
			}

		case step.Sleep > 0:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(step.Sleep):
			}

		case step.Poke != nil:
			p := step.Poke
			var err error
			if p.Data != "" {
				_, err = t.CopyOutBytes(addr(p.Addr), []byte(p.Data))
			} else {
				_, err = primitive.CopyUint64Out(t, addr(p.Addr), p.Value)
			}
			if err != nil {
				res.failf(i, "poke %#x: %v", p.Addr, err)
			}

		case step.Peek != nil:
			p := step.Peek
			v, err := primitive.CopyUint64In(t, addr(p.Addr))
			if err != nil {
				res.failf(i, "peek %#x: %v", p.Addr, err)
			} else if p.Want != nil && v != *p.Want {
				res.failf(i, "peek %#x = %#x, want %#x", p.Addr, v, *p.Want)
			}

		case step.Timeval != nil:
			var tv linux.Timeval
			if _, err := tv.CopyIn(t, addr(*step.Timeval)); err != nil {
				res.failf(i, "timeval %#x: %v", *step.Timeval, err)
				break
			}
			if tv.ToDuration() < lastTime.ToDuration() {
				res.failf(i, "time went backwards: %+v after %+v", tv, lastTime)
			}
			lastTime = tv

		case step.TaskInfo != nil:
			checkTaskInfo(t, i, step.TaskInfo, res)

		case step.Maps:
			res.Maps = append(res.Maps, t.MemoryManager().ReadMaps())
		}
	}
	return nil
}

func checkTaskInfo(t *kernel.Task, step int, c *TaskInfoCheck, res *Result) {
	var ti linux.TaskInfo
	if _, err := ti.CopyIn(t, addr(c.Addr)); err != nil {
		res.failf(step, "task_info %#x: %v", c.Addr, err)
		return
	}
	if c.Status != "" && ti.Status.String() != c.Status {
		res.failf(step, "task_info status %v, want %s", ti.Status, c.Status)
	}
	for _, sysno := range slices.Sorted(maps.Keys(c.calls)) {
		want := c.calls[sysno]
		var got uint32
		if sysno < linux.MaxSyscallNum {
			got = ti.SyscallTimes[sysno]
		}
		if got != want {
			res.failf(step, "task_info count of %s = %d, want %d", t.SyscallTable().LookupName(sysno), got, want)
		}
	}
}
