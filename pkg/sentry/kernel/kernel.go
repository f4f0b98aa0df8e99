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

// Package kernel provides an emulation of the parts of a teaching kernel that
// user memory management depends on: tasks with an address space, syscall
// dispatch, and a console.
//
// Lock order:
//
//	Kernel.extMu
//	  mm.MemoryManager.mappingMu
//	Task.mu
//	Kernel.consoleMu
package kernel

import (
	stdcontext "context"
	"fmt"
	"io"
	"sort"
	"sync"

	"gvisor.dev/uvm/pkg/abi/linux"
	"gvisor.dev/uvm/pkg/context"
	"gvisor.dev/uvm/pkg/hostarch"
	"gvisor.dev/uvm/pkg/log"
	"gvisor.dev/uvm/pkg/sentry/arch"
	"gvisor.dev/uvm/pkg/sentry/ktime"
	"gvisor.dev/uvm/pkg/sentry/mm"
	"gvisor.dev/uvm/pkg/sentry/pgalloc"
)

// DefaultHeapBase is the heap origin of new tasks when InitKernelArgs does
// not specify one.
const DefaultHeapBase = hostarch.Addr(0x10000000)

// Kernel represents an emulated kernel.
type Kernel struct {
	// All of the fields below are immutable after Init.

	// mf provides the physical memory backing every task's address space.
	mf *pgalloc.MemoryFile

	// clock is the monotonic clock used for get_time and task run time.
	clock ktime.Clock

	// syscalls is the table tasks dispatch syscalls through.
	syscalls *SyscallTable

	// heapBase is the heap origin of new tasks.
	heapBase hostarch.Addr

	// consoleMu serializes writes to console.
	consoleMu sync.Mutex

	// console receives bytes written to standard output by tasks.
	console io.Writer

	// extMu serializes external changes to the Kernel's task set.
	extMu sync.Mutex

	// tasks is the set of tasks created by CreateTask, exited or not. tasks
	// is protected by extMu.
	tasks map[ThreadID]*Task

	// nextTID is the ID of the next task. nextTID is protected by extMu.
	nextTID ThreadID
}

// InitKernelArgs holds arguments to Init.
type InitKernelArgs struct {
	// MemoryFile is the physical memory of the kernel. It must not be nil.
	MemoryFile *pgalloc.MemoryFile

	// Clock is the kernel's monotonic clock. If nil, a ktime.MonotonicClock
	// is used.
	Clock ktime.Clock

	// SyscallTable is the syscall table. If nil, the table registered for
	// arch.RISCV64 is used.
	SyscallTable *SyscallTable

	// Console receives standard output of all tasks. If nil, output is
	// discarded.
	Console io.Writer

	// HeapBase is the heap origin of new tasks. If zero, DefaultHeapBase is
	// used.
	HeapBase hostarch.Addr
}

// Init initialize the Kernel with no tasks.
func (k *Kernel) Init(args InitKernelArgs) error {
	if args.MemoryFile == nil {
		return fmt.Errorf("MemoryFile is nil")
	}
	if args.Clock == nil {
		args.Clock = ktime.NewMonotonicClock()
	}
	if args.SyscallTable == nil {
		s, ok := LookupSyscallTable(arch.RISCV64)
		if !ok {
			return fmt.Errorf("no syscall table registered for %v", arch.RISCV64)
		}
		args.SyscallTable = s
	}
	if args.Console == nil {
		args.Console = io.Discard
	}
	if args.HeapBase == 0 {
		args.HeapBase = DefaultHeapBase
	}
	if !args.HeapBase.IsPageAligned() || args.HeapBase >= hostarch.MaxUserAddress {
		return fmt.Errorf("invalid heap base %#x", args.HeapBase)
	}

	k.mf = args.MemoryFile
	k.clock = args.Clock
	k.syscalls = args.SyscallTable
	k.console = args.Console
	k.heapBase = args.HeapBase
	k.tasks = make(map[ThreadID]*Task)
	k.nextTID = 1
	return nil
}

// CreateTaskArgs holds arguments to CreateTask.
type CreateTaskArgs struct {
	// Name is the task's name, used in logs.
	Name string

	// Entry is the initial instruction pointer.
	Entry hostarch.Addr

	// Stack is the initial stack pointer.
	Stack hostarch.Addr
}

// CreateTask creates a new task with an empty address space whose heap
// starts at the kernel's heap base. The task is Ready; it starts running at
// its first syscall or when Start is called.
func (k *Kernel) CreateTask(ctx context.Context, args CreateTaskArgs) (*Task, error) {
	k.extMu.Lock()
	defer k.extMu.Unlock()

	image := mm.NewMemoryManager(k.mf)
	if err := image.BrkSetup(ctx, k.heapBase); err != nil {
		return nil, fmt.Errorf("setting up heap at %#x: %w", k.heapBase, err)
	}

	tid := k.nextTID
	k.nextTID++
	name := args.Name
	if name == "" {
		name = fmt.Sprintf("task-%d", tid)
	}
	t := &Task{
		k:         k,
		tid:       tid,
		name:      name,
		logPrefix: fmt.Sprintf("[%3d] ", tid),
		image:     image,
		arch:      arch.NewContext64(uintptr(args.Entry), uintptr(args.Stack)),
		status:    linux.TaskReady,
	}
	k.tasks[tid] = t
	log.Infof("Created task %d (%s), address space %#x", tid, name, image.Token())
	return t, nil
}

// TaskWithID returns the task with the given ID, or nil.
func (k *Kernel) TaskWithID(tid ThreadID) *Task {
	k.extMu.Lock()
	defer k.extMu.Unlock()
	return k.tasks[tid]
}

// Tasks returns all tasks in k, ordered by ID.
func (k *Kernel) Tasks() []*Task {
	k.extMu.Lock()
	defer k.extMu.Unlock()
	ts := make([]*Task, 0, len(k.tasks))
	for _, t := range k.tasks {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].tid < ts[j].tid })
	return ts
}

// Destroy releases the address spaces of all tasks that have not exited.
func (k *Kernel) Destroy() {
	ctx := k.SupervisorContext()
	for _, t := range k.Tasks() {
		t.release(ctx)
	}
}

// MemoryFile returns the kernel's physical memory.
func (k *Kernel) MemoryFile() *pgalloc.MemoryFile {
	return k.mf
}

// MonotonicClock returns the kernel's monotonic clock.
func (k *Kernel) MonotonicClock() ktime.Clock {
	return k.clock
}

// SyscallTable returns the kernel's syscall table.
func (k *Kernel) SyscallTable() *SyscallTable {
	return k.syscalls
}

// HeapBase returns the heap origin of new tasks.
func (k *Kernel) HeapBase() hostarch.Addr {
	return k.heapBase
}

// WriteConsole writes b to the console.
func (k *Kernel) WriteConsole(b []byte) (int, error) {
	k.consoleMu.Lock()
	defer k.consoleMu.Unlock()
	return k.console.Write(b)
}

// SupervisorContext returns a Context with maximum privileges in k. It should
// only be used by goroutines outside the control of the emulated kernel
// defined by k.
func (k *Kernel) SupervisorContext() context.Context {
	return supervisorContext{
		// Supervisor work is not bound to any operation.
		Context: stdcontext.Background(),
		Logger:  log.Log(),
		k:       k,
	}
}

type supervisorContext struct {
	stdcontext.Context
	log.Logger
	k *Kernel
}

// Value implements context.Context.
func (ctx supervisorContext) Value(key any) any {
	switch key {
	case CtxKernel:
		return ctx.k
	case pgalloc.CtxMemoryFile:
		return ctx.k.mf
	case ktime.CtxMonotonicClock:
		return ctx.k.clock
	default:
		return ctx.Context.Value(key)
	}
}
