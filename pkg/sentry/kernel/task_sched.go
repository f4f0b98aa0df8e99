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

package kernel

import (
	"runtime"
	"time"

	"gvisor.dev/uvm/pkg/abi/linux"
)

// Start marks t as running. The first call records the time t was first
// scheduled, from which task_info measures its run time.
//
// Start does nothing if t has exited.
func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startLocked()
}

// Preconditions: t.mu must be locked.
func (t *Task) startLocked() {
	switch t.status {
	case linux.TaskUnInit, linux.TaskReady:
		if !t.started {
			t.started = true
			t.startTime = t.k.clock.Now()
		}
		t.status = linux.TaskRunning
	}
}

// Yield yields the processor for the calling task. t is Ready while other
// goroutines run and Running again when Yield returns.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) Yield() {
	t.mu.Lock()
	t.status = linux.TaskReady
	t.yieldCount++
	t.mu.Unlock()

	runtime.Gosched()

	t.mu.Lock()
	t.startLocked()
	t.mu.Unlock()
}

// YieldCount returns the number of times t has yielded.
func (t *Task) YieldCount() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.yieldCount
}

// RunTime returns the time since t was first scheduled, or zero if it never
// was.
func (t *Task) RunTime() time.Duration {
	now := t.k.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return 0
	}
	return now.Sub(t.startTime)
}
