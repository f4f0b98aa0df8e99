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
	"gvisor.dev/uvm/pkg/abi/linux"
	"gvisor.dev/uvm/pkg/context"
)

// PrepareExit sets the code t will exit with. The exit itself happens when
// the syscall returns CtrlDoExit.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) PrepareExit(code int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.exitCode = code
}

// Exited returns true if t has exited.
func (t *Task) Exited() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status == linux.TaskExited
}

// doExit marks t as exited and tears down its address space, returning every
// frame it owned to the kernel's memory.
func (t *Task) doExit() {
	t.mu.Lock()
	t.status = linux.TaskExited
	code := t.exitCode
	t.mu.Unlock()

	t.release(t)
	t.Infof("Exited with code %d", code)
}

// release frees t's address space. It may be called more than once.
func (t *Task) release(ctx context.Context) {
	t.image.Release(ctx)
}
