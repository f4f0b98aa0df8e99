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

package linux

import (
	"gvisor.dev/uvm/pkg/sentry/arch"
	"gvisor.dev/uvm/pkg/sentry/kernel"
)

// TaskInfo implements the task_info syscall: task_info(ti). A snapshot of
// the caller's status, syscall counts and run time in milliseconds is
// written to ti. The call being made is already counted.
func TaskInfo(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	addr := args[0].Pointer()

	ti := t.TaskInfo()
	if _, err := ti.CopyOut(t, addr); err != nil {
		return 0, nil, err
	}
	return 0, nil, nil
}
