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

// Package cmd holds implementations of the uvmctl commands.
package cmd

import (
	"fmt"

	"gvisor.dev/uvm/pkg/hostarch"
	"gvisor.dev/uvm/pkg/sentry/kernel"
	"gvisor.dev/uvm/pkg/sentry/pgalloc"
	"gvisor.dev/uvm/uvmctl/cmd/util"
	"gvisor.dev/uvm/uvmctl/config"

	// Registers the RISCV64 syscall table.
	_ "gvisor.dev/uvm/pkg/sentry/syscalls/linux"
)

// Fatalf is the same as util.Fatalf.
var Fatalf = util.Fatalf

// newKernel creates physical memory and a kernel as configured by conf. The
// returned function destroys both.
func newKernel(conf *config.Config, args kernel.InitKernelArgs) (*kernel.Kernel, func(), error) {
	mf, err := pgalloc.NewMemoryFile(pgalloc.MemoryFileOpts{Frames: conf.Frames})
	if err != nil {
		return nil, nil, err
	}
	k := &kernel.Kernel{}
	args.MemoryFile = mf
	args.HeapBase = hostarch.Addr(conf.HeapBase)
	if err := k.Init(args); err != nil {
		_ = mf.Destroy()
		return nil, nil, err
	}
	return k, func() {
		k.Destroy()
		if err := mf.Destroy(); err != nil {
			util.Errorf("destroying physical memory: %v", err)
		}
	}, nil
}

// enableStrace turns on syscall tracing in s for the named syscalls, or for
// all syscalls if names is empty.
func enableStrace(s *kernel.SyscallTable, names []string) error {
	if len(names) == 0 {
		s.FeatureEnable.EnableAll(kernel.StraceEnableLog)
		return nil
	}
	byName := make(map[string]uintptr)
	for sysno, sc := range s.Table {
		byName[sc.Name] = sysno
	}
	enable := make(map[uintptr]bool)
	for _, name := range names {
		sysno, ok := byName[name]
		if !ok {
			return fmt.Errorf("invalid syscall %q in strace list", name)
		}
		enable[sysno] = true
	}
	s.FeatureEnable.Enable(kernel.StraceEnableLog, enable, false)
	return nil
}
