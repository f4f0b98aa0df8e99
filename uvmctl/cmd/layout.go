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

package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"gvisor.dev/uvm/pkg/abi/linux"
	"gvisor.dev/uvm/pkg/hostarch"
	"gvisor.dev/uvm/pkg/sentry/kernel"
	"gvisor.dev/uvm/uvmctl/config"
)

// Layout implements subcommands.Command for the "layout" command.
type Layout struct{}

// Name implements subcommands.Command.Name.
func (*Layout) Name() string {
	return "layout"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Layout) Synopsis() string {
	return "print the memory and ABI layout seen by tasks"
}

// Usage implements subcommands.Command.Usage.
func (*Layout) Usage() string {
	return `layout - print the page geometry, address space limits and the
layout of the records syscalls write to user memory.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Layout) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Layout) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	conf := args[0].(*config.Config)
	if err := writeLayout(os.Stdout, conf); err != nil {
		Fatalf("Error writing output: %v", err)
	}
	return subcommands.ExitSuccess
}

func writeLayout(w io.Writer, conf *config.Config) error {
	heapBase := hostarch.Addr(conf.HeapBase)
	if heapBase == 0 {
		heapBase = kernel.DefaultHeapBase
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range []struct {
		name  string
		value any
	}{
		{"page size", fmt.Sprintf("%#x", hostarch.PageSize)},
		{"virtual page number bits", hostarch.VPNBits},
		{"user address limit", fmt.Sprintf("%#x", uint64(hostarch.MaxUserAddress))},
		{"heap base", fmt.Sprintf("%#x", uint64(heapBase))},
		{"physical frames", conf.Frames},
		{"physical memory", fmt.Sprintf("%#x", conf.Frames*hostarch.PageSize)},
		{"counted syscalls", linux.MaxSyscallNum},
		{"timeval size", linux.SizeOfTimeval},
		{"task_info size", linux.SizeOfTaskInfo},
		{"task_info.status offset", linux.TaskInfoStatusOffset},
		{"task_info.syscall_times offset", linux.TaskInfoSyscallTimesOffset},
		{"task_info.time offset", linux.TaskInfoTimeOffset},
	} {
		if _, err := fmt.Fprintf(tw, "%s\t%v\n", row.name, row.value); err != nil {
			return err
		}
	}
	return tw.Flush()
}
