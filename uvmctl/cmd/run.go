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

package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"gvisor.dev/uvm/pkg/log"
	"gvisor.dev/uvm/pkg/sentry/kernel"
	"gvisor.dev/uvm/uvmctl/config"
	"gvisor.dev/uvm/uvmctl/metrics"
	"gvisor.dev/uvm/uvmctl/scenario"
)

// Run implements subcommands.Command for the "run" command.
type Run struct {
	// maps prints the memory maps recorded by the scenario.
	maps bool

	// metrics is the file frame usage and syscall counts are written to,
	// in the Prometheus text format. "-" is stdout.
	metrics string
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "run the tasks of a scenario file"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags] <scenario.yaml> - create a kernel, run the scenario's tasks
concurrently and report how each one went. Console output of the tasks is
written to stdout. The exit status is non-zero if any step failed.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.maps, "maps", false, "print the memory maps recorded by maps steps.")
	f.StringVar(&r.metrics, "metrics", "", "write frame usage and per-task syscall counts in the Prometheus text format to this file, or stdout if \"-\".")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	s, err := scenario.Load(f.Arg(0))
	if err != nil {
		Fatalf("%v", err)
	}

	k, destroy, err := newKernel(conf, kernel.InitKernelArgs{Console: os.Stdout})
	if err != nil {
		Fatalf("creating kernel: %v", err)
	}
	defer destroy()

	if conf.Strace {
		if err := enableStrace(k.SyscallTable(), conf.StraceSyscallNames()); err != nil {
			Fatalf("%v", err)
		}
	}
	if err := s.Resolve(k.SyscallTable()); err != nil {
		Fatalf("%v", err)
	}

	log.Infof("Running %d tasks from %q", len(s.Tasks), f.Arg(0))
	results, err := scenario.Run(ctx, k, s)
	if err != nil {
		Fatalf("running scenario: %v", err)
	}

	mf := k.MemoryFile()
	log.Infof("Physical memory: %d of %d frames in use", mf.UsedFrames(), mf.TotalFrames())
	if err := r.report(os.Stdout, results); err != nil {
		Fatalf("writing report: %v", err)
	}
	if r.metrics != "" {
		if err := writeMetrics(r.metrics, k, results); err != nil {
			Fatalf("writing metrics: %v", err)
		}
	}
	for _, res := range results {
		if !res.OK() {
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}

// report writes a table of results to w, followed by every failure and, if
// requested, the recorded memory maps.
func (r *Run) report(w io.Writer, results []*scenario.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "TID\tNAME\tSTEPS\tEXIT\tYIELDS\tRUNTIME\tRESULT\n")
	for _, res := range results {
		exit := "-"
		if res.Exited {
			exit = fmt.Sprintf("%d", res.ExitCode)
		}
		status := "ok"
		if !res.OK() {
			status = fmt.Sprintf("%d failed", len(res.Failures))
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\t%v\t%s\n", res.TID, res.Name, res.Steps, exit, res.Yields, res.RunTime, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, res := range results {
		for _, failure := range res.Failures {
			if _, err := fmt.Fprintf(w, "%s: %s\n", res.Name, failure); err != nil {
				return err
			}
		}
	}
	if !r.maps {
		return nil
	}
	for _, res := range results {
		for i, maps := range res.Maps {
			if _, err := fmt.Fprintf(w, "\n%s maps #%d:\n%s", res.Name, i, maps); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeMetrics writes the metrics of a finished run to path, or to stdout if
// path is "-".
func writeMetrics(path string, k *kernel.Kernel, results []*scenario.Result) error {
	families := metrics.Families(k.MemoryFile(), k.SyscallTable(), results)
	if path == "-" {
		return metrics.Write(os.Stdout, families)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := metrics.Write(f, families); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
