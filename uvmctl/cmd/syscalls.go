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
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/google/subcommands"
	"gvisor.dev/uvm/pkg/sentry/kernel"
)

// Syscalls implements subcommands.Command for the "syscalls" command.
type Syscalls struct {
	output string
	arch   string
}

// CompatibilityInfo maps architecture names to their syscall docs.
type CompatibilityInfo map[string]ArchInfo

// ArchInfo is compatibility doc for an architecture.
type ArchInfo struct {
	// Syscalls maps syscall number for the architecture to the doc.
	Syscalls map[uintptr]SyscallDoc `json:"syscalls"`
}

// SyscallDoc represents a single item of syscall documentation.
type SyscallDoc struct {
	Name string `json:"name"`
	num  uintptr
}

type outputFunc func(io.Writer, CompatibilityInfo) error

var (
	// The string name to use for printing compatibility for all architectures.
	archAll = "all"

	// A map of output type names to output functions.
	outputMap = map[string]outputFunc{
		"table": outputTable,
		"json":  outputJSON,
		"csv":   outputCSV,
	}
)

// Name implements subcommands.Command.Name.
func (*Syscalls) Name() string {
	return "syscalls"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Syscalls) Synopsis() string {
	return "Print the syscalls the kernel implements."
}

// Usage implements subcommands.Command.Usage.
func (*Syscalls) Usage() string {
	return `syscalls [options] - Print the syscalls the kernel implements.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Syscalls) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.output, "o", "table", "Output format (table, csv, json).")
	f.StringVar(&s.arch, "arch", archAll, "The CPU architecture (e.g. riscv64).")
}

// Execute implements subcommands.Command.Execute.
func (s *Syscalls) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	out, ok := outputMap[s.output]
	if !ok {
		Fatalf("Unsupported output format %q", s.output)
	}

	info, err := getCompatibilityInfo(kernel.SyscallTables(), s.arch)
	if err != nil {
		Fatalf("%v", err)
	}

	if err := out(os.Stdout, info); err != nil {
		Fatalf("Error writing output: %v", err)
	}

	return subcommands.ExitSuccess
}

// getCompatibilityInfo returns compatibility info for the given
// architecture name, or for all of them if archName is "all".
func getCompatibilityInfo(tables []*kernel.SyscallTable, archName string) (CompatibilityInfo, error) {
	info := make(CompatibilityInfo)
	for _, t := range tables {
		if archName != archAll && t.Arch.String() != archName {
			continue
		}
		archInfo := ArchInfo{Syscalls: make(map[uintptr]SyscallDoc)}
		for num, sc := range t.Table {
			archInfo.Syscalls[num] = SyscallDoc{
				Name: sc.Name,
				num:  num,
			}
		}
		info[t.Arch.String()] = archInfo
	}
	if len(info) == 0 {
		return nil, fmt.Errorf("syscall table for %s not found", archName)
	}
	return info, nil
}

// sortedArchs returns the architecture names of info in order.
func sortedArchs(info CompatibilityInfo) []string {
	var archs []string
	for archName := range info {
		archs = append(archs, archName)
	}
	sort.Strings(archs)
	return archs
}

// sortedCalls returns the syscalls of archInfo by number.
func sortedCalls(archInfo ArchInfo) []SyscallDoc {
	calls := make([]SyscallDoc, 0, len(archInfo.Syscalls))
	for _, sc := range archInfo.Syscalls {
		calls = append(calls, sc)
	}
	sort.Slice(calls, func(i, j int) bool {
		return calls[i].num < calls[j].num
	})
	return calls
}

// outputTable outputs the syscall info in tabular format.
func outputTable(w io.Writer, info CompatibilityInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for _, archName := range sortedArchs(info) {
		// Print the arch.
		fmt.Fprintf(w, "%s:\n\n", archName)

		// Write the header
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", "NUM", "NAME"); err != nil {
			return err
		}

		// Write each syscall entry
		for _, sc := range sortedCalls(info[archName]) {
			if _, err := fmt.Fprintf(tw, "%s\t%s\n", strconv.FormatInt(int64(sc.num), 10), sc.Name); err != nil {
				return err
			}
		}

		if err := tw.Flush(); err != nil {
			return err
		}
	}

	return nil
}

// outputJSON outputs the syscall info in JSON format.
func outputJSON(w io.Writer, info CompatibilityInfo) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(info)
}

// outputCSV outputs the syscall info in CSV format.
func outputCSV(w io.Writer, info CompatibilityInfo) error {
	csvWriter := csv.NewWriter(w)

	// Write the header
	if err := csvWriter.Write([]string{"Arch", "Num", "Name"}); err != nil {
		return err
	}

	for _, archName := range sortedArchs(info) {
		// Write each syscall entry
		for _, sc := range sortedCalls(info[archName]) {
			if err := csvWriter.Write([]string{archName, strconv.FormatInt(int64(sc.num), 10), sc.Name}); err != nil {
				return err
			}
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
