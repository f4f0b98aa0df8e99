// Copyright 2026 The gVisor Authors.
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

package metrics

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/common/expfmt"
	"gvisor.dev/uvm/pkg/abi/linux"
	"gvisor.dev/uvm/pkg/sentry/arch"
	"gvisor.dev/uvm/pkg/sentry/kernel"
	"gvisor.dev/uvm/pkg/sentry/pgalloc"
	_ "gvisor.dev/uvm/pkg/sentry/syscalls/linux"
	"gvisor.dev/uvm/uvmctl/scenario"
)

type sample struct {
	Labels map[string]string
	Value  float64
}

// parse reads text back the way a Prometheus scraper would.
func parse(t *testing.T, text []byte) map[string][]sample {
	t.Helper()
	parsed, err := (&expfmt.TextParser{}).TextToMetricFamilies(bytes.NewReader(text))
	if err != nil {
		t.Fatalf("parsing metrics: %v\n%s", err, text)
	}
	got := make(map[string][]sample)
	for name, f := range parsed {
		for _, m := range f.GetMetric() {
			s := sample{Labels: make(map[string]string)}
			for _, l := range m.GetLabel() {
				s.Labels[l.GetName()] = l.GetValue()
			}
			switch {
			case m.GetGauge() != nil:
				s.Value = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				s.Value = m.GetCounter().GetValue()
			}
			got[name] = append(got[name], s)
		}
	}
	return got
}

func TestWrite(t *testing.T) {
	mf, err := pgalloc.NewMemoryFile(pgalloc.MemoryFileOpts{Frames: 8})
	if err != nil {
		t.Fatalf("NewMemoryFile failed: %v", err)
	}
	defer mf.Destroy()
	for i := 0; i < 3; i++ {
		if _, err := mf.Allocate(); err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
	}
	table, ok := kernel.LookupSyscallTable(arch.RISCV64)
	if !ok {
		t.Fatalf("no RISC-V syscall table registered")
	}
	results := []*scenario.Result{
		{
			Name:     "timer",
			TID:      1,
			Syscalls: map[uintptr]uint32{linux.SYS_GET_TIME: 2, linux.SYS_MMAP: 1},
		},
		{
			Name:   "heap",
			TID:    2,
			Yields: 4,
		},
	}

	var buf bytes.Buffer
	if err := Write(&buf, Families(mf, table, results)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	want := map[string][]sample{
		FramesMetric: {
			{Labels: map[string]string{StateLabel: "used"}, Value: 3},
			{Labels: map[string]string{StateLabel: "free"}, Value: 5},
		},
		SyscallsMetric: {
			{Labels: map[string]string{TaskLabel: "timer", TIDLabel: "1", SyscallLabel: "get_time"}, Value: 2},
			{Labels: map[string]string{TaskLabel: "timer", TIDLabel: "1", SyscallLabel: "mmap"}, Value: 1},
		},
		YieldsMetric: {
			{Labels: map[string]string{TaskLabel: "timer", TIDLabel: "1"}, Value: 0},
			{Labels: map[string]string{TaskLabel: "heap", TIDLabel: "2"}, Value: 4},
		},
	}
	if diff := cmp.Diff(want, parse(t, buf.Bytes())); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteWithoutTasks(t *testing.T) {
	mf, err := pgalloc.NewMemoryFile(pgalloc.MemoryFileOpts{Frames: 2})
	if err != nil {
		t.Fatalf("NewMemoryFile failed: %v", err)
	}
	defer mf.Destroy()
	table, _ := kernel.LookupSyscallTable(arch.RISCV64)

	families := Families(mf, table, nil)
	if len(families) != 1 || families[0].GetName() != FramesMetric {
		t.Fatalf("Families() without tasks = %v, want only %s", families, FramesMetric)
	}
	var buf bytes.Buffer
	if err := Write(&buf, families); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := parse(t, buf.Bytes()); len(got[FramesMetric]) != 2 {
		t.Errorf("got %v, want used and free frames", got)
	}
}
