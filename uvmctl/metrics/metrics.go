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

// Package metrics exports the physical memory and syscall counters of a
// scenario run in the Prometheus text exposition format.
package metrics

import (
	"fmt"
	"io"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
	"gvisor.dev/uvm/pkg/sentry/kernel"
	"gvisor.dev/uvm/pkg/sentry/pgalloc"
	"gvisor.dev/uvm/uvmctl/scenario"
)

// Metric names.
const (
	FramesMetric   = "uvm_physical_frames"
	SyscallsMetric = "uvm_task_syscalls_total"
	YieldsMetric   = "uvm_task_yields_total"
)

// Label names.
const (
	StateLabel   = "state"
	TaskLabel    = "task"
	TIDLabel     = "tid"
	SyscallLabel = "syscall"
)

func labels(kv ...string) []*dto.LabelPair {
	pairs := make([]*dto.LabelPair, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, &dto.LabelPair{Name: proto.String(kv[i]), Value: proto.String(kv[i+1])})
	}
	return pairs
}

func gauge(v uint64, kv ...string) *dto.Metric {
	return &dto.Metric{Label: labels(kv...), Gauge: &dto.Gauge{Value: proto.Float64(float64(v))}}
}

func counter(v uint64, kv ...string) *dto.Metric {
	return &dto.Metric{Label: labels(kv...), Counter: &dto.Counter{Value: proto.Float64(float64(v))}}
}

// Families returns the metric families describing mf and the results of a
// run whose syscalls were dispatched through table. Syscalls are labelled by
// name and ordered by task, then syscall number.
func Families(mf *pgalloc.MemoryFile, table *kernel.SyscallTable, results []*scenario.Result) []*dto.MetricFamily {
	frames := &dto.MetricFamily{
		Name: proto.String(FramesMetric),
		Help: proto.String("Physical memory frames by state."),
		Type: dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{
			gauge(mf.UsedFrames(), StateLabel, "used"),
			gauge(mf.FreeFrames(), StateLabel, "free"),
		},
	}
	syscalls := &dto.MetricFamily{
		Name: proto.String(SyscallsMetric),
		Help: proto.String("Syscalls invoked by each task."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	yields := &dto.MetricFamily{
		Name: proto.String(YieldsMetric),
		Help: proto.String("Voluntary yields of each task."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, res := range results {
		tid := fmt.Sprint(res.TID)
		yields.Metric = append(yields.Metric, counter(res.Yields, TaskLabel, res.Name, TIDLabel, tid))

		sysnos := make([]uintptr, 0, len(res.Syscalls))
		for sysno := range res.Syscalls {
			sysnos = append(sysnos, sysno)
		}
		sort.Slice(sysnos, func(i, j int) bool { return sysnos[i] < sysnos[j] })
		for _, sysno := range sysnos {
			syscalls.Metric = append(syscalls.Metric, counter(uint64(res.Syscalls[sysno]),
				TaskLabel, res.Name, TIDLabel, tid, SyscallLabel, table.LookupName(sysno)))
		}
	}

	families := []*dto.MetricFamily{frames}
	for _, f := range []*dto.MetricFamily{syscalls, yields} {
		if len(f.Metric) != 0 {
			families = append(families, f)
		}
	}
	return families
}

// Write writes families to w in the Prometheus text format.
func Write(w io.Writer, families []*dto.MetricFamily) error {
	for _, f := range families {
		if _, err := expfmt.MetricFamilyToText(w, f); err != nil {
			return fmt.Errorf("writing metric %q: %w", f.GetName(), err)
		}
	}
	return nil
}
