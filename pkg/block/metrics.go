// Copyright 2025 Intel Corporation. All Rights Reserved.
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

package block

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/intel/pagesteer/pkg/metrics"
)

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "block",
		Name:      name,
		Help:      help,
	})
}

var (
	attempts      = counter("attempts_total", "Number of block acquisition attempts.")
	acquisitions  = counter("acquisitions_total", "Number of acquired blocks.")
	mismatches    = counter("mismatches_total", "Number of attempts failing the contiguity check.")
	drainFailures = counter("drain_failures_total", "Number of attempts failing to drain memory.")
)

func init() {
	err := metrics.RegisterCollector("block", func() (prometheus.Collector, error) {
		return metrics.Collectors(attempts, acquisitions, mismatches, drainFailures), nil
	})
	if err != nil {
		log.Error("failed to register metrics collector: %v", err)
	}
}
