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

package pcp

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/intel/pagesteer/pkg/metrics"
)

var (
	evictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "pcp",
			Name:      "evictions_total",
			Help:      "Number of PCP evictions by method and result.",
		},
		[]string{"method", "result"},
	)
	pcpPages = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "pcp",
			Name:      "pages",
			Help:      "Pages on the per-CPU list after the last measured eviction.",
		},
	)
)

func init() {
	err := metrics.RegisterCollector("pcp", func() (prometheus.Collector, error) {
		return metrics.Collectors(evictions, pcpPages), nil
	})
	if err != nil {
		log.Error("failed to register metrics collector: %v", err)
	}
}
