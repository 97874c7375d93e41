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

package escalate

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/intel/pagesteer/pkg/metrics"
)

var (
	rounds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "install",
			Name:      "rounds_total",
			Help:      "Number of install rounds by result.",
		},
		[]string{"result"},
	)
	roundDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "install",
			Name:      "round_duration_seconds",
			Help:      "Duration of install rounds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
	successRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "install",
			Name:      "success_rate",
			Help:      "Moving success rate of recent install rounds.",
		},
	)
)

func init() {
	err := metrics.RegisterCollector("install", func() (prometheus.Collector, error) {
		return metrics.Collectors(rounds, roundDuration, successRate), nil
	})
	if err != nil {
		log.Error("failed to register metrics collector: %v", err)
	}
}
