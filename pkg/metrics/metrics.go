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

// Package metrics collects the prometheus collectors registered by the
// steering components and dumps them in text exposition format.
package metrics

import (
	"io"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	logger "github.com/intel/pagesteer/pkg/log"
)

// Namespace prefixes all our metric names.
const Namespace = "pagesteer"

// InitCollector is the type for functions that initialize collectors.
type InitCollector func() (prometheus.Collector, error)

var (
	log = logger.Get("metrics")

	lock                  sync.Mutex
	builtInCollectors     = make(map[string]InitCollector)
	registeredCollectors  = []prometheus.Collector{}
	initializedCollectors = make(map[string]struct{})
)

// RegisterCollector registers the named prometheus.Collector for metrics collection.
func RegisterCollector(name string, init InitCollector) error {
	lock.Lock()
	defer lock.Unlock()

	log.Debug("registering collector %s...", name)

	if _, found := builtInCollectors[name]; found {
		return metricsError("collector %s already registered", name)
	}

	builtInCollectors[name] = init

	return nil
}

// NewMetricGatherer creates a new prometheus.Gatherer with all registered collectors.
func NewMetricGatherer() (prometheus.Gatherer, error) {
	lock.Lock()
	defer lock.Unlock()

	reg := prometheus.NewPedanticRegistry()

	names := make([]string, 0, len(builtInCollectors))
	for name := range builtInCollectors {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := initializedCollectors[name]; ok {
			continue
		}

		c, err := builtInCollectors[name]()
		if err != nil {
			log.Error("failed to initialize collector '%s': %v, skipping it", name, err)
			continue
		}
		registeredCollectors = append(registeredCollectors, c)
		initializedCollectors[name] = struct{}{}
	}

	if err := reg.Register(prometheus.NewGoCollector()); err != nil {
		return nil, metricsError("failed to register Go collector: %v", err)
	}
	for _, c := range registeredCollectors {
		if err := reg.Register(c); err != nil {
			return nil, metricsError("failed to register collector: %v", err)
		}
	}

	return reg, nil
}

// Collectors bundles several collectors into one, for registering all
// the metrics of a component under a single name.
func Collectors(cs ...prometheus.Collector) prometheus.Collector {
	return collectors(cs)
}

type collectors []prometheus.Collector

func (cs collectors) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range cs {
		c.Describe(ch)
	}
}

func (cs collectors) Collect(ch chan<- prometheus.Metric) {
	for _, c := range cs {
		c.Collect(ch)
	}
}

// Dump gathers all metrics from g and writes them to w in text format.
func Dump(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return errors.Wrap(err, "failed to gather metrics")
	}

	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return errors.Wrapf(err, "failed to encode metric family %s", mf.GetName())
		}
	}

	return nil
}

// Value returns the sum of the counter, gauge or untyped samples of the
// named metric family in g, or the sum of observations for histograms.
func Value(g prometheus.Gatherer, name string) (float64, error) {
	families, err := g.Gather()
	if err != nil {
		return 0, errors.Wrap(err, "failed to gather metrics")
	}

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		sum := 0.0
		for _, m := range mf.GetMetric() {
			sum += sampleValue(mf.GetType(), m)
		}
		return sum, nil
	}

	return 0, metricsError("no metric %s", name)
}

func sampleValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return m.GetHistogram().GetSampleSum()
	case dto.MetricType_UNTYPED:
		return m.GetUntyped().GetValue()
	}
	return 0
}

func metricsError(format string, args ...interface{}) error {
	return errors.Errorf("metrics: "+format, args...)
}
