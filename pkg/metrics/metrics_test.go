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

package metrics

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestGatherAndDump(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "test_events_total",
		Help:      "Test events.",
	})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "test_level",
		Help:      "Test level.",
	})
	require.NoError(t, RegisterCollector("test", func() (prometheus.Collector, error) {
		return Collectors(counter, gauge), nil
	}))
	require.Error(t, RegisterCollector("test", nil))

	counter.Add(3)
	gauge.Set(7)

	g, err := NewMetricGatherer()
	require.NoError(t, err)

	v, err := Value(g, "pagesteer_test_events_total")
	require.NoError(t, err)
	require.Equal(t, 3.0, v)

	v, err = Value(g, "pagesteer_test_level")
	require.NoError(t, err)
	require.Equal(t, 7.0, v)

	_, err = Value(g, "pagesteer_no_such_metric")
	require.Error(t, err)

	buf := &bytes.Buffer{}
	require.NoError(t, Dump(buf, g))
	require.Contains(t, buf.String(), "# HELP pagesteer_test_events_total Test events.")
	require.Contains(t, buf.String(), "pagesteer_test_events_total 3")

	// a second gatherer reuses already initialized collectors
	_, err = NewMetricGatherer()
	require.NoError(t, err)
}
