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

// Package metricsring keeps a bounded window of recent round outcomes and
// tracks their exponentially weighted moving average.
package metricsring

import (
	"container/ring"
	"time"

	"github.com/VividCortex/ewma"
)

// Outcome values pushed for passed and failed rounds.
const (
	Pass = 1.0
	Fail = 0.0
)

// Window is a fixed size window of samples.
type Window interface {
	// Push adds a new sample, dropping the oldest one if the window is full.
	Push(v float64)
	// Rate returns the moving average of all samples ever pushed.
	Rate() float64
	// Mean returns the plain average of the samples in the window.
	Mean() float64
	// Span returns the time between the oldest and the newest sample.
	Span() time.Duration
	// Len returns the number of samples in the window.
	Len() int
	// Cap returns the capacity of the window.
	Cap() int
	// Last returns the newest count samples in push order.
	Last(count int) []float64
}

type window struct {
	r  *ring.Ring // next slot to fill
	n  int
	ma ewma.MovingAverage
}

type sample struct {
	v     float64
	stamp time.Time
}

// New creates a window of the given capacity. The moving average has a
// warm-up period of 10 samples, Rate falls back to Mean until then.
func New(capacity int) Window {
	if capacity < 1 {
		capacity = 1
	}
	return &window{
		r:  ring.New(capacity),
		ma: ewma.NewMovingAverage(float64(capacity)),
	}
}

func (w *window) Push(v float64) {
	w.r.Value = sample{v: v, stamp: time.Now()}
	w.r = w.r.Next()
	w.ma.Add(v)
	if w.n < w.r.Len() {
		w.n++
	}
}

func (w *window) Rate() float64 {
	if rate := w.ma.Value(); rate != 0 || w.n == 0 {
		return rate
	}
	return w.Mean()
}

func (w *window) Mean() float64 {
	if w.n == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range w.Last(w.n) {
		sum += v
	}
	return sum / float64(w.n)
}

func (w *window) Span() time.Duration {
	if w.n < 2 {
		return 0
	}
	newest := w.r.Prev().Value.(sample).stamp
	oldest := w.r.Move(-w.n).Value.(sample).stamp
	return newest.Sub(oldest)
}

func (w *window) Len() int {
	return w.n
}

func (w *window) Cap() int {
	return w.r.Len()
}

func (w *window) Last(count int) []float64 {
	if count > w.n {
		count = w.n
	}
	if count < 0 {
		count = 0
	}

	samples := make([]float64, 0, count)
	for r := w.r.Move(-count); len(samples) < count; r = r.Next() {
		samples = append(samples, r.Value.(sample).v)
	}

	return samples
}
