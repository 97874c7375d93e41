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

package log

import (
	"fmt"
	"sync"
	"time"

	goxrate "golang.org/x/time/rate"
)

// Rate specifies the maximum logging rate of a single message format.
type Rate struct {
	// rate limit
	Limit goxrate.Limit
	// allowed bursts
	Burst int
	// number of formats tracked
	Window int
}

const (
	// DefaultWindow is the default number of formats tracked.
	DefaultWindow = 256
	// MinimumWindow is the smallest number of formats tracked.
	MinimumWindow = 32
)

// Every defines a rate limit for the given interval.
func Every(interval time.Duration) goxrate.Limit {
	return goxrate.Every(interval)
}

// Interval returns a Rate for the given interval.
func Interval(interval time.Duration) Rate {
	return Rate{Limit: Every(interval), Burst: 1}
}

// ratelimited limits messages by their format, so a message repeated with
// changing arguments, such as an attempt counter, is limited as one.
type ratelimited struct {
	Logger
	sync.Mutex
	rate   Rate
	order  []string
	limits map[string]*limit
}

type limit struct {
	*goxrate.Limiter
	suppressed int
}

// RateLimit returns a rate-limited version of the given logger.
func RateLimit(log Logger, rate Rate) Logger {
	switch {
	case rate.Window == 0:
		rate.Window = DefaultWindow
	case rate.Window < MinimumWindow:
		rate.Window = MinimumWindow
	}
	if rate.Burst < 1 {
		rate.Burst = 1
	}
	return &ratelimited{
		Logger: log,
		rate:   rate,
		order:  make([]string, 0, rate.Window),
		limits: make(map[string]*limit),
	}
}

func (rl *ratelimited) Debug(format string, args ...interface{}) {
	if msg, ok := rl.filter(format, args...); ok {
		rl.Logger.Debug("%s", msg)
	}
}

func (rl *ratelimited) Info(format string, args ...interface{}) {
	if msg, ok := rl.filter(format, args...); ok {
		rl.Logger.Info("%s", msg)
	}
}

func (rl *ratelimited) Warn(format string, args ...interface{}) {
	if msg, ok := rl.filter(format, args...); ok {
		rl.Logger.Warn("%s", msg)
	}
}

func (rl *ratelimited) Error(format string, args ...interface{}) {
	if msg, ok := rl.filter(format, args...); ok {
		rl.Logger.Error("%s", msg)
	}
}

// filter formats the message if its format is within its rate, noting
// how many messages were suppressed since the last one let through.
func (rl *ratelimited) filter(format string, args ...interface{}) (string, bool) {
	rl.Lock()
	defer rl.Unlock()

	lim := rl.limitFor(format)
	if !lim.Allow() {
		lim.suppressed++
		return "", false
	}

	msg := fmt.Sprintf(format, args...)
	if lim.suppressed > 0 {
		msg = fmt.Sprintf("%s (%d similar messages suppressed)", msg, lim.suppressed)
		lim.suppressed = 0
	}
	return msg, true
}

// limitFor returns the limit of format, forgetting the oldest tracked
// format if the window is full. Called with the lock held.
func (rl *ratelimited) limitFor(format string) *limit {
	if lim, ok := rl.limits[format]; ok {
		return lim
	}

	if len(rl.order) >= rl.rate.Window {
		delete(rl.limits, rl.order[0])
		rl.order = rl.order[1:]
	}

	lim := &limit{Limiter: goxrate.NewLimiter(rl.rate.Limit, rl.rate.Burst)}
	rl.order = append(rl.order, format)
	rl.limits[format] = lim

	return lim
}
