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
	"time"

	"github.com/intel/pagesteer/pkg/metricsring"
)

// RoundRunner runs a single round.
type RoundRunner interface {
	Run() (*Result, error)
}

// Summary accumulates the outcome of repeated rounds.
type Summary struct {
	Rounds int
	Passed int
	Failed int
	Errors int
	// PassTime is the total duration of the passed rounds.
	PassTime time.Duration
	// Rate is the moving success rate over the recent rounds.
	Rate float64
}

// AveragePassTime returns the average duration of passed rounds.
func (s *Summary) AveragePassTime() time.Duration {
	if s.Passed == 0 {
		return 0
	}
	return s.PassTime / time.Duration(s.Passed)
}

// Runner repeats rounds, keeping track of their outcome.
type Runner struct {
	round   RoundRunner
	opt     *Options
	window  metricsring.Window
	summary Summary
}

// NewRunner creates a runner. Nil options select the runtime configuration.
func NewRunner(round RoundRunner, opts *Options) *Runner {
	if opts == nil {
		opts = opt
	}
	return &Runner{
		round:  round,
		opt:    opts,
		window: metricsring.New(opts.RateWindow),
	}
}

// Summary returns the summary of the rounds run so far.
func (r *Runner) Summary() Summary {
	return r.summary
}

// Run runs count rounds, calling fn, if given, after each one. A round
// error stops the runner unless KeepGoing is set.
func (r *Runner) Run(count int, fn func(round int, res *Result, err error)) (*Summary, error) {
	for i := 0; i < count; i++ {
		start := time.Now()
		res, err := r.round.Run()
		r.account(res, err, time.Since(start))

		if fn != nil {
			fn(i, res, err)
		}

		if err != nil {
			log.Error("round %d failed: %v", i, err)
			if !r.opt.KeepGoing {
				s := r.summary
				return &s, err
			}
		}

		if i+1 < count && r.opt.Pause > 0 {
			time.Sleep(r.opt.Pause.Duration())
		}
	}

	s := r.summary
	return &s, nil
}

func (r *Runner) account(res *Result, err error, elapsed time.Duration) {
	r.summary.Rounds++

	switch {
	case err != nil:
		r.summary.Errors++
		rounds.WithLabelValues("error").Inc()
		r.window.Push(metricsring.Fail)
	case res.Passed:
		r.summary.Passed++
		r.summary.PassTime += res.Duration
		rounds.WithLabelValues("pass").Inc()
		r.window.Push(metricsring.Pass)
	default:
		r.summary.Failed++
		rounds.WithLabelValues("fail").Inc()
		r.window.Push(metricsring.Fail)
	}

	roundDuration.Observe(elapsed.Seconds())
	r.summary.Rate = r.window.Rate()
	successRate.Set(r.summary.Rate)
}
