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

package main

import (
	"github.com/intel/pagesteer/pkg/config"
)

// options configures the driver itself.
type options struct {
	// CPU is the CPU the driver runs on, empty for the first allowed one.
	CPU string `json:"cpu"`
	// PidFile is the lock preventing concurrent runs, empty for the default.
	PidFile string `json:"pidFile"`
	// Rounds is the default number of install rounds.
	Rounds int `json:"rounds"`
	// MetricsFile receives the collected metrics on exit, "-" for stdout.
	MetricsFile string `json:"metricsFile"`
}

var opt = defaultOptions().(*options)

func defaultOptions() interface{} {
	return &options{
		Rounds: 1,
	}
}

const configHelp = `Driver.
The driver pins itself to a single cpu, takes the pidFile lock and runs the
given command. Install runs rounds rounds unless overridden on the command
line. Metrics are written to metricsFile, if set, when the driver exits.`

func init() {
	config.Register("driver", configHelp, opt, defaultOptions)
}
