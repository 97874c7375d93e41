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
	"os"
	"os/signal"
)

// signals delivers the debug toggle signal, if one is set up.
var signals chan os.Signal

// ToggleDebug flips forced full debugging and returns the new state.
func ToggleDebug() bool {
	forced := !log.debugForced()
	log.forceDebug(forced)
	if forced {
		deflog.Warn("forced full debugging enabled")
	} else {
		deflog.Warn("forced full debugging disabled")
	}
	return forced
}

// SetupDebugToggleSignal calls ToggleDebug every time sig is delivered. It
// replaces any earlier toggle signal.
func SetupDebugToggleSignal(sig os.Signal) {
	log.Lock()
	defer log.Unlock()

	stopToggleSignal()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sig)
	signals = ch

	go func() {
		for range ch {
			ToggleDebug()
		}
	}()
}

// ClearDebugToggleSignal stops toggling debugging by signal.
func ClearDebugToggleSignal() {
	log.Lock()
	defer log.Unlock()
	stopToggleSignal()
}

func stopToggleSignal() {
	if signals != nil {
		signal.Stop(signals)
		close(signals)
		signals = nil
	}
}
