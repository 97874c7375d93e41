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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	Logger
	messages []string
}

func (r *recorder) Debug(format string, args ...interface{}) {
	r.messages = append(r.messages, fmt.Sprintf(format, args...))
}

func TestRateLimitByFormat(t *testing.T) {
	r := &recorder{Logger: Default()}
	rl := RateLimit(r, Interval(time.Hour))

	for i := 1; i <= 5; i++ {
		rl.Debug("attempt %d failed", i)
	}
	rl.Debug("drained %d bytes", 4096)

	require.Equal(t, []string{"attempt 1 failed", "drained 4096 bytes"}, r.messages)
	require.Equal(t, 4, rl.(*ratelimited).limits["attempt %d failed"].suppressed)
}

func TestRateLimitSuppressedCount(t *testing.T) {
	r := &recorder{Logger: Default()}
	rl := RateLimit(r, Rate{Limit: Every(20 * time.Millisecond), Burst: 1})

	rl.Debug("attempt %d failed", 1)
	rl.Debug("attempt %d failed", 2)
	rl.Debug("attempt %d failed", 3)
	time.Sleep(40 * time.Millisecond)
	rl.Debug("attempt %d failed", 4)

	require.Equal(t, []string{
		"attempt 1 failed",
		"attempt 4 failed (2 similar messages suppressed)",
	}, r.messages)
}

func TestRateLimitWindow(t *testing.T) {
	rl := RateLimit(Default(), Rate{Window: 1, Limit: Every(time.Second)}).(*ratelimited)
	require.Equal(t, MinimumWindow, rl.rate.Window)

	first := rl.limitFor("format #0")
	for i := 1; i <= MinimumWindow; i++ {
		rl.limitFor(fmt.Sprintf("format #%d", i))
	}

	require.Len(t, rl.limits, MinimumWindow)
	require.NotContains(t, rl.limits, "format #0")
	require.NotSame(t, first, rl.limitFor("format #0"))
	require.Same(t, rl.limitFor("format #5"), rl.limitFor("format #5"))
}
