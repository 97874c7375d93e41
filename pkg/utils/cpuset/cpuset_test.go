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

package cpuset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShortCPUSet(t *testing.T) {
	tcs := []struct {
		cpus   string
		expect string
	}{
		{cpus: "0", expect: "0"},
		{cpus: "0-3", expect: "0-3"},
		{cpus: "0,2,4,6", expect: "0-6:2"},
		{cpus: "0,4", expect: "0,4"},
	}
	for _, tc := range tcs {
		t.Run(tc.cpus, func(t *testing.T) {
			require.Equal(t, tc.expect, ShortCPUSet(MustParse(tc.cpus)))
		})
	}

	require.Panics(t, func() { MustParse("not-a-cpuset") })
}
