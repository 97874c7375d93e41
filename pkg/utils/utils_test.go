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

package utils

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intel/pagesteer/pkg/utils/cpuset"
)

func TestParseEnabled(t *testing.T) {
	for _, v := range []string{"on", "ON", "true", "yes", "enable", "1"} {
		enabled, err := ParseEnabled(v)
		require.NoError(t, err, v)
		require.True(t, enabled, v)
	}
	for _, v := range []string{"off", "False", "no", "disabled", "0"} {
		enabled, err := ParseEnabled(v)
		require.NoError(t, err, v)
		require.False(t, enabled, v)
	}
	_, err := ParseEnabled("maybe")
	require.Error(t, err)
}

func TestPinThread(t *testing.T) {
	cpus, err := CurrentCPUs()
	require.NoError(t, err)
	require.NotZero(t, cpus.Size())

	first := cpus.List()[0]
	unpin, err := PinThread(cpuset.New(first))
	require.NoError(t, err)

	pinned, err := CurrentCPUs()
	require.NoError(t, err)
	require.Equal(t, []int{first}, pinned.List())

	unpin()

	_, err = PinThread(cpuset.New())
	require.Error(t, err)
}
