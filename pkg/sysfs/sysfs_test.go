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

package sysfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadMemInfo(t *testing.T) {
	mi, err := ReadMemInfo("testdata/meminfo")
	require.NoError(t, err)
	require.Equal(t, uint64(32768000*1024), mi.MemTotal)
	require.Equal(t, uint64(16384000*1024), mi.MemFree)
	require.Equal(t, uint64(20480000*1024), mi.MemAvailable)
	require.Equal(t, uint64(64*1024), mi.Mlocked)
	require.Equal(t, uint64(81920*1024), mi.PageTables)

	_, err = ReadMemInfo("testdata/no-such-file")
	require.Error(t, err)
}

func TestReadBuddyInfo(t *testing.T) {
	zones, err := ReadBuddyInfo("testdata/buddyinfo")
	require.NoError(t, err)
	require.Len(t, zones, 3)

	normal := zones[2]
	require.Equal(t, 0, normal.Node)
	require.Equal(t, "Normal", normal.Zone)
	require.Len(t, normal.Free, 11)
	require.Equal(t, uint64(4231), normal.Free[0])
	require.Equal(t, uint64(2<<8+3<<9+1200<<10), normal.FreePages(8))
}

func TestReadCPUList(t *testing.T) {
	cpus, err := ReadCPUList("testdata/online")
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3, 8}, cpus.List())

	online, err := OnlineCPUs()
	require.NoError(t, err)
	require.NotZero(t, online.Size())
}

func TestAvailablePhysPages(t *testing.T) {
	pages, err := AvailablePhysPages()
	require.NoError(t, err)
	require.NotZero(t, pages)
}

func TestParseNumeric(t *testing.T) {
	var v uint64
	require.NoError(t, parseNumeric("test", "4 kB", &v))
	require.Equal(t, uint64(4096), v)
	require.Error(t, parseNumeric("test", "4 parsecs", &v))
	require.Error(t, parseNumeric("test", "four", &v))

	var f float64
	require.Error(t, parseNumeric("test", "1", &f))
}
