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
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/intel/pagesteer/pkg/config"
	"github.com/intel/pagesteer/pkg/mapping/mappingtest"
	"github.com/intel/pagesteer/pkg/oracle"
	"github.com/intel/pagesteer/pkg/oracle/oracletest"
	"github.com/intel/pagesteer/pkg/pageset"
	"github.com/intel/pagesteer/pkg/utils/cpuset"
)

const testConfig = `
pcp:
  flushSize: 1M
block:
  reserve: 1M
  blockSize: 4M
escalate:
  sprayCount: 64
driver:
  rounds: 3
`

type driverSetup struct {
	m   *mappingtest.Fake
	o   *oracletest.Fake
	out *bytes.Buffer
	d   *Driver
}

func setupDriver(t *testing.T) *driverSetup {
	path := filepath.Join(t.TempDir(), "pagesteer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0644))
	require.NoError(t, config.SetConfigFromFile(path))
	t.Cleanup(func() { require.NoError(t, config.Reset()) })

	s := &driverSetup{
		m:   mappingtest.NewFake(17 << 20),
		o:   oracletest.NewFake(),
		out: &bytes.Buffer{},
	}
	s.o.Translate = s.m.Translate
	s.d = NewDriver(s.out, s.m, func() (oracle.Oracle, error) { return s.o, nil })

	return s
}

func TestSelectCPU(t *testing.T) {
	allowed := cpuset.MustParse("2-5")
	online := cpuset.MustParse("0-3")

	tcases := []struct {
		name     string
		request  string
		expected string
		err      bool
	}{
		{name: "first usable", request: "", expected: "2"},
		{name: "requested", request: "3", expected: "3"},
		{name: "offline", request: "4", err: true},
		{name: "not allowed", request: "1", err: true},
		{name: "more than one", request: "2,3", err: true},
		{name: "garbage", request: "two", err: true},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			cpus, err := SelectCPU(tc.request, allowed, online)
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, cpus.String())
		})
	}

	_, err := SelectCPU("", allowed, cpuset.MustParse("0-1"))
	require.Error(t, err)
}

func TestCommands(t *testing.T) {
	require.True(t, NeedsMachine("install"))
	require.True(t, NeedsMachine("pcp"))
	require.False(t, NeedsMachine("config"))
	require.False(t, NeedsMachine("bogus"))

	out := &bytes.Buffer{}
	Usage(out)
	for _, cmd := range commands {
		require.Contains(t, out.String(), cmd.name)
	}

	s := setupDriver(t)
	require.Error(t, s.d.Run(nil))
	require.Error(t, s.d.Run([]string{"bogus"}))
	require.True(t, errors.Is(s.d.Run([]string{"install", "-h"}), flag.ErrHelp))
	require.Contains(t, s.out.String(), "usage: install")
}

func TestPCPCommand(t *testing.T) {
	s := setupDriver(t)
	s.o.PCP = 7

	require.NoError(t, s.d.Run([]string{"pcp", "-count", "2"}))
	require.Contains(t, s.out.String(), "flush #1: 7 -> 7 pages")
	require.Equal(t, 2, s.m.Count("mmap"))
	require.Zero(t, s.m.MappedPages())

	require.Error(t, s.d.Run([]string{"pcp", "-method", "shake"}))

	s.o.Err = errors.New("no device")
	require.Error(t, s.d.Run([]string{"pcp"}))
}

func TestBlockCommand(t *testing.T) {
	s := setupDriver(t)

	require.NoError(t, s.d.Run([]string{"block", "-count", "2"}))
	require.Contains(t, s.out.String(), "block #1: 0x200000000000")
	require.Contains(t, s.out.String(), "attempts: 1,")
	require.Zero(t, s.m.MappedPages())

	require.Error(t, s.d.Run([]string{"block", "-reserve", "16M", "-attempts", "1"}))
}

func TestInstallCommand(t *testing.T) {
	s := setupDriver(t)

	require.NoError(t, s.d.Run([]string{"install", "-v"}))
	require.Contains(t, s.out.String(), "round #2: passed=false")
	require.Contains(t, s.out.String(), "rounds: 3, passed: 0, failed: 3, errors: 0")
	require.Empty(t, s.m.OpenFds())
	require.Zero(t, s.m.MappedPages())
	require.Zero(t, s.m.LockedPages())

	require.Error(t, s.d.Run([]string{"install", "-layout", "spiral"}))
}

func TestTranslateCommand(t *testing.T) {
	s := setupDriver(t)
	s.o.Translate = nil
	s.o.MapRange(0x7f0000000000, 0x123000, pageset.PageSize)
	s.o.Mem[0x123008] = 0xabc

	require.NoError(t, s.d.Run([]string{"translate", "0x7f0000000010"}))
	require.Contains(t, s.out.String(), "-> 0x123010")

	require.NoError(t, s.d.Run([]string{"translate", "-phys", "0x123008"}))
	require.Contains(t, s.out.String(), "0x0000000000000abc")

	require.Error(t, s.d.Run([]string{"translate"}))
	require.Error(t, s.d.Run([]string{"translate", "0x7f0000100000"}))
	require.Error(t, s.d.Run([]string{"translate", "nowhere"}))

	require.NoError(t, s.d.Close())
	require.True(t, s.o.Closed())
}

func TestConfigCommand(t *testing.T) {
	s := setupDriver(t)

	require.NoError(t, s.d.Run([]string{"config", "driver"}))
	require.Contains(t, s.out.String(), "module driver")

	s.out.Reset()
	require.NoError(t, s.d.Run([]string{"config", "-dump"}))
	require.Contains(t, s.out.String(), "sprayCount: 64")
	require.Contains(t, s.out.String(), "rounds: 3")
}
