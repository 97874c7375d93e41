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

package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Count   int
	Name    string
	Timeout Duration
}

func defaultTestConfig() interface{} {
	return &testConfig{
		Count:   1,
		Name:    "default",
		Timeout: Duration(time.Second),
	}
}

func TestRegisterResetsToDefaults(t *testing.T) {
	cfg := &testConfig{Count: 42}
	Register("test-register", "test module", cfg, defaultTestConfig)

	require.Equal(t, 1, cfg.Count)
	require.Equal(t, "default", cfg.Name)
	require.Equal(t, time.Second, cfg.Timeout.Duration())
	require.Contains(t, Modules(), "test-register")

	require.Panics(t, func() {
		Register("test-register", "duplicate", &testConfig{}, defaultTestConfig)
	})
}

func TestSetConfig(t *testing.T) {
	cfg := &testConfig{}
	events := []Event{}
	Register("test-set", "test module", cfg, defaultTestConfig,
		WithNotify(func(e Event, _ Source) error {
			events = append(events, e)
			return nil
		}),
	)

	err := SetConfig(Data{
		"test-set": map[string]interface{}{
			"Count":   5,
			"Timeout": "250ms",
		},
	})
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Count)
	require.Equal(t, "default", cfg.Name, "unset value should keep its default")
	require.Equal(t, 250*time.Millisecond, cfg.Timeout.Duration())
	require.Equal(t, []Event{UpdateEvent}, events)

	require.NoError(t, SetConfig(Data{}))
	require.Equal(t, 1, cfg.Count, "module missing from data should be reset")
}

func TestDottedKeys(t *testing.T) {
	cfg := &testConfig{}
	Register("test-dotted", "test module", cfg, defaultTestConfig)

	require.NoError(t, SetConfig(Data{"test-dotted.Name": "dotted"}))
	require.Equal(t, "dotted", cfg.Name)
}

func TestInvalidConfigIsRejected(t *testing.T) {
	cfg := &testConfig{}
	Register("test-invalid", "test module", cfg, defaultTestConfig)

	require.NoError(t, SetConfig(Data{"test-invalid": map[string]interface{}{"Count": 3}}))

	err := SetConfig(Data{"no-such-module": map[string]interface{}{}})
	require.Error(t, err)
	require.Equal(t, 3, cfg.Count)

	err = SetConfig(Data{"test-invalid": map[string]interface{}{"Bogus": 1}})
	require.Error(t, err)
	require.Equal(t, 3, cfg.Count, "rejected configuration should be reverted")
}

func TestNotifierRejectionReverts(t *testing.T) {
	cfg := &testConfig{}
	reverted := false
	Register("test-reject", "test module", cfg, defaultTestConfig,
		WithNotify(func(e Event, _ Source) error {
			if e == RevertEvent {
				reverted = true
				return nil
			}
			if cfg.Count < 0 {
				return errors.New("negative count")
			}
			return nil
		}),
	)

	require.NoError(t, SetConfig(Data{"test-reject": map[string]interface{}{"Count": 7}}))
	require.False(t, reverted)

	err := SetConfig(Data{"test-reject": map[string]interface{}{"Count": -1}})
	require.Error(t, err)
	require.True(t, reverted)
	require.Equal(t, 7, cfg.Count)
}

func TestSetConfigFromFile(t *testing.T) {
	cfg := &testConfig{}
	Register("test-file", "test module", cfg, defaultTestConfig)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("test-file:\n  Name: from-file\n  Count: 9\n"), 0o644))

	require.NoError(t, SetConfigFromFile(path))
	require.Equal(t, "from-file", cfg.Name)
	require.Equal(t, 9, cfg.Count)

	data, err := GetConfig()
	require.NoError(t, err)
	require.Contains(t, data, "test-file")

	require.NoError(t, Reset())
	require.Equal(t, "default", cfg.Name)

	require.Error(t, SetConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestDescribe(t *testing.T) {
	Register("test-describe", "Test module.\nIt has a longer help text.", &testConfig{}, defaultTestConfig)

	buf := &bytes.Buffer{}
	Describe(buf, "test-describe")
	require.Contains(t, buf.String(), "module test-describe: Test module.")
	require.Contains(t, buf.String(), "It has a longer help text.")

	buf.Reset()
	Describe(buf, "no-such-module")
	require.Contains(t, buf.String(), "No matching modules found.")
}
