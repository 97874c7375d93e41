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

package pidfile

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testPidFile = "pidfile-test.pid"
)

func prepare(t *testing.T) *Lock {
	return New(filepath.Join(t.TempDir(), testPidFile))
}

func TestAcquireRelease(t *testing.T) {
	l := prepare(t)

	pid, err := l.Read()
	require.Nil(t, err)
	require.Equal(t, 0, pid)

	require.Nil(t, l.Acquire())
	require.True(t, l.Held())
	require.Nil(t, l.Acquire())

	pid, err = l.Read()
	require.Nil(t, err)
	require.Equal(t, os.Getpid(), pid)

	other := New(l.Path())
	require.NotNil(t, other.Acquire())
	require.False(t, other.Held())

	require.Nil(t, l.Release())
	require.False(t, l.Held())
	_, err = os.Stat(l.Path())
	require.True(t, os.IsNotExist(err))
	require.Nil(t, l.Release())

	require.Nil(t, other.Acquire())
	require.Nil(t, other.Release())
}

func TestStalePidFile(t *testing.T) {
	l := prepare(t)

	// pid_max can never exceed 2^22, so this process cannot exist
	stale := strconv.Itoa(1<<22+1) + "\n"
	require.Nil(t, os.WriteFile(l.Path(), []byte(stale), 0644))

	owner, err := l.Owner()
	require.Nil(t, err)
	require.Equal(t, 0, owner)

	require.Nil(t, l.Acquire())
	pid, err := l.Read()
	require.Nil(t, err)
	require.Equal(t, os.Getpid(), pid)
	require.Nil(t, l.Release())
}

func TestInvalidPidFile(t *testing.T) {
	l := prepare(t)
	require.Nil(t, os.WriteFile(l.Path(), []byte("garbage\n"), 0644))

	pid, err := l.Read()
	require.NotNil(t, err)
	require.Equal(t, -1, pid)
	require.NotNil(t, l.Acquire())
}

func TestDefaultPath(t *testing.T) {
	require.Equal(t, DefaultPath(), New("").Path())
}
