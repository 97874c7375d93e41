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

// Package pidfile implements a PID file based lock which keeps more than
// one steering process from running on the same host at a time.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// Lock is a PID file held by this process.
type Lock struct {
	path string
	file *os.File
}

// New returns a lock for the given path, or the default path if path is empty.
func New(path string) *Lock {
	if path == "" {
		path = DefaultPath()
	}
	return &Lock{path: path}
}

// Path returns the path of the PID file.
func (l *Lock) Path() string {
	return l.path
}

// Held returns true if this process holds the lock.
func (l *Lock) Held() bool {
	return l.file != nil
}

// Acquire creates the PID file and writes our PID to it. A stale PID file
// left behind by a process which no longer exists is removed first. If
// another live process owns the file Acquire fails.
func (l *Lock) Acquire() error {
	if l.file != nil {
		return nil
	}

	owner, err := l.Owner()
	if err != nil {
		return err
	}
	switch {
	case owner == os.Getpid():
		return errors.Errorf("PID file %s already written by us", l.path)
	case owner > 0:
		return errors.Errorf("PID file %s is owned by running process %d", l.path, owner)
	}

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove stale PID file")
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return errors.Wrap(err, "failed to create PID file")
	}

	l.file, err = os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		l.file = nil
		return errors.Wrap(err, "failed to create PID file")
	}

	if _, err = l.file.Write([]byte(fmt.Sprintf("%d\n", os.Getpid()))); err != nil {
		l.Release()
		return errors.Wrap(err, "failed to write PID file")
	}

	return nil
}

// Release closes and removes the PID file if we hold it.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	l.file.Close()
	l.file = nil
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove PID file")
	}
	return nil
}

// Read returns the PID found in the file, or 0 if the file does not exist.
func (l *Lock) Read() (int, error) {
	buf, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return -1, errors.Wrap(err, "failed to read PID file")
	}

	pid, err := strconv.Atoi(strings.TrimRight(string(buf), "\n"))
	if err != nil {
		return -1, errors.Wrapf(err, "invalid PID (%q) in PID file", string(buf))
	}

	return pid, nil
}

// Owner returns the ID of the live process owning the PID file. 0 is
// returned if no process owns the file.
func (l *Lock) Owner() (int, error) {
	pid, err := l.Read()
	if err != nil || pid == 0 {
		return pid, err
	}

	p, err := os.FindProcess(pid)
	if err != nil {
		return -1, errors.Wrapf(err, "FindProcess() failed for PID %d", pid)
	}

	err = p.Signal(syscall.Signal(0))
	switch {
	case err == nil:
		return pid, nil
	case err == os.ErrProcessDone, errors.Is(err, syscall.ESRCH):
		return 0, nil
	case errors.Is(err, syscall.EPERM):
		return pid, nil
	}

	return -1, errors.Wrapf(err, "failed to check process %d", pid)
}

// DefaultPath returns the default PID file path.
func DefaultPath() string {
	name := "pagesteer"
	if len(os.Args) > 0 {
		name = filepath.Base(os.Args[0])
	}
	if os.Geteuid() > 0 {
		return filepath.Join(os.TempDir(), name+".pid")
	}
	return filepath.Join("/", "var", "run", name+".pid")
}
