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

package mapping

import (
	"golang.org/x/sys/unix"
)

const (
	// Marker is the payload written into backing files so that their page
	// gets dirtied and actually instantiated.
	Marker = "ffffffff"
	// memfdName is the name used for memfd fallback files.
	memfdName = "pagesteer"
)

// OpenTmpFile creates an unnamed temporary file in dir. If the filesystem
// of dir does not support O_TMPFILE, a memfd is created instead.
func OpenTmpFile(dir string) (int, error) {
	fd, err := unix.Open(dir, unix.O_TMPFILE|unix.O_RDWR|unix.O_CLOEXEC, 0600)
	if err == nil {
		return fd, nil
	}

	errno := errnoOf(err)
	switch errno {
	case unix.EOPNOTSUPP, unix.EISDIR, unix.EINVAL:
		log.Debug("O_TMPFILE not supported in %s (%v), falling back to memfd", dir, errno)
	default:
		return -1, &SystemError{Op: "open " + dir, Errno: errno}
	}

	fd, err = unix.MemfdCreate(memfdName, unix.MFD_CLOEXEC)
	if err != nil {
		return -1, &SystemError{Op: "memfd_create", Errno: errnoOf(err)}
	}
	return fd, nil
}

// WriteMarker writes Marker to fd.
func WriteMarker(fd int) error {
	n, err := unix.Write(fd, []byte(Marker))
	if err != nil {
		return &SystemError{Op: "write", Errno: errnoOf(err)}
	}
	if n != len(Marker) {
		return &SystemError{Op: "write", Errno: unix.EIO}
	}
	return nil
}

// Close closes fd.
func Close(fd int) error {
	if err := unix.Close(fd); err != nil {
		return &SystemError{Op: "close", Errno: errnoOf(err)}
	}
	return nil
}
