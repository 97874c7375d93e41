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

package oracle

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/intel/pagesteer/pkg/pageset"
)

// ioctl request encoding, see include/uapi/asm-generic/ioctl.h
const (
	iocWrite = 1
	iocRead  = 2

	iocNrShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	rubenchMagic = 'R'
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | size<<iocSizeShift | typ<<iocTypeShift | nr<<iocNrShift
}

type rubenchGetBlocks struct {
	numPages uint64
}

type rubenchVAToPA struct {
	va uint64
	pa uint64
}

type rubenchReadPhys struct {
	pa   uint64
	data uint64
}

var (
	rubenchGetBlocksReq = ioc(iocRead, rubenchMagic, 1, unsafe.Sizeof(rubenchGetBlocks{}))
	rubenchVAToPAReq    = ioc(iocRead|iocWrite, rubenchMagic, 2, unsafe.Sizeof(rubenchVAToPA{}))
	rubenchReadPhysReq  = ioc(iocRead|iocWrite, rubenchMagic, 3, unsafe.Sizeof(rubenchReadPhys{}))
)

// rubench is a connection to the diagnostic kernel module.
type rubench struct {
	*os.File
}

func openRubench(o *Options) (Oracle, error) {
	f, err := os.OpenFile(o.Device, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open diagnostic device")
	}
	return &rubench{File: f}, nil
}

func (r *rubench) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, r.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errors.Wrapf(errno, "ioctl 0x%x on %s failed", req, r.Name())
	}
	return nil
}

func (r *rubench) Blocks() (uint64, error) {
	data := rubenchGetBlocks{}
	if err := r.ioctl(rubenchGetBlocksReq, unsafe.Pointer(&data)); err != nil {
		return 0, err
	}
	return data.numPages, nil
}

func (r *rubench) VirtToPhys(addr pageset.Addr) (PhysAddr, error) {
	data := rubenchVAToPA{va: uint64(addr)}
	if err := r.ioctl(rubenchVAToPAReq, unsafe.Pointer(&data)); err != nil {
		return 0, errors.Wrapf(err, "failed to translate %s", addr)
	}
	return PhysAddr(data.pa), nil
}

func (r *rubench) ReadPhys(pa PhysAddr) (uint64, error) {
	data := rubenchReadPhys{pa: uint64(pa)}
	if err := r.ioctl(rubenchReadPhysReq, unsafe.Pointer(&data)); err != nil {
		return 0, errors.Wrapf(err, "failed to read physical address %s", pa)
	}
	return data.data, nil
}

func (r *rubench) Close() error {
	return r.File.Close()
}

func init() {
	Register(RubenchBackend, openRubench)
}
