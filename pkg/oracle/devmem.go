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
	"encoding/binary"
	"os"

	"github.com/pkg/errors"

	"github.com/intel/pagesteer/pkg/pageset"
)

// devmem reads physical memory through a memory device.
type devmem struct {
	f *os.File
}

func openDevMem(o *Options) (Oracle, error) {
	f, err := os.Open(o.Mem)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open physical memory device")
	}
	return &devmem{f: f}, nil
}

func (d *devmem) ReadPhys(pa PhysAddr) (uint64, error) {
	buf := make([]byte, 8)
	if _, err := d.f.ReadAt(buf, int64(pa)); err != nil {
		return 0, errors.Wrapf(err, "failed to read physical address %s", pa)
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func (d *devmem) Blocks() (uint64, error) {
	return 0, ErrUnsupported
}

func (d *devmem) VirtToPhys(pageset.Addr) (PhysAddr, error) {
	return 0, ErrUnsupported
}

func (d *devmem) Close() error {
	return d.f.Close()
}

func init() {
	Register(DevMemBackend, openDevMem)
}
