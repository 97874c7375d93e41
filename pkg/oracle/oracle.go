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

// Package oracle provides the diagnostic queries used to observe and verify
// the effect of allocator steering: the PCP page count, virtual to physical
// translation, and physical memory reads. The queries never drive steering
// decisions other than locating candidate blocks.
package oracle

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"

	logger "github.com/intel/pagesteer/pkg/log"
	"github.com/intel/pagesteer/pkg/pageset"
)

// PhysAddr is a physical address.
type PhysAddr uint64

// String returns the physical address in hex.
func (pa PhysAddr) String() string {
	return fmt.Sprintf("0x%x", uint64(pa))
}

// Oracle answers diagnostic queries about physical memory.
type Oracle interface {
	// Blocks returns the number of pages on the per-CPU page lists.
	Blocks() (uint64, error)
	// VirtToPhys translates a resident virtual address of the calling process.
	VirtToPhys(addr pageset.Addr) (PhysAddr, error)
	// ReadPhys reads the 8-byte value at the given physical address.
	ReadPhys(pa PhysAddr) (uint64, error)
	// Close releases the resources of the oracle.
	Close() error
}

var (
	// ErrUnsupported is returned for queries a backend cannot answer.
	ErrUnsupported = errors.New("query not supported by oracle backend")
	// ErrNotPresent is returned when translating a non-resident page.
	ErrNotPresent = errors.New("page not present")
)

// OpenFn opens an oracle backend with the given options.
type OpenFn func(*Options) (Oracle, error)

var (
	log = logger.Get("oracle")

	backendsLock sync.Mutex
	backends     = map[string]OpenFn{}
)

// Register registers an oracle backend.
func Register(name string, fn OpenFn) {
	backendsLock.Lock()
	defer backendsLock.Unlock()

	if _, ok := backends[name]; ok {
		log.Panic("oracle backend %q already registered", name)
	}
	backends[name] = fn
}

// Backends returns the names of the registered backends.
func Backends() []string {
	backendsLock.Lock()
	defer backendsLock.Unlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens the named backend using the runtime configuration.
func Open(name string) (Oracle, error) {
	return OpenWithOptions(name, opt)
}

// OpenDefault opens the configured backend.
func OpenDefault() (Oracle, error) {
	return OpenWithOptions(opt.Backend, opt)
}

// OpenWithOptions opens the named backend with the given options.
func OpenWithOptions(name string, o *Options) (Oracle, error) {
	backendsLock.Lock()
	fn, ok := backends[name]
	backendsLock.Unlock()

	if !ok {
		return nil, errors.Errorf("unknown oracle backend %q (available: %v)", name, Backends())
	}

	o2, err := fn(o)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open oracle backend %q", name)
	}
	log.Debug("opened oracle backend %q", name)

	return o2, nil
}
