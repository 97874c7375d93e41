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
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/intel/pagesteer/pkg/utils/cpuset"
)

// PinThread locks the calling goroutine to its OS thread and restricts the
// thread to the given CPUs. Page allocations are served from the per-CPU
// lists of the CPU the thread runs on, so everything that frees or allocates
// pages with the intent of steering the allocator must stay on one CPU. The
// returned function restores the original affinity and unlocks the thread.
func PinThread(cpus cpuset.CPUSet) (func(), error) {
	if cpus.Size() == 0 {
		return nil, errors.New("can't pin thread to an empty cpuset")
	}

	runtime.LockOSThread()

	var orig unix.CPUSet
	if err := unix.SchedGetaffinity(0, &orig); err != nil {
		runtime.UnlockOSThread()
		return nil, errors.Wrap(err, "failed to get CPU affinity")
	}

	var mask unix.CPUSet
	mask.Zero()
	for _, cpu := range cpus.List() {
		mask.Set(cpu)
	}
	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		runtime.UnlockOSThread()
		return nil, errors.Wrapf(err, "failed to pin thread to CPUs %s", cpus.String())
	}

	return func() {
		_ = unix.SchedSetaffinity(0, &orig)
		runtime.UnlockOSThread()
	}, nil
}

// CurrentCPUs returns the set of CPUs the calling thread may run on.
func CurrentCPUs() (cpuset.CPUSet, error) {
	var mask unix.CPUSet
	if err := unix.SchedGetaffinity(0, &mask); err != nil {
		return cpuset.New(), errors.Wrap(err, "failed to get CPU affinity")
	}

	cpus := []int{}
	for cpu := 0; cpu < len(mask)*64; cpu++ {
		if mask.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}
	return cpuset.New(cpus...), nil
}
