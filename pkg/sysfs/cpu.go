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
	"os"
	"strings"

	"github.com/intel/pagesteer/pkg/utils/cpuset"
)

// OnlineCPUsPath is the default path of the online CPU list.
const OnlineCPUsPath = "/sys/devices/system/cpu/online"

// OnlineCPUs returns the set of online CPUs.
func OnlineCPUs() (cpuset.CPUSet, error) {
	return ReadCPUList(OnlineCPUsPath)
}

// ReadCPUList reads a CPU list file, such as the online CPUs.
func ReadCPUList(path string) (cpuset.CPUSet, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return cpuset.New(), sysfsError(path, "failed to read CPU list: %v", err)
	}
	cpus, err := cpuset.Parse(strings.TrimSpace(string(blob)))
	if err != nil {
		return cpuset.New(), sysfsError(path, "invalid CPU list: %v", err)
	}
	return cpus, nil
}
