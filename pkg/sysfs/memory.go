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
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	// MemInfoPath is the default path of the system memory information.
	MemInfoPath = "/proc/meminfo"
	// BuddyInfoPath is the default path of the free block counts.
	BuddyInfoPath = "/proc/buddyinfo"
)

// AvailablePhysPages returns the number of free physical pages in the
// system, the same value sysconf(_SC_AVPHYS_PAGES) reports.
func AvailablePhysPages() (uint64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, errors.Wrap(err, "sysinfo failed")
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	return uint64(info.Freeram) * unit / uint64(os.Getpagesize()), nil
}

// MemInfo is the subset of /proc/meminfo we care about, in bytes.
type MemInfo struct {
	MemTotal     uint64
	MemFree      uint64
	MemAvailable uint64
	Mlocked      uint64
	PageTables   uint64
}

// ReadMemInfo parses a meminfo file.
func ReadMemInfo(path string) (*MemInfo, error) {
	mi := &MemInfo{}
	err := ParseFileEntries(path,
		map[string]interface{}{
			"MemTotal":     &mi.MemTotal,
			"MemFree":      &mi.MemFree,
			"MemAvailable": &mi.MemAvailable,
			"Mlocked":      &mi.Mlocked,
			"PageTables":   &mi.PageTables,
		},
		PickColonSeparated,
	)
	if err != nil {
		return nil, err
	}
	return mi, nil
}

// BuddyZone is the free block count of one zone, per order.
type BuddyZone struct {
	Node int
	Zone string
	Free []uint64
}

// FreePages returns the number of free pages in blocks of at least the given order.
func (z *BuddyZone) FreePages(minOrder int) uint64 {
	pages := uint64(0)
	for order := minOrder; order < len(z.Free); order++ {
		pages += z.Free[order] << order
	}
	return pages
}

// ReadBuddyInfo parses a buddyinfo file. Lines look like
//
//	Node 0, zone   Normal   4231   2049    873 ...
func ReadBuddyInfo(path string) ([]BuddyZone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sysfsError(path, "failed to read file: %v", err)
	}

	zones := []BuddyZone{}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 5 || fields[0] != "Node" || fields[2] != "zone" {
			return nil, sysfsError(path, "malformed line %q", line)
		}

		node, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, sysfsError(path, "invalid node in line %q", line)
		}
		z := BuddyZone{Node: node, Zone: fields[3]}
		for _, f := range fields[4:] {
			n, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				return nil, sysfsError(path, "invalid free count %q in line %q", f, line)
			}
			z.Free = append(z.Free, n)
		}
		zones = append(zones, z)
	}

	return zones, nil
}
