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

package escalate

import (
	"github.com/pkg/errors"

	"github.com/intel/pagesteer/pkg/mapping"
	"github.com/intel/pagesteer/pkg/pageset"
)

// Spray is a set of single-page mappings of one file, Stride bytes apart.
// With a stride of pageset.PageTableSpan every mapping needs a page table
// of its own.
type Spray struct {
	Base   pageset.Addr
	Count  int
	Stride uintptr
	Fd     int
}

// Addresses returns the addresses of the spray.
func (s *Spray) Addresses() ([]pageset.Addr, error) {
	return pageset.StridedAddresses(s.Base, s.Count, s.Stride)
}

// Map maps all pages of the spray. Pages mapped before a failure stay mapped.
func (s *Spray) Map(m mapping.Mapper) error {
	addrs, err := s.Addresses()
	if err != nil {
		return err
	}
	if err := m.MapPages(addrs, s.Fd); err != nil {
		return errors.Wrapf(err, "failed to spray %d page tables", s.Count)
	}
	log.Debug("sprayed %d pages at %s", s.Count, s.Base)
	return nil
}

// Unmap unmaps all but the first page of the spray. The page tables
// allocated for them stay behind.
func (s *Spray) Unmap(m mapping.Mapper) error {
	addrs, err := s.Addresses()
	if err != nil || len(addrs) < 2 {
		return err
	}
	if err := m.UnmapPages(addrs[1:]); err != nil {
		return errors.Wrap(err, "failed to unspray page tables")
	}
	return nil
}

// Release unmaps the first page of the spray.
func (s *Spray) Release(m mapping.Mapper) error {
	if s.Count == 0 {
		return nil
	}
	return m.UnmapPages([]pageset.Addr{s.Base})
}

// Clear unmaps every page of the spray, mapped or not. It is used to
// clean up after a partially failed Map.
func (s *Spray) Clear(m mapping.Mapper) error {
	addrs, err := s.Addresses()
	if err != nil {
		return err
	}
	return m.UnmapPages(addrs)
}
