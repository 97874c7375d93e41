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
	"github.com/intel/pagesteer/pkg/config"
)

// Options configures the oracle backends.
type Options struct {
	// Backend is the name of the backend to use.
	Backend string `json:"backend"`
	// Device is the character device of the diagnostic kernel module.
	Device string `json:"device"`
	// Pagemap is the pagemap file used for translation.
	Pagemap string `json:"pagemap"`
	// Mem is the physical memory device used for reads.
	Mem string `json:"mem"`
}

const (
	// RubenchBackend queries the diagnostic kernel module.
	RubenchBackend = "rubench"
	// PagemapBackend translates using the pagemap of the process.
	PagemapBackend = "pagemap"
	// DevMemBackend reads physical memory through /dev/mem.
	DevMemBackend = "devmem"
	// PagemapDevMemBackend combines pagemap translation with /dev/mem reads.
	PagemapDevMemBackend = "pagemap+devmem"
)

var opt = defaultOptions().(*Options)

func defaultOptions() interface{} {
	return &Options{
		Backend: RubenchBackend,
		Device:  "/dev/rubench",
		Pagemap: "/proc/self/pagemap",
		Mem:     "/dev/mem",
	}
}

const configHelp = `Diagnostic oracle.
Selects how physical addresses are observed. The rubench backend uses the
diagnostic kernel module. The pagemap+devmem backend works without it but
needs CAP_SYS_ADMIN for translation and a kernel allowing /dev/mem reads.`

func init() {
	config.Register("oracle", configHelp, opt, defaultOptions)
}
