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

package config

import (
	"fmt"
	"io"
	"reflect"
	"strings"
)

// Describe writes help about the configuration of the named modules, or all
// modules if no names are given.
func Describe(w io.Writer, names ...string) {
	reg.Lock()
	defer reg.Unlock()

	wanted := map[string]struct{}{}
	for _, name := range names {
		wanted[name] = struct{}{}
	}

	found := false
	for _, name := range reg.names() {
		if _, ok := wanted[name]; len(wanted) > 0 && !ok {
			continue
		}
		reg.modules[name].showHelp(w)
		fmt.Fprintf(w, "\n")
		found = true
	}

	if !found {
		fmt.Fprintf(w, "No matching modules found.\n")
	}
}

func (m *Module) setDescription(description string) {
	description = strings.Trim(description, "\n")

	if description == "" {
		m.description = "Module " + m.name + " has no description."
		return
	}

	if strings.IndexByte(description, '\n') == -1 {
		m.description = description
	} else {
		lines := strings.Split(description, "\n")
		m.description = lines[0]
		m.help = strings.Trim(strings.Join(lines[1:], "\n"), "\n")
	}
}

func (m *Module) showHelp(w io.Writer) {
	fmt.Fprintf(w, "- module %s: %s\n", m.name, m.description)
	if m.help != "" {
		fmt.Fprintf(w, "\n")
		for _, line := range strings.Split(m.help, "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
		return
	}

	cfg := reflect.ValueOf(m.ptr).Elem()
	fmt.Fprintf(w, "    Configuration data type: %s %s.\n",
		cfg.Type().Kind().String(), cfg.Type().String())
}
