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
	"os"
	"strings"

	"sigs.k8s.io/yaml"
)

// Data is our internal representation of configuration data.
type Data map[string]interface{}

// DataFromObject remarshals the given object into configuration data.
func DataFromObject(obj interface{}) (Data, error) {
	raw, err := yaml.Marshal(obj)
	if err != nil {
		return nil, configError("failed to marshal object %T to data: %v", obj, err)
	}
	data := make(Data)
	if err = yaml.Unmarshal(raw, &data); err != nil {
		return nil, configError("failed to unmarshal object %T to data: %v", obj, err)
	}
	return data, nil
}

// DataFromFile unmarshals the content of the given file into configuration data.
func DataFromFile(path string) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, configError("failed to read file %q: %v", path, err)
	}
	data := make(Data)
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, configError("failed to load configuration from file %q: %v", path, err)
	}
	return data, nil
}

// pick returns the data of the named module, merging nested data with
// dotted keys of the form module.key.
func (d Data) pick(module string) (Data, error) {
	var data Data

	if obj, ok := d[module]; ok {
		picked, err := DataFromObject(obj)
		if err != nil {
			return nil, err
		}
		data = picked
	}

	prefix := module + "."
	for k, v := range d {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if data == nil {
			data = make(Data)
		}
		subkey := strings.TrimPrefix(k, prefix)
		if _, ok := data[subkey]; ok {
			return nil, configError("dotted key %q conflicts with nested key %q", k, subkey)
		}
		data[subkey] = v
	}

	return data, nil
}

// String returns configuration data as a string.
func (d Data) String() string {
	raw, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Sprintf("<config.data: failed to marshal: %v>", err)
	}
	return string(raw)
}

// Print prints the configuration data using the given function or fmt.Printf.
func (d Data) Print(fn func(string, ...interface{})) {
	if fn == nil {
		fn = func(format string, args ...interface{}) {
			fmt.Printf(format+"\n", args...)
		}
	}

	for _, line := range strings.Split(d.String(), "\n") {
		fn("%s", line)
	}
}
