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
	"reflect"

	"sigs.k8s.io/yaml"
)

// GetDefaultFn returns a pointer to a freshly allocated default configuration.
type GetDefaultFn func() interface{}

// Module is a named fragment of the runtime configuration.
type Module struct {
	name        string
	description string
	help        string
	ptr         interface{}
	getDefault  GetDefaultFn
	notifiers   []NotifyFn
}

// Register registers a configuration module. The ptr argument points to the
// runtime configuration of the module and getDefault returns a pointer to a
// value of the same type with the defaults filled in. ptr is reset to the
// defaults upon registration.
func Register(name, description string, ptr interface{}, getDefault GetDefaultFn, opts ...Option) *Module {
	if reflect.TypeOf(ptr).Kind() != reflect.Ptr {
		log.Panic("can't register module %q: configuration %T is not a pointer", name, ptr)
	}

	m := &Module{
		name:       name,
		ptr:        ptr,
		getDefault: getDefault,
	}
	m.setDescription(description)

	for _, o := range opts {
		if err := o.apply(m); err != nil {
			log.Panic("can't register module %q: %v", name, err)
		}
	}

	if err := m.reset(); err != nil {
		log.Panic("can't register module %q: %v", name, err)
	}

	reg.register(m)

	return m
}

// Name returns the name of the module.
func (m *Module) Name() string {
	return m.name
}

// WatchUpdates adds a notifier function to the module.
func (m *Module) WatchUpdates(fn NotifyFn) {
	m.notifiers = append(m.notifiers, fn)
}

// reset resets the module configuration to its defaults.
func (m *Module) reset() error {
	dst := reflect.ValueOf(m.ptr).Elem()
	if m.getDefault == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	def := reflect.ValueOf(m.getDefault())
	if def.Kind() == reflect.Ptr {
		def = def.Elem()
	}
	if def.Type() != dst.Type() {
		return configError("module %q: default %s does not match configuration %s",
			m.name, def.Type(), dst.Type())
	}
	dst.Set(def)

	return nil
}

// apply resets the module then overlays the given data on top of the defaults.
func (m *Module) apply(data Data) error {
	if err := m.reset(); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	raw, err := yaml.Marshal(data)
	if err != nil {
		return configError("module %q: failed to marshal data: %v", m.name, err)
	}
	if err := yaml.UnmarshalStrict(raw, m.ptr); err != nil {
		return configError("module %q: invalid configuration: %v", m.name, err)
	}

	return nil
}

// snapshot returns the current configuration of the module in serialized form.
func (m *Module) snapshot() ([]byte, error) {
	raw, err := yaml.Marshal(m.ptr)
	if err != nil {
		return nil, configError("module %q: failed to take snapshot: %v", m.name, err)
	}
	return raw, nil
}

// restore restores a previous snapshot of the module.
func (m *Module) restore(raw []byte) error {
	if err := m.reset(); err != nil {
		return err
	}
	if err := yaml.Unmarshal(raw, m.ptr); err != nil {
		return configError("module %q: failed to restore snapshot: %v", m.name, err)
	}
	return nil
}

// notify runs the notifiers of the module.
func (m *Module) notify(event Event, source Source) error {
	for _, fn := range m.notifiers {
		if err := fn(event, source); err != nil {
			return configError("module %q rejected configuration: %v", m.name, err)
		}
	}
	return nil
}
