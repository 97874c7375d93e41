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
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Source describes where configuration data has been acquired from.
type Source string

const (
	// ConfigFile is a YAML/JSON file configuration source.
	ConfigFile Source = "configuration file"
	// External is an external configuration source.
	External Source = "external configuration"
	// Defaults is the built-in default configuration.
	Defaults Source = "default configuration"
	// ConfigBackup is a snapshot of a previous configuration.
	ConfigBackup Source = "configuration backup"
)

// Event describes the reason why a notification callback has been invoked.
type Event string

const (
	// UpdateEvent is the event type for a configuration update.
	UpdateEvent Event = "updated"
	// RevertEvent is the event type for a configuration rollback.
	RevertEvent Event = "reverted"
)

// NotifyFn is the type of a configuration change notification function.
type NotifyFn func(Event, Source) error

// registry holds all registered configuration modules.
type registry struct {
	sync.Mutex
	modules map[string]*Module
}

var reg = &registry{
	modules: make(map[string]*Module),
}

// SetConfig updates the runtime configuration from the given data. Top-level
// keys name modules. Modules missing from the data are reset to defaults. If
// any module rejects the new configuration the previous one is restored.
func SetConfig(data Data) error {
	reg.Lock()
	defer reg.Unlock()

	return reg.setConfig(data, External)
}

// SetConfigFromFile updates the runtime configuration from the given file.
func SetConfigFromFile(path string) error {
	data, err := DataFromFile(path)
	if err != nil {
		return err
	}

	reg.Lock()
	defer reg.Unlock()

	log.Info("applying configuration from file %q", path)
	return reg.setConfig(data, ConfigFile)
}

// Reset resets all registered modules to their defaults and notifies them.
func Reset() error {
	reg.Lock()
	defer reg.Unlock()

	return reg.setConfig(Data{}, Defaults)
}

// GetConfig returns the current runtime configuration as data.
func GetConfig() (Data, error) {
	reg.Lock()
	defer reg.Unlock()

	data := make(Data)
	for name, m := range reg.modules {
		d, err := DataFromObject(m.ptr)
		if err != nil {
			return nil, err
		}
		data[name] = d
	}
	return data, nil
}

// Modules returns the names of all registered modules.
func Modules() []string {
	reg.Lock()
	defer reg.Unlock()

	return reg.names()
}

func (r *registry) register(m *Module) {
	r.Lock()
	defer r.Unlock()

	if old, ok := r.modules[m.name]; ok {
		log.Panic("can't register module %q (%s), already registered (%s)",
			m.name, m.description, old.description)
	}
	r.modules[m.name] = m
}

func (r *registry) names() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *registry) setConfig(data Data, source Source) error {
	for key := range data {
		name := strings.SplitN(key, ".", 2)[0]
		if _, ok := r.modules[name]; !ok {
			return configError("unknown configuration module %q", name)
		}
	}

	backup := make(map[string][]byte, len(r.modules))
	for _, name := range r.names() {
		m := r.modules[name]
		raw, err := m.snapshot()
		if err != nil {
			return err
		}
		backup[name] = raw
	}

	var errs *multierror.Error
	for _, name := range r.names() {
		m := r.modules[name]
		modData, err := data.pick(name)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if err := m.apply(modData); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if errs.ErrorOrNil() == nil {
		for _, name := range r.names() {
			if err := r.modules[name].notify(UpdateEvent, source); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		log.Error("configuration from %s rejected, reverting: %v", source, err)
		r.restore(backup)
		return err
	}

	return nil
}

func (r *registry) restore(backup map[string][]byte) {
	for _, name := range r.names() {
		m := r.modules[name]
		if err := m.restore(backup[name]); err != nil {
			log.Error("failed to restore module %q: %v", name, err)
			continue
		}
		if err := m.notify(RevertEvent, ConfigBackup); err != nil {
			log.Error("module %q failed to revert: %v", name, err)
		}
	}
}

func configError(format string, args ...interface{}) error {
	return fmt.Errorf("config: "+format, args...)
}
