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

// Option is an option applicable to a Module.
type Option interface {
	apply(*Module) error
}

// funcOption is a generic functional option.
type funcOption struct {
	f func(*Module) error
}

func (fo *funcOption) apply(m *Module) error {
	return fo.f(m)
}

func newFuncOption(f func(*Module) error) *funcOption {
	return &funcOption{f: f}
}

// WithNotify injects an update notification callback into a module.
func WithNotify(fn NotifyFn) Option {
	return newFuncOption(func(m *Module) error {
		if fn == nil {
			return configError("WithNotify: nil notifier")
		}
		m.notifiers = append(m.notifiers, fn)
		return nil
	})
}
