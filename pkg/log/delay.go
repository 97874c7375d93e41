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

package log

import (
	"fmt"
)

// Delayed is an argument stringified only when a message is emitted.
type Delayed interface {
	String() string
}

type delay struct {
	o interface{}
}

// Delay wraps o for evaluation at emit time. A func() string or a
// func() interface{} is called, anything else is formatted with %v.
// Suppressed debug messages then cost nothing but the wrapping.
func Delay(o interface{}) Delayed {
	return &delay{o: o}
}

func (d *delay) String() string {
	switch fn := d.o.(type) {
	case func() string:
		return fn()
	case func() interface{}:
		return fmt.Sprintf("%v", fn())
	default:
		return fmt.Sprintf("%v", d.o)
	}
}
