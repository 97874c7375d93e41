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

package pageset

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseBytes parses a size with an optional k, M, G or T unit and an
// optional trailing B, for instance "2M", "32MB" or "4096".
func ParseBytes(s string) (int64, error) {
	origS := s
	factor := int64(1)
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return 0, errors.New("syntax error in bytes: string is empty")
	}
	if s[len(s)-1] == 'B' {
		s = s[:len(s)-1]
	}
	if len(s) == 0 {
		return 0, errors.Errorf("syntax error in bytes %q: missing number", origS)
	}
	numpart := s[:len(s)-1]
	switch c := s[len(s)-1]; {
	case c == 'k' || c == 'K':
		factor = 1 << 10
	case c == 'M':
		factor = 1 << 20
	case c == 'G':
		factor = 1 << 30
	case c == 'T':
		factor = 1 << 40
	case '0' <= c && c <= '9':
		numpart = s
	default:
		return 0, errors.Errorf("syntax error in bytes %q: unexpected unit %q", origS, c)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(numpart), 10, 0)
	if err != nil || n < 0 {
		return 0, errors.Errorf("syntax error in bytes %q: bad numeric part %q", origS, numpart)
	}
	return n * factor, nil
}

// MustParseBytes is like ParseBytes but panics on error.
func MustParseBytes(s string) int64 {
	bytes, err := ParseBytes(s)
	if err != nil {
		panic(err)
	}
	return bytes
}

// ParseAddr parses a hex address, with or without a 0x prefix.
func ParseAddr(s string) (Addr, error) {
	s = strings.TrimSpace(s)
	hex := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if hex == "" {
		return 0, invalidArg("invalid address %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, invalidArg("invalid address %q", s)
	}
	return Addr(v), nil
}

// Bytes is a size which can be configured as a plain number or as a
// string with a unit, for instance "32M".
type Bytes int64

// String returns the size with the largest unit that divides it.
func (b Bytes) String() string {
	for _, u := range []struct {
		suffix string
		factor int64
	}{{"T", 1 << 40}, {"G", 1 << 30}, {"M", 1 << 20}, {"k", 1 << 10}} {
		if b != 0 && int64(b)%u.factor == 0 {
			return strconv.FormatInt(int64(b)/u.factor, 10) + u.suffix
		}
	}
	return strconv.FormatInt(int64(b), 10)
}

// MarshalJSON marshals the size as a string with a unit.
func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// UnmarshalJSON accepts a number or a string parsed by ParseBytes.
func (b *Bytes) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		if n < 0 {
			return invalidArg("negative size %d", n)
		}
		*b = Bytes(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return invalidArg("invalid size %s", string(data))
	}
	n, err := ParseBytes(s)
	if err != nil {
		return errors.Wrap(ErrInvalidArgument, err.Error())
	}
	*b = Bytes(n)
	return nil
}

// MarshalJSON marshals the address as a hex string.
func (a Addr) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a number or a string parsed by ParseAddr.
func (a *Addr) UnmarshalJSON(data []byte) error {
	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		*a = Addr(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return invalidArg("invalid address %s", string(data))
	}
	addr, err := ParseAddr(s)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// Set parses a size given on the command line.
func (b *Bytes) Set(s string) error {
	n, err := ParseBytes(s)
	if err != nil {
		return errors.Wrap(ErrInvalidArgument, err.Error())
	}
	*b = Bytes(n)
	return nil
}

// Set parses an address given on the command line.
func (a *Addr) Set(s string) error {
	addr, err := ParseAddr(s)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}
