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
)

// unit multipliers
const (
	k = (int64(1) << 10)
	M = (int64(1) << 20)
	G = (int64(1) << 30)
	T = (int64(1) << 40)
)

// unit name to multiplier mapping
var units = map[string]int64{
	"k": k, "kB": k,
	"M": M, "MB": M,
	"G": G, "GB": G,
	"T": T, "TB": T,
}

// PickEntryFn picks a given input line apart into an entry of key and value.
type PickEntryFn func(string) (string, string, error)

// splitNumericAndUnit splits a string into a numeric and a unit part.
func splitNumericAndUnit(path string, value string) (string, int64, error) {
	fields := strings.Fields(value)

	switch len(fields) {
	case 1:
		return fields[0], 1, nil
	case 2:
		num := fields[0]
		unit, ok := units[fields[1]]
		if !ok {
			return "", -1, sysfsError(path, "failed to parse '%s', invalid unit '%s'",
				value, fields[1])
		}
		return num, unit, nil
	}

	return "", -1, sysfsError(path, "invalid numeric value %s", value)
}

// parseNumeric parses a numeric string with an optional unit into ptr.
func parseNumeric(path, value string, ptr interface{}) error {
	numstr, unit, err := splitNumericAndUnit(path, value)
	if err != nil {
		return err
	}

	num, err := strconv.ParseInt(numstr, 0, 64)
	if err != nil {
		return sysfsError(path, "invalid numeric value '%s': %v", value, err)
	}
	num *= unit

	switch p := ptr.(type) {
	case *int:
		*p = int(num)
	case *int64:
		*p = num
	case *uint:
		*p = uint(num)
	case *uint64:
		*p = uint64(num)
	default:
		return sysfsError(path, "can't parse numeric value '%s' into type %T", value, ptr)
	}

	return nil
}

// ParseFileEntries parses a file of key-value lines for the given entries.
// Entries of the file not present in values are ignored.
func ParseFileEntries(path string, values map[string]interface{}, pickFn PickEntryFn) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return sysfsError(path, "failed to read file: %v", err)
	}

	left := len(values)
	for _, line := range strings.Split(string(data), "\n") {
		if left == 0 {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		key, value, err := pickFn(line)
		if err != nil {
			return err
		}

		ptr, ok := values[key]
		if !ok {
			continue
		}

		switch p := ptr.(type) {
		case *int, *int64, *uint, *uint64:
			if err = parseNumeric(path, value, ptr); err != nil {
				return err
			}
		case *string:
			*p = value
		case *bool:
			*p, err = strconv.ParseBool(value)
			if err != nil {
				return sysfsError(path, "failed to parse line %s, value '%s' for boolean key '%s'",
					line, value, key)
			}
		default:
			return sysfsError(path, "don't know how to parse key '%s' of type %T", key, ptr)
		}

		left--
	}

	return nil
}

// PickColonSeparated splits "key: value" lines.
func PickColonSeparated(line string) (string, string, error) {
	split := strings.SplitN(line, ":", 2)
	if len(split) != 2 {
		return "", "", errors.Errorf("invalid line %q, expected key: value", line)
	}
	return strings.TrimSpace(split[0]), strings.TrimSpace(split[1]), nil
}

func sysfsError(path, format string, args ...interface{}) error {
	return errors.Wrap(errors.Errorf(format, args...), path)
}
