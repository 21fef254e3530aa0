// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for comparison with errors.Is
var (
	ErrMalformedInput = errors.New("malformed dex input")
	ErrIndexOverflow  = errors.New("remapped index out of range")
	ErrCollision      = errors.New("duplicate class definition")
	ErrAlignment      = errors.New("section cursor misaligned")
	ErrUnsupported    = errors.New("unsupported dex construct")
	ErrConfig         = errors.New("configuration error")
)

// Wrap functions for consistent error wrapping
func WrapMalformedInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}

func WrapIndexOverflow(kind string, index int) error {
	return fmt.Errorf("%w: %s ID not in [0, 0xffff]: %d", ErrIndexOverflow, kind, index)
}

func WrapCollision(descriptor string) error {
	return fmt.Errorf("%w: multiple dex files define %s", ErrCollision, descriptor)
}

func WrapAlignment(section string, position uint32) error {
	return fmt.Errorf("%w: section %s at position %d", ErrAlignment, section, position)
}

func WrapUnsupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, fmt.Sprintf(format, args...))
}

func WrapConfigError(msg string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrConfig, msg, err)
}

func WrapValidationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrConfig, msg)
}
