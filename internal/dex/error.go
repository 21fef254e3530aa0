// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package dex

import (
	"github.com/dotandev/dexmerge/internal/errors"
)

// Section cursors are used in long chains of positioned reads and writes;
// threading an error return through every primitive would swamp the callers.
// Failures inside the package panic with a *failure and are converted back
// to plain errors at the exported entry points via CatchError.
type failure struct{ err error }

func fail(err error) {
	panic(&failure{err})
}

// Fail raises err as a failure panic. It lets packages that cooperate with
// section cursors (the merger) report errors through the same channel;
// callers are expected to be under a CatchError.
func Fail(err error) {
	fail(err)
}

func failf(format string, args ...any) {
	fail(errors.WrapMalformedInput(format, args...))
}

// CatchError recovers a failure raised by section readers or writers and
// stores the error it carries in *errp. Any other panic is re-raised.
func CatchError(errp *error) {
	switch r := recover().(type) {
	case nil:
	case *failure:
		*errp = r.err
	default:
		panic(r)
	}
}
