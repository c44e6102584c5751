// Package osutil collects the small set of OS-level primitives the backend
// and thread-context layers need: page size, OS thread id, CPU affinity and
// thread naming. No platform-specific branch panics: PinToCPU and
// SetThreadName return a typed error where unsupported, and ThreadID
// returns 0 there, per the error-handling design in §7 of the spec:
// construction-time failures (unsupported-os) are surfaced to the caller
// that triggered them, never silently swallowed.
package osutil

import (
	"errors"
	"os"
)

// ErrUnsupportedOS is returned by the platform-specific primitives below
// when the current OS has no grounded implementation; callers degrade
// gracefully (affinity pinning and thread naming are best-effort, never
// required for correctness).
var ErrUnsupportedOS = errors.New("osutil: unsupported operating system")

// PageSize returns the OS page size in bytes, used by ringbuf.New to
// validate requested capacities.
func PageSize() int { return os.Getpagesize() }
