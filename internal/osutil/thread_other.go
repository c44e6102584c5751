//go:build !linux

package osutil

// ThreadID has no grounded cross-platform primitive in the reference pack
// and always returns 0, so every threadctx.Context reports thread id 0 and
// the backend's (timestamp, thread id) merge order has no tie-break here.
func ThreadID() uint64 { return 0 }

// PinToCPU is a no-op outside linux: affinity pinning is best-effort only,
// never required for correctness (§5 "Scheduling model").
func PinToCPU(cpu int) error { return ErrUnsupportedOS }

// SetThreadName is a no-op outside linux.
func SetThreadName(name string) error { return ErrUnsupportedOS }
