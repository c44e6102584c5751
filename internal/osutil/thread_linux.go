//go:build linux

package osutil

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ThreadID returns the OS-level thread id of the calling goroutine's
// current OS thread. Callers must have pinned the goroutine with
// runtime.LockOSThread first, or the value is meaningless the moment the Go
// scheduler migrates the goroutine to a different thread.
func ThreadID() uint64 { return uint64(unix.Gettid()) }

// PinToCPU sets the calling OS thread's CPU affinity mask to the single
// given CPU. Best-effort: a failure here never aborts backend startup, it
// only means the backend worker competes for scheduling like any other
// thread.
func PinToCPU(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}

// SetThreadName assigns a short (<=15 byte) name to the calling OS thread,
// visible in tools like top/htop/gdb. Best-effort.
func SetThreadName(name string) error {
	if len(name) > 15 {
		name = name[:15]
	}
	b := append([]byte(name), 0)
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&b[0])), 0, 0, 0)
}
