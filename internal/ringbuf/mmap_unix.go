//go:build linux

package ringbuf

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// newDoubleMapped realises the ring as two adjacent virtual mappings of the
// same physical pages: an anonymous memfd is created, truncated to
// capacity, then mapped twice back-to-back over a single address
// reservation so that buf[i] and buf[i+capacity] are the same physical
// byte. The descriptor is closed as soon as both mappings succeed — only
// the mappings keep the pages alive, which is this implementation's answer
// to the "unlink immediately, keep only the descriptor/mapping" persistence
// contract (§6): a memfd has no path to unlink in the first place.
//
// Every failure branch unmaps whatever was mapped and closes the fd before
// returning, so a caller retrying with a different capacity never leaks a
// mapping or descriptor (the open question in §9 about partial-cleanup
// paths is resolved this way, uniformly, on every branch below).
func newDoubleMapped(capacity uint64) (buf []byte, closeFn func() error, err error) {
	fd, err := unix.MemfdCreate("ringbuf", 0)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: memfd_create: %v", ErrMmapFailed, err)
	}
	defer func() {
		if err != nil {
			unix.Close(fd)
		}
	}()

	if err = unix.Ftruncate(fd, int64(capacity)); err != nil {
		return nil, nil, fmt.Errorf("%w: ftruncate: %v", ErrMmapFailed, err)
	}

	total := int(2 * capacity)
	reservation, err := unix.Mmap(-1, 0, total, unix.PROT_NONE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reserve: %v", ErrMmapFailed, err)
	}
	base := uintptr(unsafe.Pointer(&reservation[0]))

	if err = mmapFixed(base, fd, capacity); err != nil {
		unix.Munmap(reservation)
		return nil, nil, fmt.Errorf("%w: first mapping: %v", ErrMmapFailed, err)
	}
	if err = mmapFixed(base+uintptr(capacity), fd, capacity); err != nil {
		unmapRange(base, capacity)
		unix.Munmap(reservation)
		return nil, nil, fmt.Errorf("%w: second mapping: %v", ErrMmapFailed, err)
	}

	unix.Close(fd)
	fd = -1

	full := reservation[:total:total]
	closeFn = func() error { return unix.Munmap(full) }
	return full, closeFn, nil
}

// mmapFixed replaces the PROT_NONE reservation at addr with a MAP_FIXED,
// MAP_SHARED mapping of fd's first length bytes, so writes through addr are
// visible to every other mapping of the same descriptor.
func mmapFixed(addr uintptr, fd int, length uint64) error {
	_, _, errno := unix.Syscall6(unix.SYS_MMAP, addr, uintptr(length),
		uintptr(unix.PROT_READ|unix.PROT_WRITE), uintptr(unix.MAP_SHARED|unix.MAP_FIXED),
		uintptr(fd), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func unmapRange(addr uintptr, length uint64) {
	unix.Syscall(unix.SYS_MUNMAP, addr, uintptr(length), 0)
}
