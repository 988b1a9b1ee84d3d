//go:build windows

package inspect

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// osAlloc commits fresh pages with VirtualAlloc; the base address is aligned
// to the allocation granularity (64 KiB).
func osAlloc(size int) ([]byte, func([]byte) error, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size),
		windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil, nil, err
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return data, func([]byte) error {
		return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
	}, nil
}
