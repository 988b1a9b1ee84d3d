//go:build windows

package main

import (
	"io"
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

const ioctlDiskGetLengthInfo = 0x7405c

// getDeviceSize returns the size of a file, physical drive or volume.
func getDeviceSize(f *os.File) (int64, error) {
	if st, err := f.Stat(); err == nil && st.Mode().IsRegular() {
		return st.Size(), nil
	}
	var length int64
	var returned uint32
	err := windows.DeviceIoControl(windows.Handle(f.Fd()), ioctlDiskGetLengthInfo,
		nil, 0, (*byte)(unsafe.Pointer(&length)), uint32(unsafe.Sizeof(length)), &returned, nil)
	if err == nil {
		return length, nil
	}
	if size, serr := f.Seek(0, io.SeekEnd); serr == nil && size > 0 {
		_, _ = f.Seek(0, io.SeekStart)
		return size, nil
	}
	return 0, errors.Wrap(err, "cannot determine device size")
}
