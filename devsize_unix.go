//go:build unix

package main

import (
	"io"
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	dkiocGetBlockSize  = 0x40046418
	dkiocGetBlockCount = 0x40086419
	blkGetSize64       = 0x80081272
)

func ioctlPtr(fd uintptr, req uint, p unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(req), uintptr(p)); errno != 0 {
		return errno
	}
	return nil
}

// getDeviceSize returns the size of a regular file or block device.
func getDeviceSize(f *os.File) (int64, error) {
	if size, err := f.Seek(0, io.SeekEnd); err == nil && size > 0 {
		_, _ = f.Seek(0, io.SeekStart)
		return size, nil
	}

	var size64 uint64
	if err := ioctlPtr(f.Fd(), blkGetSize64, unsafe.Pointer(&size64)); err == nil {
		return int64(size64), nil
	}

	var blockSize uint32
	var blockCount uint64
	if err := ioctlPtr(f.Fd(), dkiocGetBlockSize, unsafe.Pointer(&blockSize)); err != nil {
		return 0, errors.Wrap(err, "cannot determine device size")
	}
	if err := ioctlPtr(f.Fd(), dkiocGetBlockCount, unsafe.Pointer(&blockCount)); err != nil {
		return 0, errors.Wrap(err, "cannot get block count")
	}
	return int64(blockSize) * int64(blockCount), nil
}
