//go:build windows

package inspect

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

func openNoBuffering(path string, access, disposition, flags uint32) (Media, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	// Raw devices (\\.\PhysicalDriveN, \\.\E:) cannot be created or truncated.
	if strings.HasPrefix(path, `\\.\`) {
		disposition = windows.OPEN_EXISTING
	}
	h, err := windows.CreateFile(
		p,
		access,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		disposition,
		windows.FILE_ATTRIBUTE_NORMAL|flags,
		0,
	)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(h), path), nil
}

func openUncachedWrite(path string) (Media, error) {
	return openNoBuffering(path, windows.GENERIC_WRITE, windows.CREATE_ALWAYS,
		windows.FILE_FLAG_NO_BUFFERING|windows.FILE_FLAG_WRITE_THROUGH)
}

func openUncachedRead(path string) (Media, error) {
	return openNoBuffering(path, windows.GENERIC_READ, windows.OPEN_EXISTING,
		windows.FILE_FLAG_NO_BUFFERING)
}

func isPlatformFull(err error) bool {
	return errors.Is(err, windows.ERROR_DISK_FULL) || errors.Is(err, windows.ERROR_HANDLE_DISK_FULL)
}
