//go:build windows

package main

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

const (
	fsctlLockVolume     = 0x90018
	fsctlDismountVolume = 0x90020
	fsctlUnlockVolume   = 0x9001c
)

func volumeControl(h windows.Handle, code uint32) error {
	var returned uint32
	return windows.DeviceIoControl(h, code, nil, 0, nil, 0, &returned, nil)
}

// driveLetterVolume reports whether path names a lettered volume such as
// \\.\E: and returns its canonical form.
func driveLetterVolume(path string) (string, bool) {
	if len(path) < 6 || !strings.HasPrefix(path, `\\.\`) || path[5] != ':' {
		return "", false
	}
	letter := strings.ToUpper(path[4:5])
	if letter < "A" || letter > "Z" {
		return "", false
	}
	return `\\.\` + letter + `:`, true
}

// lockVolume locks and dismounts a lettered volume so raw writes are
// accepted. The returned func unlocks it. Physical drives and files pass
// through untouched.
func lockVolume(path string) (func(), error) {
	vol, ok := driveLetterVolume(path)
	if !ok {
		return func() {}, nil
	}
	name, err := windows.UTF16PtrFromString(vol)
	if err != nil {
		return nil, errors.Wrapf(err, "volume %s", vol)
	}
	h, err := windows.CreateFile(name,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil, windows.OPEN_EXISTING, 0, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open volume %s (administrator rights required)", vol)
	}

	if err := volumeControl(h, fsctlLockVolume); err != nil {
		_ = windows.CloseHandle(h)
		if err == windows.ERROR_NOT_SUPPORTED {
			logger.Warnf("volume %s does not support locking", vol)
			return func() {}, nil
		}
		return nil, errors.Wrapf(err, "cannot lock volume %s (close programs using it)", vol)
	}
	if err := volumeControl(h, fsctlDismountVolume); err != nil && err != windows.ERROR_NOT_SUPPORTED {
		_ = volumeControl(h, fsctlUnlockVolume)
		_ = windows.CloseHandle(h)
		return nil, errors.Wrapf(err, "cannot dismount volume %s", vol)
	}
	logger.Infof("locked and dismounted %s", vol)

	return func() {
		_ = volumeControl(h, fsctlUnlockVolume)
		_ = windows.CloseHandle(h)
	}, nil
}
