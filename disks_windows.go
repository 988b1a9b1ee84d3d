//go:build windows

package main

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

func discoverDevices() ([]deviceInfo, error) {
	infos := []deviceInfo{}
	for i := 0; i < 32; i++ {
		path := fmt.Sprintf(`\\.\PhysicalDrive%d`, i)
		f, err := os.Open(path)
		if err == nil {
			_ = f.Close()
			infos = append(infos, deviceInfo{Path: path, Whole: true})
		} else if i < 8 {
			infos = append(infos, deviceInfo{Path: path, Reason: "not accessible"})
		}
	}
	return infos, nil
}

func deviceDetails(string) (kind, serial string) { return "PhysicalDrive", "-" }

func driveTypeString(t uint32) string {
	switch t {
	case windows.DRIVE_REMOVABLE:
		return "removable"
	case windows.DRIVE_FIXED:
		return "fixed"
	case windows.DRIVE_REMOTE:
		return "network"
	case windows.DRIVE_CDROM:
		return "cdrom"
	case windows.DRIVE_RAMDISK:
		return "ramdisk"
	default:
		return "unknown"
	}
}

func listMounted() []mountedVol {
	var out []mountedVol
	for l := 'A'; l <= 'Z'; l++ {
		root := fmt.Sprintf(`%c:\`, l)
		p, err := windows.UTF16PtrFromString(root)
		if err != nil {
			continue
		}
		t := windows.GetDriveType(p)
		if t == windows.DRIVE_UNKNOWN || t == windows.DRIVE_NO_ROOT_DIR {
			continue
		}
		var free, total, totalFree uint64
		_ = windows.GetDiskFreeSpaceEx(p, &free, &total, &totalFree)
		out = append(out, mountedVol{
			MountPoint: root,
			Device:     fmt.Sprintf(`\\.\%c:`, l),
			FSType:     driveTypeString(t),
			SizeBytes:  total,
			FreeBytes:  free,
			Removable:  t == windows.DRIVE_REMOVABLE,
		})
	}
	return out
}
