//go:build darwin

package main

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

func discoverDevices() ([]deviceInfo, error) {
	entries, err := os.ReadDir("/dev")
	if err != nil {
		return nil, err
	}
	infos := []deviceInfo{}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "disk") && !strings.HasPrefix(name, "rdisk") {
			continue
		}
		path := filepath.Join("/dev", name)
		if isPartitionDarwin(name) {
			infos = append(infos, deviceInfo{Path: path, Reason: "partition"})
		} else {
			infos = append(infos, deviceInfo{Path: path, Whole: true})
		}
	}
	return infos, nil
}

func deviceDetails(string) (kind, serial string) { return "Disk", "-" }

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func listMounted() []mountedVol {
	n, err := unix.Getfsstat(nil, unix.MNT_NOWAIT)
	if err != nil || n <= 0 {
		return nil
	}
	buf := make([]unix.Statfs_t, n)
	n, err = unix.Getfsstat(buf, unix.MNT_NOWAIT)
	if err != nil {
		return nil
	}
	var out []mountedVol
	for _, st := range buf[:n] {
		from := cString(st.Mntfromname[:])
		if !strings.HasPrefix(from, "/dev/") {
			continue
		}
		out = append(out, mountedVol{
			MountPoint: filepath.Clean(cString(st.Mntonname[:])),
			Device:     from,
			FSType:     cString(st.Fstypename[:]),
			SizeBytes:  st.Blocks * uint64(st.Bsize),
			FreeBytes:  st.Bavail * uint64(st.Bsize),
			Removable:  st.Flags&unix.MNT_LOCAL != 0 && strings.HasPrefix(filepath.Clean(cString(st.Mntonname[:])), "/Volumes/"),
		})
	}
	return out
}
