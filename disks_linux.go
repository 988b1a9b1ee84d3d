//go:build linux

package main

import (
	"bufio"
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
		path := filepath.Join("/dev", name)
		switch {
		case isWholeLinuxDevice(name):
			infos = append(infos, deviceInfo{Path: path, Whole: true})
		case isPartitionLinux(name):
			infos = append(infos, deviceInfo{Path: path, Reason: "partition"})
		case strings.HasPrefix(name, "loop"):
			infos = append(infos, deviceInfo{Path: path, Reason: "loop device"})
		}
	}
	return infos, nil
}

// sysBlockDir resolves the sysfs directory of a block device name. Partitions
// live under their parent disk, which carries the removable flag.
func sysBlockDir(name string) string {
	dir := filepath.Join("/sys/block", name)
	if _, err := os.Stat(dir); err == nil {
		return dir
	}
	dir, err := filepath.EvalSymlinks(filepath.Join("/sys/class/block", name))
	if err != nil {
		return ""
	}
	if _, err := os.Stat(filepath.Join(dir, "partition")); err == nil {
		return filepath.Dir(dir)
	}
	return dir
}

func readSysAttr(dir string, parts ...string) string {
	if dir == "" {
		return ""
	}
	b, err := os.ReadFile(filepath.Join(append([]string{dir}, parts...)...))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func deviceDetails(path string) (kind, serial string) {
	dir := sysBlockDir(filepath.Base(path))
	kind = "Disk"
	switch readSysAttr(dir, "removable") {
	case "1":
		kind = "Removable Disk"
	case "0":
		kind = "Fixed Disk"
	}
	serial = readSysAttr(dir, "device", "serial")
	if serial == "" {
		serial = "-"
	}
	return kind, serial
}

// listMounted reads the mount table and keeps block-backed filesystems.
func listMounted() []mountedVol {
	f, err := os.Open("/proc/self/mounts")
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []mountedVol
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 || !strings.HasPrefix(fields[0], "/dev/") {
			continue
		}
		mnt := unescapeMount(fields[1])
		var st unix.Statfs_t
		if err := unix.Statfs(mnt, &st); err != nil {
			continue
		}
		out = append(out, mountedVol{
			MountPoint: mnt,
			Device:     fields[0],
			FSType:     fields[2],
			SizeBytes:  st.Blocks * uint64(st.Bsize),
			FreeBytes:  st.Bavail * uint64(st.Bsize),
			Removable:  readSysAttr(sysBlockDir(filepath.Base(fields[0])), "removable") == "1",
		})
	}
	return out
}

// unescapeMount undoes the octal escaping of spaces and tabs in mount paths.
func unescapeMount(s string) string {
	return strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`).Replace(s)
}
