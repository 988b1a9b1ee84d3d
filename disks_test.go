package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinuxDeviceNames(t *testing.T) {
	for _, name := range []string{"sda", "vdb", "nvme0n1", "mmcblk0"} {
		assert.True(t, isWholeLinuxDevice(name), name)
		assert.False(t, isPartitionLinux(name), name)
	}
	for _, name := range []string{"sda1", "vdb12", "nvme0n1p2", "mmcblk0p1"} {
		assert.False(t, isWholeLinuxDevice(name), name)
		assert.True(t, isPartitionLinux(name), name)
	}
	for _, name := range []string{"loop0", "tty1", "sr0", "mmcblk"} {
		assert.False(t, isWholeLinuxDevice(name), name)
	}
}

func TestDarwinDeviceNames(t *testing.T) {
	assert.False(t, isPartitionDarwin("disk2"))
	assert.False(t, isPartitionDarwin("rdisk10"))
	assert.True(t, isPartitionDarwin("disk2s1"))
	assert.True(t, isPartitionDarwin("rdisk3s12"))
}

func TestPrintDisks(t *testing.T) {
	infos := []deviceInfo{
		{Path: "/nonexistent/sdz", Whole: true},
		{Path: "/nonexistent/sdz1", Reason: "partition"},
		{Path: "/nonexistent/loop0"},
	}
	mounts := []mountedVol{{MountPoint: "/media/usb", Device: "/dev/sdz1", FSType: "vfat", SizeBytes: 8 << 30, FreeBytes: 1 << 30, Removable: true}}

	var buf bytes.Buffer
	printDisks(&buf, infos, mounts, true)
	out := buf.String()

	assert.Contains(t, out, "/nonexistent/sdz")
	assert.Contains(t, out, "/nonexistent/sdz1  (partition)")
	assert.Contains(t, out, "/nonexistent/loop0  (not a whole-disk device)")
	assert.Contains(t, out, "/media/usb")
	assert.Contains(t, out, "8.0 GiB")
	assert.Contains(t, out, "yes")

	buf.Reset()
	printDisks(&buf, infos[1:], nil, false)
	assert.Contains(t, buf.String(), "<none detected>")
	assert.NotContains(t, buf.String(), "Partitions and other nodes:")
	assert.NotContains(t, buf.String(), "Mounted volumes:")
}
