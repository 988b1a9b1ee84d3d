package main

import (
	"truthbyte/inspect"
	"truthbyte/internal/memdisk"
)

// fakeDevice adapts a memdisk.Device to inspect.Opener.
type fakeDevice struct {
	*memdisk.Device
}

func newFakeDevice(capacity int, mode memdisk.Mode) *fakeDevice {
	return &fakeDevice{memdisk.New(capacity, mode)}
}

func (d *fakeDevice) OpenWrite(string) (inspect.Media, error) { return d.Open(), nil }
func (d *fakeDevice) OpenRead(string) (inspect.Media, error)  { return d.Open(), nil }
