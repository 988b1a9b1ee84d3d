//go:build !linux && !darwin && !windows

package main

import (
	"runtime"

	"github.com/pkg/errors"
)

func discoverDevices() ([]deviceInfo, error) {
	return nil, errors.Errorf("device discovery is not supported on %s", runtime.GOOS)
}

func deviceDetails(string) (kind, serial string) { return "Disk", "-" }

func listMounted() []mountedVol { return nil }
