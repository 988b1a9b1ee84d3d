package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// deviceInfo is one candidate target found by discoverDevices.
type deviceInfo struct {
	Path   string
	Whole  bool
	Reason string
}

// mountedVol is a mounted filesystem. Testing a file on it exercises the
// medium underneath without touching the rest of the volume.
type mountedVol struct {
	MountPoint string
	Device     string
	FSType     string
	SizeBytes  uint64
	FreeBytes  uint64
	Removable  bool
}

// isWholeLinuxDevice matches sdX, vdX, nvmeXnY and mmcblkX.
func isWholeLinuxDevice(name string) bool {
	if len(name) == 3 && (strings.HasPrefix(name, "sd") || strings.HasPrefix(name, "vd")) && name[2] >= 'a' && name[2] <= 'z' {
		return true
	}
	if strings.HasPrefix(name, "nvme") && !strings.Contains(name[4:], "p") {
		parts := strings.Split(name[4:], "n")
		return len(parts) == 2 && parts[0] != "" && parts[1] != ""
	}
	if strings.HasPrefix(name, "mmcblk") && !strings.Contains(name, "p") && len(name) > 6 {
		return true
	}
	return false
}

// isPartitionLinux matches sdXN, vdXN, nvmeXnYpZ and mmcblkXpZ.
func isPartitionLinux(name string) bool {
	if (strings.HasPrefix(name, "sd") || strings.HasPrefix(name, "vd")) && len(name) >= 4 {
		last := name[len(name)-1]
		return last >= '0' && last <= '9'
	}
	if strings.HasPrefix(name, "nvme") && strings.Contains(name, "n") && strings.Contains(name[4:], "p") {
		return true
	}
	return strings.HasPrefix(name, "mmcblk") && strings.Contains(name, "p")
}

// isPartitionDarwin matches diskNsM and rdiskNsM.
func isPartitionDarwin(name string) bool {
	for i := 0; i+1 < len(name); i++ {
		if name[i] == 's' && name[i+1] >= '0' && name[i+1] <= '9' {
			return true
		}
	}
	return false
}

// deviceSize opens path read-only and asks for its size; -1 when unknown.
func deviceSize(path string) int64 {
	f, err := os.Open(path)
	if err != nil {
		return -1
	}
	defer f.Close()
	size, err := getDeviceSize(f)
	if err != nil {
		return -1
	}
	return size
}

func sizeString(size int64) string {
	if size < 0 {
		return "-"
	}
	return humanize.IBytes(uint64(size))
}

// describeTarget logs what is about to be overwritten.
func describeTarget(path string) {
	if size := deviceSize(path); size > 0 {
		logger.Infof("target %s holds %s (%s bytes)", path, humanize.IBytes(uint64(size)), humanize.Comma(size))
		return
	}
	logger.Infof("target %s", path)
}

func printDisks(w io.Writer, infos []deviceInfo, mounts []mountedVol, all bool) {
	fmt.Fprintf(w, "OS: %s\n", runtime.GOOS)
	fmt.Fprintln(w, "This is a read-only listing. Nothing is written.")
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Whole disks:")
	fmt.Fprintln(tw, "  PATH\tTYPE\tSERIAL\tSIZE")
	printed := false
	for _, d := range infos {
		if !d.Whole {
			continue
		}
		kind, serial := deviceDetails(d.Path)
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", d.Path, kind, serial, sizeString(deviceSize(d.Path)))
		printed = true
	}
	_ = tw.Flush()
	if !printed {
		fmt.Fprintln(w, "  <none detected>")
	}
	fmt.Fprintln(w)

	if all {
		fmt.Fprintln(w, "Partitions and other nodes:")
		for _, d := range infos {
			if d.Whole {
				continue
			}
			reason := d.Reason
			if strings.TrimSpace(reason) == "" {
				reason = "not a whole-disk device"
			}
			fmt.Fprintf(w, "  %s  (%s)\n", d.Path, reason)
		}
		fmt.Fprintln(w)
	}

	if len(mounts) > 0 {
		fmt.Fprintln(w, "Mounted volumes:")
		fmt.Fprintln(tw, "  MOUNT\tFS\tDEVICE\tSIZE\tFREE\tREMOVABLE")
		for _, m := range mounts {
			removable := ""
			if m.Removable {
				removable = "yes"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n", m.MountPoint, m.FSType, m.Device,
				humanize.IBytes(m.SizeBytes), humanize.IBytes(m.FreeBytes), removable)
		}
		_ = tw.Flush()
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Notes:")
	switch runtime.GOOS {
	case "darwin":
		fmt.Fprintln(w, "  - Whole disks are /dev/diskN; use /dev/rdiskN for faster raw access.")
	case "linux":
		fmt.Fprintln(w, "  - Whole disks: /dev/sdX, /dev/vdX, /dev/nvmeXnY, /dev/mmcblkX.")
	case "windows":
		fmt.Fprintln(w, `  - Use \\.\PhysicalDriveN for a whole disk or \\.\E: for a volume.`)
	}
	fmt.Fprintln(w, "  - To test without destroying data, point truthbyte at a new file on a mounted volume.")
}

func (a *app) disksCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "disks",
		Short: "List disks and mounted volumes (read-only)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			infos, err := discoverDevices()
			if err != nil {
				return withCode(exitFailure, err)
			}
			printDisks(a.out, infos, listMounted(), all)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include partitions and other non-whole devices")
	return cmd
}
