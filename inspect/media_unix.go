//go:build unix && !linux && !darwin

package inspect

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func openUncachedWrite(path string) (Media, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_SYNC, 0o644)
}

func openUncachedRead(path string) (Media, error) {
	return os.OpenFile(path, os.O_RDONLY, 0)
}

func isPlatformFull(err error) bool {
	return errors.Is(err, unix.ENOSPC) || errors.Is(err, unix.EFBIG)
}
