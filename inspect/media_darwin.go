//go:build darwin

package inspect

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// macOS has no O_DIRECT; F_NOCACHE turns off the unified buffer cache for the
// descriptor instead.
func openNoCache(path string, flag int) (Media, error) {
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, err
	}
	if _, err := unix.FcntlInt(f.Fd(), unix.F_NOCACHE, 1); err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "disable caching on %s", path)
	}
	return f, nil
}

func openUncachedWrite(path string) (Media, error) {
	return openNoCache(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
}

func openUncachedRead(path string) (Media, error) {
	return openNoCache(path, os.O_RDONLY)
}

func isPlatformFull(err error) bool {
	return errors.Is(err, unix.ENOSPC) || errors.Is(err, unix.EFBIG)
}
