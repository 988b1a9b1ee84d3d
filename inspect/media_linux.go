//go:build linux

package inspect

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var fallbackOnce sync.Once

// evictingFile stands in for O_DIRECT on filesystems that refuse it (tmpfs,
// some FUSE mounts): it drops the file's pages after every sync so the next
// read goes to the medium.
type evictingFile struct {
	*os.File
}

func (f evictingFile) Sync() error {
	if err := f.File.Sync(); err != nil {
		return err
	}
	return dropCache(f.File)
}

func dropCache(f *os.File) error {
	return unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_DONTNEED)
}

func openUncached(path string, flag int) (Media, error) {
	f, err := os.OpenFile(path, flag|unix.O_DIRECT, 0o644)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, unix.EINVAL) {
		return nil, err
	}

	f, err = os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, err
	}
	fallbackOnce.Do(func() {
		logger.Warnf("%s does not support O_DIRECT; evicting page cache instead", path)
	})
	_ = dropCache(f)
	return evictingFile{f}, nil
}

func openUncachedWrite(path string) (Media, error) {
	return openUncached(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
}

func openUncachedRead(path string) (Media, error) {
	return openUncached(path, os.O_RDONLY)
}

func isPlatformFull(err error) bool {
	return errors.Is(err, unix.ENOSPC) || errors.Is(err, unix.EFBIG)
}
