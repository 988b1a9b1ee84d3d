package inspect

import (
	"io"

	"github.com/pkg/errors"
)

// Media is an open handle on the target.
type Media interface {
	io.Reader
	io.Writer
	io.Seeker
	Sync() error
	Close() error
}

// Opener hands out Media for a target path. Phases open the target through
// it, once for writing and once for reading back.
type Opener interface {
	// OpenWrite creates or truncates path for writing.
	OpenWrite(path string) (Media, error)
	// OpenRead opens an existing path for reading.
	OpenRead(path string) (Media, error)
}

// DirectOpener opens targets bypassing the OS cache with the platform's
// no-buffering flags, so reads and writes reflect the physical medium.
type DirectOpener struct{}

// OpenWrite implements Opener.
func (DirectOpener) OpenWrite(path string) (Media, error) {
	return openUncachedWrite(path)
}

// OpenRead implements Opener.
func (DirectOpener) OpenRead(path string) (Media, error) {
	return openUncachedRead(path)
}

// isStorageFull reports whether a write error means the device ran out of
// room rather than failed.
func isStorageFull(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, io.ErrShortWrite) || isPlatformFull(err)
}
