package inspect

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
)

// AlignedBuffer is a scratch block whose first byte sits on an alignment
// boundary. It lives outside the Go heap and must be released; phases do so
// with defer right after acquiring it.
type AlignedBuffer struct {
	data    []byte
	region  []byte
	release func([]byte) error
}

// AcquireBuffer maps length bytes aligned to alignment, which must be a power
// of two.
func AcquireBuffer(length, alignment int) (*AlignedBuffer, error) {
	if length <= 0 {
		return nil, configErrorf("buffer length must be positive, got %d", length)
	}
	if alignment <= 0 || alignment&(alignment-1) != 0 {
		return nil, configErrorf("invalid buffer alignment %d", alignment)
	}

	size := length
	if alignment > os.Getpagesize() {
		size += alignment
	}
	region, release, err := osAlloc(size)
	if err != nil {
		return nil, errors.Wrap(err, "allocate aligned buffer")
	}

	start := 0
	if rem := int(uintptr(unsafe.Pointer(&region[0])) & uintptr(alignment-1)); rem != 0 {
		start = alignment - rem
	}
	return &AlignedBuffer{
		data:    region[start : start+length : start+length],
		region:  region,
		release: release,
	}, nil
}

// Bytes returns the aligned block. It is invalid after Release.
func (b *AlignedBuffer) Bytes() []byte {
	return b.data
}

// Len is the usable length in bytes.
func (b *AlignedBuffer) Len() int {
	return len(b.data)
}

// Release unmaps the buffer. Calling it again is a no-op.
func (b *AlignedBuffer) Release() error {
	if b == nil || b.region == nil {
		return nil
	}
	err := b.release(b.region)
	b.region, b.data = nil, nil
	return err
}
