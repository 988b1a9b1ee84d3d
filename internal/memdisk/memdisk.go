// Package memdisk is an in-memory block device that misbehaves on demand:
// it can fill up, alias offsets like a counterfeit controller, drop writes,
// fail reads in chosen ranges and refuse to seek. Tests wrap it in whatever
// opener interface they need.
package memdisk

import (
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Mode controls what a Device does with I/O past its real capacity.
type Mode int

const (
	// Full rejects writes past capacity as storage full and reads EOF.
	Full Mode = iota
	// Wrap maps every offset onto offset % capacity.
	Wrap
	// Discard accepts writes past capacity, drops them and reads zeros.
	Discard
)

var (
	ErrBadSector = errors.New("bad sector")
	ErrSeek      = errors.New("seek not supported")
)

// Device is the shared medium. Opening it never clears it, like a raw block
// device. Set the exported knobs before handing it out.
type Device struct {
	mu   sync.Mutex
	mode Mode
	bad  [][2]int64

	// Data is the physical medium.
	Data []byte
	// Opens counts handles handed out.
	Opens int

	FailSeek bool
	WriteErr error
	// MaxWrite caps the bytes accepted per Write call; 0 means no cap.
	MaxWrite int
	// SilentFull makes a full device accept 0 bytes with a nil error
	// instead of io.ErrShortWrite.
	SilentFull bool
}

func New(capacity int, mode Mode) *Device {
	return &Device{Data: make([]byte, capacity), mode: mode}
}

// MarkBad makes reads touching [start, end) fail with ErrBadSector.
func (d *Device) MarkBad(start, end int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bad = append(d.bad, [2]int64{start, end})
}

// Corrupt flips one byte at off.
func (d *Device) Corrupt(off int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Data[off] ^= 0xFF
}

// Open returns a new handle positioned at 0.
func (d *Device) Open() *Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Opens++
	return &Handle{dev: d}
}

// Handle is a positioned view of a Device.
type Handle struct {
	dev *Device
	pos int64
}

func (h *Handle) physical(off int64) (int64, bool) {
	capacity := int64(len(h.dev.Data))
	if h.dev.mode == Wrap && capacity > 0 {
		return off % capacity, true
	}
	return off, off < capacity
}

func (h *Handle) Write(p []byte) (int, error) {
	d := h.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.WriteErr != nil {
		return 0, d.WriteErr
	}
	if d.MaxWrite > 0 && len(p) > d.MaxWrite {
		p = p[:d.MaxWrite]
	}
	for n := range p {
		phys, ok := h.physical(h.pos)
		if !ok {
			if d.mode == Full || d.mode == Wrap {
				if d.SilentFull {
					return n, nil
				}
				return n, io.ErrShortWrite
			}
		} else {
			d.Data[phys] = p[n]
		}
		h.pos++
	}
	return len(p), nil
}

func (h *Handle) Read(p []byte) (int, error) {
	d := h.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.bad {
		if h.pos < r[1] && h.pos+int64(len(p)) > r[0] {
			return 0, ErrBadSector
		}
	}
	for n := range p {
		phys, ok := h.physical(h.pos)
		if !ok {
			if d.mode != Discard {
				if n == 0 {
					return 0, io.EOF
				}
				return n, nil
			}
			p[n] = 0
		} else {
			p[n] = d.Data[phys]
		}
		h.pos++
	}
	return len(p), nil
}

func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	if h.dev.FailSeek {
		return h.pos, ErrSeek
	}
	switch whence {
	case io.SeekStart:
		h.pos = offset
	case io.SeekCurrent:
		h.pos += offset
	default:
		return h.pos, errors.Errorf("unsupported whence %d", whence)
	}
	return h.pos, nil
}

func (h *Handle) Sync() error  { return nil }
func (h *Handle) Close() error { return nil }
