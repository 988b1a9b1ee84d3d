package inspect

import (
	"sync"

	"truthbyte/internal/memdisk"
)

const (
	modeFull    = memdisk.Full
	modeWrap    = memdisk.Wrap
	modeDiscard = memdisk.Discard
)

var errSeek = memdisk.ErrSeek

// memDevice adapts a memdisk.Device to Opener.
type memDevice struct {
	*memdisk.Device
}

func newMemDevice(capacity int, mode memdisk.Mode) *memDevice {
	return &memDevice{memdisk.New(capacity, mode)}
}

func (d *memDevice) OpenWrite(string) (Media, error) { return d.Open(), nil }
func (d *memDevice) OpenRead(string) (Media, error)  { return d.Open(), nil }

// recordingSink keeps everything a phase reports. onProgress, when set, runs
// after each update is recorded.
type recordingSink struct {
	mu         sync.Mutex
	updates    []ProgressUpdate
	errs       []string
	onProgress func(ProgressUpdate)
}

func (s *recordingSink) Progress(u ProgressUpdate) {
	s.mu.Lock()
	s.updates = append(s.updates, u)
	s.mu.Unlock()
	if s.onProgress != nil {
		s.onProgress(u)
	}
}

func (s *recordingSink) Error(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, msg)
}

func (s *recordingSink) last() ProgressUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates[len(s.updates)-1]
}

// cancelAfterFirst returns a sink that requests a stop on the first update.
func cancelAfterFirst(token *CancelToken) *recordingSink {
	return &recordingSink{onProgress: func(ProgressUpdate) { token.Cancel() }}
}

// memInspector builds an Inspector over dev with small blocks. The path lives
// in a temp dir so the parent-directory check passes.
func memInspector(dir string, dev *memDevice, blockSize int) *Inspector {
	cfg := DefaultConfig()
	cfg.BlockSize = blockSize
	cfg.Opener = dev
	return NewWithConfig(dir+"/target.img", cfg)
}
