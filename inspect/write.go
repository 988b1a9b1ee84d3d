package inspect

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
)

// RunWritePhase fills the target with the deterministic stream up to limitMB
// MiB, or until the device is full when limitMB is 0, and returns the number
// of bytes written.
func (i *Inspector) RunWritePhase(limitMB uint64) (uint64, error) {
	return i.RunWritePhaseWithEvents(limitMB, nil, nil)
}

// RunWritePhaseWithEvents is RunWritePhase with progress reported to sink and
// a stop request polled from cancel before every block. A cancelled run
// returns the bytes written so far and a nil error.
func (i *Inspector) RunWritePhaseWithEvents(limitMB uint64, cancel *CancelToken, sink EventSink) (uint64, error) {
	if err := i.checkTarget(); err != nil {
		return 0, err
	}
	blockSize, err := ResolveBlockSize(i.config.BlockSize)
	if err != nil {
		return 0, err
	}

	limit := AlignDown(math.MaxUint64, Alignment)
	var total uint64
	if limitMB > 0 {
		var raw uint64
		limit, raw, err = limitBytes(limitMB)
		if err != nil {
			return 0, err
		}
		if limit == 0 {
			return 0, configErrorf("limit of %d MB is too small for aligned I/O", limitMB)
		}
		if limit != raw {
			logger.Infof("limit aligned from %d to %d bytes", raw, limit)
		}
		total = limit
	}

	media, err := i.config.Opener.OpenWrite(i.path)
	if err != nil {
		emitError(sink, fmt.Sprintf("Unable to open target for writing: %v", err))
		return 0, errors.Wrapf(err, "open %s for writing", i.path)
	}
	defer media.Close()

	buf, err := AcquireBuffer(blockSize, Alignment)
	if err != nil {
		return 0, err
	}
	defer buf.Release()

	logger.Infof("write phase start: target=%s limit=%dMB block=%d", i.path, limitMB, blockSize)
	progress := newTracker(PhaseWrite, sink)

	var offset uint64
	full := false
	for offset < limit && !full && !cancel.Cancelled() {
		n := int(min(limit-offset, uint64(blockSize)))
		block := buf.Bytes()[:n]
		Fill(offset, block)

		for written := 0; written < n; {
			c, err := media.Write(block[written:])
			written += c
			offset += uint64(c)
			if err == nil && c > 0 {
				continue
			}
			if err == nil || isStorageFull(err) {
				logger.Infof("write stopped: storage full at %d bytes", offset)
				full = true
				break
			}
			emitError(sink, fmt.Sprintf("Write failure at offset %d: %v", offset, err))
			progress.final(offset, total)
			return offset, errors.Wrapf(err, "write at offset %d", offset)
		}

		progress.tick(offset, total, func() {
			logger.Infof("written %d MB", offset/mib)
		})
	}
	if cancel.Cancelled() {
		logger.Infof("write phase cancelled after %d bytes", offset)
	}

	logger.Info("syncing data")
	if err := media.Sync(); err != nil {
		emitError(sink, fmt.Sprintf("Failed to sync data: %v", err))
		return offset, errors.Wrap(err, "sync")
	}

	elapsed := time.Since(progress.start)
	logger.Infof("write complete: %d MB in %.2fs, %.2f MB/s",
		offset/mib, elapsed.Seconds(), progress.speedMBps(offset))
	progress.final(offset, total)
	return offset, nil
}
