package inspect

import (
	"fmt"
	"io"
	"math/bits"
	"slices"

	"github.com/pkg/errors"
)

// RunQuickProbePhase writes one block at steps+1 evenly spaced anchors across
// limitMB MiB and reads them back. It returns nil when every anchor holds its
// own pattern, and a Report describing the anomaly otherwise. A zero limit
// skips the probe.
//
// Wraparound is only caught when the device's wrap period maps one anchor
// onto another, so a clean probe does not prove the capacity is real.
func (i *Inspector) RunQuickProbePhase(limitMB uint64, steps int) (*Report, error) {
	return i.RunQuickProbePhaseWithEvents(limitMB, steps, nil, nil)
}

// RunQuickProbePhaseWithEvents is RunQuickProbePhase with progress reported to
// sink. A stop request yields ErrInterrupted, since a partly probed span has
// no verdict.
func (i *Inspector) RunQuickProbePhaseWithEvents(limitMB uint64, steps int, cancel *CancelToken, sink EventSink) (*Report, error) {
	if err := i.checkTarget(); err != nil {
		return nil, err
	}
	blockSize, err := ResolveBlockSize(i.config.BlockSize)
	if err != nil {
		return nil, err
	}
	if limitMB == 0 {
		logger.Info("quick probe skipped: no limit provided")
		return nil, nil
	}
	if steps < 2 {
		return nil, configErrorf("quick probe needs at least 2 steps, got %d", steps)
	}
	limit, _, err := limitBytes(limitMB)
	if err != nil {
		return nil, err
	}
	if limit < uint64(blockSize) {
		return nil, configErrorf("limit of %d MB is smaller than one %d byte block", limitMB, blockSize)
	}

	anchors := probeOffsets(limit, uint64(blockSize), steps)
	span := uint64(len(anchors)) * uint64(blockSize)
	logger.Infof("quick probe start: anchors=%d span=%dMB", len(anchors), limit/mib)

	buf, err := AcquireBuffer(blockSize, Alignment)
	if err != nil {
		return nil, err
	}
	defer buf.Release()
	block := buf.Bytes()

	if err := i.seedAnchors(anchors, block, cancel, sink); err != nil {
		return nil, err
	}

	media, err := i.config.Opener.OpenRead(i.path)
	if err != nil {
		emitError(sink, fmt.Sprintf("Unable to open target for reading: %v", err))
		return nil, errors.Wrapf(err, "open %s for reading", i.path)
	}
	defer media.Close()

	progress := newTracker(PhaseVerify, sink)
	var (
		valid, mismatches, readFailures uint64
		sample                          *HealthStatus
	)
	for k, offset := range anchors {
		if cancel.Cancelled() {
			return nil, errors.Wrap(ErrInterrupted, "quick probe")
		}
		if _, err := media.Seek(int64(offset), io.SeekStart); err != nil {
			emitError(sink, fmt.Sprintf("Quick probe seek failure at offset %d: %v", offset, err))
			return nil, errors.Wrapf(err, "seek to anchor %d", offset)
		}
		if _, err := io.ReadFull(media, block); err != nil {
			readFailures++
			logger.Errorf("quick probe read failure at offset %d: %v", offset, err)
			continue
		}

		if _, ok := Check(offset, block); ok {
			valid += uint64(blockSize)
		} else {
			mismatches++
			if matchesOtherAnchor(anchors, offset, block) {
				logger.Warnf("anchor at offset %d holds another anchor's data", offset)
				fake := FakeCapacity
				sample = &fake
				break
			}
			if sample == nil {
				corrupt := PhysicalCorruption
				sample = &corrupt
			}
		}
		progress.tick(uint64(k+1)*uint64(blockSize), span, func() {
			logger.Infof("probed %d of %d anchors", k+1, len(anchors))
		})
	}
	progress.final(span, span)

	report := GenerateReport(limit, span, valid, mismatches, readFailures, sample)
	if report.ErrorCount == 0 {
		logger.Info("quick probe complete: no anomalies")
		return nil, nil
	}
	logger.Warnf("quick probe anomaly detected: status=%s errors=%d", report.Status, report.ErrorCount)
	return &report, nil
}

// seedAnchors writes the stream block for every anchor and syncs.
func (i *Inspector) seedAnchors(anchors []uint64, block []byte, cancel *CancelToken, sink EventSink) error {
	media, err := i.config.Opener.OpenWrite(i.path)
	if err != nil {
		emitError(sink, fmt.Sprintf("Unable to open target for writing: %v", err))
		return errors.Wrapf(err, "open %s for writing", i.path)
	}
	defer media.Close()

	span := uint64(len(anchors)) * uint64(len(block))
	progress := newTracker(PhaseWrite, sink)
	for k, offset := range anchors {
		if cancel.Cancelled() {
			return errors.Wrap(ErrInterrupted, "quick probe")
		}
		if _, err := media.Seek(int64(offset), io.SeekStart); err != nil {
			emitError(sink, fmt.Sprintf("Quick probe seek failure at offset %d: %v", offset, err))
			return errors.Wrapf(err, "seek to anchor %d", offset)
		}
		Fill(offset, block)
		if _, err := media.Write(block); err != nil {
			emitError(sink, fmt.Sprintf("Quick probe write failure at offset %d: %v", offset, err))
			return errors.Wrapf(err, "write anchor %d", offset)
		}
		progress.tick(uint64(k+1)*uint64(len(block)), span, func() {
			logger.Infof("seeded %d of %d anchors", k+1, len(anchors))
		})
	}
	if err := media.Sync(); err != nil {
		emitError(sink, fmt.Sprintf("Failed to sync data: %v", err))
		return errors.Wrap(err, "sync")
	}
	progress.final(span, span)
	return nil
}

// probeOffsets spreads steps+1 aligned anchors over [0, limit), clamping the
// last one so a full block still fits. The result is sorted and unique.
// Anchors whose blocks would overlap a neighbour are dropped, so a span that
// holds fewer than steps+1 blocks yields fewer anchors and a smaller
// TestedBytes in the report.
func probeOffsets(limit, blockSize uint64, steps int) []uint64 {
	if limit == 0 || blockSize == 0 || steps <= 0 {
		return nil
	}
	last := limit - min(limit, blockSize)
	offsets := make([]uint64, 0, steps+1)
	for step := 0; step <= steps; step++ {
		raw := mulDiv(limit, uint64(step), uint64(steps))
		offsets = append(offsets, min(AlignDown(raw, Alignment), last))
	}
	slices.Sort(offsets)
	return spread(slices.Compact(offsets), blockSize)
}

// spread drops anchors whose block would overlap the previous one, since an
// overlapping write clobbers its neighbour. The final anchor always survives.
func spread(offsets []uint64, blockSize uint64) []uint64 {
	kept := offsets[:0]
	for k, off := range offsets {
		if k == len(offsets)-1 {
			for len(kept) > 0 && kept[len(kept)-1]+blockSize > off {
				kept = kept[:len(kept)-1]
			}
		}
		if len(kept) == 0 || kept[len(kept)-1]+blockSize <= off {
			kept = append(kept, off)
		}
	}
	return kept
}

// mulDiv computes a*b/c with a 128-bit intermediate. b <= c keeps the
// quotient within 64 bits.
func mulDiv(a, b, c uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q, _ := bits.Div64(hi, lo, c)
	return q
}

// matchesOtherAnchor reports whether block is exactly the stream of some other
// anchor, meaning two logical offsets share one physical location.
func matchesOtherAnchor(anchors []uint64, current uint64, block []byte) bool {
	for _, offset := range anchors {
		if offset == current {
			continue
		}
		if _, ok := Check(offset, block); ok {
			return true
		}
	}
	return false
}
