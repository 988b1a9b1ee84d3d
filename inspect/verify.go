package inspect

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// maxDetailedErrors caps how many read errors and mismatches are logged one
// by one; the rest only show up in the counters.
const maxDetailedErrors = 5

// RunVerifyPhase reads totalBytes back from the target and compares every
// block against the stream.
func (i *Inspector) RunVerifyPhase(totalBytes uint64) (Report, error) {
	return i.RunVerifyPhaseWithEvents(totalBytes, nil, nil)
}

// RunVerifyPhaseWithEvents is RunVerifyPhase with progress reported to sink.
// A cancelled run still returns a Report covering the bytes scanned so far.
func (i *Inspector) RunVerifyPhaseWithEvents(totalBytes uint64, cancel *CancelToken, sink EventSink) (Report, error) {
	blockSize, err := ResolveBlockSize(i.config.BlockSize)
	if err != nil {
		return Report{}, err
	}
	if totalBytes%Alignment != 0 {
		return Report{}, configErrorf("total bytes %d is not a multiple of %d", totalBytes, Alignment)
	}

	media, err := i.config.Opener.OpenRead(i.path)
	if err != nil {
		emitError(sink, fmt.Sprintf("Unable to open target for reading: %v", err))
		return Report{}, errors.Wrapf(err, "open %s for reading", i.path)
	}
	defer media.Close()

	buf, err := AcquireBuffer(blockSize, Alignment)
	if err != nil {
		return Report{}, err
	}
	defer buf.Release()

	logger.Infof("verify phase start: total bytes=%d", totalBytes)
	progress := newTracker(PhaseVerify, sink)

	var (
		offset, valid            uint64
		mismatches, readFailures uint64
		sample                   *HealthStatus
		expected                 []byte
	)
	for offset < totalBytes && !cancel.Cancelled() {
		n := int(min(totalBytes-offset, uint64(blockSize)))
		block := buf.Bytes()[:n]

		if _, err := io.ReadFull(media, block); err != nil {
			if readFailures < maxDetailedErrors {
				logger.Errorf("read failed at offset %d: %v; skipping block", offset, err)
			}
			readFailures++
			next := offset + uint64(n)
			if _, err := media.Seek(int64(next), io.SeekStart); err != nil {
				emitError(sink, fmt.Sprintf("Unable to seek past read failure at offset %d: %v", offset, err))
				break
			}
			offset = next
			continue
		}

		if idx, ok := Check(offset, block); ok {
			valid += uint64(n)
		} else {
			pos := offset + uint64(idx)
			if mismatches < maxDetailedErrors {
				logger.Warnf("mismatch at offset 0x%X (%d)", pos, pos)
			}
			mismatches++

			if cap(expected) < n {
				expected = make([]byte, blockSize)
			}
			expected = expected[:n]
			Fill(offset, expected)
			if status, ok := AnalyzeFailureSample(expected, block); ok {
				if sample == nil {
					sample = &status
				} else {
					*sample = Escalate(*sample, status)
				}
			}
		}
		offset += uint64(n)

		progress.tick(offset, totalBytes, func() {
			logger.Infof("verified %.1f%% (errors: %d)", percentOf(offset, totalBytes), mismatches+readFailures)
		})
	}

	report := GenerateReport(totalBytes, offset, valid, mismatches, readFailures, sample)
	logger.Infof("verify complete: status=%s errors=%d", report.Status, report.ErrorCount)
	progress.final(offset, totalBytes)
	return report, nil
}
