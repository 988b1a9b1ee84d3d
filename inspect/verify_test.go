package inspect

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeThenInspector(t *testing.T, dev *memDevice, blockSize int, limitMB uint64) *Inspector {
	t.Helper()
	ins := memInspector(t.TempDir(), dev, blockSize)
	_, err := ins.RunWritePhase(limitMB)
	require.NoError(t, err)
	return ins
}

func TestVerifyPhaseHealthy(t *testing.T) {
	dev := newMemDevice(mib, modeFull)
	ins := writeThenInspector(t, dev, 4096, 1)

	sink := &recordingSink{}
	r, err := ins.RunVerifyPhaseWithEvents(mib, nil, sink)
	require.NoError(t, err)
	assert.Equal(t, Healthy, r.Status)
	assert.Zero(t, r.ErrorCount)
	assert.Equal(t, 100.0, r.HealthScore)
	assert.Equal(t, uint64(mib), r.TestedBytes)

	last := sink.last()
	assert.Equal(t, PhaseVerify, last.Phase)
	assert.Equal(t, uint64(mib), last.BytesVerified)
	assert.Equal(t, uint64(mib), last.BytesWritten)
}

func TestVerifyPhaseCorruption(t *testing.T) {
	dev := newMemDevice(mib, modeFull)
	ins := writeThenInspector(t, dev, 4096, 1)
	dev.Corrupt(5000)

	r, err := ins.RunVerifyPhase(mib)
	require.NoError(t, err)
	assert.Equal(t, PhysicalCorruption, r.Status)
	assert.Equal(t, uint64(1), r.ErrorCount)
	assert.Equal(t, uint64(mib-4096), r.ValidBytes)
	assert.Greater(t, r.HealthScore, 0.0)
	assert.Less(t, r.HealthScore, 100.0)
}

func TestVerifyPhaseZeroedBlocksMeanFakeCapacity(t *testing.T) {
	dev := newMemDevice(512*1024, modeDiscard)
	ins := writeThenInspector(t, dev, 64*1024, 1)

	r, err := ins.RunVerifyPhase(mib)
	require.NoError(t, err)
	assert.Equal(t, FakeCapacity, r.Status)
	assert.Equal(t, uint64(8), r.ErrorCount)
	assert.InDelta(t, 50.0, r.HealthScore, 1e-9)
	assert.Contains(t, r.Conclusion, "possible fake capacity")
}

func TestVerifyPhaseReadErrors(t *testing.T) {
	dev := newMemDevice(mib, modeFull)
	ins := writeThenInspector(t, dev, 4096, 1)
	dev.MarkBad(8192, 8193)
	dev.MarkBad(40960, 49152)

	r, err := ins.RunVerifyPhase(mib)
	require.NoError(t, err)
	assert.Equal(t, DataLoss, r.Status)
	assert.Equal(t, uint64(3), r.ErrorCount)
	assert.Equal(t, uint64(mib), r.TestedBytes, "scan continues past bad blocks")
	assert.Equal(t, uint64(mib-3*4096), r.ValidBytes)
}

func TestVerifyPhaseSeekFailureEndsEarly(t *testing.T) {
	dev := newMemDevice(mib, modeFull)
	ins := writeThenInspector(t, dev, 4096, 1)
	dev.MarkBad(8192, 8193)
	dev.FailSeek = true

	sink := &recordingSink{}
	r, err := ins.RunVerifyPhaseWithEvents(mib, nil, sink)
	require.NoError(t, err)
	assert.Equal(t, uint64(8192), r.TestedBytes)
	assert.True(t, r.EndedEarly())
	assert.Contains(t, r.Conclusion, "Verification ended early after 8192 / 1048576 bytes.")
	require.Len(t, sink.errs, 1)
	assert.Contains(t, sink.errs[0], "Unable to seek past read failure")
}

func TestVerifyPhaseShortTarget(t *testing.T) {
	dev := newMemDevice(256*1024, modeFull)
	ins := writeThenInspector(t, dev, 64*1024, 1)

	r, err := ins.RunVerifyPhase(mib)
	require.NoError(t, err)
	assert.Equal(t, DataLoss, r.Status)
	assert.Equal(t, uint64(12), r.ErrorCount)
}

func TestVerifyPhaseCancel(t *testing.T) {
	dev := newMemDevice(mib, modeFull)
	ins := writeThenInspector(t, dev, 4096, 1)

	token := NewCancelToken()
	r, err := ins.RunVerifyPhaseWithEvents(mib, token, cancelAfterFirst(token))
	require.NoError(t, err)
	assert.Equal(t, uint64(4096), r.TestedBytes)
	assert.True(t, r.EndedEarly())
}

func TestVerifyPhaseRejectsMisalignedTotal(t *testing.T) {
	dev := newMemDevice(mib, modeFull)
	ins := memInspector(t.TempDir(), dev, 4096)
	_, err := ins.RunVerifyPhase(4097)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Zero(t, dev.Opens)
}
