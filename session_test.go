package main

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truthbyte/inspect"
	"truthbyte/internal/memdisk"
)

// recordingObserver keeps the milestones a session reports. onProgress runs
// after each progress update.
type recordingObserver struct {
	mu         sync.Mutex
	phases     []string
	errs       []string
	completed  []inspect.Report
	cancelled  int
	onProgress func(inspect.ProgressUpdate)
}

func (o *recordingObserver) Progress(u inspect.ProgressUpdate) {
	if o.onProgress != nil {
		o.onProgress(u)
	}
}

func (o *recordingObserver) Error(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, msg)
}

func (o *recordingObserver) PhaseStarted(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, name)
}

func (o *recordingObserver) Completed(r inspect.Report) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed = append(o.completed, r)
}

func (o *recordingObserver) Cancelled() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelled++
}

func fakeSession(t *testing.T, dev *fakeDevice, probe bool) *session {
	cfg := inspect.DefaultConfig()
	cfg.BlockSize = 4096
	cfg.QuickProbeEnabled = probe
	cfg.QuickProbeSteps = 4
	cfg.Opener = dev
	return newSession(inspect.NewWithConfig(filepath.Join(t.TempDir(), "target.img"), cfg))
}

func TestSessionHealthyRun(t *testing.T) {
	sess := fakeSession(t, newFakeDevice(2<<20, memdisk.Full), true)
	obs := &recordingObserver{}

	out, err := sess.Run(1, obs)
	require.NoError(t, err)

	assert.NotEmpty(t, out.ID)
	assert.Equal(t, uint64(1<<20), out.Written)
	require.NotNil(t, out.Report)
	assert.Equal(t, inspect.Healthy, out.Report.Status)
	assert.Equal(t, 100.0, out.Report.HealthScore)
	assert.False(t, out.Cancelled)
	assert.False(t, out.ProbeOnly)
	assert.Equal(t, []string{phaseProbe, phaseWrite, phaseVerify}, obs.phases)
	assert.Len(t, obs.completed, 1)
	assert.Zero(t, obs.cancelled)
	assert.False(t, sess.Running())
}

func TestSessionProbeAnomalyEndsRun(t *testing.T) {
	// 256 KiB that claims to be far larger: anchors 0 and 768K share a cell.
	sess := fakeSession(t, newFakeDevice(256<<10, memdisk.Wrap), true)
	obs := &recordingObserver{}

	out, err := sess.Run(1, obs)
	require.NoError(t, err)

	assert.True(t, out.ProbeOnly)
	require.NotNil(t, out.Report)
	assert.Equal(t, inspect.FakeCapacity, out.Report.Status)
	assert.Zero(t, out.Written)
	assert.Equal(t, []string{phaseProbe}, obs.phases)
	require.Len(t, obs.completed, 1)
	assert.Equal(t, inspect.FakeCapacity, obs.completed[0].Status)
	assert.Equal(t, exitAnomaly, exitCode(out, nil))
}

func TestSessionNoDataWritten(t *testing.T) {
	sess := fakeSession(t, newFakeDevice(0, memdisk.Full), true)
	obs := &recordingObserver{}

	out, err := sess.Run(0, obs)
	require.NoError(t, err)

	assert.Zero(t, out.Written)
	require.NotNil(t, out.Report)
	assert.Equal(t, inspect.DataLoss, out.Report.Status)
	assert.Equal(t, noDataConclusion, out.Report.Conclusion)
	assert.Equal(t, []string{phaseWrite}, obs.phases)
	assert.Equal(t, exitFailure, exitCode(out, nil))
}

func TestSessionWriteFailure(t *testing.T) {
	dev := newFakeDevice(1<<20, memdisk.Full)
	dev.WriteErr = errors.New("medium gone")
	sess := fakeSession(t, dev, false)
	obs := &recordingObserver{}

	_, err := sess.Run(1, obs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write phase")
	assert.Contains(t, err.Error(), "medium gone")
	require.NotEmpty(t, obs.errs)
	assert.Contains(t, obs.errs[len(obs.errs)-1], "Write phase failed")
	assert.Empty(t, obs.completed)
	assert.False(t, sess.Running())
}

func TestSessionStopCancels(t *testing.T) {
	sess := fakeSession(t, newFakeDevice(1<<20, memdisk.Full), false)
	obs := &recordingObserver{}
	obs.onProgress = func(inspect.ProgressUpdate) { assert.NoError(t, sess.Stop()) }

	out, err := sess.Run(1, obs)
	require.NoError(t, err)

	assert.True(t, out.Cancelled)
	assert.Equal(t, uint64(4096), out.Written)
	assert.Nil(t, out.Report)
	assert.Equal(t, 1, obs.cancelled)
	assert.Empty(t, obs.completed)
	assert.Equal(t, exitAnomaly, exitCode(out, nil))

	// The stop request does not leak into the next run.
	out, err = sess.Run(1, &recordingObserver{})
	require.NoError(t, err)
	assert.False(t, out.Cancelled)
	require.NotNil(t, out.Report)
	assert.Equal(t, inspect.Healthy, out.Report.Status)
}

func TestSessionStopBeforeRunCancelsIt(t *testing.T) {
	dev := newFakeDevice(1<<20, memdisk.Full)
	sess := fakeSession(t, dev, true)
	assert.ErrorIs(t, sess.Stop(), ErrNotRunning)

	obs := &recordingObserver{}
	out, err := sess.Run(1, obs)
	require.NoError(t, err)
	assert.True(t, out.Cancelled)
	assert.Zero(t, out.Written)
	assert.Equal(t, 1, obs.cancelled)
	assert.Equal(t, make([]byte, 1<<20), dev.Data, "nothing written")

	out, err = sess.Run(1, &recordingObserver{})
	require.NoError(t, err)
	assert.False(t, out.Cancelled)
}

func TestSessionRejectsConcurrentRun(t *testing.T) {
	sess := fakeSession(t, newFakeDevice(1<<20, memdisk.Full), false)
	var nested error
	var once sync.Once
	obs := &recordingObserver{}
	obs.onProgress = func(inspect.ProgressUpdate) {
		once.Do(func() {
			assert.True(t, sess.Running())
			_, nested = sess.Run(1, &recordingObserver{})
		})
	}

	_, err := sess.Run(1, obs)
	require.NoError(t, err)
	assert.ErrorIs(t, nested, ErrAlreadyRunning)
}
