package main

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"truthbyte/inspect"
)

var (
	// ErrAlreadyRunning is returned by Run while another run is in flight.
	ErrAlreadyRunning = errors.New("diagnosis is already running")
	// ErrNotRunning is returned by Stop when there is nothing to stop.
	ErrNotRunning = errors.New("no active diagnosis to stop")
)

const noDataConclusion = "No data written; verification skipped."

// observer receives everything a session reports: phase progress and errors
// from the engine plus the session's own milestones.
type observer interface {
	inspect.EventSink
	PhaseStarted(name string)
	Completed(report inspect.Report)
	Cancelled()
}

// outcome is what a finished run produced. Report is nil only for a run that
// was cancelled before any report existed.
type outcome struct {
	ID        string          `json:"session"`
	Written   uint64          `json:"bytes_written"`
	Report    *inspect.Report `json:"report,omitempty"`
	Cancelled bool            `json:"cancelled"`
	// ProbeOnly marks a run that stopped after the quick probe found an
	// anomaly.
	ProbeOnly bool `json:"probe_only,omitempty"`
	// VerifyOnly marks a read-back of a span written earlier.
	VerifyOnly bool `json:"verify_only,omitempty"`
}

// session runs probe, write and verify against one Inspector, one run at a
// time, and turns a stop request into a cancellation notice.
type session struct {
	ins     *inspect.Inspector
	running atomic.Bool
	cancel  *inspect.CancelToken
}

func newSession(ins *inspect.Inspector) *session {
	return &session{ins: ins, cancel: inspect.NewCancelToken()}
}

// Stop asks the current run to wind down after its current block. A stop
// that lands before Run starts is kept and cancels that run at once; Stop
// still reports ErrNotRunning for it.
func (s *session) Stop() error {
	s.cancel.Cancel()
	if !s.running.Load() {
		return ErrNotRunning
	}
	return nil
}

// Running reports whether a run is in flight.
func (s *session) Running() bool {
	return s.running.Load()
}

// Run performs a full diagnosis. The quick probe runs first when enabled and
// a limit is given; an anomaly there ends the run with the probe's report.
func (s *session) Run(limitMB uint64, obs observer) (outcome, error) {
	if !s.running.CompareAndSwap(false, true) {
		return outcome{}, ErrAlreadyRunning
	}
	defer func() {
		s.cancel.Reset()
		s.running.Store(false)
	}()

	out := outcome{ID: uuid.NewString()}
	log := logger.WithFields(logrus.Fields{"session": out.ID, "target": s.ins.Path()})
	log.Infof("diagnosis start, limit %d MB", limitMB)

	if s.probeFits(limitMB) {
		obs.PhaseStarted(phaseProbe)
		report, err := s.ins.RunQuickProbePhaseWithEvents(limitMB, s.ins.QuickProbeSteps(), s.cancel, obs)
		if errors.Is(err, inspect.ErrInterrupted) {
			return s.cancelled(log, obs, out), nil
		}
		if err != nil {
			obs.Error(fmt.Sprintf("Quick probe failed: %v", err))
			return out, errors.Wrap(err, "quick probe")
		}
		if report != nil {
			log.Warnf("quick probe found %s, skipping full scan", report.Status)
			out.Report = report
			out.ProbeOnly = true
			obs.Completed(*report)
			return out, nil
		}
	}

	obs.PhaseStarted(phaseWrite)
	written, err := s.ins.RunWritePhaseWithEvents(limitMB, s.cancel, obs)
	out.Written = written
	if err != nil {
		obs.Error(fmt.Sprintf("Write phase failed: %v", err))
		return out, errors.Wrap(err, "write phase")
	}
	if s.cancel.Cancelled() {
		return s.cancelled(log, obs, out), nil
	}
	if written == 0 {
		report := inspect.Report{Status: inspect.DataLoss, Conclusion: noDataConclusion}
		out.Report = &report
		log.Error(noDataConclusion)
		obs.Completed(report)
		return out, nil
	}

	obs.PhaseStarted(phaseVerify)
	report, err := s.ins.RunVerifyPhaseWithEvents(written, s.cancel, obs)
	if err != nil {
		obs.Error(fmt.Sprintf("Verify phase failed: %v", err))
		return out, errors.Wrap(err, "verify phase")
	}
	out.Report = &report
	if s.cancel.Cancelled() {
		return s.cancelled(log, obs, out), nil
	}

	log.WithField("status", report.Status).Infof("diagnosis complete: %s", report.Conclusion)
	obs.Completed(report)
	return out, nil
}

// probeFits reports whether the quick probe applies: it is enabled, a limit
// is set and the span holds at least one block.
func (s *session) probeFits(limitMB uint64) bool {
	if !s.ins.QuickProbeEnabled() || limitMB == 0 {
		return false
	}
	blockSize, err := inspect.ResolveBlockSize(s.ins.Config().BlockSize)
	if err != nil {
		return true
	}
	limit, err := inspect.LimitBytes(limitMB)
	if err != nil {
		return true
	}
	if limit < uint64(blockSize) {
		logger.Infof("quick probe skipped: %d MB limit is smaller than one block", limitMB)
		return false
	}
	return true
}

func (s *session) cancelled(log *logrus.Entry, obs observer, out outcome) outcome {
	log.Info("diagnosis cancelled")
	out.Cancelled = true
	obs.Cancelled()
	return out
}
