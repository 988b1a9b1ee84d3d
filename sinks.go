package main

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/time/rate"

	"truthbyte/inspect"
	"truthbyte/scanui"
)

const (
	phaseProbe  = "Probe"
	phaseWrite  = "Write"
	phaseVerify = "Verify"
)

// closingObserver is an observer that holds resources until the command
// finishes.
type closingObserver interface {
	observer
	Close()
}

// fanout forwards every notification to each member in order.
type fanout []closingObserver

func (f fanout) Progress(u inspect.ProgressUpdate) {
	for _, o := range f {
		o.Progress(u)
	}
}

func (f fanout) Error(msg string) {
	for _, o := range f {
		o.Error(msg)
	}
}

func (f fanout) PhaseStarted(name string) {
	for _, o := range f {
		o.PhaseStarted(name)
	}
}

func (f fanout) Completed(r inspect.Report) {
	for _, o := range f {
		o.Completed(r)
	}
}

func (f fanout) Cancelled() {
	for _, o := range f {
		o.Cancelled()
	}
}

func (f fanout) Close() {
	for _, o := range f {
		o.Close()
	}
}

// logObserver sends engine errors and milestones to the log.
type logObserver struct{}

func (logObserver) Progress(u inspect.ProgressUpdate) {
	logger.Debugf("progress %s", formatProgress(u))
}

func (logObserver) Error(msg string) { logger.Error(msg) }

func (logObserver) PhaseStarted(name string) { logger.Debugf("phase %s", name) }

func (logObserver) Completed(inspect.Report) {}

func (logObserver) Cancelled() { logger.Warn("diagnosis cancelled by request") }

func (logObserver) Close() {}

// lineObserver prints a progress line every couple of seconds, for output
// that is not a terminal.
type lineObserver struct {
	w     io.Writer
	mu    sync.Mutex
	every rate.Sometimes
}

func newLineObserver(w io.Writer) *lineObserver {
	return &lineObserver{w: w, every: rate.Sometimes{Interval: 2 * time.Second}}
}

func (o *lineObserver) Progress(u inspect.ProgressUpdate) {
	o.every.Do(func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		fmt.Fprintln(o.w, formatProgress(u))
	})
}

func (o *lineObserver) Error(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.w, "[ERROR] %s\n", msg)
}

func (o *lineObserver) PhaseStarted(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.w, "[INFO] %s phase\n", name)
	o.every = rate.Sometimes{Interval: 2 * time.Second}
}

func (o *lineObserver) Completed(inspect.Report) {}

func (o *lineObserver) Cancelled() {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintln(o.w, "[INFO] Cancelled.")
}

func (o *lineObserver) Close() {}

// barObserver draws one mpb bar per engine phase.
type barObserver struct {
	mu    sync.Mutex
	p     *mpb.Progress
	bar   *mpb.Bar
	phase inspect.Phase
}

func newBarObserver(w io.Writer) *barObserver {
	return &barObserver{p: mpb.New(mpb.WithOutput(w), mpb.WithWidth(64))}
}

func (o *barObserver) newBar(name string) *mpb.Bar {
	return o.p.AddBar(0,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: 8, C: decor.DindentRight}),
			decor.CountersKibiByte("% .1f / % .1f"),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Percentage(decor.WC{W: 5}), "done"),
			decor.Name(" "),
			decor.AverageSpeed(decor.SizeB1024(0), "% .1f"),
		),
	)
}

func (o *barObserver) Progress(u inspect.ProgressUpdate) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.bar != nil && o.phase != u.Phase {
		o.finish(false)
	}
	if o.bar == nil {
		o.bar = o.newBar(string(u.Phase))
		o.phase = u.Phase
	}
	done := u.BytesWritten
	if u.Phase == inspect.PhaseVerify {
		done = u.BytesVerified
	}
	if u.TotalBytes > 0 {
		o.bar.SetTotal(int64(u.TotalBytes), false)
	}
	o.bar.SetCurrent(int64(done))
}

func (o *barObserver) Error(string) {}

// PhaseStarted completes the previous bar. Bars open lazily on progress,
// and a change of engine phase within one step (the probe seeds, then reads
// back) opens a fresh bar.
func (o *barObserver) PhaseStarted(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finish(false)
}

func (o *barObserver) finish(abort bool) {
	if o.bar == nil {
		return
	}
	if abort {
		o.bar.Abort(false)
	} else {
		o.bar.SetTotal(-1, true)
	}
	o.bar = nil
}

func (o *barObserver) Completed(inspect.Report) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finish(false)
}

func (o *barObserver) Cancelled() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finish(true)
}

func (o *barObserver) Close() {
	o.mu.Lock()
	o.finish(true)
	o.mu.Unlock()
	o.p.Wait()
}

var offsetPattern = regexp.MustCompile(`offset (\d+)`)

// uiObserver drives the full-screen view.
type uiObserver struct {
	mu      sync.Mutex
	ui      *scanui.UI
	blocks  *scanui.BlockMap
	target  string
	phase   string
	last    inspect.ProgressUpdate
	lastErr string
	verdict string
}

func newUIObserver(ui *scanui.UI, target string, limitMB uint64) *uiObserver {
	ui.SetTitle(" TRUTHBYTE - MEDIA DIAGNOSIS ")
	ui.SetPhases([]string{phaseProbe, phaseWrite, phaseVerify})
	span, _ := inspect.LimitBytes(limitMB)
	limit := "until full"
	if span > 0 {
		limit = humanize.IBytes(span)
	}
	ui.SetSummaryLines([]string{
		"Target: " + target,
		"Span:   " + limit,
	})
	ui.SetLegend([]string{scanui.Legend})
	o := &uiObserver{ui: ui, blocks: scanui.NewBlockMap(span), target: target}
	o.draw()
	return o
}

func (o *uiObserver) Progress(u inspect.ProgressUpdate) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.last = u
	if o.phase != phaseProbe {
		if u.TotalBytes > 0 && o.blocks.Total() == 0 {
			o.blocks.SetTotal(u.TotalBytes)
		}
		switch u.Phase {
		case inspect.PhaseWrite:
			o.blocks.MarkWritten(u.BytesWritten)
		case inspect.PhaseVerify:
			o.blocks.MarkWritten(u.BytesWritten)
			o.blocks.MarkVerified(u.BytesVerified)
		}
	}
	o.drawLocked()
}

func (o *uiObserver) Error(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastErr = msg
	if m := offsetPattern.FindStringSubmatch(msg); m != nil && o.phase != phaseProbe {
		if off, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			o.blocks.MarkFailed(off)
		}
	}
	o.drawLocked()
}

func (o *uiObserver) PhaseStarted(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase != "" {
		o.ui.SetPhaseDone(o.phase)
	}
	o.phase = name
	o.last = inspect.ProgressUpdate{}
	o.drawLocked()
}

func (o *uiObserver) Completed(r inspect.Report) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase != "" {
		o.ui.SetPhaseDone(o.phase)
	}
	o.verdict = fmt.Sprintf("Result: %s, health %.1f/100. Press Q to exit.", r.Status, r.HealthScore)
	o.drawLocked()
}

func (o *uiObserver) Cancelled() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verdict = "Cancelled."
	o.drawLocked()
}

func (o *uiObserver) Close() {}

func (o *uiObserver) draw() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.drawLocked()
}

func (o *uiObserver) drawLocked() {
	w, h := o.ui.Size()
	if w > 0 && h > 0 {
		o.ui.SetProgressMap(o.blocks.Render(w, o.ui.MapRows(h)))
	}
	lines := []string{"Current op: " + o.phase}
	if o.last.Phase != "" {
		lines = append(lines, formatProgress(o.last))
	}
	if o.lastErr != "" {
		lines = append(lines, "Last error: "+o.lastErr)
	}
	if o.verdict != "" {
		lines = append(lines, o.verdict)
	}
	o.ui.SetStatusLines(lines)
	o.ui.LayoutAndDraw()
}
