// truthbyte diagnoses storage media by writing a regenerable byte stream
// across a target and reading it back. Fake capacity, random corruption and
// unreadable blocks each get their own verdict.
//
// Cobra CLI; a tcell full-screen view when attached to a terminal, progress
// bars or plain lines otherwise.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"truthbyte/inspect"
	"truthbyte/logging"
	"truthbyte/scanui"
)

var logger = logging.GetLogger("truthbyte")

// lockTarget takes exclusive hold of a target before a writing command.
var lockTarget = lockVolume

const (
	exitOK      = 0
	exitAnomaly = 1
	exitFailure = 2
)

// exitError carries a process status through cobra. A nil err means the
// outcome was already reported.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func withCode(code int, err error) error {
	if code == exitOK && err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// app carries the parsed flags and the streams a command writes to.
type app struct {
	flags    globalFlags
	settings settings
	in       io.Reader
	out      io.Writer
	errOut   io.Writer

	// interactive forces the terminal checks; nil means detect.
	interactive *bool
	logFile     *os.File
}

func (a *app) isTerminal() bool {
	if a.interactive != nil {
		return *a.interactive
	}
	return isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stdin.Fd())
}

func (a *app) setup() error {
	s, err := loadConfig(a.flags.configPath)
	if err != nil {
		return err
	}
	if s, err = a.flags.apply(s); err != nil {
		return err
	}
	a.settings = s

	lvl, err := logging.ParseLevel(s.LogLevel)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	logging.SetLogLevel(lvl)
	if s.LogFile != "" {
		f, err := logging.SetOutFile(s.LogFile)
		if err != nil {
			return errors.Wrap(err, "log file")
		}
		a.logFile = f
	}
	return nil
}

func (a *app) teardown() {
	if a.logFile != nil {
		logging.SetOutput(os.Stderr)
		_ = a.logFile.Close()
		a.logFile = nil
	}
}

func (a *app) inspector(path string) *inspect.Inspector {
	return inspect.NewWithConfig(path, a.settings.Engine)
}

// confirmOverwrite asks before destroying an existing target. Directories are
// refused outright.
func (a *app) confirmOverwrite(path string, force bool) (bool, error) {
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, errors.Wrapf(err, "stat %s", path)
	}
	if st.IsDir() {
		return false, errors.Errorf("target path is a directory: %s", path)
	}
	if force {
		return true, nil
	}
	fmt.Fprintf(a.out, "[WARN] %s exists and will be overwritten. Continue? [y/N]: ", path)
	answer, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, errors.Wrap(err, "read confirmation")
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

// onInterrupt calls stop on the first SIGINT/SIGTERM and exits on the second.
func onInterrupt(stop func()) (release func()) {
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-sig:
			stop()
		case <-done:
			return
		}
		select {
		case <-sig:
			fmt.Fprintln(os.Stderr, "\nInterrupted")
			os.Exit(130)
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sig)
		close(done)
	}
}

// observers picks the progress display. The full-screen view needs a
// terminal and is off for --plain and --json; its log output is held back and
// replayed once the screen is gone.
func (a *app) observers(target string, limitMB uint64, plain, asJSON bool) (closingObserver, *scanui.UI, func()) {
	obs := fanout{logObserver{}}
	restore := func() {}

	if !plain && !asJSON && a.isTerminal() {
		ui, err := scanui.NewUI()
		if err == nil {
			var held bytes.Buffer
			if a.logFile == nil {
				logging.SetOutput(&held)
			}
			restore = func() {
				ui.Close()
				if a.logFile == nil {
					logging.SetOutput(os.Stderr)
					_, _ = a.errOut.Write(held.Bytes())
				}
			}
			return append(obs, newUIObserver(ui, target, limitMB)), ui, restore
		}
		logger.Warnf("full-screen view unavailable: %v", err)
	}
	if f, ok := a.errOut.(*os.File); ok && !asJSON && isatty.IsTerminal(f.Fd()) {
		return append(obs, newBarObserver(a.errOut)), nil, restore
	}
	return append(obs, newLineObserver(a.errOut)), nil, restore
}

func parseLimit(args []string, i int) (uint64, error) {
	if len(args) <= i {
		return 0, nil
	}
	v, err := strconv.ParseUint(args[i], 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid size limit in MB: %s", args[i])
	}
	if _, err := inspect.LimitBytes(v); err != nil {
		return 0, err
	}
	return v, nil
}

func (a *app) runCmd() *cobra.Command {
	var force, plain, asJSON bool
	cmd := &cobra.Command{
		Use:   "run PATH [LIMIT_MB]",
		Short: "Probe, write and verify a target (0 or no limit means until full)",
		Example: "  truthbyte run /Volumes/USB/test.dat 1024 --force\n" +
			"  truthbyte run /dev/sdb --no-probe",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			path := args[0]
			limitMB, err := parseLimit(args, 1)
			if err != nil {
				return withCode(exitFailure, err)
			}
			ok, err := a.confirmOverwrite(path, force)
			if err != nil {
				return withCode(exitFailure, err)
			}
			if !ok {
				fmt.Fprintln(a.out, "[INFO] Aborted by user.")
				return withCode(exitAnomaly, nil)
			}

			unlock, err := lockTarget(path)
			if err != nil {
				return withCode(exitFailure, err)
			}
			defer unlock()
			describeTarget(path)

			sess := newSession(a.inspector(path))
			obs, ui, restore := a.observers(path, limitMB, plain, asJSON)
			release := onInterrupt(func() { _ = sess.Stop() })
			defer release()
			if ui != nil {
				go func() {
					<-ui.Done()
					_ = sess.Stop()
				}()
			}

			out, runErr := sess.Run(limitMB, obs)
			if ui != nil && runErr == nil {
				<-ui.Done()
			}
			obs.Close()
			restore()

			if runErr != nil {
				return withCode(exitFailure, runErr)
			}
			if !out.Cancelled && !out.ProbeOnly && out.Written == 0 && !asJSON {
				fmt.Fprintln(a.errOut, "[ERROR] No data written; verify phase skipped.")
			}
			if err := printOutcome(a.out, out, asJSON); err != nil {
				return withCode(exitFailure, err)
			}
			return withCode(exitCode(out, nil), nil)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing target without asking")
	cmd.Flags().BoolVar(&plain, "plain", false, "no full-screen view; progress bars or lines only")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the outcome as JSON on stdout")
	return cmd
}

func (a *app) writeCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "write PATH LIMIT_MB",
		Short: "Only write the pattern (LIMIT_MB 0 fills the device)",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			path := args[0]
			limitMB, err := parseLimit(args, 1)
			if err != nil {
				return withCode(exitFailure, err)
			}
			ok, err := a.confirmOverwrite(path, force)
			if err != nil {
				return withCode(exitFailure, err)
			}
			if !ok {
				fmt.Fprintln(a.out, "[INFO] Aborted by user.")
				return withCode(exitAnomaly, nil)
			}
			unlock, err := lockTarget(path)
			if err != nil {
				return withCode(exitFailure, err)
			}
			defer unlock()

			token := inspect.NewCancelToken()
			defer onInterrupt(token.Cancel)()
			obs, _, restore := a.observers(path, limitMB, true, false)
			n, err := a.inspector(path).RunWritePhaseWithEvents(limitMB, token, obs)
			obs.Close()
			restore()
			if err != nil {
				return withCode(exitFailure, err)
			}
			fmt.Fprintf(a.out, "Wrote %s (%d bytes).\n", humanize.IBytes(n), n)
			if token.Cancelled() {
				fmt.Fprintln(a.out, "[INFO] Cancelled.")
				return withCode(exitAnomaly, nil)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing target without asking")
	return cmd
}

func (a *app) verifyCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "verify PATH BYTES",
		Short: "Only read back and check a previously written span",
		Long:  "BYTES is the span to check; plain numbers are bytes, suffixes like 512MiB or 2GB are accepted.",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			total, err := humanize.ParseBytes(args[1])
			if err != nil {
				return withCode(exitFailure, errors.Wrapf(err, "invalid byte count %s", args[1]))
			}
			token := inspect.NewCancelToken()
			defer onInterrupt(token.Cancel)()
			obs, _, restore := a.observers(args[0], 0, true, asJSON)
			report, err := a.inspector(args[0]).RunVerifyPhaseWithEvents(total, token, obs)
			obs.Close()
			restore()
			if err != nil {
				return withCode(exitFailure, err)
			}
			out := outcome{Report: &report, VerifyOnly: true, Cancelled: token.Cancelled()}
			if err := printOutcome(a.out, out, asJSON); err != nil {
				return withCode(exitFailure, err)
			}
			return withCode(exitCode(out, nil), nil)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the outcome as JSON on stdout")
	return cmd
}

func (a *app) probeCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "probe PATH LIMIT_MB",
		Short: "Write and check evenly spaced anchor blocks only",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			path := args[0]
			limitMB, err := parseLimit(args, 1)
			if err != nil {
				return withCode(exitFailure, err)
			}
			ok, err := a.confirmOverwrite(path, force)
			if err != nil {
				return withCode(exitFailure, err)
			}
			if !ok {
				fmt.Fprintln(a.out, "[INFO] Aborted by user.")
				return withCode(exitAnomaly, nil)
			}
			unlock, err := lockTarget(path)
			if err != nil {
				return withCode(exitFailure, err)
			}
			defer unlock()

			token := inspect.NewCancelToken()
			defer onInterrupt(token.Cancel)()
			obs, _, restore := a.observers(path, limitMB, true, false)
			ins := a.inspector(path)
			report, err := ins.RunQuickProbePhaseWithEvents(limitMB, ins.QuickProbeSteps(), token, obs)
			obs.Close()
			restore()
			switch {
			case errors.Is(err, inspect.ErrInterrupted):
				fmt.Fprintln(a.out, "[INFO] Cancelled.")
				return withCode(exitAnomaly, nil)
			case err != nil:
				return withCode(exitFailure, err)
			case report == nil:
				fmt.Fprintln(a.out, "Quick probe found no anomalies.")
				return nil
			}
			printSummary(a.out, *report)
			return withCode(exitAnomaly, nil)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing target without asking")
	cmd.Flags().IntVar(&a.flags.probeSteps, "steps", 0, "number of probe intervals (default from config, 100)")
	return cmd
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "truthbyte",
		Short:         "Storage media write/verify diagnosis",
		Long:          "Detect fake capacity, random corruption and data loss on USB drives, SD cards and disk images.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return withCode(exitFailure, err)
			}
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "YAML configuration file")
	pf.IntVar(&a.flags.blockSize, "block-size", 0, "I/O block size in bytes, rounded up to 4096 (default 4 MiB)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.flags.logFile, "log-file", "", "append the diagnostic log to this file")
	pf.BoolVar(&a.flags.noProbe, "no-probe", false, "skip the quick probe before a full run")

	root.AddCommand(a.runCmd(), a.writeCmd(), a.verifyCmd(), a.probeCmd(), a.disksCmd())
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	return root
}

// execute runs the CLI and returns the process status.
func execute(a *app, args []string) int {
	defer a.teardown()
	root := newRootCmd(a)
	root.SetArgs(args)
	start := time.Now()
	err := root.Execute()
	logger.Debugf("command finished in %s", time.Since(start).Truncate(time.Millisecond))
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			printError(a.errOut, ee.err)
		}
		return ee.code
	}
	printError(a.errOut, err)
	return exitFailure
}

func printError(w io.Writer, err error) {
	if errors.Is(err, inspect.ErrInterrupted) {
		fmt.Fprintln(w, "[INFO] Cancelled.")
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

func main() {
	os.Exit(execute(&app{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}, os.Args[1:]))
}
