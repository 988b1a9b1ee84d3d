// Package logging hands out named logrus loggers that share one line format
// and one level switch.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu      sync.Mutex
	loggers           = make(map[string]*Logger)
	level             = logrus.InfoLevel
	out     io.Writer = os.Stderr
)

// Logger is a logrus.Logger that formats its own entries.
type Logger struct {
	logrus.Logger

	name string
}

// Format renders `2006/01/02 15:04:05.000000 name[pid] <LEVEL>: message {fields}`.
func (l *Logger) Format(e *logrus.Entry) ([]byte, error) {
	const timeFormat = "2006/01/02 15:04:05.000000"
	str := fmt.Sprintf("%v %s[%d] <%v>: %v",
		e.Time.Format(timeFormat),
		l.name,
		os.Getpid(),
		strings.ToUpper(e.Level.String()),
		e.Message)

	if len(e.Data) != 0 {
		str += fmt.Sprintf(" %v", e.Data)
	}
	return []byte(str + "\n"), nil
}

func newLogger(name string) *Logger {
	l := &Logger{name: name}
	l.Out = out
	l.Formatter = l
	l.Level = level
	l.Hooks = make(logrus.LevelHooks)
	return l
}

// GetLogger returns the logger mapped to name, creating it on first use.
func GetLogger(name string) *Logger {
	mu.Lock()
	defer mu.Unlock()

	if logger, ok := loggers[name]; ok {
		return logger
	}
	logger := newLogger(name)
	loggers[name] = logger
	return logger
}

// SetLogLevel sets lvl on every existing logger and on loggers created later.
func SetLogLevel(lvl logrus.Level) {
	mu.Lock()
	defer mu.Unlock()

	level = lvl
	for _, logger := range loggers {
		logger.SetLevel(lvl)
	}
}

// ParseLevel accepts the usual logrus names ("debug", "info", "warn", ...).
func ParseLevel(s string) (logrus.Level, error) {
	if strings.TrimSpace(s) == "" {
		return logrus.InfoLevel, nil
	}
	return logrus.ParseLevel(s)
}

// SetOutput sends every logger, present and future, to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	for _, logger := range loggers {
		logger.SetOutput(w)
	}
}

// SetOutFile redirects every logger to name, appending.
func SetOutFile(name string) (*os.File, error) {
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, err
	}
	SetOutput(file)
	return file, nil
}
