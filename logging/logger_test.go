package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoggerIsCached(t *testing.T) {
	a := GetLogger("cache-test")
	b := GetLogger("cache-test")
	assert.Same(t, a, b)
	assert.NotSame(t, a, GetLogger("other-test"))
}

func TestFormat(t *testing.T) {
	l := GetLogger("fmt-test")
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.WithField("offset", 4096).Warnf("mismatch at %d", 4096)

	line := buf.String()
	assert.Contains(t, line, " fmt-test[")
	assert.Contains(t, line, "<WARNING>: mismatch at 4096")
	assert.Contains(t, line, "map[offset:4096]")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestSetLogLevel(t *testing.T) {
	defer SetLogLevel(logrus.InfoLevel)

	l := GetLogger("level-test")
	var buf bytes.Buffer
	l.SetOutput(&buf)

	SetLogLevel(logrus.ErrorLevel)
	l.Info("hidden")
	assert.Empty(t, buf.String())

	late := GetLogger("level-test-late")
	assert.Equal(t, logrus.ErrorLevel, late.GetLevel())
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, lvl)

	lvl, err = ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestSetOutputReachesLaterLoggers(t *testing.T) {
	defer SetOutput(os.Stderr)

	var buf bytes.Buffer
	SetOutput(&buf)
	GetLogger("output-test-late").Error("late")
	assert.Contains(t, buf.String(), "output-test-late[")
}

func TestSetOutFile(t *testing.T) {
	defer SetOutput(os.Stderr)

	path := filepath.Join(t.TempDir(), "truthbyte.log")
	f, err := SetOutFile(path)
	require.NoError(t, err)
	GetLogger("file-test").Warn("to file")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<WARNING>: to file")
}
