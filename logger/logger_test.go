package logger

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_CallerAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := Init(Options{Level: "debug", NoColors: true, Output: &buf})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	l.WithField("key", "abc123").Debug("loading dataset")

	out := buf.String()
	assert.Contains(t, out, "loading dataset")
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "TestInit_CallerAndLevel()")

	other, err := Init(Options{Level: "warn", Output: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.NotSame(t, l, other)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel(), "earlier loggers keep their settings")
}

func TestInit_BadLevel(t *testing.T) {
	_, err := Init(Options{Level: "chatty"})
	assert.Error(t, err)
}

func TestInit_File(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "run.log")
	l, err := Init(Options{File: file, NoColors: true, Output: &buf})
	require.NoError(t, err)

	l.Info("written twice")
	assert.FileExists(t, file)
	assert.Contains(t, buf.String(), "written twice")
}
