package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogLevel(t *testing.T) {
	defer SetLogLevel("INFO")

	SetLogLevel("debug")
	assert.Equal(t, "DEBUG", GetLogLevel())

	SetLogLevel("WARN")
	assert.Equal(t, "WARN", GetLogLevel())

	SetLogLevel("unknown")
	assert.Equal(t, "INFO", GetLogLevel())
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetLogLevel("INFO")

	SetLogLevel("WARN")
	Infof("表示されない %d", 1)
	Warnf("表示される %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "表示されない")
	assert.Contains(t, out, "表示される 2")
}
