package internal

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"gosip/domain/core"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"ERROR", LogLevelError},
		{"warn", LogLevelWarn},
		{" debug ", LogLevelDebug},
		{"TRACE", LogLevelTrace},
		{"", LogLevelInfo},
		{"verbose", LogLevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseLogLevel(tt.input), "input %q", tt.input)
	}
}

func TestLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	logger := NewLogger(LogLevelWarn)
	logger.Info("hidden %d", 1)
	logger.Debug("hidden %d", 2)
	logger.Warn("shown %d", 3)
	logger.Error("shown %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown 3")
	assert.Contains(t, out, "[ERROR] shown 4")
	assert.Equal(t, LogLevelWarn, logger.GetLevel())
}

func TestLogger_ForRun(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	id := core.RunID("0190c3a2-7b1e-7000-8000-000000000001")
	base := NewLogger(LogLevelInfo)
	runLog := base.ForRun(id)

	runLog.Info("[SIPService] stored %d rows", 3)
	runLog.Debug("hidden")
	base.Info("untagged")
	runLog.WithPrefix("[bootstrap]").Warn("slow")

	out := buf.String()
	assert.Contains(t, out, "[INFO] [run 0190c3a2-7b1e-7000-8000-000000000001] [SIPService] stored 3 rows")
	assert.Contains(t, out, "[INFO] untagged")
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] [run 0190c3a2-7b1e-7000-8000-000000000001] [bootstrap] slow")
	assert.Equal(t, LogLevelInfo, runLog.GetLevel())
}
