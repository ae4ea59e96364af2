package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_VerboseWritesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Verbose: true, Output: &buf})

	log.Debug("test message", "doc", "labor")

	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "test message")
	assert.Contains(t, buf.String(), "labor")
	assert.True(t, log.Enabled())
}

func TestNew_QuietSuppressesDebugAndInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf})

	log.Debug("hidden")
	log.Info("hidden too")
	log.Section("Hidden")

	assert.Empty(t, buf.String())
	assert.False(t, log.Enabled())
}

func TestNew_QuietKeepsWarnings(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf})

	log.Warn("label mismatch", "chunk", "abc")

	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "label mismatch")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Verbose: true, Output: &buf, JSON: true})

	log.Info("indexed", "chunks", 12)

	assert.Contains(t, buf.String(), `"msg":"indexed"`)
	assert.Contains(t, buf.String(), `"chunks":12`)
}

func TestSection(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))

	log.Section("Phase 1")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "=== Phase 1 ===", logs.All()[0].Message)
}

func TestWith_AddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).With("document", "labor")

	log.Info("saved")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "labor", logs.All()[0].ContextMap()["document"])
}

func TestSanitize_RedactsSecrets(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))

	log.Info("config", "api_key", "sk-123", "model", "bge-m3")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, redacted, fields["api_key"])
	assert.Equal(t, "bge-m3", fields["model"])
}

func TestNilLogger_IsSafe(t *testing.T) {
	var log *Logger

	assert.NotPanics(t, func() {
		log.Debug("x")
		log.Info("x")
		log.Warn("x")
		log.Error("x")
		log.Section("x")
		_ = log.With("k", "v")
		_ = log.Sync()
	})
	assert.False(t, log.Enabled())
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Warn("discarded") })
}
