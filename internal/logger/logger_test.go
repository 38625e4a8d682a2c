package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("bogus"))
}

func TestZapLoggerWritesStructuredField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapLogger(zap.New(core).Sugar())

	log.DebugObj("request completed", "request_meta", map[string]any{"status": 200})
	log.WarnObj("audit sink failed", "error", "boom")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "request completed", entries[0].Message)
		assert.Equal(t, map[string]any{"status": 200}, entries[0].ContextMap()["request_meta"])
		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	}
}

func TestNilZapLoggerIsSafe(t *testing.T) {
	var log *ZapLogger
	log.InfoObj("ignored", "k", 1)
	assert.Nil(t, log.Sugared())
}
