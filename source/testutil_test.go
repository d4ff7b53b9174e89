package source

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"opensud/utils"
)

// newObservedLogger returns a logger which records all entries for assertions.
func newObservedLogger(t *testing.T) (*utils.CustomLogger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return &utils.CustomLogger{Logger: *zap.New(core)}, logs
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
