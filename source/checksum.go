package source

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"opensud/utils"
)

// HashFile re-reads a saved file and returns the hex SHA-256 digest of its content.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer func(file *os.File) {
		_ = file.Close()
	}(file)

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifyChecksum compares the actual digest with the pinned one and reports the result to the log.
// A mismatch is only a warning: upstream datasets are refreshed and the pinned hash may go stale,
// so the caller proceeds with the data it has.
func VerifyChecksum(logger *utils.CustomLogger, descriptor DatasetDescriptor, actual string) bool {
	if descriptor.SHA256 == "" {
		logger.Debug("No pinned checksum, skipping verification", zap.String("actual", actual))
		return false
	}
	if descriptor.Matches(actual) {
		logger.Info("Checksum verified.", zap.String("sha256", actual))
		return true
	}
	logger.Warn("SHA256 mismatch! The dataset may have been updated, verify at the source page",
		zap.String("expected", descriptor.SHA256),
		zap.String("got", actual),
		zap.String("source_page", descriptor.SourcePage))
	return false
}
