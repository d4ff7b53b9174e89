package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"opensud/utils"
)

// log a convenience wrapper to shorten code lines
var log = &utils.Logger

// FileInfo represents a local data file - the only hand-off artifact between the download and the load steps.
type FileInfo struct {
	// LocalPath a path of a local file (downloaded from a remote data source)
	LocalPath string
	// Size the file Size in bytes - important for Parquet APIs
	Size int64
}

// Stat returns the FileInfo of an existing regular file.
// The boolean is false when the file does not exist; other problems are reported as errors.
func Stat(path string) (FileInfo, bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return FileInfo{}, false, nil
	}
	if err != nil {
		return FileInfo{}, false, fmt.Errorf("failed to get file info for %s: %w", path, err)
	}
	if info.IsDir() {
		return FileInfo{}, false, fmt.Errorf("path %s is a directory, not a data file", path)
	}
	return FileInfo{LocalPath: path, Size: info.Size()}, true, nil
}
