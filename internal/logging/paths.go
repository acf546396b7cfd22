package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// LogFileName is the active log file name. Rotated files append .1, .2, ...
const LogFileName = "docsearch.log"

// LogDir returns the log directory inside dataDir.
func LogDir(dataDir string) string {
	return filepath.Join(dataDir, "logs")
}

// LogPath returns the active log file path inside dataDir.
func LogPath(dataDir string) string {
	return filepath.Join(LogDir(dataDir), LogFileName)
}

// FindLogFile resolves the log file to read. An explicit path wins over the
// data directory default; either way the file must exist.
func FindLogFile(explicit, dataDir string) (string, error) {
	path := explicit
	if path == "" {
		path = LogPath(dataDir)
	}
	if _, err := os.Stat(path); err != nil {
		if explicit == "" {
			return "", fmt.Errorf("no log file found at %s (file logging may be disabled)", path)
		}
		return "", fmt.Errorf("log file not found: %s", path)
	}
	return path, nil
}
