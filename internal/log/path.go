package log

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

var (
	logDir     string
	logDirOnce sync.Once
)

// GetLogDir returns the directory for the log file and the event dump,
// creating it if needed. REDIRTXT_LOG_DIR overrides the platform default
// (/var/log/redirtxt on Linux when writable, ~/.redirtxt elsewhere, the temp
// directory as a last resort).
func GetLogDir() string {
	logDirOnce.Do(func() {
		for _, dir := range candidateLogDirs() {
			if writable(dir) {
				logDir = dir
				return
			}
		}
		logDir = filepath.Join(os.TempDir(), "redirtxt")
		_ = os.MkdirAll(logDir, 0755)
	})
	return logDir
}

func candidateLogDirs() []string {
	var dirs []string
	if dir := os.Getenv("REDIRTXT_LOG_DIR"); dir != "" {
		dirs = append(dirs, dir)
	}
	if runtime.GOOS == "linux" {
		dirs = append(dirs, "/var/log/redirtxt")
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".redirtxt"))
	}
	return dirs
}

func writable(dir string) bool {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false
	}
	f, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}

// GetLogFilePath returns the full path to the main log file.
func GetLogFilePath() string {
	return filepath.Join(GetLogDir(), "redirtxt.log")
}

// GetEventsFilePath returns the default path of the event log dump.
func GetEventsFilePath() string {
	return filepath.Join(GetLogDir(), "events.json")
}
