package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// logFilePrefix names the files SetupLogFile creates; the cleanup glob
// depends on it.
const logFilePrefix = "momentum-"

// SetupLogFile opens a fresh timestamped log file under dir and prunes the
// oldest ones so at most maxFiles remain. The caller owns the handle.
func SetupLogFile(dir string, maxFiles int) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	name := filepath.Join(dir, fmt.Sprintf("%s%s.log",
		logFilePrefix, time.Now().Format("2006-01-02T15-04-05")))

	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	// Pruning failures must not take logging down with them.
	if err := pruneLogs(dir, maxFiles); err != nil {
		fmt.Fprintf(os.Stderr, "warning: prune old logs: %v\n", err)
	}

	return f, nil
}

// pruneLogs deletes the oldest log files once the directory holds more than
// maxFiles. The timestamp in the name sorts chronologically, so plain string
// order is age order.
func pruneLogs(dir string, maxFiles int) error {
	files, err := filepath.Glob(filepath.Join(dir, logFilePrefix+"*.log"))
	if err != nil {
		return err
	}
	if len(files) <= maxFiles {
		return nil
	}

	sort.Strings(files)
	for _, stale := range files[:len(files)-maxFiles] {
		if err := os.Remove(stale); err != nil {
			return fmt.Errorf("remove %s: %w", stale, err)
		}
	}
	return nil
}
