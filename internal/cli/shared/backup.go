package shared

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	BackupNone      = "none"
	BackupTimestamp = "timestamp"
)

// BackupFile copies the current content of path next to it as
// path.<timestamp>.bak and returns the backup path. Missing files and the
// none strategy are no-ops that return "".
func BackupFile(path, strategy string, now time.Time) (string, error) {
	if strategy != BackupTimestamp {
		return "", nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	ts := now.Format("20060102150405")
	backupPath := fmt.Sprintf("%s.%s.bak", path, ts)
	if err := os.MkdirAll(filepath.Dir(backupPath), 0o755); err != nil {
		return "", err
	}
	return backupPath, os.WriteFile(backupPath, content, 0o644)
}
