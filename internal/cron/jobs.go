package cronrunner

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// SweepWorkDir removes invocation leftovers (input payloads, temp script
// copies) older than ttl. The script runner cleans up after itself; this
// catches files orphaned by crashes.
func SweepWorkDir(logger *zap.Logger, workDir string, ttl time.Duration) func(context.Context) {
	return func(ctx context.Context) {
		if workDir == "" || ttl <= 0 {
			return
		}
		cutoff := time.Now().Add(-ttl)
		entries, err := os.ReadDir(workDir)
		if err != nil {
			return
		}
		removed := 0
		for _, e := range entries {
			info, err := e.Info()
			if err != nil || info.IsDir() {
				continue
			}
			if info.ModTime().Before(cutoff) {
				if os.Remove(filepath.Join(workDir, e.Name())) == nil {
					removed++
				}
			}
		}
		if removed > 0 && logger != nil {
			logger.Info("swept engine work dir", zap.Int("removed", removed))
		}
	}
}
