package engine

import (
	"fmt"
	"path/filepath"

	"github.com/rxtech-lab/argo-sim/internal/config"
)

// getResultFolder returns <results>/<run name>, with a <start>_<end> folder appended
// when the config limits the time range.
func getResultFolder(cfg *config.Config) string {
	folder := filepath.Join(cfg.ResultsFolder, cfg.RunName())

	if cfg.StartTime.IsNone() && cfg.EndTime.IsNone() {
		return folder
	}

	start := "all"
	end := "all"

	if cfg.StartTime.IsSome() {
		start = cfg.StartTime.Unwrap().Format("20060102")
	}

	if cfg.EndTime.IsSome() {
		end = cfg.EndTime.Unwrap().Format("20060102")
	}

	return filepath.Join(folder, fmt.Sprintf("%s_%s", start, end))
}
