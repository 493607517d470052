package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// configFiles are the project config names, in order of preference.
var configFiles = []string{".autodoc.yml", ".autodoc.yaml"}

// FindProjectConfig searches upward from startDir for a project config file
// and stops at a VCS root or the filesystem root. Returns "" when none is
// found.
func FindProjectConfig(ctx context.Context, startDir string) (string, error) {
	if startDir == "" {
		var err error
		startDir, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("config: get working directory: %w", err)
		}
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("config: resolve absolute path: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("config: context cancelled: %w", err)
		}
		for _, name := range configFiles {
			p := filepath.Join(dir, name)
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return p, nil
			}
		}
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return "", nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
