package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// ProjectEnvFile is the per-project env file read by LoadEnvFiles.
const ProjectEnvFile = ".intent.env"

// LoadEnvFiles loads KEY=VALUE files into the process environment.
// Precedence (first wins): the real environment, .intent.env, .env, then the
// global file at GlobalEnvPath. Missing files are skipped.
func LoadEnvFiles() error {
	return loadEnvFiles(ProjectEnvFile, ".env", GlobalEnvPath())
}

func loadEnvFiles(paths ...string) error {
	var errs []error
	for _, p := range paths {
		// godotenv.Load never overrides keys that are already set, so
		// earlier files take precedence over later ones.
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("loading %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// GlobalEnvPath returns the path to the global intent env file.
func GlobalEnvPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "intent", "env")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "intent", "env")
}
