package app

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	appDirName = "dangdoc"
	dbFileName = "dangdoc.db"
	envFile    = ".env"
)

func DefaultDBPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dbFileName), nil
}

// ConfigDir is where dangdoc keeps its database and optional .env file.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

// DefaultEnvFiles lists the dotenv files consulted on start, nearest first.
func DefaultEnvFiles() []string {
	files := []string{envFile}
	if dir, err := ConfigDir(); err == nil {
		files = append(files, filepath.Join(dir, envFile))
	}
	return files
}

func EnsureDBDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	return nil
}
