package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// viper reports a missing explicit config file as a plain fs error.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func defaultStatePath() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "smart-haryana", "state.db")
	}
	return filepath.Join(".haryana", "state.db")
}
