package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/aiexplorer/internal/flagx"
	"github.com/joho/godotenv"
)

// parseEnv loads a dotenv file into the process environment (without
// overriding variables that are already set) and then maps AIX_* variables
// onto cfg. Unset variables leave the current values alone.
//
// The dotenv path comes from -envfile; without it ".env" is tried and a
// missing file is not an error.
func parseEnv(cfg *Config) error {
	path := flagx.EnvFileFlags()
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
