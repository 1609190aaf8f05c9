package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Domenick1991/flighter/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const defaultConfigPath = "config.yaml"

// ConfigPath resolves the config file from --config, then CONFIG_PATH,
// then the default.
func ConfigPath(name string, args []string) (string, error) {
	var path string
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.StringVarP(&path, "config", "c", "", "path to the YAML config file (env CONFIG_PATH)")
	if err := flagSet.Parse(args); err != nil {
		return "", err
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = defaultConfigPath
	}
	return path, nil
}

// LoadConfig reads an optional .env file into the environment and then the
// YAML config, so .env values take part in the env overrides.
func LoadConfig(name string, args []string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	path, err := ConfigPath(name, args)
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(path)
}

func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}
