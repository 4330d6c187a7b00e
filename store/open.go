package store

import (
	"context"
	"fmt"

	"civicreport-be/config"

	"github.com/rs/zerolog"
)

// Open builds the Store for the configured driver.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Store, error) {
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", cfg.Store.Driver).Msg("record store ready")
	return New(backend, log.With().Str("component", "store").Logger()), nil
}

func openBackend(ctx context.Context, cfg config.Config) (Backend, error) {
	switch cfg.Store.Driver {
	case "", "file":
		return OpenFile(cfg.Store.DataDir)
	case "sqlite":
		return OpenSQLite(cfg.Store.SQLitePath)
	case "mongo":
		client, db, err := config.ConnectDB(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		return NewMongoBackend(client, db), nil
	case "redis":
		client, err := config.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisBackend(client, cfg.Store.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
