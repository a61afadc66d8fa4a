package postgres_test

import (
	"time"

	"github.com/heartmarshall/wardsync/internal/config"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func storageConfig(dsn string) config.StorageConfig {
	return config.StorageConfig{
		Driver:          config.DriverPostgres,
		DSN:             dsn,
		MaxConns:        2,
		MinConns:        0,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
	}
}
