package store

import (
	"context"
	"fmt"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverDynamoDB = "dynamodb"
	DriverRedis    = "redis"
)

type Options struct {
	Driver        string
	SQLitePath    string
	DatabaseURL   string
	DynamoTable   string
	AWSRegion     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open returns the ViewStore selected by opts.Driver.
func Open(ctx context.Context, opts Options) (ViewStore, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite, "":
		return OpenSQLite(opts.SQLitePath)
	case DriverPostgres:
		return OpenPostgres(opts.DatabaseURL)
	case DriverDynamoDB:
		return OpenDynamo(ctx, opts.AWSRegion, opts.DynamoTable)
	case DriverRedis:
		return OpenRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
