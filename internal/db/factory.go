package db

import (
	"context"
	"fmt"

	"github.com/plumehq/plume-backend/internal/db/backends/memory"
	"github.com/plumehq/plume-backend/internal/db/interfaces"
)

// Config holds database configuration
type Config struct {
	Type        string // "memory", "postgres"
	DSN         string // connection string for SQL backends
	UseInMemory bool   // force in-memory usage
}

// NewDatabase creates a database instance based on configuration
func NewDatabase(config *Config) (interfaces.Database, error) {
	if config == nil {
		config = &Config{}
	}

	if config.UseInMemory || config.DSN == "" {
		return memory.NewDatabase(), nil
	}

	switch config.Type {
	case "", "memory":
		return memory.NewDatabase(), nil
	case "postgres":
		// TODO: pgxpool-backed Repository implementation; the SQL schema
		// already ships under sql/ and is applied by cmd/migrate.
		return memory.NewDatabase(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}
}

// MustNewDatabase creates a database instance and panics on error
func MustNewDatabase(config *Config) interfaces.Database {
	db, err := NewDatabase(config)
	if err != nil {
		panic(fmt.Sprintf("failed to create database: %v", err))
	}
	return db
}

// NewInMemoryDatabase creates a new in-memory database instance
func NewInMemoryDatabase() interfaces.Database {
	return memory.NewDatabase()
}

// ConnectAndMigrate connects to the database and registers schemas
func ConnectAndMigrate(ctx context.Context, db interfaces.Database, schemas []*interfaces.Schema) error {
	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if !db.IsHealthy(ctx) {
		return fmt.Errorf("database health check failed")
	}

	if err := db.Migrate(ctx, schemas); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}
