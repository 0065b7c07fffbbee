package services

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/imdbload/internal/db"
	"github.com/vvka-141/imdbload/internal/db/manager"
	"github.com/vvka-141/imdbload/internal/schema"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// SchemaService creates and drops the destination schema.
type SchemaService struct {
	connectorFactory imdbload.ConnectorFactory
	dbManager        imdbload.DatabaseManager
	logger           imdbload.Logger
}

// NewSchemaService creates a SchemaService.
// Panics if any dependency is nil.
func NewSchemaService(connectorFactory imdbload.ConnectorFactory, dbManager imdbload.DatabaseManager, logger imdbload.Logger) *SchemaService {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if dbManager == nil {
		panic("dbManager cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &SchemaService{connectorFactory: connectorFactory, dbManager: dbManager, logger: logger}
}

// Init creates the schema and its tables. With createDatabase set, the target
// database is first created through maintenanceDB when missing.
func (s *SchemaService) Init(ctx context.Context, connConfig *imdbload.ConnectionConfig, maintenanceDB, schemaName string, createDatabase bool) error {
	if createDatabase {
		if err := s.ensureDatabase(ctx, connConfig, maintenanceDB); err != nil {
			return err
		}
	}
	return s.with(ctx, connConfig, func(conn imdbload.DBConnection) error {
		return schema.Create(ctx, conn, schemaName, s.logger)
	})
}

// Drop removes the schema and everything in it.
func (s *SchemaService) Drop(ctx context.Context, connConfig *imdbload.ConnectionConfig, schemaName string) error {
	return s.with(ctx, connConfig, func(conn imdbload.DBConnection) error {
		return schema.Drop(ctx, conn, schemaName, s.logger)
	})
}

func (s *SchemaService) ensureDatabase(ctx context.Context, connConfig *imdbload.ConnectionConfig, maintenanceDB string) error {
	mgmtConfig := *connConfig
	mgmtConfig.Database = maintenanceDB
	if mgmtConfig.Database == "" {
		mgmtConfig.Database = imdbload.DefaultManagementDB
	}

	return s.with(ctx, &mgmtConfig, func(conn imdbload.DBConnection) error {
		created, err := manager.EnsureExists(ctx, s.dbManager, conn, connConfig.Database)
		if err != nil {
			return err
		}
		if created {
			s.logger.Info("✓ Created database %s", connConfig.Database)
		} else {
			s.logger.Verbose("Database %s already exists", connConfig.Database)
		}
		return nil
	})
}

func (s *SchemaService) with(ctx context.Context, connConfig *imdbload.ConnectionConfig, fn func(imdbload.DBConnection) error) error {
	return withPool(ctx, s.connectorFactory, connConfig, func(pool *pgxpool.Pool) error {
		return fn(db.NewPoolAdapter(pool))
	})
}
