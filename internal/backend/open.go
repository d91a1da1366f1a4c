package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/liquidation-portal/internal"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured database and Redis, then builds the App.
func Open(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (*App, error) {
	sqlDB, gormDB, err := OpenDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = openRedis(ctx, cfg.Redis)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	app, err := New(Options{Config: cfg, Logger: logger, SQL: sqlDB, DB: gormDB, Redis: rdb})
	if err != nil {
		_ = sqlDB.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, err
	}
	return app, nil
}

// OpenDatabase returns an sqlx handle and a gorm handle sharing one pool.
func OpenDatabase(ctx context.Context, cfg internal.DatabaseConfig) (*sqlx.DB, *gorm.DB, error) {
	gormConfig := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	switch cfg.Driver {
	case "", DriverPostgres:
		const driver = "pgx"

		dbConn, err := sqlx.Open(driver, cfg.Source)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
		}
		dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
		dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
		dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

		pingCtx, cancel := internal.WithTimeout(ctx, 0)
		defer cancel()
		if err := dbConn.PingContext(pingCtx); err != nil {
			_ = dbConn.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}

		gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: dbConn.DB}), gormConfig)
		if err != nil {
			_ = dbConn.Close()
			return nil, nil, fmt.Errorf("failed to open gorm: %w", err)
		}
		return dbConn, gormDB, nil

	case DriverSQLite:
		gormDB, err := gorm.Open(sqlite.Open(cfg.Source), gormConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		sqlDB, err := gormDB.DB()
		if err != nil {
			return nil, nil, err
		}
		// one connection so in-memory databases are shared
		sqlDB.SetMaxOpenConns(1)
		return sqlx.NewDb(sqlDB, "sqlite3"), gormDB, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openRedis(ctx context.Context, cfg internal.RedisConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := internal.WithTimeout(ctx, 0)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}
