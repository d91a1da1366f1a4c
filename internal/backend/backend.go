// Package backend is the application context: it owns the connections, the
// event bus and every service, and ties their lifecycles together.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/frahmantamala/liquidation-portal/internal"
	"github.com/frahmantamala/liquidation-portal/internal/analytics"
	"github.com/frahmantamala/liquidation-portal/internal/auth"
	authPostgres "github.com/frahmantamala/liquidation-portal/internal/auth/postgres"
	"github.com/frahmantamala/liquidation-portal/internal/core/events"
	"github.com/frahmantamala/liquidation-portal/internal/liquidation"
	liquidationPostgres "github.com/frahmantamala/liquidation-portal/internal/liquidation/postgres"
	"github.com/frahmantamala/liquidation-portal/internal/profile"
	profilePostgres "github.com/frahmantamala/liquidation-portal/internal/profile/postgres"
	"github.com/frahmantamala/liquidation-portal/internal/receipt"
	"github.com/frahmantamala/liquidation-portal/internal/storage"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"gorm.io/gorm"
)

// Options carries already opened resources. Redis and Fs are optional: a
// nil Redis keeps revoked sessions in memory and a nil Fs stores receipts
// under the configured storage root.
type Options struct {
	Config *internal.Config
	Logger *slog.Logger
	SQL    *sqlx.DB
	DB     *gorm.DB
	Redis  *goredis.Client
	Fs     afero.Fs
}

type App struct {
	Config *internal.Config
	Logger *slog.Logger
	SQL    *sqlx.DB
	DB     *gorm.DB
	Redis  *goredis.Client
	Bus    *events.EventBus
	Blobs  *storage.BlobStore

	Checker      auth.PermissionChecker
	RBAC         *auth.RBACAuthorization
	Auth         *auth.Service
	Profiles     *profile.Service
	Liquidations *liquidation.Service
	Analytics    *analytics.Service
	Receipts     *receipt.Uploader

	mu            sync.Mutex
	started       bool
	stopped       bool
	unsubscribers []events.Unsubscribe
}

func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.SQL == nil || opts.DB == nil {
		return nil, errors.New("database handles are required")
	}
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var blobs *storage.BlobStore
	if opts.Fs != nil {
		blobs = storage.NewBlobStore(opts.Fs, cfg.Storage.BucketName(), cfg.Storage.PublicBaseURL, logger)
	} else {
		var err error
		blobs, err = storage.NewDiskBlobStore(cfg.Storage.Root, cfg.Storage.BucketName(), cfg.Storage.PublicBaseURL, logger)
		if err != nil {
			return nil, err
		}
	}

	var revocations auth.RevocationStore = auth.NewMemoryRevocationStore()
	if opts.Redis != nil {
		revocations = auth.NewRedisRevocationStore(opts.Redis)
	}

	bus := events.NewEventBus(logger)
	checker := auth.NewPermissionChecker()
	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)

	liquidations := liquidation.NewService(
		liquidationPostgres.NewLiquidationRepository(opts.DB),
		liquidationPostgres.NewStatsRepository(opts.SQL),
		auth.NewAccessPolicy(checker),
		bus,
		logger,
	)

	return &App{
		Config: cfg,
		Logger: logger,
		SQL:    opts.SQL,
		DB:     opts.DB,
		Redis:  opts.Redis,
		Bus:    bus,
		Blobs:  blobs,

		Checker:      checker,
		RBAC:         auth.NewRBACAuthorization(&auth.DefaultPermissionChecker{}, logger),
		Auth:         auth.NewService(authPostgres.NewRepository(opts.DB), tokens, revocations, bus, cfg.Security.BCryptCost, logger),
		Profiles:     profile.NewService(profilePostgres.NewProfileRepository(opts.DB), logger),
		Liquidations: liquidations,
		Analytics:    analytics.NewService(liquidations, checker, logger),
		Receipts: receipt.NewUploader(receipt.Config{
			MaxWorkers:  cfg.Receipts.MaxWorkers,
			QueueSize:   cfg.Receipts.QueueSize,
			MaxFileSize: cfg.Receipts.MaxFileSize,
		}, blobs, bus, logger),
	}, nil
}

// Start registers the cross-service subscriptions. Repeated calls are
// no-ops. Stop releases the connections and the receipt workers, so a
// stopped App cannot be started again; build a new one instead.
func (a *App) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started || a.stopped {
		return
	}

	a.unsubscribers = append(a.unsubscribers, a.Auth.OnAuthStateChange(a.Profiles.HandleSessionEvent))
	a.Receipts.Guard(a.Liquidations.AuthorizeReceipt)
	a.Receipts.OnComplete(a.attachReceipt)
	a.started = true
	a.Logger.Info("application started")
}

// attachReceipt stores the URL on a saved item. Keys of items that have not
// been saved yet are left for the form to carry.
func (a *App) attachReceipt(ctx context.Context, actor *auth.User, itemID, url string) error {
	err := a.Liquidations.AttachReceipt(ctx, actor, itemID, url)
	if errors.Is(err, liquidation.ErrItemNotFound) {
		return nil
	}
	return err
}

// Stop drops subscriptions, drains the uploader and the bus, then closes the
// connections.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	for _, unsubscribe := range a.unsubscribers {
		unsubscribe()
	}
	a.unsubscribers = nil
	a.started = false
	a.stopped = true
	a.mu.Unlock()

	a.Receipts.Shutdown()

	drained := make(chan struct{})
	go func() {
		a.Bus.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		a.Logger.Warn("event handlers still running at shutdown", "error", ctx.Err())
	}

	var errs []error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := a.SQL.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	a.Logger.Info("application stopped")
	return errors.Join(errs...)
}
