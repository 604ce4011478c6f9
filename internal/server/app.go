// Package server wires the ledger node: storage backends, the oracle keys,
// the sequencer, the gRPC endpoint and the metrics server, with graceful
// shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/keyx"
	"github.com/dmitrijs2005/gophrelief/internal/logging"
	"github.com/dmitrijs2005/gophrelief/internal/server/auth"
	"github.com/dmitrijs2005/gophrelief/internal/server/config"
	"github.com/dmitrijs2005/gophrelief/internal/server/ledger"
	"github.com/dmitrijs2005/gophrelief/internal/server/metrics"
	"github.com/dmitrijs2005/gophrelief/internal/server/oracle"
	"github.com/dmitrijs2005/gophrelief/internal/server/repositories/blobs"
	"github.com/dmitrijs2005/gophrelief/internal/server/repositories/records"
	"github.com/dmitrijs2005/gophrelief/internal/server/repositories/repomanager"

	gs "github.com/dmitrijs2005/gophrelief/internal/server/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	metrics *metrics.Metrics
	ledger  *ledger.Service
	oracle  *oracle.Service
	auth    *auth.Authenticator
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, "json", c.LogLevel)

	contract, err := keyx.ParseAddress(c.ContractAddress)
	if err != nil {
		return nil, fmt.Errorf("contract address: %w", err)
	}

	app := &App{config: c, logger: logger, metrics: metrics.New()}

	repo, err := app.initRecords(ctx)
	if err != nil {
		return nil, err
	}

	store, err := app.initBlobs(ctx)
	if err != nil {
		app.close()
		return nil, err
	}

	keys, created, err := oracle.LoadOrCreateKeys(c.OracleKeysDir)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("oracle keys: %w", err)
	}
	if created {
		logger.Info(ctx, "generated oracle keys", "dir", c.OracleKeysDir)
	}

	app.oracle, err = oracle.NewService(keys, store, oracle.NewLimiter(c.DecryptionsPerMinute), app.metrics, logger)
	if err != nil {
		app.close()
		return nil, err
	}

	app.ledger = ledger.NewService(repo, store, ledger.Config{
		Contract:     contract,
		OracleSigner: keys.Signer.PublicKey(),
	}, app.metrics, logger)

	app.auth = auth.NewAuthenticator([]byte(c.SecretKey), c.AccessTokenValidityDuration)

	logger.Info(ctx, "node configured",
		"contract", contract,
		"oracle", app.oracle.SignerAddress(),
		"postgres", c.DatabaseDSN != "",
		"s3", c.S3Bucket != "")

	return app, nil
}

func (app *App) initRecords(ctx context.Context) (records.Repository, error) {
	if app.config.DatabaseDSN == "" {
		app.logger.Warn(ctx, "no database configured, records are kept in memory")
		return records.NewMemoryRepository(), nil
	}

	db, err := repomanager.Open(ctx, app.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	app.db = db
	return m.Records(db), nil
}

func (app *App) initBlobs(ctx context.Context) (blobs.Store, error) {
	if app.config.S3Bucket == "" {
		app.logger.Warn(ctx, "no bucket configured, ciphertexts are kept in memory")
		return blobs.NewMemoryStore(), nil
	}

	s, err := blobs.NewS3Store(ctx, blobs.S3Config{
		Endpoint:  app.config.S3BaseEndpoint,
		Region:    app.config.S3Region,
		AccessKey: app.config.S3RootUser,
		SecretKey: app.config.S3RootPassword,
		Bucket:    app.config.S3Bucket,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (app *App) close() {
	if app.db != nil {
		_ = app.db.Close()
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.ledger, app.oracle, app.auth, app.metrics)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	h := metrics.NewRouter(app.metrics, app.ledger.Ping)

	if err := metrics.Serve(ctx, app.config.MetricsAddr, h, app.logger); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.logger.Info(ctx, "Starting node...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := app.ledger.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Error(ctx, "sequencer failed", "error", err)
			cancelFunc()
		}
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startMetricsServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(context.WithoutCancel(ctx), "node stopped")
}
