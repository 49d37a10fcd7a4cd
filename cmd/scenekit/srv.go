package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"scenekit/internal/api"
	"scenekit/internal/blobstore"
	"scenekit/internal/config"
	"scenekit/internal/entity"
	"scenekit/internal/locator"
	"scenekit/internal/models"
	"scenekit/internal/naming"
	"scenekit/internal/probe"
	"scenekit/internal/server"
	"scenekit/internal/snapshot"
	"scenekit/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the scenekit API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := buildServer(ctx, cfg, slog.Default())
			if err != nil {
				return err
			}
			defer rt.Close()

			return rt.server.ListenAndServe(ctx)
		},
	}
}

// serverRuntime owns the server and everything it must release on exit.
type serverRuntime struct {
	server  *server.Server
	closers []func() error
}

func (rt *serverRuntime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// buildServer wires every component from cfg. Only an invalid listen
// address or catalog is fatal; unavailable storage, redis or GCS degrade
// the server instead.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*serverRuntime, error) {
	addr, err := server.ListenAddr(cfg.APIURL)
	if err != nil {
		return nil, err
	}

	rt := &serverRuntime{}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Warn("database unavailable, local overrides will not persist", "path", cfg.DBPath, "error", err)
		st = nil
	} else {
		logger.Info("opened database", "path", cfg.DBPath)
		rt.closers = append(rt.closers, st.Close)
	}
	ledger := store.NewLedger(st, logger)
	vault := openVault(cfg, st, logger)

	loc, backends, err := buildLocator(ctx, cfg, rt, logger)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	opts := entity.Options{
		Ledger:   ledger,
		Vault:    vault,
		Resolver: loc,
		Logger:   logger,
	}
	if cfg.Remote.URL != "" {
		opts.Remote = api.NewRemoteClient(cfg.Remote.URL, cfg.Remote.CollectionPath)
	}
	var snapshotSource string
	if cfg.Remote.Snapshot != "" {
		reader := snapshot.NewReader(cfg.Remote.Snapshot, nil, logger)
		opts.Snapshot = reader
		snapshotSource = reader.Source()
		logger.Info("snapshot fallback configured", "source", snapshotSource)
	}

	rt.server = server.New(server.Options{
		Addr:     addr,
		Entities: entity.New(opts),
		Locator:  loc,
		Vault:    vault,
		Ledger:   ledger,
		Info: api.InfoResponse{
			Version:      version,
			Session:      vault.Session(),
			RemoteURL:    cfg.Remote.URL,
			SnapshotPath: snapshotSource,
			DBPath:       cfg.DBPath,
			Backends:     len(backends),
		},
		APITokenHash:   cfg.Auth.APITokenHash,
		AdminTokenHash: cfg.Auth.AdminTokenHash,
		MaxUploadBytes: cfg.Vault.MaxBlobBytes,
		Logger:         logger,
	})
	return rt, nil
}

func openVault(cfg *config.Config, st *store.Store, logger *slog.Logger) *blobstore.Vault {
	opts := blobstore.VaultOptions{HandleBase: cfg.VaultHandleBase(), Logger: logger}
	if st == nil {
		return blobstore.NewVault(opts)
	}
	cas, err := blobstore.NewLocalCAS(cfg.Vault.Dir, cfg.Vault.MaxBlobBytes)
	if err != nil {
		logger.Warn("vault directory unavailable", "dir", cfg.Vault.Dir, "error", err)
		return blobstore.NewVault(opts)
	}
	opts.Content = cas
	opts.Index = st
	return blobstore.NewVault(opts)
}

func buildLocator(ctx context.Context, cfg *config.Config, rt *serverRuntime, logger *slog.Logger) (*locator.Locator, []models.Backend, error) {
	normalizer, err := loadNormalizer(cfg)
	if err != nil {
		return nil, nil, err
	}

	backends := cfg.Locator.Backends
	if len(backends) == 0 {
		backends = locator.DefaultBackends()
	}

	router := probe.Router{
		HTTP: probe.NewHTTP(probe.HTTPOptions{
			Origin:  cfg.Locator.Origin,
			Timeout: cfg.ProbeTimeout(),
			Logger:  logger,
		}),
	}
	if usesGCS(backends) {
		gcs, err := probe.NewGCS(ctx, probe.GCSOptions{
			CredentialsFile: cfg.GCS.CredentialsFile,
			Anonymous:       cfg.GCS.Anonymous,
			Timeout:         cfg.ProbeTimeout(),
			Logger:          logger,
		})
		if err != nil {
			logger.Warn("gcs probe unavailable, gcs backends will not confirm", "error", err)
		} else {
			router.GCS = gcs
			rt.closers = append(rt.closers, gcs.Close)
		}
	}

	var cache locator.Cache
	if cfg.Locator.RedisURL != "" {
		rdb, err := locator.DialRedis(ctx, cfg.Locator.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, using in-process resolution cache", "error", err)
		} else {
			cache = locator.NewRedisCache(rdb, logger)
			rt.closers = append(rt.closers, rdb.Close)
		}
	}

	loc := locator.New(locator.Options{
		Normalizer: normalizer,
		Backends:   backends,
		Prober:     router,
		Cache:      cache,
		Logger:     logger,
	})
	return loc, backends, nil
}

func loadNormalizer(cfg *config.Config) (*naming.Normalizer, error) {
	tables := naming.DefaultTables()
	if cfg.Locator.Catalog != "" {
		extra, err := naming.LoadCatalog(cfg.Locator.Catalog)
		if err != nil {
			return nil, fmt.Errorf("load asset catalog: %w", err)
		}
		tables = tables.Merge(extra)
	}
	return naming.New(tables), nil
}

func usesGCS(backends []models.Backend) bool {
	for _, b := range backends {
		if b.Probeable && b.ProbeKind == models.ProbeGCS {
			return true
		}
	}
	return false
}
