package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/hierag/internal/adapters/driven/ai"
	"github.com/custodia-labs/hierag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/hierag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/hierag/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/hierag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/hierag/internal/adapters/driving/cli"
	"github.com/custodia-labs/hierag/internal/connectors/filesystem"
	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driven"
	"github.com/custodia-labs/hierag/internal/core/services"
	"github.com/custodia-labs/hierag/internal/logger"
	"github.com/custodia-labs/hierag/internal/postprocessors/chunker"
)

// storage is what every backend provides.
type storage struct {
	hierarchy driven.HierarchyStore
	vectors   driven.VectorIndex
	close     func() error
}

// bootstrap wires settings, storage, the embedder and the services for one
// command. Invalid settings leave only the settings service so that the
// configuration can still be inspected and fixed.
func bootstrap(
	ctx context.Context,
	opts cli.BootstrapOptions,
	lookupEnv func(string) (string, bool),
) (*cli.Services, func(), error) {
	log := logger.New(logger.Options{
		Verbose: opts.Verbose,
		Output:  opts.LogOutput,
		JSON:    opts.JSONLogs,
	})

	// 1. SETTINGS
	configStore, err := file.NewConfigStore(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator(), lookupEnv)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("reading settings: %w", err)
	}
	svc := &cli.Services{Settings: settingsService, Log: log}
	if err := settings.Validate(); err != nil {
		log.Warn("settings are invalid, only the settings command is available", "error", err)
		return svc, func() { _ = log.Sync() }, nil //nolint:errcheck // best effort flush
	}

	// 2. STORAGE
	store, err := openStorage(ctx, &settings.Storage, log)
	if err != nil {
		return nil, nil, err
	}

	// 3. EMBEDDING
	var embedder driven.EmbeddingService
	if e, err := ai.CreateEmbeddingService(&settings.Embedding, log); err != nil {
		log.Warn("embedding service unavailable, indexing and queries will fail", "error", err)
	} else {
		embedder = e
	}

	// 4. SERVICES
	source := filesystem.New(log)
	locks := services.NewDocumentLocks()
	chk := chunker.New(
		chunker.WithMaxChunkSize(settings.Chunking.MaxChunkSize),
		chunker.WithOverlap(settings.Chunking.Overlap),
		chunker.WithLogger(log),
	)

	indexService := services.NewIndexService(source, store.hierarchy, store.vectors, embedder, locks, chk,
		services.IndexConfigFromSettings(settings), log)
	indexService.SetWatcher(source)

	svc.Index = indexService
	svc.Documents = services.NewDocumentService(store.hierarchy, store.vectors, locks, log)
	svc.Retrieval = services.NewRetrievalServiceFromSettings(settings, store.hierarchy, store.vectors, embedder, log)

	cleanup := func() {
		var errs []error
		if embedder != nil {
			errs = append(errs, embedder.Close())
		}
		errs = append(errs, source.Close(), store.close())
		if err := errors.Join(errs...); err != nil {
			log.Error("shutdown failed", "error", err)
		}
		_ = log.Sync()
	}
	return svc, cleanup, nil
}

// openStorage opens the configured backend.
func openStorage(ctx context.Context, cfg *domain.StorageSettings, log *logger.Logger) (*storage, error) {
	switch cfg.Backend {
	case domain.StorageBackendMemory:
		s := memory.NewStore(memory.WithLogger(log))
		return &storage{
			hierarchy: s.HierarchyStore(),
			vectors:   s.VectorIndex(),
			close:     func() error { return nil },
		}, nil
	case domain.StorageBackendSQLite:
		s, err := sqlite.NewStore(cfg.DataDir, sqlite.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return &storage{hierarchy: s.HierarchyStore(), vectors: s.VectorIndex(), close: s.Close}, nil
	case domain.StorageBackendPostgres:
		s, err := postgres.NewStore(ctx, cfg.PostgresDSN, postgres.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return &storage{hierarchy: s.HierarchyStore(), vectors: s.VectorIndex(), close: s.Close}, nil
	default:
		return nil, fmt.Errorf("%w: storage backend %q", domain.ErrInvalidInput, cfg.Backend)
	}
}
