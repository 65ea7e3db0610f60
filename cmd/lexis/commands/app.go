package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/lexis-ai/cli/config"
	"github.com/lexis-ai/cli/internal/chatbot"
	"github.com/lexis-ai/cli/internal/documents"
	"github.com/lexis-ai/cli/internal/index"
	"github.com/lexis-ai/cli/internal/index/fsstore"
	"github.com/lexis-ai/cli/internal/index/pgstore"
	"github.com/lexis-ai/cli/internal/index/sqlitestore"
	"github.com/lexis-ai/cli/internal/providers"
	"github.com/lexis-ai/cli/internal/rag"
	"github.com/lexis-ai/cli/internal/staleness"
	"github.com/lexis-ai/cli/internal/web"
)

// app holds everything a command needs
type app struct {
	cfg    *config.Config
	logger *log.Logger
	store  index.Store
	bot    *chatbot.Bot
}

// openStore opens the configured index backend
func openStore(ctx context.Context, cfg *config.Config) (index.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendFS:
		return fsstore.New(cfg.Storage.Dir), nil
	case config.BackendSQLite:
		return sqlitestore.Open(cfg.Storage.SQLitePath)
	case config.BackendPostgres:
		return pgstore.New(ctx, cfg.Database.ConnectionString)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// newApp wires the bot. Without providers the bot can report status but
// cannot build or query.
func newApp(ctx context.Context, flags *globalFlags, withProviders bool) (*app, error) {
	cfg, err := flags.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := flags.newLogger(cfg, nil)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}

	opts := chatbot.Options{
		DocumentsDir: cfg.Paths.DocumentsDir,
		Workers:      cfg.Processing.Workers,
		Loader:       documents.NewLoader(cfg.Processing.ChunkSize, cfg.Processing.ChunkOverlap, logger),
		Store:        store,
		Oracle:       staleness.New(logger),
		Logger:       logger,
	}

	if withProviders {
		set, err := providers.New(ctx, cfg, logger)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to set up %s provider: %w", cfg.Provider, err)
		}
		logger.Debug("using provider", "provider", set.Name, "model", set.ChatModel)

		var webProvider rag.WebProvider
		if cfg.Web.Enabled {
			p, err := web.New(web.Config{
				Engine:            cfg.Web.Engine,
				BraveAPIKey:       cfg.Web.BraveAPIKey,
				MaxResults:        cfg.Web.MaxResults,
				RequestsPerSecond: cfg.Web.RequestsPerSecond,
				TrustedSources:    cfg.Web.TrustedSources,
				Timeout:           cfg.Web.Timeout,
			}, logger)
			if err != nil {
				store.Close()
				return nil, fmt.Errorf("failed to set up web search: %w", err)
			}
			webProvider = p
		}

		opts.Embedder = set.Embedder
		opts.Router = rag.NewRouter(
			rag.NewRetriever(set.Embedder),
			set.Completer,
			webProvider,
			rag.NewContextBuilder(cfg.Web.SnippetChars, 0),
			rag.RouterConfig{TopK: cfg.Processing.TopK, Keywords: cfg.Routing.Keywords},
			logger,
		)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		bot:    chatbot.New(opts),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
