package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nijaru/yt-digest/cache"
	"github.com/nijaru/yt-digest/config"
	"github.com/nijaru/yt-digest/credits"
	"github.com/nijaru/yt-digest/digest"
	"github.com/nijaru/yt-digest/handlers/api"
	"github.com/nijaru/yt-digest/llm"
	"github.com/nijaru/yt-digest/logger"
	"github.com/nijaru/yt-digest/observe"
	"github.com/nijaru/yt-digest/repository/sqlite"
	"github.com/nijaru/yt-digest/scripts"
	"github.com/nijaru/yt-digest/storage"
	"github.com/nijaru/yt-digest/supabase"
	"github.com/nijaru/yt-digest/transcript"
	"github.com/nijaru/yt-digest/youtube"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg, err := logger.New(cfg.LogDir, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.WithError(err).Fatal("Server exited with error")
	}
	lg.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, lg *logrus.Logger) error {
	mp, err := observe.InitProvider(observe.ProviderConfig{ServiceVersion: cfg.Version})
	if err != nil {
		return errors.Wrap(err, "init metrics provider")
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			lg.WithError(err).Warn("Failed to shut down metrics provider")
		}
	}()
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		return errors.Wrap(err, "create metrics")
	}

	dbCfg := sqlite.DefaultDBConfig()
	dbCfg.MaxConnections = cfg.Database.MaxConnections
	dbCfg.MaxIdleConnections = cfg.Database.MaxIdleConnections
	dbCfg.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	db, err := sqlite.Open(ctx, cfg.Database.Path, dbCfg)
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	defer db.Close()
	repo := sqlite.NewRepository(db)

	tc := cache.New(ctx, cache.Options{
		RedisURL:   cfg.Cache.RedisURL,
		TTL:        cfg.Cache.TTL,
		MaxEntries: cfg.Cache.MaxEntries,
		Logger:     lg,
	})
	defer tc.Close()

	stores := []transcript.NamedStore{
		{Name: "cache", Store: tc},
		{Name: "sqlite", Store: repo},
	}

	if cfg.Spaces.Enabled {
		spaces, err := storage.NewSpacesClient(ctx, storage.SpacesConfig{
			AccessKey: cfg.Spaces.AccessKey,
			SecretKey: cfg.Spaces.SecretKey,
			Region:    cfg.Spaces.Region,
			Endpoint:  cfg.Spaces.Endpoint,
			Bucket:    cfg.Spaces.Bucket,
			PathStyle: cfg.Spaces.PathStyle,
		}, lg)
		if err != nil {
			return errors.Wrap(err, "create spaces client")
		}
		stores = append(stores, transcript.NamedStore{Name: "spaces", Store: spaces})
	}

	var sb *supabase.Client
	if cfg.Supabase.URL != "" {
		sb = supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceKey, supabase.WithLogger(lg))
		stores = append(stores, transcript.NamedStore{Name: "supabase", Store: sb})
	} else {
		lg.Warn("SUPABASE_URL not set, authenticated routes are disabled")
	}

	storeSource := transcript.NewStoreSource(lg, stores...)
	sources, err := buildSources(cfg, storeSource, lg)
	if err != nil {
		return err
	}
	chain := transcript.NewChain(sources, transcript.WithLogger(lg), transcript.WithObserver(metrics))
	lg.WithField("sources", chain.Sources()).Info("Transcript sources configured")
	fetcher := transcript.NewFetcher(chain, storeSource, lg)

	client, err := llm.NewOpenAIClient(cfg.LLM.APIKey,
		llm.WithBaseURL(cfg.LLM.BaseURL),
		llm.WithTimeout(cfg.LLM.RequestTimeout),
		llm.WithLogger(lg),
	)
	if err != nil {
		return errors.Wrap(err, "create llm client")
	}

	selector := digest.NewSelector(digest.LoadTables(cfg.LLM.ModelsFile, lg), lg)
	processor := digest.NewProcessor(client,
		digest.WithChunkDelay(cfg.LLM.ChunkDelay),
		digest.WithLogger(lg),
		digest.WithObserver(metrics),
	)

	svc := api.Services{
		Transcripts:    fetcher,
		Processor:      processor,
		Selector:       selector,
		History:        repo,
		Cache:          tc,
		Observer:       metrics,
		MetricsHandler: observe.Handler(),
	}
	if sb != nil {
		svc.Auth = sb
		svc.Profiles = sb
		svc.Credits = credits.NewGuard(sb, credits.WithLogger(lg), credits.WithObserver(metrics))
	}
	if cfg.YouTube.APIKey != "" {
		svc.Metadata = youtube.NewClient(cfg.YouTube.APIKey,
			youtube.WithHTTPClient(&http.Client{Timeout: cfg.YouTube.Timeout}),
			youtube.WithLogger(lg),
		)
	}

	server := api.NewServer(cfg, api.WithLogger(lg), api.WithServices(svc))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return tc.Run(gctx)
	})
	if cfg.LLM.WatchModels {
		g.Go(func() error {
			if err := digest.WatchTables(gctx, cfg.LLM.ModelsFile, selector, lg); err != nil {
				lg.WithError(err).Warn("Model tables watcher stopped")
			}
			return nil
		})
	}

	return g.Wait()
}

// buildSources returns the transcript sources in the configured order.
func buildSources(cfg *config.Config, stores *transcript.StoreSource, lg *logrus.Logger) ([]transcript.Source, error) {
	hc, err := transcriptHTTPClient(cfg.Transcript)
	if err != nil {
		return nil, err
	}

	sources := make([]transcript.Source, 0, len(cfg.Transcript.Sources))
	for _, name := range cfg.Transcript.Sources {
		switch name {
		case config.SourceStore:
			sources = append(sources, stores)
		case config.SourceService:
			sources = append(sources, transcript.NewServiceSource(hc, cfg.Transcript.ServiceURL,
				transcript.WithServiceRetry(3, 2*time.Second)))
		case config.SourceCaptions:
			sources = append(sources, transcript.NewCaptionsSource(hc))
		case config.SourceNative:
			sources = append(sources, transcript.NewNativeSource(hc,
				transcript.WithRetry(cfg.Transcript.NativeAttempts, cfg.Transcript.NativeRetryDelay),
				transcript.WithNativeLogger(lg),
			))
		case config.SourceSubtitles:
			runner, err := scripts.NewRunner(scripts.Config{
				YtDlpPath: cfg.Transcript.YtDlpPath,
				Timeout:   cfg.Transcript.YtDlpTimeout,
				TempDir:   cfg.TempDir,
				ProxyURL:  cfg.Transcript.ProxyURL,
			}, lg)
			if err != nil {
				return nil, errors.Wrap(err, "create yt-dlp runner")
			}
			sources = append(sources, transcript.NewSubtitleToolSource(runner, cfg.Transcript.Language))
		default:
			return nil, errors.Errorf("unknown transcript source %q", name)
		}
	}
	return sources, nil
}

func transcriptHTTPClient(cfg config.TranscriptConfig) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, errors.Wrap(err, "parse proxy URL")
		}
		transport.Proxy = http.ProxyURL(proxy)
	}
	return &http.Client{Timeout: cfg.HTTPTimeout, Transport: transport}, nil
}
