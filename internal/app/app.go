// Package app builds the long-lived services behind the CLI commands, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/kolscout/internal/apify"
	"github.com/JakeFAU/kolscout/internal/cache"
	cachememory "github.com/JakeFAU/kolscout/internal/cache/memory"
	cacheredis "github.com/JakeFAU/kolscout/internal/cache/redis"
	"github.com/JakeFAU/kolscout/internal/clock/system"
	"github.com/JakeFAU/kolscout/internal/config"
	"github.com/JakeFAU/kolscout/internal/dispatcher"
	"github.com/JakeFAU/kolscout/internal/enrich"
	collyfetcher "github.com/JakeFAU/kolscout/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/kolscout/internal/fetcher/headless"
	"github.com/JakeFAU/kolscout/internal/hash/sha256"
	"github.com/JakeFAU/kolscout/internal/headless/detector"
	"github.com/JakeFAU/kolscout/internal/id/uuid"
	"github.com/JakeFAU/kolscout/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/kolscout/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/kolscout/internal/publisher/pubsub"
	queuememory "github.com/JakeFAU/kolscout/internal/queue/memory"
	"github.com/JakeFAU/kolscout/internal/scout"
	gcsstorage "github.com/JakeFAU/kolscout/internal/storage/gcs"
	localstorage "github.com/JakeFAU/kolscout/internal/storage/local"
	memorystorage "github.com/JakeFAU/kolscout/internal/storage/memory"
	"github.com/JakeFAU/kolscout/internal/storage/postgres"
	"github.com/JakeFAU/kolscout/internal/storage/supabase"
	"github.com/JakeFAU/kolscout/internal/worker"
)

// App holds the services shared by the serve command.
type App struct {
	Logger     *zap.Logger
	Store      scout.Store
	Jobs       *memorystorage.JobStore
	Queue      *queuememory.Queue
	Dispatcher *dispatcher.Dispatcher
	Roster     *scout.Roster

	ready   func(ctx context.Context) error
	closers []func()
}

// New wires every backend selected in cfg. It fails fast when a configured
// backend cannot be reached.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	store, ready, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.ready = ready
	a.closers = append(a.closers, store.Close)

	blobStore, err := a.buildBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	publisher, err := a.buildPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}

	hasher := sha256.New()
	source, err := a.buildSource(ctx, cfg, hasher)
	if err != nil {
		return nil, err
	}
	resolver, err := a.buildResolver(cfg)
	if err != nil {
		return nil, err
	}

	clock := system.New()
	ids := uuid.New()
	a.Jobs = memorystorage.NewJobStore()
	a.Queue = queuememory.NewQueue(cfg.Scout.QueueDepth)
	a.closers = append(a.closers, a.Queue.Close)

	workerCfg := worker.Config{BlobPrefix: cfg.Storage.Prefix}
	workers := make([]*worker.Worker, 0, cfg.Scout.Workers)
	for i := 0; i < cfg.Scout.Workers; i++ {
		workers = append(workers, worker.New(
			a.Queue,
			a.Jobs,
			store,
			blobStore,
			publisher,
			source,
			resolver,
			hasher,
			ids,
			clock,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	a.Dispatcher = dispatcher.New(a.Queue, a.Jobs, ids, clock, workers, dispatcher.Config{
		DefaultLimit: cfg.Scout.DefaultLimit,
		MaxLimit:     cfg.Scout.MaxLimit,
	}, logger.Named("dispatcher"))
	a.Roster = scout.NewRoster(store, store, store, ids, clock, logger.Named("roster"))

	logger.Info("application services initialized",
		zap.String("db_backend", cfg.DB.Backend),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("pubsub", cfg.PubSub.Enabled),
		zap.Int("workers", cfg.Scout.Workers),
	)
	ok = true
	return a, nil
}

// Ready reports whether the persistence backend answers.
func (a *App) Ready(ctx context.Context) error {
	if a.ready == nil {
		return nil
	}
	return a.ready(ctx)
}

// Close releases every backend in reverse construction order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// OpenStore connects the profile, candidate and campaign backend. The returned
// check pings it for readiness.
func OpenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (scout.Store, func(context.Context) error, error) {
	switch cfg.DB.Backend {
	case "", "memory":
		return memorystorage.NewStore(), nil, nil
	case "postgres":
		pg, err := postgres.New(ctx, postgres.Config{
			DSN:             cfg.DB.DSN,
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			MaxConnLifetime: time.Duration(cfg.DB.MaxConnLifetime) * time.Minute,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		logger.Info("connected to postgres")
		return pg, pg.Ping, nil
	case "supabase":
		sb, err := supabase.New(supabase.Config{URL: cfg.Supabase.URL, Key: cfg.Supabase.Key}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect supabase: %w", err)
		}
		logger.Info("using supabase rest backend", zap.String("url", cfg.Supabase.URL))
		return sb, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown db backend %q", cfg.DB.Backend)
	}
}

func (a *App) buildBlobStore(ctx context.Context, cfg config.Config) (scout.BlobStore, error) {
	switch cfg.Storage.Backend {
	case "", "memory":
		return memorystorage.NewBlobStore(), nil
	case "local":
		store, err := localstorage.New(localstorage.Config{BaseDir: cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		return store, nil
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		a.closers = append(a.closers, func() {
			if cerr := client.Close(); cerr != nil {
				a.Logger.Warn("close gcs client", zap.Error(cerr))
			}
		})
		store, err := gcsstorage.New(client, gcsstorage.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs storage: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func (a *App) buildPublisher(ctx context.Context, cfg config.Config) (scout.Publisher, error) {
	if !cfg.PubSub.Enabled {
		return memorypublisher.New(), nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("init pubsub client: %w", err)
	}
	a.closers = append(a.closers, func() {
		if cerr := client.Close(); cerr != nil {
			a.Logger.Warn("close pubsub client", zap.Error(cerr))
		}
	})
	pub, err := pubsubpublisher.New(ctx, client, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
	if err != nil {
		return nil, fmt.Errorf("init pubsub publisher: %w", err)
	}
	a.closers = append(a.closers, pub.Stop)
	return pub, nil
}

func (a *App) buildSource(ctx context.Context, cfg config.Config, hasher *sha256.Hasher) (scout.ProfileSource, error) {
	client, err := apify.New(apify.Config{
		BaseURL:              cfg.Apify.BaseURL,
		Token:                cfg.Apify.Token,
		WaitForFinish:        time.Duration(cfg.Apify.WaitForFinishSeconds) * time.Second,
		PollInterval:         time.Duration(cfg.Apify.PollIntervalSeconds) * time.Second,
		MaxRetryElapsed:      time.Duration(cfg.HTTP.MaxRetryElapsedSec) * time.Second,
		RunTimeout:           time.Duration(cfg.Apify.RunTimeoutSeconds) * time.Second,
		TikTokSearchActor:    cfg.Apify.TikTokSearchActor,
		InstagramExpandActor: cfg.Apify.InstagramActor,
		TikTokAnalyzeActor:   cfg.Apify.TikTokAnalyzeActor,
	}, nil, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("init apify client: %w", err)
	}
	var source scout.ProfileSource = apify.NewSource(client)

	var store cache.Store
	switch cfg.Cache.Backend {
	case "", "none":
		return source, nil
	case "memory":
		store = cachememory.New()
	case "redis":
		rdb, err := cacheredis.NewClient(ctx, cacheredis.Config{
			Mode:        cfg.Redis.Mode,
			Addrs:       cfg.Redis.Addrs,
			MasterName:  cfg.Redis.MasterName,
			DB:          cfg.Redis.DB,
			Username:    cfg.Redis.Username,
			Password:    cfg.Redis.Password,
			DialTimeout: time.Duration(cfg.Redis.DialTimeoutSec) * time.Second,
			PoolSize:    cfg.Redis.PoolSize,
			TLSEnabled:  cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		a.closers = append(a.closers, func() {
			if cerr := rdb.Close(); cerr != nil {
				a.Logger.Warn("close redis", zap.Error(cerr))
			}
		})
		store = cacheredis.NewStore(rdb, cfg.Cache.KeyPrefix)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	return cache.NewSource(source, store, hasher.Key, cfg.CacheTTL(), a.Logger), nil
}

// buildResolver returns nil when bio enrichment is off.
func (a *App) buildResolver(cfg config.Config) (scout.BioResolver, error) {
	if !cfg.HTTP.EnrichBios {
		return nil, nil
	}
	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	static := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.HTTP.UserAgent,
		RespectRobots: cfg.HTTP.RespectRobots,
		Timeout:       timeout,
	})

	var headless enrich.Fetcher
	var detect enrich.Detector
	if cfg.Headless.Enabled {
		hf, err := headlessfetcher.New(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.HTTP.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
			SettleDelay:       time.Duration(cfg.Headless.SettleMillis) * time.Millisecond,
		})
		if err != nil {
			return nil, fmt.Errorf("init headless fetcher: %w", err)
		}
		headless = hf
		detect = detector.NewHeuristic(cfg.Headless.PromotionThresh)
		a.closers = append(a.closers, hf.Close)
	}

	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.HTTP.RateLimitRPS,
		DefaultBurst: cfg.HTTP.RateLimitBurst,
		HostRPS:      cfg.HTTP.HostRPS(),
	})
	headers := http.Header{}
	if cfg.HTTP.AcceptLanguage != "" {
		headers.Set("Accept-Language", cfg.HTTP.AcceptLanguage)
	}
	return enrich.NewResolver(enrich.Config{
		Concurrency: cfg.HTTP.EnrichConcurrency,
		Headers:     headers,
	}, static, headless, detect, limiter, a.Logger), nil
}
