package factory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/audit"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/bucketing"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/client"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/config"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/encryption"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/events"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/filestore"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/handler"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/hashing"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/ratelimit"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/repository/document"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/repository/postgres"
	redisrepo "github.com/web-portfolio-personal/JAML-Ejercicios/internal/repository/redis"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/repository/scylla"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/schemas"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/search"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/service"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/tls"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/validation"
)

const startupTimeout = 30 * time.Second

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	// Clients, nil when the backend is disabled
	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	postgresDB       *postgres.DB
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient

	// Managers
	hasher            *hashing.Hasher
	encryptionManager *encryption.EncryptionManager
	bucketingManager  *bucketing.BucketingManager

	// Infrastructure
	store       document.Store
	index       search.Index
	publisher   events.Publisher
	auditSink   audit.Sink
	disk        *filestore.Disk
	limiter     *ratelimit.Limiter
	windowStore *ratelimit.MemoryStore
	stats       ratelimit.StatsStore
	burst       *ratelimit.BurstThrottle

	serviceFactory *service.ServiceFactory

	background context.Context
	stop       context.CancelFunc
	closeOnce  sync.Once
	closed     chan struct{}
}

// NewFactory loads the configuration and builds every dependency the
// server needs. Backends are only dialled when enabled.
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()
	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)
	return New(cfg)
}

// New builds the factory from an already loaded configuration.
func New(cfg *config.Config) (*Factory, error) {
	background, stop := context.WithCancel(context.Background())
	factory := &Factory{
		config:     cfg,
		background: background,
		stop:       stop,
		closed:     make(chan struct{}),
	}

	if cfg.Server.EnableTLS {
		factory.tlsManager = tls.NewTLSManager(tls.ConfigFrom(cfg))
	}

	if err := factory.initializeClients(); err != nil {
		factory.Close()
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := factory.initializeManagers(); err != nil {
		factory.Close()
		return nil, fmt.Errorf("failed to initialize managers: %w", err)
	}

	if err := factory.initializeInfrastructure(); err != nil {
		factory.Close()
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.String("store_backend", cfg.Store.Backend),
		util.String("rate_limit_backend", cfg.RateLimit.Backend),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kms_enabled", cfg.KMS.Enabled),
	)

	return factory, nil
}

// initializeClients dials every enabled backend and health checks them in
// parallel. Outside production failures are only logged.
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(f.background, startupTimeout)
	defer cancel()

	cfg := f.config
	var initErrors []error

	if cfg.Redis.Enabled || cfg.RateLimit.Backend == "redis" {
		if c, err := client.NewRedisClient(cfg, util.Get()); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
		} else {
			f.redisClient = c
		}
	}

	switch cfg.Store.Backend {
	case "scylla":
		c, err := scylla.NewScyllaClient(cfg, util.Get())
		if err != nil {
			return fmt.Errorf("scylla: %w", err)
		}
		f.scyllaClient = c
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		f.postgresDB = db
	case "memory", "":
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Kafka.Enabled {
		if producer, err := client.NewKafkaProducer(cfg, util.Get()); err != nil {
			util.Warn("Kafka producer initialization failed - proceeding without Kafka", util.ErrorField(err))
		} else {
			f.kafkaProducer = producer
		}
	}

	if cfg.Elasticsearch.Enabled {
		if c, err := client.NewElasticsearchClient(cfg, util.Get()); err != nil {
			initErrors = append(initErrors, fmt.Errorf("elasticsearch: %w", err))
		} else {
			f.esClient = c
		}
	}

	if cfg.Clickhouse.Enabled {
		if c, err := client.NewClickHouseClient(cfg, util.Get()); err != nil {
			initErrors = append(initErrors, fmt.Errorf("clickhouse: %w", err))
		} else {
			f.clickhouseClient = c
		}
	}

	var mu sync.Mutex
	var g errgroup.Group
	check := func(name string, fn func(context.Context) error) {
		g.Go(func() error {
			if err := fn(ctx); err != nil {
				mu.Lock()
				initErrors = append(initErrors, fmt.Errorf("%s health check: %w", name, err))
				mu.Unlock()
				return nil
			}
			util.Info("Client initialized and healthy", util.String("client", name))
			return nil
		})
	}

	if f.redisClient != nil {
		check("redis", f.redisClient.HealthCheck)
	}
	if f.scyllaClient != nil {
		check("scylla", f.scyllaClient.HealthCheck)
	}
	if f.postgresDB != nil {
		check("postgres", f.postgresDB.Ready)
	}
	if f.kafkaProducer != nil {
		check("kafka", f.kafkaProducer.HealthCheck)
	}
	if f.esClient != nil {
		check("elasticsearch", f.esClient.HealthCheck)
	}
	if f.clickhouseClient != nil {
		check("clickhouse", f.clickhouseClient.HealthCheck)
	}
	_ = g.Wait()

	if len(initErrors) > 0 {
		if cfg.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %w", errors.Join(initErrors...))
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

// initializeManagers initializes hashing, encryption, and bucketing managers
func (f *Factory) initializeManagers() error {
	f.hasher = hashing.NewHasher(f.config)

	var keys encryption.KeyService
	if f.config.KMS.Enabled {
		ctx, cancel := context.WithTimeout(f.background, startupTimeout)
		defer cancel()
		kmsClient, err := encryption.NewKMSClient(ctx, f.config)
		if err != nil {
			return fmt.Errorf("kms: %w", err)
		}
		keys = kmsClient
	}

	em, err := encryption.NewEncryptionManager(f.config, keys)
	if err != nil {
		return err
	}
	f.encryptionManager = em
	f.bucketingManager = bucketing.NewBucketingManager(f.config)

	util.Info("Managers initialized successfully",
		util.Bool("hashing_initialized", f.hasher != nil),
		util.Bool("encryption_initialized", f.encryptionManager != nil),
		util.Int("document_buckets", f.bucketingManager.GetDocumentBuckets()),
	)
	return nil
}

// initializeInfrastructure builds the document store, search index, event
// publisher, access-log sink, file store and rate limiting on top of the
// clients that came up.
func (f *Factory) initializeInfrastructure() error {
	cfg := f.config
	logger := util.Get()

	switch {
	case f.scyllaClient != nil:
		f.store = scylla.NewDocumentStore(f.scyllaClient, f.bucketingManager)
	case f.postgresDB != nil:
		f.store = postgres.NewDocumentStore(f.postgresDB)
	default:
		f.store = document.NewMemoryStore()
	}

	f.index = search.NewMemoryIndex()
	if f.esClient != nil {
		ctx, cancel := context.WithTimeout(f.background, startupTimeout)
		es := search.NewElasticIndex(f.esClient, util.Named("search"))
		err := es.EnsureIndex(ctx)
		cancel()
		if err != nil {
			if cfg.IsProduction() {
				return fmt.Errorf("elasticsearch index: %w", err)
			}
			util.Warn("Elasticsearch index unavailable - using in-memory search", util.ErrorField(err))
		} else {
			f.index = es
		}
	}

	if f.kafkaProducer != nil {
		f.publisher = events.NewKafkaPublisher(f.kafkaProducer)
	} else {
		f.publisher = events.NewLogPublisher(util.Named("events"))
	}

	f.auditSink = audit.NopSink{}
	if f.clickhouseClient != nil {
		sink := audit.NewClickHouseSink(f.clickhouseClient, cfg.Clickhouse.Table, cfg.Clickhouse.BatchSize, cfg.Clickhouse.FlushInterval, util.Named("audit"))
		sink.Start()
		f.auditSink = sink
	}

	disk, err := filestore.NewDisk(cfg.Uploads.Dir, cfg.Server.PublicURL)
	if err != nil {
		return fmt.Errorf("uploads dir: %w", err)
	}
	f.disk = disk

	if err := f.initializeRateLimit(); err != nil {
		return err
	}

	f.serviceFactory = service.NewServiceFactory(service.Dependencies{
		Store:      f.store,
		Index:      f.index,
		Publisher:  f.publisher,
		Files:      f.disk,
		Hasher:     f.hasher,
		Encryption: f.encryptionManager,
		CoverPolicy: service.UploadPolicy{
			MaxBytes:  cfg.Uploads.MaxCoverBytes,
			MimeTypes: cfg.Uploads.CoverMimeTypes,
			Rejection: "Solo se permiten imágenes (jpeg, png, webp, gif)",
		},
		FilePolicy: service.UploadPolicy{
			MaxBytes:  cfg.Uploads.MaxFileBytes,
			MimeTypes: cfg.Uploads.FileMimeTypes,
			Rejection: "Tipo de archivo no permitido",
		},
		Categories: schemas.CursoCats,
		Logger:     logger,
	})
	return nil
}

func (f *Factory) initializeRateLimit() error {
	cfg := f.config.RateLimit

	var store ratelimit.Store
	if cfg.Backend == "redis" && f.redisClient != nil {
		store = redisrepo.NewRateWindowCache(f.redisClient)
		f.stats = redisrepo.NewRateLimitStats(f.redisClient)
	} else {
		if cfg.Backend == "redis" {
			util.Warn("Redis unavailable - rate limiting per process")
		}
		f.windowStore = ratelimit.NewMemoryStore(cfg.Window)
		f.windowStore.StartJanitor(f.background, func(removed int) {
			if removed > 0 {
				util.Debug("Swept expired rate limit windows", util.Int("removed", removed))
			}
		})
		store = f.windowStore
		f.stats = ratelimit.NewMemoryStats()
	}

	limiter, err := ratelimit.NewLimiter(store, cfg.MaxRequests, cfg.Window)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	f.limiter = limiter

	if cfg.UploadRPS > 0 && cfg.UploadBurst > 0 {
		f.burst = ratelimit.NewBurstThrottle(cfg.UploadRPS, cfg.UploadBurst, 10*time.Minute)
		f.burst.StartJanitor(f.background, time.Minute)
	}
	return nil
}

// ==============================
// Router
// ==============================

// Router builds the HTTP handler tree over the service layer.
func (f *Factory) Router() http.Handler {
	cfg := f.config
	logger := util.Get()
	services := f.serviceFactory

	opts := handler.APIOptions{
		Registry:     schemas.NewRegistry(),
		Validator:    validation.New(),
		Logger:       logger,
		MaxJSONBytes: cfg.Server.MaxJSONBytes,
		Debug:        cfg.Debug,
	}

	keyFn := ratelimit.DefaultKeyFunc(cfg.RateLimit.KeyHeader)
	var uploadGuard func(http.Handler) http.Handler
	if f.burst != nil {
		uploadGuard = f.burst.Middleware(keyFn, util.Named("ratelimit"))
	}

	routerCfg := handler.RouterConfig{
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		HandlerTimeout: cfg.Server.HandlerTimeout,
		RequireHTTPS:   cfg.Server.EnableTLS && cfg.IsProduction(),
		Stats:          f.stats,
		Audit:          f.auditSink,
		UploadsDir:     f.disk.Dir(),
		Health:         f.HealthCheck,
		Handlers: []handler.RouteRegistrar{
			handler.NewTodoHandler(services.TodoService(), opts),
			handler.NewMovieHandler(services.MovieService(), cfg.Uploads.MaxCoverBytes, uploadGuard, opts),
			handler.NewUserHandler(services.UserService(), opts),
			handler.NewTrackHandler(services.TrackService(), opts),
			handler.NewStorageHandler(services.StorageService(), cfg.Uploads.MaxFileBytes, uploadGuard, opts),
			handler.NewCursoHandler(services.CursoService(), opts),
			handler.NewUsuarioHandler(services.UsuarioService(), opts),
		},
	}
	if cfg.RateLimit.Enabled {
		routerCfg.RateLimit = ratelimit.Middleware(ratelimit.Options{
			Limiter:   f.limiter,
			Stats:     f.stats,
			KeyFn:     keyFn,
			KeyHeader: cfg.RateLimit.KeyHeader,
			Logger:    util.Named("ratelimit"),
		})
	}

	return handler.NewRouter(routerCfg)
}

// ==============================
// Health Checks
// ==============================

// HealthCheck reports every enabled backend. Disabled backends are absent
// from the map.
func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)

	if f.store != nil {
		healthErrors["store"] = f.store.HealthCheck(ctx)
	} else {
		healthErrors["store"] = fmt.Errorf("document store not initialized")
	}

	if f.redisClient != nil {
		healthErrors["redis"] = f.redisClient.HealthCheck(ctx)
	}
	if f.esClient != nil {
		healthErrors["elasticsearch"] = f.esClient.HealthCheck(ctx)
	}
	if f.clickhouseClient != nil {
		healthErrors["clickhouse"] = f.clickhouseClient.HealthCheck(ctx)
	}
	if f.kafkaProducer != nil {
		healthErrors["kafka"] = f.kafkaProducer.HealthCheck(ctx)
	}

	if f.encryptionManager == nil {
		healthErrors["encryption"] = fmt.Errorf("encryption manager not initialized")
	}

	return healthErrors
}

// IsHealthy ignores Kafka, whose events are best effort.
func (f *Factory) IsHealthy(ctx context.Context) bool {
	for name, err := range f.HealthCheck(ctx) {
		if name != "kafka" && err != nil {
			return false
		}
	}
	return true
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")
		f.stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if f.auditSink != nil {
			if err := f.auditSink.Close(ctx); err != nil {
				util.Error("Failed to flush access log", util.ErrorField(err))
			}
		}

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			} else {
				util.Info("ClickHouse client closed")
			}
		}

		if f.esClient != nil {
			f.esClient.Close()
			util.Info("Elasticsearch client closed")
		}

		if f.publisher != nil {
			if err := f.publisher.Close(); err != nil {
				util.Error("Failed to close event publisher", util.ErrorField(err))
			}
		} else if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			}
		}

		if f.serviceFactory != nil {
			f.serviceFactory.Cleanup()
			util.Info("Service factory cleaned up")
		}

		if f.store != nil {
			f.store.Close()
			util.Info("Document store closed")
		} else {
			if f.scyllaClient != nil {
				f.scyllaClient.Close()
			}
			if f.postgresDB != nil {
				f.postgresDB.Close()
			}
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				util.Info("Redis client closed")
			}
		}

		util.Info("Factory shutdown completed")
		util.Sync()
	})

	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}

// ==============================
// Migrations
// ==============================

// Migrate creates the schema of every configured backend.
func Migrate(ctx context.Context, cfg *config.Config) error {
	switch cfg.Store.Backend {
	case "scylla":
		if err := scylla.Migrate(ctx, cfg); err != nil {
			return err
		}
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	}

	if cfg.Clickhouse.Enabled {
		ch, err := client.NewClickHouseClient(cfg, util.Get())
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		defer ch.Close()
		if err := audit.Migrate(ctx, ch, cfg.Clickhouse.Table); err != nil {
			return err
		}
	}
	return nil
}

// ==============================
// Getters
// ==============================

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}

func (f *Factory) ServiceFactory() *service.ServiceFactory {
	return f.serviceFactory
}

func (f *Factory) Store() document.Store {
	return f.store
}

func (f *Factory) Hasher() *hashing.Hasher {
	return f.hasher
}

func (f *Factory) EncryptionManager() *encryption.EncryptionManager {
	return f.encryptionManager
}

func (f *Factory) BucketingManager() *bucketing.BucketingManager {
	return f.bucketingManager
}

func (f *Factory) RateLimitStats() ratelimit.StatsStore {
	return f.stats
}
