package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/checkout-backend/internal/cfg"
	v1Http "github.com/DRSN-tech/checkout-backend/internal/delivery/v1/http"
	"github.com/DRSN-tech/checkout-backend/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/checkout-backend/internal/infrastructure/minio"
	"github.com/DRSN-tech/checkout-backend/internal/repository/memory"
	s3Repo "github.com/DRSN-tech/checkout-backend/internal/repository/minio"
	"github.com/DRSN-tech/checkout-backend/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/checkout-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/checkout-backend/internal/repository/redis"
	redisConv "github.com/DRSN-tech/checkout-backend/internal/repository/redis/converter"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/clients"
	"github.com/DRSN-tech/checkout-backend/pkg/closer"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/DRSN-tech/checkout-backend/pkg/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const topicTimeout = 10 * time.Second

// App связывает хранилища, сценарии и транспорт и управляет их жизненным циклом.
type App struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	httpSrv  *v1Http.Server
	worker   *kafka.OutboxWorker
	consumer *kafka.StatusConsumer // nil в режиме memory
}

// storage — набор репозиториев выбранного драйвера.
type storage struct {
	products   usecase.ProductRepository
	orders     usecase.OrderRepository
	outbox     usecase.OutboxRepository
	carts      usecase.CartRepository
	cache      usecase.CacheRepository
	transactor usecase.Transactor
	receipts   usecase.ReceiptArchive
	producer   usecase.MessageProducer
	dsn        string
}

func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: log,
		closer: closer.NewCloser(0),
	}

	var (
		st  *storage
		err error
	)
	if cfg.InMemory() {
		st = a.memoryStorage()
	} else {
		st, err = a.externalStorage()
		if err != nil {
			// Уже открытые соединения закрываем
			_ = a.closer.Close(context.Background())
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
	}

	catalogUC := usecase.NewProductUC(st.products, st.cache, log)
	orderUC := usecase.NewOrderUC(st.products, st.orders, st.outbox, st.cache, st.transactor, st.receipts, cfg.Checkout, log)
	cartUC := usecase.NewCartUC(st.carts, st.products, orderUC, log)

	a.worker = kafka.NewOutboxWorker(st.outbox, log, st.producer, cfg.Outbox, pgdb.OutboxChannel, st.dsn)
	a.closer.AddSimple("outbox worker", a.worker.Stop)

	if !cfg.InMemory() {
		a.consumer = kafka.NewStatusConsumer(cfg.Kafka, orderUC, log)
		a.closer.Add("status consumer", func(context.Context) error { return a.consumer.Close() })
	}

	r := chi.NewRouter()
	v1Http.NewRouter(r, log).Init(catalogUC, cartUC, orderUC)
	a.httpSrv = v1Http.NewServer(r, cfg.Http)

	return a, nil
}

func (a *App) memoryStorage() *storage {
	a.logger.Infof("Using in-memory storage, events are written to log")

	return &storage{
		products:   memory.NewProductRepo(),
		orders:     memory.NewOrderRepo(),
		outbox:     memory.NewOutboxRepo(),
		carts:      memory.NewCartRepo(),
		cache:      memory.NewCacheRepo(),
		transactor: memory.NewTransactor(),
		producer:   kafka.NewLogProducer(a.logger),
	}
}

func (a *App) externalStorage() (*storage, error) {
	cfg := a.cfg

	db, err := initPGDB(a.logger, cfg)
	if err != nil {
		return nil, err
	}
	a.closer.AddSimple("postgres", db.Close)

	redisClient := clients.NewRedisClient(cfg.Redis)
	a.closer.Add("redis", func(context.Context) error { return redisClient.Close() })

	redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer redisCancel()
	if err := redisClient.Ping(redisCtx); err != nil {
		a.logger.Errorf(err, "Failed to connect to redis")
		return nil, err
	}

	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		a.logger.Errorf(err, "Failed to initialize minio client")
		return nil, err
	}

	minioCtx, minioCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer minioCancel()
	if err := clients.EnsureBucket(minioCtx, minioClient, cfg.Minio.BucketName); err != nil {
		a.logger.Errorf(err, "Failed to initialize MinIO bucket")
		return nil, err
	}

	// Загрузки квитанций прерываются только после ожидания в closer
	uploadsCtx, uploadsCancel := context.WithCancel(context.Background())
	receipts := minioInfra.NewReceiptArchive(s3Repo.NewReceiptRepo(minioClient, cfg.Minio), cfg.Minio.UploadLimit, a.logger, uploadsCtx)
	a.closer.Add("receipt archive", func(ctx context.Context) error {
		defer uploadsCancel()
		return receipts.Wait(ctx)
	})

	producer := kafka.NewProducer(a.logger, cfg.Kafka)
	a.closer.Add("kafka producer", func(context.Context) error { return producer.Close() })

	if err := producer.EnsureTopics(topicTimeout); err != nil {
		a.logger.Errorf(err, "Failed to ensure kafka topics")
		return nil, err
	}

	return &storage{
		products:   pgdb.NewProductRepo(db.Pool, pgdbConv.ProductConverterImpl{}),
		orders:     pgdb.NewOrderRepo(db.Pool, pgdbConv.OrderConverterImpl{}),
		outbox:     pgdb.NewOutboxEventRepo(db.Pool, pgdbConv.OutboxEventConverterImpl{}),
		carts:      redis.NewCartRepo(redisClient, cfg.Redis, a.logger),
		cache:      redis.NewCacheRepo(redisClient, redisConv.ProductInfoConverterImpl{}, cfg.Redis, a.logger),
		transactor: pgdb.NewTransactor(db.Pool, a.logger),
		receipts:   receipts,
		producer:   producer,
		dsn:        db.Dsn,
	}, nil
}

// Run блокируется до сигнала завершения или фатальной ошибки сервера.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.worker.Start(ctx)

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Run(ctx); err != nil {
				a.logger.Errorf(err, "Status consumer failed")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Errorf(err, "HTTP server failed")
			errCh <- err
		}
	}()

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	// === Graceful shutdown ===
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Http.ShutdownTimeout)
	defer shutdownCancel()

	if err := a.httpSrv.Stop(shutdownCtx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	} else {
		a.logger.Infof("HTTP server stopped")
	}

	cancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Warnf("%v", err)
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

func initPGDB(logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(cfg.Db)
	if err != nil {
		logger.Errorf(err, "Failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		db.Close()
		logger.Errorf(err, "Failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
