package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"faceattend/internal/attempts"
	"faceattend/internal/attendance"
	"faceattend/internal/cloudinary"
	"faceattend/internal/config"
	"faceattend/internal/face"
	"faceattend/internal/handler"
	"faceattend/internal/httpmiddleware"
	"faceattend/internal/logging"
	"faceattend/internal/metrics"
	"faceattend/internal/queue"
	"faceattend/internal/store"
	"faceattend/internal/users"
	"faceattend/internal/worker"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func run(cfg config.App, logger *zap.Logger) error {
	ctx := context.Background()

	mongo, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer func() { _ = mongo.Close(context.Background()) }()

	attRepo := attendance.NewRepository(mongo.DB)
	if err := attRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn("attendance indexes not ensured", zap.Error(err))
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()

	var q queue.Queue
	var limiter httpmiddleware.Limiter
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	if cfg.QueueBackend == "memory" {
		logger.Info("memory queue selected, applying check-ins in process")
		mem := queue.NewInMemory(64)
		q = mem
		bucket := httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
		go bucket.PruneEvery(workerCtx, time.Minute)
		limiter = bucket
		recorder := attendance.NewRecorder(attRepo, cfg.Location(), logger.Named("recorder"))
		go func() {
			if err := worker.New(mem, recorder, logger.Named("worker")).Run(workerCtx); err != nil {
				logger.Error("in-process worker stopped", zap.Error(err))
			}
		}()
	} else {
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin)
	}

	health := map[string]handler.HealthCheck{
		"mongo": mongo.Healthy,
		"redis": redisClient.Healthy,
	}

	var attemptLog attempts.Log = attempts.Discard{}
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Warn("postgres not reachable, verification attempts will not be logged", zap.Error(err))
	} else {
		repo := attempts.NewRepository(db.Client)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Warn("attempt schema not ensured", zap.Error(err))
		}
		attemptLog = repo
		health["postgres"] = db.Healthy
	}
	defer func() { _ = db.Close() }()

	var images handler.ImageStore
	if c := cfg.Cloudinary; c.CloudName != "" && c.APIKey != "" && c.APISecret != "" {
		images = cloudinary.New(c.CloudName, c.APIKey, c.APISecret, c.Folder)
		logger.Info("cloudinary configured", zap.String("cloud", c.CloudName))
	} else {
		logger.Warn("cloudinary not configured, profile picture uploads disabled")
	}

	engine, closeEngine := newEngine(cfg, logger)
	defer closeEngine()

	gate := face.NewGate(engine,
		face.WithAssets(face.DefaultAssets(cfg.FaceModelPath)),
		face.WithLogger(logger.Named("face")),
		face.WithLoadHook(metrics.ObserveModelLoad),
	)

	h := &handler.Handler{
		Gate:       gate,
		Attendance: attRepo,
		Reconciler: attendance.NewReconciler(cfg.Location(), attendance.PolicyByName(cfg.FuturePolicy)),
		Users:      users.NewRepository(mongo.DB),
		Images:     images,
		Queue:      q,
		Attempts:   attemptLog,
		Limiter:    limiter,
		Auth: handler.AuthConfig{
			Issuer:     cfg.JWTIssuer,
			SigningKey: cfg.JWTSigningKey,
			AccessTTL:  cfg.AccessTTL,
			RefreshTTL: cfg.RefreshTTL,
			DevIssue:   cfg.AuthDevIssue,
		},
		Health:   health,
		Location: cfg.Location(),
		Log:      logger.Named("http"),
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      withTimeout(h.Router(), cfg.FaceTimeout),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.FaceTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Warm the models so the first verification does not pay for the load.
	go func() {
		if err := gate.EnsureModelsLoaded(context.Background()); err != nil {
			logger.Warn("model warm-up failed; will retry on first verification", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}

// withTimeout bounds each request so engine calls inherit a deadline.
func withTimeout(next http.Handler, d time.Duration) http.Handler {
	if d <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
