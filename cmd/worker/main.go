package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"faceattend/internal/attendance"
	"faceattend/internal/config"
	"faceattend/internal/logging"
	"faceattend/internal/queue"
	"faceattend/internal/store"
	"faceattend/internal/worker"
)

// Worker consumes check-in and check-out messages and records them in the
// attendance documents.
func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" {
		logger.Fatal("QUEUE_BACKEND=memory is served by the api process; the worker needs redis")
	}

	mongo, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		logger.Fatal("mongo connect failed", zap.Error(err))
	}
	defer func() { _ = mongo.Close(context.Background()) }()

	repo := attendance.NewRepository(mongo.DB)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Warn("attendance indexes not ensured", zap.Error(err))
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()
	if !redisClient.Healthy(ctx) {
		logger.Warn("redis not reachable yet, consumer will keep retrying", zap.String("addr", cfg.RedisAddr))
	}

	q := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	q.OnError(func(err error) { logger.Warn("queue consume error", zap.Error(err)) })

	recorder := attendance.NewRecorder(repo, cfg.Location(), logger.Named("recorder"))
	if err := worker.New(q, recorder, logger).Run(ctx); err != nil {
		logger.Fatal("queue consume init failed", zap.Error(err))
	}
}
