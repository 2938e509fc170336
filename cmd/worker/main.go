// Package main (in worker-subfolder) runs the job worker: queue consumer, tools and metrics endpoint
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/DocMint/internal/kafka"
	"github.com/UnendingLoop/DocMint/internal/metrics"
	"github.com/UnendingLoop/DocMint/internal/repository"
	"github.com/UnendingLoop/DocMint/internal/service"
	"github.com/UnendingLoop/DocMint/internal/storage"
	"github.com/UnendingLoop/DocMint/internal/tools"
	"github.com/UnendingLoop/DocMint/internal/worker"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// NoopPublisher - ЗАГЛУШКА, функциональность настоящего паблишера в очередь не нужна в рамках работы воркера
type NoopPublisher struct{}

func (NoopPublisher) SendWithRetry(ctx context.Context, strategy retry.Strategy, k []byte, v []byte) error {
	return nil
}

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		panic("Failed to load envs: " + err.Error())
	}

	zlog.InitConsole()
	if err := zlog.SetLevel("info"); err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключиться к базе
	dbConn := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	repo := repository.NewPostgresJobRepo(dbConn)

	// подключиться к хранилищу
	strg, err := storage.NewFileStorage(ctx, appConfig, 10*time.Second)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("File storage is unavailable")
	}

	svc := service.NewJobService(appConfig, repo, NoopPublisher{}, strg)

	// ждем пока кафка раздуплится
	broker := appConfig.GetString("KAFKA_BROKER")
	if err := kafka.WaitKafkaReady(ctx, broker, 5*time.Second); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Kafka is unavailable")
	}

	// подключиться к кафке как читатель
	queue := make(chan kafkago.Message)
	retryStrategy := retry.Strategy{
		Attempts: 5,
		Delay:    2 * time.Second,
		Backoff:  1.5,
	}
	topic := appConfig.GetString("KAFKA_TOPIC")
	groupID := appConfig.GetString("KAFKA_GROUPID")
	cons := wbfkafka.NewConsumer([]string{broker}, topic, groupID)
	cons.StartConsuming(ctx, queue, retryStrategy)

	metricsSrv := &http.Server{
		Addr:    ":" + appConfig.GetString("METRICS_PORT"),
		Handler: metrics.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Error().Err(err).Msg("Metrics server stopped")
		}
	}()

	w := worker.NewWorkerInstance(strg, svc, tools.NewProcessor(), queue, cons, appConfig.GetString("RESULT_KEY"))
	go w.StartWorker(ctx)

	// Waiting for interruption to stop context to start Graceful shutdown
	<-ctx.Done()

	shutdown(metricsSrv, cons, dbConn)
	zlog.Logger.Info().Msg("Exiting worker...")
}

func shutdown(metricsSrv *http.Server, cons *wbfkafka.Consumer, dbConn *dbpg.DB) {
	zlog.Logger.Info().Msg("Interrupt received!!! Starting shutdown sequence...")

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to shutdown metrics server")
	}

	if err := cons.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close Kafka-reader")
	}
	zlog.Logger.Info().Msg("Kafka-consumer connection closed.")

	if err := dbConn.Master.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close DB-conn correctly")
		return
	}
	zlog.Logger.Info().Msg("DBconn closed")
}
