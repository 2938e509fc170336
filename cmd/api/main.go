// Package main (in api-subfolder) provides launch of the whole application except worker
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/UnendingLoop/DocMint/internal/kafka"
	"github.com/UnendingLoop/DocMint/internal/metrics"
	"github.com/UnendingLoop/DocMint/internal/model"
	"github.com/UnendingLoop/DocMint/internal/mwlogger"
	"github.com/UnendingLoop/DocMint/internal/repository"
	"github.com/UnendingLoop/DocMint/internal/service"
	"github.com/UnendingLoop/DocMint/internal/storage"
	"github.com/UnendingLoop/DocMint/internal/transport"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"
)

const defaultMaxUploadMB = 50

// JobAPIService - то, что нужно API от сервиса
type JobAPIService interface {
	Create(ctx context.Context, data *model.JobCreateData) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	LoadResult(ctx context.Context, id string) (io.ReadCloser, string, string, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error)
	Delete(ctx context.Context, id string) error
	ReviveOrphans(ctx context.Context, limit int)
}

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		panic("Failed to load envs: " + err.Error())
	}

	// стартуем логгер
	zlog.InitConsole()
	if err := zlog.SetLevel("info"); err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	metrics.Init()

	// готовим заранее слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключиться к базе и накатить миграцию
	dbConn := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	repository.MigrateWithRetries(dbConn.Master, "./migrations", 10, 15*time.Second)
	repo := repository.NewPostgresJobRepo(dbConn)

	// подключиться к хранилищу
	strg, err := storage.NewFileStorage(ctx, appConfig, 10*time.Second)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("File storage is unavailable")
	}

	// ждем пока кафка раздуплится и создаем топик
	broker := appConfig.GetString("KAFKA_BROKER")
	topic := appConfig.GetString("KAFKA_TOPIC")
	if err := kafka.WaitKafkaReady(ctx, broker, 5*time.Second); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Kafka is unavailable")
	}
	if err := kafka.InitKafkaTopics(ctx, broker, 10*time.Second, topic); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to init Kafka topics")
	}
	pub := wbfkafka.NewProducer([]string{broker}, topic)

	var svc JobAPIService = service.NewJobService(appConfig, repo, pub, strg)
	handlers := transport.NewJobHandler(svc, maxUploadBytes(appConfig))

	mode := appConfig.GetString("GIN_MODE")
	engine := ginext.New(mode)

	engine.GET("/ping", handlers.SimplePinger)
	engine.POST("/jobs", handlers.Create)               // создание задачи
	engine.GET("/jobs", handlers.GetAllJobs)            // список задач с пагинацией и сортировкой
	engine.GET("/jobs/:id", handlers.GetJob)            // статус и заметки
	engine.GET("/jobs/:id/result", handlers.LoadResult) // загрузка результата
	engine.DELETE("/jobs/:id", handlers.Delete)         // удаление
	engine.GET("/metrics", func(c *ginext.Context) {
		metrics.Handler().ServeHTTP(c.Writer, c.Request)
	})

	srv := &http.Server{
		Addr:    ":" + appConfig.GetString("APP_PORT"),
		Handler: mwlogger.NewMWLogger(engine),
	}

	// Server launch
	go func() {
		zlog.Logger.Info().Msgf("Server running on http://localhost%s", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				zlog.Logger.Info().Msg("Server gracefully stopping...")
			default:
				zlog.Logger.Error().Err(err).Msg("Server stopped")
				stop()
			}
		}
	}()

	// фоновый перезапуск подвисших задач
	go recoveryLoop(ctx, svc)

	// ждем отмены контекста для запуска грейсфул закрытия соединений
	<-ctx.Done()

	shutdown(srv, pub, dbConn)
	zlog.Logger.Info().Msg("Exiting API...")
}

func maxUploadBytes(cfg *config.Config) int64 {
	mb, err := strconv.ParseInt(cfg.GetString("MAX_UPLOAD_MB"), 10, 64)
	if err != nil || mb <= 0 {
		mb = defaultMaxUploadMB
	}
	return mb << 20
}

func recoveryLoop(ctx context.Context, svc JobAPIService) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Logger.Error().Interface("panic", r).Msg("Recovery loop crashed")
		}
	}()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.ReviveOrphans(ctx, 20)
		}
	}
}

func shutdown(srv *http.Server, pub *wbfkafka.Producer, dbConn *dbpg.DB) {
	zlog.Logger.Info().Msg("Interrupt received!!! Starting shutdown sequence...")

	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to shutdown HTTP-server")
	}

	if err := pub.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close Kafka-producer")
	}
	zlog.Logger.Info().Msg("Kafka-producer connection closed.")

	if err := dbConn.Master.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close DB-conn correctly")
		return
	}
	zlog.Logger.Info().Msg("DBconn closed")
}
