package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/ExifFrame/internal/config"
	"github.com/UnendingLoop/ExifFrame/internal/engine"
	"github.com/UnendingLoop/ExifFrame/internal/fonts"
	"github.com/UnendingLoop/ExifFrame/internal/imageproc"
	"github.com/UnendingLoop/ExifFrame/internal/kafka"
	"github.com/UnendingLoop/ExifFrame/internal/layout"
	"github.com/UnendingLoop/ExifFrame/internal/logo"
	"github.com/UnendingLoop/ExifFrame/internal/repository"
	"github.com/UnendingLoop/ExifFrame/internal/service"
	"github.com/UnendingLoop/ExifFrame/internal/storage"
	"github.com/UnendingLoop/ExifFrame/internal/worker"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/dbpg"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	zlog.InitConsole()

	cfg, err := config.Load("./.env")
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to load envs, exiting worker...")
	}
	if err := zlog.SetLevel(cfg.LogLevel); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to init logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := repository.ConnectWithRetries(cfg.PostgresDSN, 5, 10*time.Second)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	strg, err := storage.NewRenderStorage(ctx, cfg, 10*time.Second)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Object storage unavailable")
	}
	repo := repository.NewPostgresRenderRepo(dbConn)

	// воркеру не нужны ни паблишер, ни превью
	var svc worker.RenderWorkerService = service.NewRenderService(repo, NoopPublisher{}, strg, nil, service.Options{
		SourcePrefix: cfg.SourcePrefix,
		ResultPrefix: cfg.ResultPrefix,
	})

	book, err := fonts.NewBook(cfg.FontDir)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to load fonts")
	}
	renderer := engine.NewRenderer(
		layout.NewBuilder(book),
		logo.NewCache(logo.NewObjectStore(strg, cfg.LogoPrefix)),
		imageproc.NewCompositor(book),
	)

	if err := kafka.WaitKafkaReady(ctx, cfg.KafkaBroker, 5*time.Second); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Kafka unavailable")
	}
	queue := make(chan kafkago.Message)
	retryStrategy := retry.Strategy{
		Attempts: 5,
		Delay:    2 * time.Second,
		Backoff:  1.5,
	}
	cons := wbfkafka.NewConsumer([]string{cfg.KafkaBroker}, cfg.KafkaTopic, cfg.KafkaGroupID)
	cons.StartConsuming(ctx, queue, retryStrategy)

	w := worker.NewWorkerInstance(svc, renderer, queue, cons)
	for i := 0; i < max(cfg.EncodeWorkers, 1); i++ {
		go w.StartWorker(ctx)
	}
	zlog.Logger.Info().Int("workers", max(cfg.EncodeWorkers, 1)).Msg("Render workers started")

	<-ctx.Done()

	shutdown(cons, dbConn)
	zlog.Logger.Info().Msg("Exiting worker...")
}

func shutdown(cons *wbfkafka.Consumer, dbConn *dbpg.DB) {
	zlog.Logger.Info().Msg("Interrupt received!!! Starting shutdown sequence...")

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
