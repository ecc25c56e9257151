// Package main (in api-subfolder) provides launch of the whole application except worker
package main

import (
	"context"
	"errors"
	"net/http"
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
	"github.com/UnendingLoop/ExifFrame/internal/mwlogger"
	"github.com/UnendingLoop/ExifFrame/internal/repository"
	"github.com/UnendingLoop/ExifFrame/internal/service"
	"github.com/UnendingLoop/ExifFrame/internal/storage"
	"github.com/UnendingLoop/ExifFrame/internal/transport"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"
)

// previewSessions bounds the number of live interactive sessions.
const previewSessions = 256

func main() {
	zlog.InitConsole()

	cfg, err := config.Load("./.env")
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to load envs, exiting app...")
	}
	if err := zlog.SetLevel(cfg.LogLevel); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to init logger")
	}

	// контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := repository.ConnectWithRetries(cfg.PostgresDSN, 5, 10*time.Second)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	if err := repository.MigrateWithRetries(dbConn.Master, "./migrations", 10, 15*time.Second); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	strg, err := storage.NewRenderStorage(ctx, cfg, 10*time.Second)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Object storage unavailable")
	}
	repo := repository.NewPostgresRenderRepo(dbConn)

	// движок рендера
	book, err := fonts.NewBook(cfg.FontDir)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to load fonts")
	}
	logos := logo.NewCache(logo.NewObjectStore(strg, cfg.LogoPrefix))
	comp := imageproc.NewCompositor(book)
	renderer := engine.NewRenderer(layout.NewBuilder(book), logos, comp)
	pool := engine.NewEncoderPool(comp, cfg.EncodeWorkers)
	defer pool.Close()
	previewer := timedPreviewer{sessions: engine.NewSlotSet(renderer, pool, previewSessions), timeout: cfg.EncodeTimeout}

	// ждем пока кафка раздуплится
	if err := kafka.WaitKafkaReady(ctx, cfg.KafkaBroker, 5*time.Second); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Kafka unavailable")
	}
	if err := kafka.InitKafkaTopics(ctx, cfg.KafkaBroker, 10*time.Second, cfg.KafkaTopic); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to init Kafka topics")
	}
	pub := wbfkafka.NewProducer([]string{cfg.KafkaBroker}, cfg.KafkaTopic)

	var svc RenderAPIService = service.NewRenderService(repo, pub, strg, previewer, service.Options{
		SourcePrefix: cfg.SourcePrefix,
		ResultPrefix: cfg.ResultPrefix,
	})
	handlers := transport.NewRenderHandler(svc)

	router := ginext.New(cfg.GinMode)

	router.GET("/ping", handlers.SimplePinger)
	router.POST("/renders", handlers.Create)            // создание задачи рендера
	router.GET("/renders/:id", handlers.LoadResult)     // загрузка результата
	router.GET("/renders/:id/info", handlers.GetRender) // статус и параметры
	router.GET("/renders", handlers.GetAllRenders)      // список с пагинацией и сортировкой
	router.DELETE("/renders/:id", handlers.Delete)
	router.POST("/preview", handlers.Preview)
	router.GET("/logos", handlers.Logos)
	router.GET("/defaults", handlers.GetDefaults)
	router.PUT("/defaults", handlers.SaveDefaults)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           mwlogger.NewMWLogger(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Logger.Info().Str("addr", srv.Addr).Msg("Server running")
		if err := srv.ListenAndServe(); err != nil {
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
	go recoveryLoop(ctx, svc, cfg.OrphanInterval)

	<-ctx.Done()

	shutdown(srv, pub, dbConn)
	zlog.Logger.Info().Msg("Exiting API...")
}

func recoveryLoop(ctx context.Context, svc RenderAPIService, interval time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Logger.Error().Interface("panic", r).Msg("Recovery loop crashed")
		}
	}()

	ticker := time.NewTicker(interval)
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to stop HTTP server")
	}

	if err := pub.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close Kafka-writer")
	}
	zlog.Logger.Info().Msg("Kafka-producer connection closed.")

	if err := dbConn.Master.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close DB-conn correctly")
		return
	}
	zlog.Logger.Info().Msg("DBconn closed")
}
