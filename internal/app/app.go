package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"asfdemux/internal/api"
	"asfdemux/internal/config"
)

const shutdownTimeout = 10 * time.Second

// App represents the main application
type App struct {
	config    *config.Config
	apiServer *api.Server
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config) *App {
	// 취소 가능한 컨텍스트 생성
	ctx, cancel := context.WithCancel(context.Background())

	// API 서버 생성 (추출기 캐시 포함)
	apiServer := api.NewServer(
		strconv.Itoa(cfg.API.Port),
		cfg.API.MediaRoot,
		cfg.API.CacheTTL,
		cfg.ToDemuxOptions(),
	)

	return &App{
		config:    cfg,
		apiServer: apiServer,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start starts the application and blocks until shutdown
func (app *App) Start() error {
	slog.Info("Application starting...")

	if err := app.apiServer.Start(); err != nil {
		slog.Error("Failed to start API server", "err", err)
		return err
	}

	slog.Info("API Server started", "port", app.config.API.Port, "mediaRoot", app.config.API.MediaRoot)

	// 시그널 처리
	app.waitForShutdown()
	return nil
}

// Stop 컨텍스트를 취소해 Start 를 반환시킨다
func (app *App) Stop() {
	app.cancel()
}

// waitForShutdown waits for shutdown signals and performs graceful shutdown
func (app *App) waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down application", "signal", sig)
	case <-app.ctx.Done():
		slog.Info("Context cancelled, shutting down application")
	}

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *App) shutdown() {
	slog.Info("Stopping application...")

	app.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// 진행 중인 요청을 마치고 캐시된 추출기를 닫는다
	if err := app.apiServer.Stop(ctx); err != nil {
		slog.Error("Failed to stop API server", "err", err)
	}

	slog.Info("Application stopped successfully")
}
