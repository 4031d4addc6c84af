package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/statbot/gostat/internal/evalserver"
	"github.com/statbot/gostat/internal/metrics"
	"github.com/statbot/gostat/pkg/config"
	"github.com/statbot/gostat/pkg/logger"
	"github.com/statbot/gostat/pkg/shutdown"
)

func main() {
	// 加载 .env（尽力而为），缺失时回退到真实环境变量
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", os.Getenv("GOSTAT_CONFIG"), "YAML config file path (optional)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}

	srv, err := evalserver.New(evalserver.Config{
		DBPath:         cfg.DBPath,
		TableCacheDir:  cfg.TableCacheDir,
		DefaultTerms:   cfg.DefaultTerms,
		EvalCacheTTL:   cfg.EvalCacheTTL,
		StreamInterval: cfg.StreamInterval,
	})
	if err != nil {
		logger.Errorf("init server failed: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// metrics/debug 端口（可选）
	if cfg.MetricsAddr != "" {
		if _, err := metrics.StartAsync(ctx, cfg.MetricsAddr); err != nil {
			logger.Warnf("metrics listener failed: %v", err)
		} else {
			logger.Infof("metrics/debug listening on %s", cfg.MetricsAddr)
		}
	}

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("gostat listening on %s", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("http server error: %v", err)
		}
	}()

	mgr := shutdown.NewManager()
	mgr.OnShutdown(func(ctx context.Context, _ *sync.WaitGroup) {
		_ = httpSrv.Shutdown(ctx)
	})
	mgr.OnShutdown(func(_ context.Context, _ *sync.WaitGroup) {
		if err := srv.Close(); err != nil {
			logger.Warnf("close server: %v", err)
		}
	})

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	<-stopCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	mgr.Shutdown(shutdownCtx)

	logger.Info("server stopped")
}
