package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/clipilot/clipilot/api/router"
	"github.com/clipilot/clipilot/internal/config"
	"github.com/clipilot/clipilot/internal/journal"
	"github.com/clipilot/clipilot/internal/service"
	"github.com/clipilot/clipilot/pkg/logger"

	// 平台驱动注册
	_ "github.com/clipilot/clipilot/pkg/driver/platforms/adtran_os"
	_ "github.com/clipilot/clipilot/pkg/driver/platforms/audiocode_66"
	_ "github.com/clipilot/clipilot/pkg/driver/platforms/audiocode_72"
	_ "github.com/clipilot/clipilot/pkg/driver/platforms/audiocode_shell"
	_ "github.com/clipilot/clipilot/pkg/driver/platforms/cisco_asa"
	_ "github.com/clipilot/clipilot/pkg/driver/platforms/fortinet"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("version", "1.0.0").Info("Starting CLI Pilot Server")

	if err := journal.Init(journal.Options{
		Path:            cfg.Database.SQLite.Path,
		ConnMaxLifetime: cfg.Database.SQLite.ConnMaxLifetime,
	}); err != nil {
		logger.WithField("error", err).Fatal("Failed to initialize journal database")
	}
	defer journal.Close()

	executor := service.NewExecutor(cfg)
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = executor.Close(shutCtx)
	}()

	r := router.SetupRouter(executor)

	server := &http.Server{
		Addr:           cfg.GetServerAddr(),
		Handler:        r,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithField("error", err).Fatal("Failed to start server")
		}
	}()

	// 配置文件监听与热更新（日志级别等运行期可调项）
	go watchConfig(*configPath, cfg)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithField("error", err).Error("Server forced to shutdown")
	} else {
		logger.Info("Server shutdown complete")
	}
}

// watchConfig 监听配置文件变化，防抖后原地重载
func watchConfig(path string, cfg *config.Config) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.WithField("error", err).Warn("Config watch init failed")
		return
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		logger.WithField("error", err).Warn("Config watch add failed")
		return
	}
	var debounce *time.Timer
	trigger := func() {
		newCfg, err := config.Load(path)
		if err != nil {
			logger.WithField("error", err).Warn("Config reload failed")
			return
		}
		// 原地覆盖，保持指针不变
		*cfg = *newCfg
		_ = logger.Init(cfg.Log)
		logger.Info("Config reloaded")
	}
	for {
		select {
		case ev := <-watcher.Events:
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(300*time.Millisecond, trigger)
			}
		case err := <-watcher.Errors:
			logger.WithField("error", err).Warn("Config watch error")
		}
	}
}
