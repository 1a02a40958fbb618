package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"docrewriter/config"
	"docrewriter/internal/service/document"
	"docrewriter/pkg/logger"
	"docrewriter/pkg/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// 初始化日志
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config", logger.Error(err))
	}

	// 创建重写服务
	docService, err := document.GetService(cfg, log)
	if err != nil {
		log.Error("Failed to create rewrite service", logger.Error(err))
		os.Exit(1)
	}

	// 创建 worker 配置
	workerCfg := &worker.Config{
		RedisAddr:   cfg.Queue.RedisAddr,
		RedisDB:     cfg.Queue.RedisDB,
		Concurrency: cfg.Queue.Concurrency,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
	}

	// 创建 worker
	rewriteWorker, err := worker.NewRewriteWorker(workerCfg, docService, log)
	if err != nil {
		log.Error("Failed to create rewrite worker", logger.Error(err))
		os.Exit(1)
	}

	// 创建上下文和取消函数
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 启动 worker
	if err := rewriteWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	// 优雅关闭
	log.Info("Shutting down worker...")
	rewriteWorker.Stop()
	log.Info("Worker stopped")
}
