package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"docrewriter/config"
	"docrewriter/internal/service/document"
	"docrewriter/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	inputPath := flag.String("input", "", "input docx/pdf file or directory (defaults to inputDir from config)")
	outputDir := flag.String("output", "", "output directory (overrides config)")
	provider := flag.String("provider", "", "rewrite provider: tongyi or zhipu (overrides config)")
	workers := flag.Int("workers", 0, "number of rewrite workers (0 = auto)")
	clearCache := flag.Bool("clear-cache", false, "clear the rewrite cache and exit")
	flag.Parse()

	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("console"),
		logger.WithOutputPaths([]string{"stdout"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config", logger.Error(err))
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *provider != "" {
		cfg.Provider = *provider
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *clearCache {
		store, err := document.NewCacheStore(cfg, log)
		if err != nil {
			log.Fatal("Failed to open cache", logger.Error(err))
		}
		if err := store.Clear(ctx); err != nil {
			log.Fatal("Failed to clear cache", logger.Error(err))
		}
		log.Info("Cache cleared")
		return
	}

	inputs, err := collectInputs(*inputPath, cfg.InputDir)
	if err != nil {
		log.Fatal("Failed to collect input files", logger.Error(err))
	}
	if len(inputs) == 0 {
		log.Fatal("No docx or pdf files found",
			logger.String("input", *inputPath),
			logger.String("inputDir", cfg.InputDir),
		)
	}

	pipeline, err := document.NewPipelineFromConfig(cfg, log)
	if err != nil {
		log.Fatal("Failed to build pipeline", logger.Error(err))
	}

	failures := 0
	for _, input := range inputs {
		result, err := pipeline.ProcessFile(ctx, input)
		if err != nil {
			if ctx.Err() != nil {
				log.Warn("Interrupted", logger.String("input", input))
				os.Exit(1)
			}
			log.Error("Processing failed",
				logger.String("input", input),
				logger.Error(err),
			)
			failures++
			continue
		}

		fmt.Printf("%s\n", filepath.Base(input))
		if result.DocxPath != "" {
			fmt.Printf("  docx:     %s\n", result.DocxPath)
		}
		fmt.Printf("  markdown: %s\n", result.MarkdownPath)
		fmt.Printf("  blocks:   %d total, %d text, %d cache hits, %d failed (%.1fs)\n",
			result.TotalBlocks, result.TextBlocks, result.CacheHits, result.Failed,
			float64(result.ElapsedMs)/1000)
	}

	if failures > 0 {
		os.Exit(1)
	}
}

// collectInputs 接受单个文件或目录。目录时取一层内所有 docx/pdf。
func collectInputs(input, fallbackDir string) ([]string, error) {
	if input == "" {
		input = fallbackDir
	}

	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []string{input}, nil
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "~$") {
			// Word 的锁文件
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".docx", ".pdf":
			files = append(files, filepath.Join(input, name))
		}
	}
	return files, nil
}
