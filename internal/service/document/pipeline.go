package document

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docrewriter/internal/extractor"
	"docrewriter/internal/models"
	"docrewriter/internal/rewrite"
	"docrewriter/internal/writer"
	"docrewriter/pkg/converters"
	"docrewriter/pkg/logger"
)

// PipelineDirs 输出目录布局
type PipelineDirs struct {
	Images   string
	Docx     string
	Markdown string
}

// DefaultDirs 在 outputDir 下铺开标准目录结构。
func DefaultDirs(outputDir string) PipelineDirs {
	return PipelineDirs{
		Images:   filepath.Join(outputDir, "images"),
		Docx:     filepath.Join(outputDir, "docx_files"),
		Markdown: filepath.Join(outputDir, "markdown_files"),
	}
}

// Pipeline 完整的 提取 -> 重写 -> 写回 流水线。
// CLI 直接调用，服务端模式由队列 worker 调用。
type Pipeline struct {
	extractor  *extractor.Extractor
	dispatcher *rewrite.Dispatcher
	docxWriter *writer.DocxWriter
	mdWriter   *writer.MarkdownWriter
	dirs       PipelineDirs
	logger     logger.Logger
}

func NewPipeline(
	ext *extractor.Extractor,
	dispatcher *rewrite.Dispatcher,
	docxWriter *writer.DocxWriter,
	mdWriter *writer.MarkdownWriter,
	dirs PipelineDirs,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		extractor:  ext,
		dispatcher: dispatcher,
		docxWriter: docxWriter,
		mdWriter:   mdWriter,
		dirs:       dirs,
		logger:     log.Named("pipeline"),
	}
}

// ProcessFile 处理单个输入文档，返回产出物路径和统计。
// 块级 API 失败不中断整体流程，失败的块保留原文。
func (p *Pipeline) ProcessFile(ctx context.Context, inputPath string) (*models.Result, error) {
	start := time.Now()
	p.logger.Info("processing started", logger.String("input", inputPath))

	doc, err := p.extractor.ExtractFile(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", inputPath, err)
	}

	textBlocks := doc.TextBlocks()
	stats, err := p.dispatcher.Rewrite(ctx, textBlocks)
	if err != nil {
		return nil, fmt.Errorf("rewrite %s: %w", inputPath, err)
	}

	outputName := outputBaseName(inputPath)
	result := &models.Result{
		TotalBlocks: len(doc.Blocks),
		TextBlocks:  len(textBlocks),
		CacheHits:   stats.CacheHits,
		Failed:      stats.Failed,
	}

	if doc.Format == models.FormatDocx {
		docxPath := filepath.Join(p.dirs.Docx, outputName+".docx")
		if err := p.docxWriter.Write(doc, docxPath); err != nil {
			return nil, fmt.Errorf("write docx: %w", err)
		}
		result.DocxPath = docxPath
	}

	mdPath := filepath.Join(p.dirs.Markdown, outputName+".md")
	images, err := p.mdWriter.Write(doc, mdPath)
	if err != nil {
		return nil, fmt.Errorf("write markdown: %w", err)
	}
	result.MarkdownPath = mdPath
	result.ImagePaths = images

	result.ElapsedMs = time.Since(start).Milliseconds()

	// 运行清单，给下游排查用
	if err := p.writeReport(doc, result, filepath.Join(p.dirs.Markdown, outputName+".json")); err != nil {
		p.logger.Warn("report write failed", logger.Error(err))
	}

	p.logger.Info("processing finished",
		logger.String("input", inputPath),
		logger.Int("blocks", result.TotalBlocks),
		logger.Int("cacheHits", result.CacheHits),
		logger.Int("failed", result.Failed),
		logger.Int64("elapsedMs", result.ElapsedMs),
	)
	return result, nil
}

func (p *Pipeline) writeReport(doc *models.Document, result *models.Result, path string) error {
	report, err := converters.NewJSONConverter().Convert(doc, result)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// CleanupImages 删除提取阶段的临时图片目录。Markdown 旁的副本保留。
func (p *Pipeline) CleanupImages() {
	if err := os.RemoveAll(p.dirs.Images); err != nil {
		p.logger.Warn("cleanup images failed", logger.Error(err))
	}
}

func outputBaseName(inputPath string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return base + "_" + time.Now().Format("20060102_150405")
}
