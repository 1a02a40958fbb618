package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"docrewriter/internal/models"
	"docrewriter/pkg/logger"
)

const pdfPageWorkers = 4

// extractPDF 逐页抽取 PDF 文本，每页一个文本块。
// PDF 输入只产出 Markdown（无法保格式回写），图片与公式不抽取。
func (e *Extractor) extractPDF(ctx context.Context, path string) (*models.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}

	numPages := pdfReader.NumPage()
	texts := make([]string, numPages+1)

	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, pdfPageWorkers)
	var mu sync.Mutex

	for i := 1; i <= numPages; i++ {
		pageNum := i
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return ctx.Err()
			}

			page := pdfReader.Page(pageNum)
			if page.V.IsNull() {
				return nil
			}
			text, err := page.GetPlainText(nil)
			if err != nil {
				return fmt.Errorf("get text from page %d: %w", pageNum, err)
			}

			mu.Lock()
			texts[pageNum] = text
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	doc := &models.Document{
		SourcePath: path,
		Format:     models.FormatPDF,
	}
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		text := strings.TrimSpace(texts[pageNum])
		if text == "" {
			continue
		}
		block := models.ContentBlock{
			Type:      models.BlockText,
			Content:   text,
			Index:     len(doc.Blocks),
			ParaIndex: -1,
		}
		if containsLaTeXFormula(text) {
			block.Type = models.BlockFormula
			block.Formula = &models.FormulaInfo{Kind: models.FormulaLaTeX}
		}
		doc.Blocks = append(doc.Blocks, block)
	}

	e.logger.Info("pdf extracted",
		logger.String("path", path),
		logger.Int("pages", numPages),
		logger.Int("blocks", len(doc.Blocks)),
	)
	return doc, nil
}
