package converters

import (
	"fmt"
	"time"

	"docrewriter/internal/models"
)

// ReportConverter 定义重写报告转换器接口
type ReportConverter interface {
	Convert(doc *models.Document, result *models.Result) (*RewriteReport, error)
}

// RewriteReport 一次重写运行的机器可读清单
type RewriteReport struct {
	TaskID      string         `json:"taskId,omitempty"`
	Status      string         `json:"status"`
	Source      string         `json:"source"`
	Format      string         `json:"format"`
	Blocks      []BlockContent `json:"blocks"`
	Summary     ReportSummary  `json:"summary"`
	ProcessedAt time.Time      `json:"processedAt"`
}

// BlockContent 定义内容块条目
type BlockContent struct {
	Position     int    `json:"position"`
	Type         string `json:"type"` // "text", "heading", "image", "formula"
	Text         string `json:"text,omitempty"`
	HeadingLevel int    `json:"headingLevel,omitempty"`
	ImageFile    string `json:"imageFile,omitempty"`
	FormulaKind  string `json:"formulaKind,omitempty"`
}

// ReportSummary 定义运行统计
type ReportSummary struct {
	TotalBlocks  int   `json:"totalBlocks"`
	TextBlocks   int   `json:"textBlocks"`
	CacheHits    int   `json:"cacheHits"`
	Failed       int   `json:"failed"`
	ProcessingMs int64 `json:"processingMs"`
}

// JSONConverter 实现重写报告转换器
type JSONConverter struct{}

func NewJSONConverter() *JSONConverter {
	return &JSONConverter{}
}

func (c *JSONConverter) Convert(doc *models.Document, result *models.Result) (*RewriteReport, error) {
	if doc == nil || len(doc.Blocks) == 0 {
		return nil, fmt.Errorf("no blocks to convert")
	}

	report := &RewriteReport{
		Status:      "completed",
		Source:      doc.SourcePath,
		Format:      string(doc.Format),
		Blocks:      make([]BlockContent, 0, len(doc.Blocks)),
		ProcessedAt: time.Now(),
	}

	for _, block := range doc.Blocks {
		content := BlockContent{
			Position: block.Index,
			Type:     string(block.Type),
		}

		switch block.Type {
		case models.BlockImage:
			if block.Image != nil {
				content.ImageFile = block.Image.Filename
			}
		case models.BlockFormula:
			content.Text = block.Content
			if block.Formula != nil {
				content.FormulaKind = string(block.Formula.Kind)
			}
		default:
			content.Text = block.Content
			content.HeadingLevel = block.HeadingLevel
		}

		report.Blocks = append(report.Blocks, content)
	}

	if result != nil {
		report.Summary = ReportSummary{
			TotalBlocks:  result.TotalBlocks,
			TextBlocks:   result.TextBlocks,
			CacheHits:    result.CacheHits,
			Failed:       result.Failed,
			ProcessingMs: result.ElapsedMs,
		}
	}

	return report, nil
}
