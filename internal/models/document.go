package models

import (
	"time"
)

// DocumentFormat 输入文档格式
type DocumentFormat string

const (
	FormatDocx DocumentFormat = "docx"
	FormatPDF  DocumentFormat = "pdf"
)

// ParagraphSpan word/document.xml 中一个 w:p 元素的字节区间 [Start, End)。
type ParagraphSpan struct {
	Start int
	End   int
	// SelfClosing marks an empty <w:p/> element.
	SelfClosing bool
}

// Document 解析后的源文档。
// DocumentXML 与 Paragraphs 仅对 docx 有效，写回时用来原样复制
// 未重写的段落（包括公式和图片所在的段落）。
type Document struct {
	SourcePath  string
	Format      DocumentFormat
	Blocks      []ContentBlock
	DocumentXML []byte
	Paragraphs  []ParagraphSpan
}

// TextBlocks 返回所有需要重写的文本块（含标题）。
func (d *Document) TextBlocks() []*ContentBlock {
	var out []*ContentBlock
	for i := range d.Blocks {
		if d.Blocks[i].IsRewritable() {
			out = append(out, &d.Blocks[i])
		}
	}
	return out
}

// Result 一次完整重写流水线的产出
type Result struct {
	DocxPath     string   `json:"docxPath,omitempty"`
	MarkdownPath string   `json:"markdownPath"`
	ImagePaths   []string `json:"imagePaths,omitempty"`
	TotalBlocks  int      `json:"totalBlocks"`
	TextBlocks   int      `json:"textBlocks"`
	CacheHits    int      `json:"cacheHits"`
	Failed       int      `json:"failed"`
	ElapsedMs    int64    `json:"elapsedMs"`
}

type ProcessingTask struct {
	ID        string            `json:"id"`
	Status    ProcessingStatus  `json:"status"`
	Type      string            `json:"type"`
	Priority  int               `json:"priority"`
	Progress  float64           `json:"progress"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty"`
}

type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusRunning   ProcessingStatus = "running"
	StatusCompleted ProcessingStatus = "completed"
	StatusFailed    ProcessingStatus = "failed"
	StatusCancelled ProcessingStatus = "cancelled"
)
