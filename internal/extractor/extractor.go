package extractor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"docrewriter/internal/models"
	"docrewriter/pkg/logger"
)

// ErrUnsupportedFormat 输入文件格式不支持
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Extractor 把源文档解析成有序的内容块序列。
// 文本、图片、公式各成一块，块顺序与文档顺序一致。
type Extractor struct {
	logger    logger.Logger
	imagesDir string
}

func NewExtractor(imagesDir string, log logger.Logger) *Extractor {
	return &Extractor{
		logger:    log.Named("extractor"),
		imagesDir: imagesDir,
	}
}

// ExtractFile 按扩展名分发到对应的解析器。
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*models.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return e.extractDocx(ctx, path)
	case ".pdf":
		return e.extractPDF(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
