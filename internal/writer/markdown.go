package writer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"docrewriter/internal/models"
	"docrewriter/pkg/logger"
)

// MarkdownWriter 按块顺序渲染 Markdown，图片复制到 md 同级的 images 目录。
type MarkdownWriter struct {
	logger logger.Logger
}

func NewMarkdownWriter(log logger.Logger) *MarkdownWriter {
	return &MarkdownWriter{logger: log.Named("writer")}
}

// Write 生成 Markdown 文件，返回复制出去的图片路径。
func (w *MarkdownWriter) Write(doc *models.Document, outputPath string) ([]string, error) {
	imagesDir := filepath.Join(filepath.Dir(outputPath), "images")

	var b strings.Builder
	var copied []string
	for i := range doc.Blocks {
		block := &doc.Blocks[i]
		switch block.Type {
		case models.BlockHeading:
			level := block.HeadingLevel
			if level < 1 {
				level = 1
			}
			b.WriteString(strings.Repeat("#", level) + " " + block.Content + "\n\n")

		case models.BlockText:
			b.WriteString(block.Content + "\n\n")

		case models.BlockFormula:
			// 独立公式块用 $$ 包围
			b.WriteString("\n$$" + block.Content + "$$\n\n")

		case models.BlockImage:
			if block.Image == nil {
				continue
			}
			dst := filepath.Join(imagesDir, block.Image.Filename)
			if err := copyFile(block.Image.Path, dst); err != nil {
				w.logger.Error("markdown image copy failed",
					logger.String("filename", block.Image.Filename),
					logger.Error(err),
				)
				continue
			}
			copied = append(copied, dst)
			b.WriteString(fmt.Sprintf("\n![%s](./images/%s)\n\n", block.Image.Filename, block.Image.Filename))
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(b.String()), 0644); err != nil {
		return nil, fmt.Errorf("write markdown: %w", err)
	}

	w.logger.Info("markdown written",
		logger.String("path", outputPath),
		logger.Int("images", len(copied)),
	)
	return copied, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
