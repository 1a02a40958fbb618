package writer

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"docrewriter/internal/models"
	"docrewriter/pkg/logger"
)

var textRunRe = regexp.MustCompile(`(?s)<w:t(?:\s[^>]*)?>.*?</w:t>`)

// DocxWriter 把重写后的文本写回 docx。
// 实现方式是把原始压缩包逐项复制到新包，只替换 word/document.xml 中
// 被重写段落里的文本；图片、样式、关系、公式等其余字节原样保留。
type DocxWriter struct {
	logger logger.Logger
}

func NewDocxWriter(log logger.Logger) *DocxWriter {
	return &DocxWriter{logger: log.Named("writer")}
}

// Write 生成输出文档。doc 中文本块的 Content 已经是重写后的内容。
func (w *DocxWriter) Write(doc *models.Document, outputPath string) error {
	if doc.Format != models.FormatDocx {
		return fmt.Errorf("docx writer: unsupported source format %s", doc.Format)
	}

	newDocXML := spliceDocumentXML(doc)

	r, err := zip.OpenReader(doc.SourcePath)
	if err != nil {
		return fmt.Errorf("open source archive: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			dst, err := zw.Create(f.Name)
			if err != nil {
				return fmt.Errorf("create %s: %w", f.Name, err)
			}
			if _, err := dst.Write(newDocXML); err != nil {
				return fmt.Errorf("write %s: %w", f.Name, err)
			}
			continue
		}
		if err := copyZipEntry(zw, f); err != nil {
			return fmt.Errorf("copy %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}

	w.logger.Info("docx written", logger.String("path", outputPath))
	return nil
}

func copyZipEntry(zw *zip.Writer, f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	dst, err := zw.CreateHeader(&zip.FileHeader{
		Name:   f.Name,
		Method: f.Method,
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, rc)
	return err
}

// spliceDocumentXML 重建 document.xml：被重写的段落替换文本，
// 其余段落（含公式、图片所在段落）按原始字节复制。
func spliceDocumentXML(doc *models.Document) []byte {
	rewritten := make(map[int]string)
	for i := range doc.Blocks {
		b := &doc.Blocks[i]
		if (b.Type == models.BlockText || b.Type == models.BlockHeading) && b.ParaIndex >= 0 {
			rewritten[b.ParaIndex] = b.Content
		}
	}

	var buf bytes.Buffer
	prev := 0
	for i, span := range doc.Paragraphs {
		buf.Write(doc.DocumentXML[prev:span.Start])
		raw := doc.DocumentXML[span.Start:span.End]
		if text, ok := rewritten[i]; ok && !span.SelfClosing {
			buf.Write(replaceParagraphText(raw, text))
		} else {
			buf.Write(raw)
		}
		prev = span.End
	}
	buf.Write(doc.DocumentXML[prev:])
	return buf.Bytes()
}

// replaceParagraphText 把重写后的整段文本放进第一个 w:t，其余 w:t 清空。
// 运行属性（w:rPr）不动，段落级格式因此得以保留。
func replaceParagraphText(raw []byte, text string) []byte {
	first := true
	return textRunRe.ReplaceAllFunc(raw, func(_ []byte) []byte {
		if first {
			first = false
			return []byte(`<w:t xml:space="preserve">` + escapeXML(text) + `</w:t>`)
		}
		return []byte(`<w:t></w:t>`)
	})
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
