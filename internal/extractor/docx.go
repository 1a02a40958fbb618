package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"docrewriter/internal/models"
	"docrewriter/pkg/logger"
)

const (
	documentXMLPath = "word/document.xml"
	documentRelsPath = "word/_rels/document.xml.rels"
)

var (
	textRunRe     = regexp.MustCompile(`(?s)<w:t(?:\s[^>]*)?>(.*?)</w:t>`)
	paraStyleRe   = regexp.MustCompile(`<w:pStyle\s[^>]*w:val="([^"]*)"`)
	alignmentRe   = regexp.MustCompile(`<w:jc\s[^>]*w:val="([^"]*)"`)
	spacingLineRe = regexp.MustCompile(`<w:spacing\s[^>]*w:line="([^"]*)"`)
	firstLineRe   = regexp.MustCompile(`<w:ind\s[^>]*w:firstLine(?:Chars)?="([^"]*)"`)
)

// extractDocx 解析 .docx（OOXML zip），产出按文档顺序排列的内容块。
// 原始的 word/document.xml 和段落字节区间一并保留，供写回时复用。
func (e *Extractor) extractDocx(ctx context.Context, path string) (*models.Document, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx archive: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	media := make(map[string]*zip.File)
	var relsData []byte
	for _, f := range r.File {
		switch {
		case f.Name == documentXMLPath:
			docFile = f
		case f.Name == documentRelsPath:
			relsData, err = readZipFile(f)
			if err != nil {
				return nil, fmt.Errorf("read document rels: %w", err)
			}
		case strings.HasPrefix(f.Name, "word/media/"):
			media[f.Name] = f
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("%w: %s not found in archive", ErrUnsupportedFormat, documentXMLPath)
	}

	docXML, err := readZipFile(docFile)
	if err != nil {
		return nil, fmt.Errorf("read document.xml: %w", err)
	}

	rels, err := parseImageRels(relsData)
	if err != nil {
		return nil, fmt.Errorf("parse image relationships: %w", err)
	}
	e.logger.Info("document opened",
		logger.String("path", path),
		logger.Int("imageRelationships", len(rels)),
	)

	spans := scanParagraphs(docXML)
	doc := &models.Document{
		SourcePath:  path,
		Format:      models.FormatDocx,
		DocumentXML: docXML,
		Paragraphs:  spans,
	}

	for paraIdx, span := range spans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if span.SelfClosing {
			continue
		}
		raw := docXML[span.Start:span.End]

		format := paragraphFormat(raw)
		text := paragraphText(raw)

		switch {
		case bytes.Contains(raw, []byte("<m:oMath")):
			block := e.formulaBlock(raw, format)
			block.Index = len(doc.Blocks)
			block.ParaIndex = paraIdx
			doc.Blocks = append(doc.Blocks, *block)

		case text != "" && containsLaTeXFormula(text):
			doc.Blocks = append(doc.Blocks, models.ContentBlock{
				Type:      models.BlockFormula,
				Content:   text,
				Index:     len(doc.Blocks),
				ParaIndex: paraIdx,
				Format:    format,
				Formula:   &models.FormulaInfo{Kind: models.FormulaLaTeX},
			})

		case text != "":
			block := models.ContentBlock{
				Type:      models.BlockText,
				Content:   text,
				Index:     len(doc.Blocks),
				ParaIndex: paraIdx,
				Format:    format,
			}
			if level := headingLevel(format.StyleName); level > 0 {
				block.Type = models.BlockHeading
				block.HeadingLevel = level
			}
			doc.Blocks = append(doc.Blocks, block)
		}

		// 段落里的图片单独成块，位置跟在段落之后
		for _, img := range e.extractImages(raw, rels, media) {
			doc.Blocks = append(doc.Blocks, models.ContentBlock{
				Type:      models.BlockImage,
				Index:     len(doc.Blocks),
				ParaIndex: paraIdx,
				Image:     img,
			})
		}
	}

	e.logger.Info("document extracted",
		logger.String("path", path),
		logger.Int("paragraphs", len(spans)),
		logger.Int("blocks", len(doc.Blocks)),
	)
	return doc, nil
}

// scanParagraphs 找出 document.xml 中所有 w:p 元素的字节区间。
// w:p 不会嵌套 w:p，表格单元格里的段落也会被独立扫出来。
func scanParagraphs(doc []byte) []models.ParagraphSpan {
	var spans []models.ParagraphSpan
	open := []byte("<w:p")
	closeTag := []byte("</w:p>")

	off := 0
	for {
		i := bytes.Index(doc[off:], open)
		if i < 0 {
			break
		}
		i += off
		j := i + len(open)
		if j >= len(doc) {
			break
		}
		// 排除 <w:pPr>、<w:pStyle> 等同前缀标签
		if c := doc[j]; c != ' ' && c != '>' && c != '/' {
			off = j
			continue
		}

		gt := bytes.IndexByte(doc[i:], '>')
		if gt < 0 {
			break
		}
		gt += i
		if doc[gt-1] == '/' {
			spans = append(spans, models.ParagraphSpan{Start: i, End: gt + 1, SelfClosing: true})
			off = gt + 1
			continue
		}

		end := bytes.Index(doc[gt+1:], closeTag)
		if end < 0 {
			break
		}
		end += gt + 1 + len(closeTag)
		spans = append(spans, models.ParagraphSpan{Start: i, End: end})
		off = end
	}
	return spans
}

// paragraphText 取段落中所有 w:t 文本并拼接。
func paragraphText(raw []byte) string {
	matches := textRunRe.FindAllSubmatch(raw, -1)
	if len(matches) == 0 {
		return ""
	}
	var b strings.Builder
	for _, m := range matches {
		b.WriteString(unescapeXML(string(m[1])))
	}
	return strings.TrimSpace(b.String())
}

func paragraphFormat(raw []byte) models.FormatInfo {
	format := models.FormatInfo{}
	if m := paraStyleRe.FindSubmatch(raw); m != nil {
		format.StyleName = string(m[1])
	}
	if m := alignmentRe.FindSubmatch(raw); m != nil {
		format.Alignment = string(m[1])
	}
	if m := spacingLineRe.FindSubmatch(raw); m != nil {
		format.LineSpacing = string(m[1])
	}
	if m := firstLineRe.FindSubmatch(raw); m != nil {
		format.FirstLineIndent = string(m[1])
	}
	return format
}

// headingLevel 从段落样式名推断标题层级，非标题返回 0。
func headingLevel(style string) int {
	lower := strings.ToLower(style)
	if lower == "title" {
		return 1
	}
	if lower == "subtitle" {
		return 2
	}
	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if strings.HasPrefix(lower, prefix) {
			rest := strings.TrimSpace(lower[len(prefix):])
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '9' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

var xmlUnescaper = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

func unescapeXML(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return xmlUnescaper.Replace(s)
}
