package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrewriter/internal/models"
	"docrewriter/pkg/logger"
)

const testRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// buildDocx 在临时目录拼一个最小可用的 docx
func buildDocx(t *testing.T, documentXML string, media map[string][]byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sample.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	entries := map[string][]byte{
		"[Content_Types].xml":          []byte(`<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`),
		"word/document.xml":            []byte(documentXML),
		"word/_rels/document.xml.rels": []byte(testRels),
	}
	for name, data := range media {
		entries["word/media/"+name] = data
	}
	for name, data := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:m="http://schemas.openxmlformats.org/officeDocument/2006/math" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><w:body>` +
	`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>引言</w:t></w:r></w:p>` +
	`<w:p><w:pPr><w:jc w:val="center"/><w:spacing w:line="360"/><w:ind w:firstLine="420"/></w:pPr><w:r><w:t>第一段</w:t></w:r><w:r><w:t xml:space="preserve">内容 &amp; 补充</w:t></w:r></w:p>` +
	`<w:p><m:oMathPara><m:oMath><m:r><m:t>α+β=γ</m:t></m:r></m:oMath></m:oMathPara></w:p>` +
	`<w:p><w:r><w:drawing><wp:inline><wp:extent cx="914400" cy="457200"/><a:blip r:embed="rId1"/></wp:inline></w:drawing></w:r></w:p>` +
	`<w:p/>` +
	`<w:p><w:r><w:t>结论</w:t></w:r></w:p>` +
	`</w:body></w:document>`

func TestExtractDocx(t *testing.T) {
	imagesDir := filepath.Join(t.TempDir(), "images")
	path := buildDocx(t, sampleDocumentXML, map[string][]byte{"image1.png": pngBytes(t)})

	e := NewExtractor(imagesDir, logger.NewTestLogger())
	doc, err := e.ExtractFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, models.FormatDocx, doc.Format)
	require.Len(t, doc.Blocks, 5)

	// 标题
	assert.Equal(t, models.BlockHeading, doc.Blocks[0].Type)
	assert.Equal(t, 1, doc.Blocks[0].HeadingLevel)
	assert.Equal(t, "引言", doc.Blocks[0].Content)

	// 正文：多个 w:t 拼接，实体还原，格式属性带出
	assert.Equal(t, models.BlockText, doc.Blocks[1].Type)
	assert.Equal(t, "第一段内容 & 补充", doc.Blocks[1].Content)
	assert.Equal(t, "center", doc.Blocks[1].Format.Alignment)
	assert.Equal(t, "360", doc.Blocks[1].Format.LineSpacing)
	assert.Equal(t, "420", doc.Blocks[1].Format.FirstLineIndent)

	// OMML 公式：原始字节保留，文本转 LaTeX 符号
	formula := doc.Blocks[2]
	assert.Equal(t, models.BlockFormula, formula.Type)
	require.NotNil(t, formula.Formula)
	assert.Equal(t, models.FormulaOMML, formula.Formula.Kind)
	assert.True(t, strings.HasPrefix(formula.Formula.RawXML, "<m:oMathPara"))
	assert.True(t, strings.HasSuffix(formula.Formula.RawXML, "</m:oMathPara>"))
	assert.Equal(t, `\alpha+\beta=\gamma`, formula.Content)

	// 图片：落盘且文件名规范
	img := doc.Blocks[3]
	assert.Equal(t, models.BlockImage, img.Type)
	require.NotNil(t, img.Image)
	assert.True(t, strings.HasPrefix(img.Image.Filename, "image_"))
	assert.Equal(t, ".png", filepath.Ext(img.Image.Filename))
	assert.Equal(t, "image/png", img.Image.ContentType)
	assert.Equal(t, "inline", img.Image.Placement)
	assert.Equal(t, "914400", img.Image.WidthEMU)
	_, err = os.Stat(img.Image.Path)
	assert.NoError(t, err)

	// 空段落跳过，顺序保持
	assert.Equal(t, models.BlockText, doc.Blocks[4].Type)
	assert.Equal(t, "结论", doc.Blocks[4].Content)
	for i, b := range doc.Blocks {
		assert.Equal(t, i, b.Index)
	}
}

func TestExtractFileUnsupportedFormat(t *testing.T) {
	e := NewExtractor(t.TempDir(), logger.NewTestLogger())
	_, err := e.ExtractFile(context.Background(), "notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestScanParagraphs(t *testing.T) {
	doc := []byte(`<w:body><w:p><w:pPr><w:pStyle w:val="x"/></w:pPr><w:r><w:t>a</w:t></w:r></w:p><w:p/><w:p ><w:r><w:t>b</w:t></w:r></w:p></w:body>`)
	spans := scanParagraphs(doc)
	require.Len(t, spans, 3)

	assert.False(t, spans[0].SelfClosing)
	assert.True(t, bytes.HasPrefix(doc[spans[0].Start:spans[0].End], []byte("<w:p>")))
	assert.True(t, bytes.HasSuffix(doc[spans[0].Start:spans[0].End], []byte("</w:p>")))

	assert.True(t, spans[1].SelfClosing)
	assert.Equal(t, "<w:p/>", string(doc[spans[1].Start:spans[1].End]))

	assert.False(t, spans[2].SelfClosing)
	assert.Contains(t, string(doc[spans[2].Start:spans[2].End]), ">b<")
}

func TestHeadingLevel(t *testing.T) {
	cases := []struct {
		style string
		level int
	}{
		{"Heading1", 1},
		{"heading 3", 3},
		{"Title", 1},
		{"Subtitle", 2},
		{"Titre2", 2},
		{"berschrift1", 0},
		{"Überschrift1", 1},
		{"Normal", 0},
		{"", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, headingLevel(tc.style), "style %q", tc.style)
	}
}
