package document

import (
	"archive/zip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrewriter/internal/cache"
	"docrewriter/internal/extractor"
	"docrewriter/internal/rewrite"
	"docrewriter/internal/writer"
	"docrewriter/pkg/converters"
	"docrewriter/pkg/logger"
)

type echoProvider struct{}

func (echoProvider) Name() string  { return "echo" }
func (echoProvider) Model() string { return "echo-1" }
func (echoProvider) Rewrite(_ context.Context, text string) (string, error) {
	return "改写：" + text, nil
}

const pipelineDocXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:m="http://schemas.openxmlformats.org/officeDocument/2006/math"><w:body>` +
	`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>报告标题</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t>这是正文。</w:t></w:r></w:p>` +
	`<w:p><m:oMathPara><m:oMath><m:r><m:t>a+b</m:t></m:r></m:oMath></m:oMathPara></w:p>` +
	`</w:body></w:document>`

func writeTestDocx(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "report.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, data := range map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml":            pipelineDocXML,
		"word/_rels/document.xml.rels": `<?xml version="1.0"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"/>`,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(data))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func newTestPipeline(t *testing.T, outputDir string) *Pipeline {
	t.Helper()
	log := logger.NewTestLogger()
	dirs := DefaultDirs(outputDir)

	store, err := cache.NewFileStore(filepath.Join(outputDir, "cache"), log)
	require.NoError(t, err)

	dispatcher := rewrite.NewDispatcher(echoProvider{}, store, log, rewrite.DispatcherConfig{
		Workers:    2,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})

	return NewPipeline(
		extractor.NewExtractor(dirs.Images, log),
		dispatcher,
		writer.NewDocxWriter(log),
		writer.NewMarkdownWriter(log),
		dirs,
		log,
	)
}

func TestPipelineProcessFile(t *testing.T) {
	outputDir := t.TempDir()
	input := writeTestDocx(t, t.TempDir())

	p := newTestPipeline(t, outputDir)
	result, err := p.ProcessFile(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalBlocks)
	assert.Equal(t, 2, result.TextBlocks)
	assert.Equal(t, 0, result.Failed)

	// 产物落在标准目录，文件名带时间戳
	require.NotEmpty(t, result.DocxPath)
	assert.Equal(t, filepath.Join(outputDir, "docx_files"), filepath.Dir(result.DocxPath))
	assert.True(t, strings.HasPrefix(filepath.Base(result.DocxPath), "report_"))
	_, err = os.Stat(result.DocxPath)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outputDir, "markdown_files"), filepath.Dir(result.MarkdownPath))
	md, err := os.ReadFile(result.MarkdownPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "# 改写：报告标题")
	assert.Contains(t, string(md), "改写：这是正文。")
	assert.Contains(t, string(md), "$$a+b$$")

	// 重写结果写回 docx
	r, err := zip.OpenReader(result.DocxPath)
	require.NoError(t, err)
	defer r.Close()
	var docXML string
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			rc.Close()
			require.NoError(t, err)
			docXML = string(data)
		}
	}
	assert.Contains(t, docXML, "改写：报告标题")
	assert.Contains(t, docXML, `<m:t>a+b</m:t>`)

	// 运行清单
	reportPath := strings.TrimSuffix(result.MarkdownPath, ".md") + ".json"
	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report converters.RewriteReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "completed", report.Status)
	assert.Len(t, report.Blocks, 3)
	assert.Equal(t, 3, report.Summary.TotalBlocks)
}

func TestPipelineSecondRunHitsCache(t *testing.T) {
	outputDir := t.TempDir()
	input := writeTestDocx(t, t.TempDir())
	p := newTestPipeline(t, outputDir)

	first, err := p.ProcessFile(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 0, first.CacheHits)

	second, err := p.ProcessFile(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 2, second.CacheHits)
}
