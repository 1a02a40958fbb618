package writer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrewriter/internal/models"
	"docrewriter/pkg/logger"
)

func TestMarkdownWriter(t *testing.T) {
	tmp := t.TempDir()
	imgSrc := filepath.Join(tmp, "image_abcd1234.png")
	require.NoError(t, os.WriteFile(imgSrc, []byte("png-bytes"), 0o644))

	doc := &models.Document{
		Format: models.FormatDocx,
		Blocks: []models.ContentBlock{
			{Type: models.BlockHeading, Content: "标题", HeadingLevel: 2, Index: 0},
			{Type: models.BlockText, Content: "正文段落。", Index: 1},
			{Type: models.BlockFormula, Content: `\alpha+\beta`, Index: 2, Formula: &models.FormulaInfo{Kind: models.FormulaOMML}},
			{Type: models.BlockImage, Index: 3, Image: &models.ImageInfo{
				Path:     imgSrc,
				Filename: "image_abcd1234.png",
			}},
		},
	}

	out := filepath.Join(tmp, "md", "out.md")
	w := NewMarkdownWriter(logger.NewTestLogger())
	copied, err := w.Write(doc, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	md := string(data)

	assert.Contains(t, md, "## 标题\n\n")
	assert.Contains(t, md, "正文段落。\n\n")
	assert.Contains(t, md, `$$\alpha+\beta$$`)
	assert.Contains(t, md, "![image_abcd1234.png](./images/image_abcd1234.png)")

	require.Len(t, copied, 1)
	assert.Equal(t, filepath.Join(tmp, "md", "images", "image_abcd1234.png"), copied[0])
	got, err := os.ReadFile(copied[0])
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(got))
}

func TestMarkdownWriterMissingImage(t *testing.T) {
	doc := &models.Document{
		Blocks: []models.ContentBlock{
			{Type: models.BlockText, Content: "文字", Index: 0},
			{Type: models.BlockImage, Index: 1, Image: &models.ImageInfo{
				Path:     "/nonexistent/image_x.png",
				Filename: "image_x.png",
			}},
		},
	}

	out := filepath.Join(t.TempDir(), "out.md")
	w := NewMarkdownWriter(logger.NewTestLogger())
	copied, err := w.Write(doc, out)
	require.NoError(t, err)
	assert.Empty(t, copied)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	// 复制失败的图片不入文
	assert.NotContains(t, string(data), "image_x.png")
	assert.Contains(t, string(data), "文字")
}
