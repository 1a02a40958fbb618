package converters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrewriter/internal/models"
)

func TestJSONConverterConvert(t *testing.T) {
	doc := &models.Document{
		SourcePath: "report.docx",
		Format:     models.FormatDocx,
		Blocks: []models.ContentBlock{
			{Type: models.BlockHeading, Content: "标题", HeadingLevel: 1, Index: 0},
			{Type: models.BlockText, Content: "正文", Index: 1},
			{Type: models.BlockImage, Index: 2, Image: &models.ImageInfo{Filename: "image_1234abcd.png"}},
			{Type: models.BlockFormula, Content: `\frac{a}{b}`, Index: 3, Formula: &models.FormulaInfo{Kind: models.FormulaOMML}},
		},
	}
	result := &models.Result{TotalBlocks: 4, TextBlocks: 2, CacheHits: 1, ElapsedMs: 120}

	report, err := NewJSONConverter().Convert(doc, result)
	require.NoError(t, err)

	assert.Equal(t, "completed", report.Status)
	assert.Equal(t, "report.docx", report.Source)
	assert.Equal(t, "docx", report.Format)
	require.Len(t, report.Blocks, 4)

	assert.Equal(t, "heading", report.Blocks[0].Type)
	assert.Equal(t, 1, report.Blocks[0].HeadingLevel)
	assert.Equal(t, "image_1234abcd.png", report.Blocks[2].ImageFile)
	assert.Empty(t, report.Blocks[2].Text)
	assert.Equal(t, "omml", report.Blocks[3].FormulaKind)

	assert.Equal(t, 4, report.Summary.TotalBlocks)
	assert.Equal(t, 1, report.Summary.CacheHits)
	assert.Equal(t, int64(120), report.Summary.ProcessingMs)
}

func TestJSONConverterRejectsEmpty(t *testing.T) {
	_, err := NewJSONConverter().Convert(&models.Document{}, nil)
	assert.Error(t, err)
}
