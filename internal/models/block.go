package models

// BlockType 内容块类型
type BlockType string

const (
	BlockText    BlockType = "text"
	BlockHeading BlockType = "heading"
	BlockImage   BlockType = "image"
	BlockFormula BlockType = "formula"
)

// FormulaKind 公式的来源形式
type FormulaKind string

const (
	FormulaOMML  FormulaKind = "omml"
	FormulaLaTeX FormulaKind = "latex"
)

// FormatInfo 段落级格式信息，从源文档带到输出文档
type FormatInfo struct {
	StyleName       string `json:"styleName,omitempty"`
	Alignment       string `json:"alignment,omitempty"`
	LineSpacing     string `json:"lineSpacing,omitempty"`
	FirstLineIndent string `json:"firstLineIndent,omitempty"`
}

// ImageInfo 提取出来的图片信息
type ImageInfo struct {
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	// Placement is "inline" or "anchor" for DrawingML images, "shape" for VML.
	Placement string `json:"placement,omitempty"`
	WidthEMU  string `json:"widthEmu,omitempty"`
	HeightEMU string `json:"heightEmu,omitempty"`
}

// FormulaInfo 公式信息。RawXML 保留原始 OMML 字节，写回时原样输出。
type FormulaInfo struct {
	Kind   FormulaKind `json:"kind"`
	RawXML string      `json:"-"`
}

// ContentBlock 处理流水线中的最小内容单元。
// Index 是块在文档中的稳定位置，端到端保持不变。
type ContentBlock struct {
	Type         BlockType   `json:"type"`
	Content      string      `json:"content,omitempty"`
	Index        int         `json:"index"`
	HeadingLevel int         `json:"headingLevel,omitempty"`
	Format       FormatInfo  `json:"format,omitempty"`
	Image        *ImageInfo  `json:"image,omitempty"`
	Formula      *FormulaInfo `json:"formula,omitempty"`

	// ParaIndex is the ordinal of the source w:p element this block came
	// from, used by the writer to splice rewritten text back in place.
	// -1 for blocks that do not map to a paragraph.
	ParaIndex int `json:"-"`
}

// IsRewritable 是否应该送去重写。图片和公式永远不送 API。
func (b *ContentBlock) IsRewritable() bool {
	return (b.Type == BlockText || b.Type == BlockHeading) && b.Content != ""
}

// JobState 重写任务状态
type JobState string

const (
	JobPending  JobState = "pending"
	JobInFlight JobState = "in-flight"
	JobDone     JobState = "done"
	JobFailed   JobState = "failed"
)

// Job 一个等待重写的文本块
type Job struct {
	Block    *ContentBlock
	State    JobState
	CacheHit bool
	Err      error
}
