package extractor

import (
	"bytes"
	"regexp"
	"strings"

	"docrewriter/internal/models"
)

var mathTextRe = regexp.MustCompile(`(?s)<m:t(?:\s[^>]*)?>(.*?)</m:t>`)

// latexMarkers 成对出现才算公式
var latexMarkers = [][2]string{
	{`\begin{equation}`, `\end{equation}`},
	{`\begin{align}`, `\end{align}`},
	{`\[`, `\]`},
	{"$$", "$$"},
	{"$", "$"},
}

var latexCommands = []string{
	`\frac`, `\sum`, `\int`, `\prod`, `\alpha`, `\beta`,
	`\Delta`, `\partial`, `\infty`, `\in`, `\subset`,
}

// mathSymbols Unicode 数学符号到 LaTeX 命令的映射，用于公式文本的展示形式
var mathSymbols = map[string]string{
	"α": `\alpha`, "β": `\beta`, "γ": `\gamma`, "δ": `\delta`,
	"ε": `\epsilon`, "ζ": `\zeta`, "η": `\eta`, "θ": `\theta`,
	"ι": `\iota`, "κ": `\kappa`, "λ": `\lambda`, "μ": `\mu`,
	"ν": `\nu`, "ξ": `\xi`, "π": `\pi`, "ρ": `\rho`,
	"σ": `\sigma`, "τ": `\tau`, "υ": `\upsilon`, "φ": `\phi`,
	"χ": `\chi`, "ψ": `\psi`, "ω": `\omega`,
	"±": `\pm`, "×": `\times`, "÷": `\div`, "∑": `\sum`,
	"∏": `\prod`, "∫": `\int`, "∂": `\partial`, "∞": `\infty`,
	"≠": `\neq`, "≤": `\leq`, "≥": `\geq`, "≈": `\approx`,
}

// formulaBlock 把包含 OMML 的段落转成公式块。
// RawXML 保存原始公式字节，保证输出与输入逐字节一致。
func (e *Extractor) formulaBlock(raw []byte, format models.FormatInfo) *models.ContentBlock {
	rawXML := extractOMMLRange(raw)
	return &models.ContentBlock{
		Type:    models.BlockFormula,
		Content: ommlText(rawXML),
		Format:  format,
		Formula: &models.FormulaInfo{
			Kind:   models.FormulaOMML,
			RawXML: string(rawXML),
		},
	}
}

// extractOMMLRange 取段落中第一个 m:oMathPara（或 m:oMath）的完整字节区间。
func extractOMMLRange(raw []byte) []byte {
	if r := elementRange(raw, "m:oMathPara"); r != nil {
		return r
	}
	if r := elementRange(raw, "m:oMath"); r != nil {
		return r
	}
	return nil
}

func elementRange(raw []byte, name string) []byte {
	open := []byte("<" + name)
	closeTag := []byte("</" + name + ">")

	i := bytes.Index(raw, open)
	if i < 0 {
		return nil
	}
	// 排除同前缀的其他标签（m:oMath vs m:oMathPara）
	if j := i + len(open); j < len(raw) {
		if c := raw[j]; c != ' ' && c != '>' && c != '/' {
			return nil
		}
	}
	end := bytes.Index(raw[i:], closeTag)
	if end < 0 {
		return nil
	}
	return raw[i : i+end+len(closeTag)]
}

// ommlText 抽取 OMML 公式的纯文本，常见数学符号替换为 LaTeX 命令。
func ommlText(rawXML []byte) string {
	matches := mathTextRe.FindAllSubmatch(rawXML, -1)
	var b strings.Builder
	for _, m := range matches {
		b.WriteString(unescapeXML(string(m[1])))
	}
	text := b.String()
	for symbol, cmd := range mathSymbols {
		text = strings.ReplaceAll(text, symbol, cmd)
	}
	return text
}

// containsLaTeXFormula 判断纯文本段落是否是 LaTeX 风格公式。
func containsLaTeXFormula(text string) bool {
	for _, pair := range latexMarkers {
		start := strings.Index(text, pair[0])
		if start < 0 {
			continue
		}
		end := strings.Index(text[start+len(pair[0]):], pair[1])
		if end >= 0 {
			return true
		}
	}

	count := 0
	for _, cmd := range latexCommands {
		if strings.Contains(text, cmd) {
			count++
		}
	}
	return count >= 2
}

// ContainsFormulaMarkers 重写前的最后一道防线：包含公式标记的文本不送 API。
func ContainsFormulaMarkers(text string) bool {
	markers := []string{
		`\begin{equation}`, `\end{equation}`, `\begin{align}`, `\end{align}`,
		"$", `\frac`, `\sum`, `\int`, `\alpha`, `\beta`, `\gamma`,
		"<m:oMath", "<m:r>", "<m:t>", "<m:f>", "<m:num>", "<m:den>",
	}
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
