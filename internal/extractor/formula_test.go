package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsLaTeXFormula(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"paired dollars", `能量公式 $E=mc^2$ 很有名`, true},
		{"paired display", `\[ x^2 + y^2 = z^2 \]`, true},
		{"equation env", `\begin{equation}a=b\end{equation}`, true},
		{"two commands", `分数 \frac{1}{2} 与求和 \sum_i`, true},
		{"single command only", `见 \frac{1}{2}`, false},
		{"unpaired dollar", `价格是 $50`, false},
		{"plain text", `这是一段普通的中文段落。`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, containsLaTeXFormula(tc.text))
		})
	}
}

func TestContainsFormulaMarkers(t *testing.T) {
	assert.True(t, ContainsFormulaMarkers(`$x$`))
	assert.True(t, ContainsFormulaMarkers(`<m:oMath>`))
	assert.True(t, ContainsFormulaMarkers(`\sum_{i=1}^n`))
	assert.False(t, ContainsFormulaMarkers(`普通文本，没有任何公式痕迹`))
}

func TestElementRangePrefixCollision(t *testing.T) {
	raw := []byte(`<w:p><m:oMathPara><m:oMath><m:r><m:t>x</m:t></m:r></m:oMath></m:oMathPara></w:p>`)

	// m:oMath 的查找不能落在 m:oMathPara 上
	got := elementRange(raw, "m:oMathPara")
	assert.Equal(t, `<m:oMathPara><m:oMath><m:r><m:t>x</m:t></m:r></m:oMath></m:oMathPara>`, string(got))

	inner := []byte(`<w:p><m:oMath><m:r><m:t>y</m:t></m:r></m:oMath></w:p>`)
	assert.Nil(t, elementRange(inner, "m:oMathPara"))
	assert.Equal(t, `<m:oMath><m:r><m:t>y</m:t></m:r></m:oMath>`, string(elementRange(inner, "m:oMath")))
}

func TestOmmlText(t *testing.T) {
	raw := []byte(`<m:oMath><m:r><m:t>∑x≤y</m:t></m:r><m:r><m:t xml:space="preserve"> ±1</m:t></m:r></m:oMath>`)
	assert.Equal(t, `\sumx\leqy \pm1`, ommlText(raw))
}
