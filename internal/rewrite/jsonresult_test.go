package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractRewriteResult(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{
			name: "bare json",
			in:   `{"重写结果": "重写后的内容"}`,
			want: "重写后的内容",
			ok:   true,
		},
		{
			name: "fenced json",
			in:   "```json\n{\"重写结果\": \"围栏里的内容\"}\n```",
			want: "围栏里的内容",
			ok:   true,
		},
		{
			name: "json with surrounding prose",
			in:   `好的，以下是重写结果：{"重写结果": "夹在说明里的内容"}希望有帮助。`,
			want: "夹在说明里的内容",
			ok:   true,
		},
		{
			name: "escaped quotes",
			in:   `{"重写结果": "他说：\"你好\"。"}`,
			want: `他说："你好"。`,
			ok:   true,
		},
		{
			name: "multiline content",
			in:   "{\"重写结果\": \"第一行\\n第二行\"}",
			want: "第一行\n第二行",
			ok:   true,
		},
		{
			name: "missing key",
			in:   `{"结果": "别的键"}`,
			ok:   false,
		},
		{
			name: "empty value",
			in:   `{"重写结果": ""}`,
			ok:   false,
		},
		{
			name: "not json at all",
			in:   `模型直接返回了一段话，没有任何结构。`,
			ok:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := extractRewriteResult(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}
