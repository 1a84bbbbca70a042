package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanner_BasicIteration(t *testing.T) {
	sc := New("ab")
	assert.Equal(t, -1, sc.Pos())
	ch, ok := sc.Next()
	require.True(t, ok)
	assert.Equal(t, byte('a'), ch)
	assert.Equal(t, 0, sc.Pos())

	ch, ok = sc.Next()
	require.True(t, ok)
	assert.Equal(t, byte('b'), ch)

	_, ok = sc.Next()
	assert.False(t, ok)
}

func TestScanner_LineTracking(t *testing.T) {
	sc := New("a\nb\nc")
	sc.Next() // a
	assert.Equal(t, 1, sc.Line())
	sc.Next() // \n
	assert.Equal(t, 2, sc.Line())
	sc.Next() // b
	sc.Next() // \n
	sc.Next() // c
	assert.Equal(t, 3, sc.Line())
}

func TestScanner_BlockCommentSpan(t *testing.T) {
	sc := New("a /* b */ c")
	var code, comment []byte
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.InComment() {
			comment = append(comment, ch)
		} else {
			code = append(code, ch)
		}
	}
	assert.Equal(t, "a  c", string(code))
	assert.Equal(t, "/* b */", string(comment))
}

func TestScanner_LineCommentEndsAtNewline(t *testing.T) {
	sc := New("x // note\ny")
	var code []byte
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.InCode() {
			code = append(code, ch)
		}
	}
	assert.Equal(t, "x \ny", string(code))
}

func TestScanner_UnterminatedBlock(t *testing.T) {
	sc := New("a /* never closed")
	for _, ok := sc.Next(); ok; _, ok = sc.Next() {
	}
	assert.True(t, sc.Unterminated())
}

func TestScanner_LookingAt(t *testing.T) {
	sc := New("<!-- x -->")
	assert.False(t, sc.LookingAt("<"))
	sc.Next()
	assert.True(t, sc.LookingAt("<!--"))
	assert.True(t, sc.InComment())
}

func TestStrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"line comment", "@pemit me=hi // greet\n", "@pemit me=hi \n"},
		{"full line comment", "// header\n@pemit me=hi", "\n@pemit me=hi"},
		{"block comment", "@set me=dark /* inline */", "@set me=dark "},
		{"glued opener is code", "@set me=/* x */", "@set me=/* x */"},
		{"multi-line block keeps newlines", "a\n/* one\ntwo */\nb", "a\n\n\nb"},
		{"markup comment", "<!-- note -->\n@pemit me=x", "\n@pemit me=x"},
		{"url survives", "#header url = https://example.com/x", "#header url = https://example.com/x"},
		{"wildcard survives", "@dolist lattr(me/*)=@pemit me=##", "@dolist lattr(me/*)=@pemit me=##"},
		{"escaped line comment", `@pemit me=a \// b`, `@pemit me=a \// b`},
		{"escaped block comment", `@pemit me=\/* b */`, `@pemit me=\/* b */`},
		{"comment after tab", "@pemit me=x\t// y", "@pemit me=x\t"},
		{"no comments", "&cmd me=$+x:@pemit %#=y", "&cmd me=$+x:@pemit %#=y"},
		{"empty block", "a /**/ b", "a  b"},
		{"slash star slash stays open", "a /*/ b */ c", "a  c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, line := Strip(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Zero(t, line)
		})
	}
}

func TestStripUnterminated(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		line int
	}{
		{
			"block opener keeps the rest",
			"@pemit me=one /* oops\n@pemit me=two\n&attr me=three",
			"@pemit me=one /* oops\n@pemit me=two\n&attr me=three",
			1,
		},
		{
			"comments after the opener are still stripped",
			"@pemit me=a\n/* open\n@pemit me=b // note\n<!-- x -->\n&c me=d",
			"@pemit me=a\n/* open\n@pemit me=b \n\n&c me=d",
			2,
		},
		{
			"closed comment before the opener",
			"/* ok */@set me=x\n<!-- never",
			"@set me=x\n<!-- never",
			2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, line := Strip(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.line, line)
		})
	}
}
