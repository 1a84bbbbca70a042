package compress

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"irregular spacing", "@create  foo   =   bar", "@create foo = bar"},
		{"tabs and newlines", "@pemit\tme =\n  hi", "@pemit me = hi"},
		{"brackets", "think [add(1,2)]   [sub(3,1)]", "think [add(1,2)][sub(3,1)]"},
		{"every bracket pair", "x [a] [b]  [c]", "x [a][b][c]"},
		{"substitutions", "@pemit me=one %r two %t three", "@pemit me=one%rtwo%tthree"},
		{"upper case substitutions", "@pemit me=a %R b %T c", "@pemit me=a%Rb%Tc"},
		{"trim", "   @pemit me=x   ", "@pemit me=x"},
		{"empty", "  \t ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestBlocks(t *testing.T) {
	text := strings.Join([]string{
		"preamble text",
		"@create Widget",
		"&CMD.GO Widget=$go:",
		"    @pemit %#=Going.;",
		"    @tel %#=#0",
		"",
		"@@ note",
		"-",
		"trailing words",
		"@set Widget=safe",
	}, "\n")
	want := []string{
		"preamble text",
		"@create Widget",
		"&CMD.GO Widget=$go:     @pemit %#=Going.;     @tel %#=#0",
		"@@ note",
		"trailing words",
		"@set Widget=safe",
	}
	if diff := cmp.Diff(want, Blocks(text)); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestIndentedCommandIsContinuation(t *testing.T) {
	assert.Equal(t, []string{"@switch x=   @pemit me=y"}, Blocks("@switch x=\n  @pemit me=y"))
}

func TestCompressKeepsOrder(t *testing.T) {
	text := "@pemit me=B1\n  first\n@pemit me=B2\n&B3 me=\n  third"
	got, errs := Compress(text, Options{})
	assert.Empty(t, errs)
	want := "@pemit me=B1 first\n@pemit me=B2\n&B3 me= third"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("compress mismatch (-want +got):\n%s", diff)
	}
}

func TestCompressDropsEmptyBlocks(t *testing.T) {
	got, _ := Compress("-\n\n   \n-\n@pemit me=x\n-\n-", Options{})
	assert.Equal(t, "@pemit me=x", got)
}

func TestCompressInjectedFile(t *testing.T) {
	got, _ := Compress("@@ first\n-\n@@ \n-\n@@ third\n-\n@pemit me=done", Options{})
	assert.Equal(t, "@@ first\n@@\n@@ third\n@pemit me=done", got)
}

func TestCompressLineLimit(t *testing.T) {
	long := "@pemit me=" + strings.Repeat("x", 50)
	got, errs := Compress("@pemit me=short\n"+long, Options{MaxLineLength: 30})
	assert.Equal(t, "@pemit me=short\n"+long, got)
	require.Len(t, errs, 1)

	var cerr *CompressionError
	require.ErrorAs(t, errs[0], &cerr)
	assert.Equal(t, 1, cerr.Block)
	assert.Equal(t, 60, cerr.Length)
	assert.Contains(t, cerr.Error(), "block 2 is 60 bytes long (limit 30)")
}

func TestStartsBlock(t *testing.T) {
	assert.True(t, StartsBlock("@create x"))
	assert.True(t, StartsBlock("&attr obj=val"))
	assert.False(t, StartsBlock(" @create x"))
	assert.False(t, StartsBlock("think hi"))
}
