package assemble

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rubiojr/mufmt/preprocess"
	"github.com/stretchr/testify/assert"
)

func TestMetaLine(t *testing.T) {
	assert.Equal(t, "@@ name                 demo", MetaLine(preprocess.Meta{Name: "name", Value: "demo"}))
	assert.Equal(t,
		"@@ a_name_longer_than_twenty value",
		MetaLine(preprocess.Meta{Name: "a_name_longer_than_twenty", Value: "value"}))
}

func TestAssemble(t *testing.T) {
	got := Assemble(Document{
		Headers: []preprocess.Meta{{Name: "name", Value: "demo"}, {Name: "author", Value: "Jane"}},
		Footers: []preprocess.Meta{{Name: "license", Value: "MIT"}},
		Body:    "@cmd one\nbody-line",
	})
	want := "@@ name                 demo\n" +
		"@@ author               Jane\n" +
		"\n" +
		"@cmd one\nbody-line\n" +
		"\n" +
		"@@ license              MIT\n" +
		"@@\n@@ Formatted with mufmt\n@@\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("assembled text mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleWithoutHeaders(t *testing.T) {
	got := Assemble(Document{Body: "@pemit me=x"})
	assert.Equal(t, "@pemit me=x\n\n@@\n@@ Formatted with mufmt\n@@\n", got)
}
