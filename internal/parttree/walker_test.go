package parttree

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enc(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func mustAdd(t *testing.T, tree *Tree, parent int, p Part) int {
	t.Helper()
	idx, err := tree.Add(parent, p)
	require.NoError(t, err)
	return idx
}

func TestExtractBody_SinglePlainLeaf(t *testing.T) {
	tree := New(Leaf("text/plain", enc("Hello there")))

	assert.Equal(t, "Hello there", ExtractBody(tree))
}

func TestExtractBody_PlainWinsOverEarlierHTML(t *testing.T) {
	tree := New(Container("multipart/alternative"))
	mustAdd(t, tree, Root, Leaf("text/html", enc("<p>markup version</p>")))
	mustAdd(t, tree, Root, Leaf("text/plain", enc("plain version")))

	assert.Equal(t, "plain version", ExtractBody(tree))
}

func TestExtractBody_HTMLOnlyIsConverted(t *testing.T) {
	tree := New(Container("multipart/mixed"))
	mustAdd(t, tree, Root, Leaf("text/html", enc("<html><body><h1>Agenda</h1><p>Bring notes</p></body></html>")))

	body := ExtractBody(tree)

	assert.Contains(t, body, "Agenda")
	assert.Contains(t, body, "Bring notes")
	assert.NotContains(t, body, "<p>")
	assert.NotContains(t, body, "<h1>")
}

func TestExtractBody_NestedContainerBeforeLaterSibling(t *testing.T) {
	tree := New(Container("multipart/mixed"))
	alt := mustAdd(t, tree, Root, Container("multipart/alternative"))
	mustAdd(t, tree, alt, Leaf("text/plain", enc("nested text")))
	mustAdd(t, tree, Root, Leaf("text/plain", enc("later sibling")))

	assert.Equal(t, "nested text", ExtractBody(tree))
}

func TestExtractBody_EmptyNestedLetsParentContinue(t *testing.T) {
	tree := New(Container("multipart/mixed"))
	alt := mustAdd(t, tree, Root, Container("multipart/alternative"))
	mustAdd(t, tree, alt, Leaf("image/png", enc("png bytes")))
	mustAdd(t, tree, Root, Leaf("text/plain", enc("outer text")))

	assert.Equal(t, "outer text", ExtractBody(tree))
}

func TestExtractBody_NestedHTMLConverted(t *testing.T) {
	tree := New(Container("multipart/mixed"))
	alt := mustAdd(t, tree, Root, Container("multipart/related"))
	mustAdd(t, tree, alt, Leaf("text/html", enc("<div>Only <b>html</b> here</div>")))
	mustAdd(t, tree, Root, Leaf("application/pdf", enc("%PDF")).WithFile("a.pdf", 4))

	body := ExtractBody(tree)

	assert.Contains(t, body, "Only")
	assert.NotContains(t, body, "<div>")
}

func TestExtractBody_DeepNesting(t *testing.T) {
	tree := New(Container("multipart/mixed"))
	parent := Root
	for i := 0; i < 500; i++ {
		parent = mustAdd(t, tree, parent, Container("multipart/mixed"))
	}
	mustAdd(t, tree, parent, Leaf("text/plain", enc("bottom")))

	assert.Equal(t, "bottom", ExtractBody(tree))
}

func TestExtractBody_ContentTypeParametersIgnored(t *testing.T) {
	tree := New(Container("multipart/alternative"))
	mustAdd(t, tree, Root, Leaf("Text/Plain; charset=\"UTF-8\"", enc("with params")))

	assert.Equal(t, "with params", ExtractBody(tree))
}

func TestExtractBody_UnpaddedData(t *testing.T) {
	tree := New(Leaf("text/plain", base64.RawURLEncoding.EncodeToString([]byte("no padding!"))))

	assert.Equal(t, "no padding!", ExtractBody(tree))
}

func TestExtractBody_InvalidBase64YieldsEmpty(t *testing.T) {
	tree := New(Leaf("text/plain", "***not base64***"))

	assert.Equal(t, "", ExtractBody(tree))
}

func TestExtractBody_InvalidUTF8Dropped(t *testing.T) {
	raw := []byte{'o', 'k', 0xff, 0xfe, '!'}
	tree := New(Leaf("text/plain", base64.URLEncoding.EncodeToString(raw)))

	assert.Equal(t, "ok!", ExtractBody(tree))
}

func TestExtractBody_NoText(t *testing.T) {
	tree := New(Container("multipart/mixed"))
	mustAdd(t, tree, Root, Leaf("image/jpeg", enc("jpeg")).WithFile("photo.jpg", 4))
	mustAdd(t, tree, Root, Leaf("text/plain", ""))

	assert.Equal(t, "", ExtractBody(tree))
	assert.Equal(t, "", ExtractBody(nil))
}

func TestExtractBody_LeafWithoutDataSkipped(t *testing.T) {
	tree := New(Container("multipart/alternative"))
	mustAdd(t, tree, Root, Leaf("text/plain", ""))
	mustAdd(t, tree, Root, Leaf("text/html", enc("<p>fallback</p>")))

	assert.Contains(t, ExtractBody(tree), "fallback")
}

func TestTreeAdd_RejectsLeafParent(t *testing.T) {
	tree := New(Leaf("text/plain", enc("x")))

	_, err := tree.Add(Root, Leaf("text/plain", enc("y")))

	require.ErrorIs(t, err, ErrNotContainer)
	assert.Equal(t, 1, tree.Len())
}

func TestTreeAdd_OutOfRange(t *testing.T) {
	tree := New(Container("multipart/mixed"))

	_, err := tree.Add(7, Leaf("text/plain", enc("y")))

	assert.Error(t, err)
}
