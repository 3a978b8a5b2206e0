package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_NoscriptIsParsedAsElements(t *testing.T) {
	doc, err := Parse(`<html><body><noscript><img src="a.jpg"></noscript></body></html>`)
	require.NoError(t, err)

	assert.Equal(t, 1, doc.Find("noscript img").Length())
}

func TestParseFragment(t *testing.T) {
	body, err := ParseFragment(`<p>one</p><p>two</p>`)
	require.NoError(t, err)

	assert.Equal(t, "body", TagName(body.Get(0)))
	assert.Equal(t, "<p>one</p><p>two</p>", InnerHTML(body.Get(0)))
}

func TestFragmentHTML_KeepsHeadContent(t *testing.T) {
	doc, err := Parse(`<style>p{}</style><p>body</p>`)
	require.NoError(t, err)

	assert.Equal(t, "<style>p{}</style><p>body</p>", FragmentHTML(doc))
}

func TestOuterHTMLAndText(t *testing.T) {
	doc, err := Parse(`<div id="x">Hello <a href="/a">big</a>  world</div>`)
	require.NoError(t, err)

	div := doc.Find("#x").Get(0)
	assert.Equal(t, `<div id="x">Hello <a href="/a">big</a>  world</div>`, OuterHTML(div))
	assert.Equal(t, "Hello big  world", Text(div))
	assert.Equal(t, "Hello big world", NormalizeSpaces(Text(div)))
}

func TestAttrHelpers(t *testing.T) {
	doc, err := Parse(`<img class="lazy hero" data-src="x.jpg">`)
	require.NoError(t, err)

	img := doc.Find("img").Get(0)
	v, ok := Attr(img, "data-src")
	assert.True(t, ok)
	assert.Equal(t, "x.jpg", v)
	assert.Equal(t, "def", AttrOr(img, "src", "def"))
	assert.True(t, HasClass(img, "hero"))
	assert.False(t, HasClass(img, "her"))

	SetAttr(img, "src", "y.jpg")
	SetAttr(img, "data-src", "z.jpg")
	assert.Equal(t, "y.jpg", AttrOr(img, "src", ""))
	assert.Equal(t, "z.jpg", AttrOr(img, "data-src", ""))
}

func TestTreeMutations(t *testing.T) {
	body, err := ParseFragment(`<div><span id="s">a<b>b</b></span><p id="p">c</p></div>`)
	require.NoError(t, err)

	span := body.Find("#s").Get(0)
	Unwrap(span)
	assert.Equal(t, `<div>a<b>b</b><p id="p">c</p></div>`, InnerHTML(body.Get(0)))

	p := body.Find("#p").Get(0)
	Rename(p, "h2")
	assert.Equal(t, `<div>a<b>b</b><h2 id="p">c</h2></div>`, InnerHTML(body.Get(0)))
	assert.Equal(t, 1, body.Find("h2").Length())

	Remove(p)
	Remove(p)
	assert.Equal(t, `<div>a<b>b</b></div>`, InnerHTML(body.Get(0)))
}

func TestElementQueries(t *testing.T) {
	body, err := ParseFragment(`<section><h2>t</h2><ul><li>x</li></ul><p>y</p></section>`)
	require.NoError(t, err)

	section := body.Find("section").Get(0)
	assert.Len(t, Elements(section), 5)
	assert.Len(t, ElementsByTag(section, "li", "p"), 2)
	assert.True(t, HasDescendant(section, "ul"))
	assert.False(t, HasDescendant(section, "table"))

	p := body.Find("p").Get(0)
	assert.Equal(t, "ul", TagName(PrevElementSibling(p)))
	assert.True(t, HasAncestor(p, "section"))
	assert.False(t, HasAncestor(p, "head"))
}

func TestEscapeAttrAndIsVoid(t *testing.T) {
	assert.Equal(t, "a&amp;b&quot;&lt;c&gt;", EscapeAttr(`a&b"<c>`))
	assert.True(t, IsVoid("IMG"))
	assert.True(t, IsVoid("source"))
	assert.False(t, IsVoid("div"))
}
