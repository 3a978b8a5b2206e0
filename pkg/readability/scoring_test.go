package readability

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/shouni/go-web-reader/pkg/dom"
)

func first(t *testing.T, src, css string) *html.Node {
	t.Helper()
	doc, err := dom.Parse(src)
	require.NoError(t, err)
	n := doc.Find(css).Get(0)
	require.NotNil(t, n, css)
	return n
}

func TestScoreParagraph(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{"空", "   ", 0},
		{"短い段落は減点", "Hi", -10},
		{"カンマを数える", "a, b, c", -8},
		{"中程度の長さはボーナス", strings.Repeat("a", 60), 6},
		{"長い段落はボーナスなし", strings.Repeat("a", 250), 5},
		{"前後の空白は無視", "  " + strings.Repeat("a", 60) + "  ", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ScoreParagraph(tt.text))
		})
	}
}

func TestScoreNode(t *testing.T) {
	tests := []struct {
		src      string
		css      string
		expected int
	}{
		{"<div>x</div>", "div", 5},
		{"<ul><li>item</li></ul>", "ul", 3},
		{"<blockquote>q</blockquote>", "blockquote", 3},
		{"<form></form>", "form", -3},
		{"<table><tr><th>h</th></tr></table>", "th", -5},
		{"<section>s</section>", "section", 0},
		{"<p>Hi</p>", "p", -10},
	}

	for _, tt := range tests {
		t.Run(tt.css, func(t *testing.T) {
			assert.Equal(t, tt.expected, ScoreNode(first(t, tt.src, tt.css)))
		})
	}
}

func TestWeight(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected int
	}{
		{"id が正なら class の正負は見ない", `<div id="main" class="sidebar">x</div>`, 25},
		{"id が負", `<div id="sidebar">x</div>`, -25},
		{"class が正", `<div class="article-body">x</div>`, 25},
		{"写真のヒント", `<div class="photo">x</div>`, 10},
		{"readability asset", `<div class="entry-content-asset">x</div>`, 50},
		{"属性なし", `<div>x</div>`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Weight(first(t, tt.src, "div")))
		})
	}
}

func TestLinkDensity(t *testing.T) {
	n := first(t, `<div>Some text <a href="#">link</a> more text</div>`, "div")
	assert.InDelta(t, 4.0/24.0, LinkDensity(n), 0.0001)

	empty := first(t, `<div></div>`, "div")
	assert.Equal(t, 0.0, LinkDensity(empty))
}

func TestHasSentenceEnd(t *testing.T) {
	assert.True(t, HasSentenceEnd("This is a sentence."))
	assert.True(t, HasSentenceEnd("Is this a question?  "))
	assert.True(t, HasSentenceEnd("Note:"))
	assert.False(t, HasSentenceEnd("No ending here"))
	assert.False(t, HasSentenceEnd(""))
}

func TestScoreContent_HNewsBoost(t *testing.T) {
	doc, err := dom.Parse(`
		<html><body>
			<article class="hentry">
				<div class="entry-content">
					<p>This is a paragraph with some content, and commas, to score well.</p>
					<p>Another paragraph with more text and details about the article.</p>
				</div>
			</article>
		</body></html>`)
	require.NoError(t, err)

	scores := ScoreContent(doc)
	article := doc.Find("article").Get(0)
	assert.Greater(t, scores[article], 80)

	for _, p := range doc.Find("p").Nodes {
		_, scored := scores[p]
		assert.True(t, scored)
	}
}

func TestScoreContent_Memoized(t *testing.T) {
	doc, err := dom.Parse(`<div><p>` + strings.Repeat("word ", 20) + `</p></div>`)
	require.NoError(t, err)

	a := ScoreContent(doc)
	b := ScoreContent(doc)
	assert.Equal(t, len(a), len(b))
	for n, v := range a {
		assert.Equal(t, v, b[n])
	}
}
