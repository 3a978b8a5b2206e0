package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-web-reader/pkg/custom"
	"github.com/shouni/go-web-reader/pkg/dom"
	"github.com/shouni/go-web-reader/pkg/extract"
)

func newExtractor(t *testing.T) *extract.Extractor {
	t.Helper()
	return extract.NewExtractor(dom.NewSelectorCache())
}

func content(selectors ...string) *custom.ContentExtractor {
	ce := &custom.ContentExtractor{}
	for _, s := range selectors {
		ce.Selectors = append(ce.Selectors, custom.SelectorSpec{CSS: s})
	}
	return ce
}

func TestNewExtractor(t *testing.T) {
	doc, err := dom.Parse(`<article><p>Hi</p></article>`)
	require.NoError(t, err)

	t.Run("success_with_valid_finder", func(t *testing.T) {
		got, ok := extract.NewExtractor(dom.NewSelectorCache()).Content(doc, content("article"))
		require.True(t, ok)
		assert.Equal(t, "<p>Hi</p>", got)
	})

	t.Run("nil_finder_uses_new_cache", func(t *testing.T) {
		e := extract.NewExtractor(nil)
		require.NotNil(t, e)
		got, ok := e.Content(doc, content("article"))
		require.True(t, ok)
		assert.Equal(t, "<p>Hi</p>", got)
	})
}

func TestExtractor_Content(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		ce       func() *custom.ContentExtractor
		expected string
	}{
		{
			name:     "内部HTMLを返す",
			html:     `<article><p>Hi</p></article>`,
			ce:       func() *custom.ContentExtractor { return content("article") },
			expected: "<p>Hi</p>",
		},
		{
			name: "タグ名の変換",
			html: `<article><span>Hi</span></article>`,
			ce: func() *custom.ContentExtractor {
				ce := content("article")
				ce.Transforms = map[string]custom.TransformSpec{"span": custom.Tag("strong")}
				return ce
			},
			expected: "<strong>Hi</strong>",
		},
		{
			name: "noscript_to_div で noscript は div になる",
			html: `<article><noscript><p>Hidden</p></noscript></article>`,
			ce: func() *custom.ContentExtractor {
				ce := content("article")
				ce.Transforms = map[string]custom.TransformSpec{"noscript": {Kind: custom.TransformNoscriptToDiv}}
				return ce
			},
			expected: "<div><p>Hidden</p></div>",
		},
		{
			name: "noscript_to_div で画像1枚の noscript は span になる",
			html: `<article><noscript><img src="a.jpg"></noscript></article>`,
			ce: func() *custom.ContentExtractor {
				ce := content("article")
				ce.Transforms = map[string]custom.TransformSpec{"noscript": {Kind: custom.TransformNoscriptToDiv}}
				return ce
			},
			expected: `<span><img src="a.jpg"/></span>`,
		},
		{
			name:     "変換規則が無い noscript はそのまま残る",
			html:     `<article><p>Lead</p><noscript><img src="a.jpg"></noscript></article>`,
			ce:       func() *custom.ContentExtractor { return content("article") },
			expected: `<p>Lead</p><noscript><img src="a.jpg"/></noscript>`,
		},
		{
			name: "変換規則が無い noscript は既定の掃除で取り除かれる",
			html: `<div class="c"><p>Body text here.</p><noscript><p>Enable JavaScript please</p></noscript></div>`,
			ce: func() *custom.ContentExtractor {
				ce := content(".c")
				ce.DefaultCleaner = true
				return ce
			},
			expected: "<p>Body text here.</p>",
		},
		{
			name: "別のセレクタに一致しない noscript は置き換えない",
			html: `<article><noscript class="lead"><img src="a.jpg"></noscript><noscript><p>JS</p></noscript></article>`,
			ce: func() *custom.ContentExtractor {
				ce := content("article")
				ce.DefaultCleaner = true
				ce.Transforms = map[string]custom.TransformSpec{"noscript.lead": {Kind: custom.TransformNoscriptToDiv}}
				return ce
			},
			expected: `<span><img src="a.jpg"/></span>`,
		},
		{
			name:     "遅延読み込み画像の src を補う",
			html:     `<article><img data-src="real.jpg"></article>`,
			ce:       func() *custom.ContentExtractor { return content("article") },
			expected: `<img data-src="real.jpg" src="real.jpg"/>`,
		},
		{
			name:     "遅延読み込みリンクの href を補う",
			html:     `<article><a data-href="/next">Next</a></article>`,
			ce:       func() *custom.ContentExtractor { return content("article") },
			expected: `<a data-href="/next" href="/next">Next</a>`,
		},
		{
			name: "属性の移動は既存の値を上書きする",
			html: `<article><img src="placeholder.gif" data-original="full.jpg"></article>`,
			ce: func() *custom.ContentExtractor {
				ce := content("article")
				ce.Transforms = map[string]custom.TransformSpec{"img": custom.MoveAttr("data-original", "src")}
				return ce
			},
			expected: `<img src="full.jpg" data-original="full.jpg"/>`,
		},
		{
			name: "unwrap は子だけを残す",
			html: `<article><div class="wrap"><p>A</p></div></article>`,
			ce: func() *custom.ContentExtractor {
				ce := content("article")
				ce.Transforms = map[string]custom.TransformSpec{"div.wrap": {Kind: custom.TransformUnwrap}}
				return ce
			},
			expected: "<p>A</p>",
		},
		{
			name: "属性の設定",
			html: `<article><p><a href="/x">L</a></p></article>`,
			ce: func() *custom.ContentExtractor {
				ce := content("article")
				ce.Transforms = map[string]custom.TransformSpec{"a": custom.SetAttr("rel", "nofollow")}
				return ce
			},
			expected: `<p><a href="/x" rel="nofollow">L</a></p>`,
		},
		{
			name: "noop は何もしない",
			html: `<article><p>A</p></article>`,
			ce: func() *custom.ContentExtractor {
				ce := content("article")
				ce.Transforms = map[string]custom.TransformSpec{"p": {Kind: custom.TransformNoop}}
				return ce
			},
			expected: "<p>A</p>",
		},
		{
			name: "clean セレクタの要素を取り除く",
			html: `<article><p>Keep</p><div class="ad-slot">Buy</div></article>`,
			ce: func() *custom.ContentExtractor {
				ce := content("article")
				ce.Clean = []string{".ad-slot"}
				return ce
			},
			expected: "<p>Keep</p>",
		},
		{
			name: "既定の掃除",
			html: `<article><p>Text</p><script>x()</script><nav>n</nav><div class="sponsored">s</div><p></p><p>A<br><br> <br>B</p></article>`,
			ce: func() *custom.ContentExtractor {
				ce := content("article")
				ce.DefaultCleaner = true
				return ce
			},
			expected: "<p>Text</p><p>A<br/> B</p>",
		},
		{
			name: "広告の class は大文字小文字を区別しない",
			html: `<article><div class="Advert">x</div><p>y</p></article>`,
			ce: func() *custom.ContentExtractor {
				ce := content("article")
				ce.DefaultCleaner = true
				return ce
			},
			expected: "<p>y</p>",
		},
		{
			name:     "href の無いリンクもテキストに置き換える",
			html:     `<article><h1>A</h1><h1>B</h1><a>C</a></article>`,
			ce:       func() *custom.ContentExtractor { return content("article") },
			expected: "<h1>A</h1><h2>B</h2>C",
		},
		{
			name:     "2つ目以降の h1 は h2 になる",
			html:     `<article><h1>A</h1><h1>B</h1></article>`,
			ce:       func() *custom.ContentExtractor { return content("article") },
			expected: "<h1>A</h1><h2>B</h2>",
		},
		{
			name:     "空のリンクはテキストに置き換える",
			html:     `<article><p><a href="#">Jump</a> <a href="">  </a> <a href="/ok">ok</a></p></article>`,
			ce:       func() *custom.ContentExtractor { return content("article") },
			expected: `<p>Jump <a href="">  </a> <a href="/ok">ok</a></p>`,
		},
		{
			name:     "テキストのエスケープを保つ",
			html:     `<article><p>a &lt; b &amp; c</p></article>`,
			ce:       func() *custom.ContentExtractor { return content("article") },
			expected: "<p>a &lt; b &amp; c</p>",
		},
		{
			name:     "最初に一致したセレクタを使う",
			html:     `<div class="body">Second</div><article>First</article>`,
			ce:       func() *custom.ContentExtractor { return content("#missing", "article", ".body") },
			expected: "First",
		},
	}

	e := newExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := dom.Parse(tt.html)
			require.NoError(t, err)

			got, ok := e.Content(doc, tt.ce())
			require.True(t, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExtractor_Content_NoMatch(t *testing.T) {
	doc, err := dom.Parse(`<p>nothing</p>`)
	require.NoError(t, err)

	e := newExtractor(t)
	got, ok := e.Content(doc, content("article"))
	assert.False(t, ok)
	assert.Empty(t, got)

	_, ok = e.Content(nil, content("article"))
	assert.False(t, ok)
	_, ok = e.Content(doc, nil)
	assert.False(t, ok)
}

func TestExtractor_AllowMultiple(t *testing.T) {
	doc, err := dom.Parse(`<div class="c">1</div><div class="c">2</div>`)
	require.NoError(t, err)
	e := newExtractor(t)

	ce := content(".c")
	got, ok := e.Content(doc, ce)
	require.True(t, ok)
	assert.Equal(t, "1", got)

	ce.AllowMultiple = true
	parts, ok := e.ContentAll(doc, ce)
	require.True(t, ok)
	assert.Equal(t, []string{"1", "2"}, parts)

	got, _ = e.Content(doc, ce)
	assert.Equal(t, "12", got)
}

func TestExtractor_DoesNotMutateDocument(t *testing.T) {
	doc, err := dom.Parse(`<article><h1>A</h1><h1>B</h1><noscript><p>x</p></noscript><img data-src="a.jpg"></article>`)
	require.NoError(t, err)
	before := dom.OuterHTML(dom.Body(doc))

	ce := content("article")
	ce.DefaultCleaner = true
	ce.Transforms = map[string]custom.TransformSpec{"h1": custom.Tag("h3")}
	_, ok := newExtractor(t).Content(doc, ce)
	require.True(t, ok)

	assert.Equal(t, before, dom.OuterHTML(dom.Body(doc)))
}
