package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseContentType(t *testing.T) {
	tests := []struct {
		input    string
		expected ContentType
	}{
		{"markdown", Markdown},
		{"MD", Markdown},
		{"text", Text},
		{"txt", Text},
		{"html", HTML},
		{"", HTML},
		{"pdf", HTML},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseContentType(tt.input))
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "script は中身ごと除去",
			input:    `<p class="x">Hi<script>alert(1)</script></p>`,
			expected: `<p class="x">Hi</p>`,
		},
		{
			name:     "許可されない属性を除去",
			input:    `<p style="color:red" onclick="x()">Hi</p>`,
			expected: `<p>Hi</p>`,
		},
		{
			name:     "許可されない要素はテキストを残す",
			input:    `<section><p>Hi</p></section>`,
			expected: `<p>Hi</p>`,
		},
		{
			name:     "リンクと画像",
			input:    `<a href="https://example.com/a">link</a><img src="/a.jpg" alt="A">`,
			expected: `<a href="https://example.com/a">link</a><img src="/a.jpg" alt="A">`,
		},
		{
			name:     "見出しの id",
			input:    `<h2 id="intro" class="x">Intro</h2>`,
			expected: `<h2 id="intro">Intro</h2>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sanitize(tt.input))
		})
	}
}

func TestSanitize_RejectsJavascriptURL(t *testing.T) {
	got := Sanitize(`<a href="javascript:alert(1)">x</a>`)
	assert.NotContains(t, got, "javascript")
	assert.Contains(t, got, "x")
}

func TestHTMLToMarkdown(t *testing.T) {
	assert.True(t, strings.HasPrefix(HTMLToMarkdown("<h1>Hello</h1>"), "# Hello"))

	md := HTMLToMarkdown(`<p>Read <a href="https://example.com">this</a></p><script>var x = 1;</script>`)
	assert.Contains(t, md, "[this](https://example.com)")
	assert.NotContains(t, md, "var x")

	md = HTMLToMarkdown(`<p>one</p><div><br><br><br></div><p>two</p>`)
	assert.NotContains(t, md, "\n\n\n")
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "段落ごとに改行", input: `<p>First para.</p><p>Second para.</p>`, expected: "First para.\nSecond para."},
		{name: "br は改行", input: `<p>line one<br>line two</p>`, expected: "line one\nline two"},
		{name: "空白の正規化", input: "<p>  many \t  spaces  </p>", expected: "many spaces"},
		{name: "script と style は除外", input: `<style>p{}</style><p>Text</p><script>x()</script>`, expected: "Text"},
		{name: "インライン要素", input: `<p>Hello <b>world</b></p>`, expected: "Hello world"},
		{name: "空", input: "", expected: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTMLToText(tt.input))
		})
	}
}

func TestExcerpt(t *testing.T) {
	long := strings.Repeat("あ", 250)
	got := Excerpt(HTMLToText("<p>" + long + "</p>"))
	assert.Equal(t, ExcerptLength, len([]rune(got)))

	assert.Equal(t, "Short text", Excerpt(HTMLToText("<p>Short text</p>")))
	assert.Equal(t, "", Excerpt(HTMLToText("<div></div>")))
	assert.Equal(t, "spaced", Excerpt("  spaced \n"))
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 2, WordCount("Hello world"))
	assert.Equal(t, 3, WordCount(" one\ntwo  three "))
	assert.Equal(t, 0, WordCount(""))
}

func TestConvert(t *testing.T) {
	const src = `<p>Hello</p>`
	assert.Equal(t, src, Convert(src, HTML))
	assert.Equal(t, "Hello", Convert(src, Text))
	assert.Equal(t, "Hello", Convert(src, Markdown))
}
