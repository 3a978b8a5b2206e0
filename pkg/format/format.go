// Package format は、抽出した本文HTMLの無害化と、Markdown・プレーンテキストへの変換を提供します。
package format

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"
	textUtils "github.com/shouni/go-utils/text"
	"golang.org/x/net/html"

	"github.com/shouni/go-web-reader/pkg/dom"
)

// ContentType は、本文の出力形式です。
type ContentType string

const (
	HTML     ContentType = "html"
	Markdown ContentType = "markdown"
	Text     ContentType = "text"
)

// ParseContentType は、形式名を ContentType に変換します。未知の名前は HTML として扱います。
func ParseContentType(s string) ContentType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return Markdown
	case "text", "txt":
		return Text
	default:
		return HTML
	}
}

// ExcerptLength は、自動生成する抜粋の最大文字数です。
const ExcerptLength = 200

var (
	reBlankLines  = regexp.MustCompile(`\n{3,}`)
	reNewlines    = regexp.MustCompile(`\n{2,}`)
	reInlineSpace = regexp.MustCompile(`[^\S\n]+`)
)

// articlePolicy は、記事本文として残す要素と属性の許可リストです。
var articlePolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "strong", "b", "em", "i", "u",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "blockquote", "pre", "code",
		"img", "a", "span", "div",
	)
	p.AllowAttrs("href", "class").OnElements("a")
	p.AllowAttrs("src", "alt", "width", "height", "srcset", "sizes", "class").OnElements("img")
	p.AllowAttrs("class", "id").OnElements("div", "span")
	p.AllowAttrs("class").OnElements("p")
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(true)
	p.RequireParseableURLs(true)
	return p
}()

// Sanitize は、許可リストに無い要素と属性を取り除きます。
// script と style は中身ごと、その他の要素はタグだけを取り除きテキストを残します。
func Sanitize(src string) string {
	return articlePolicy.Sanitize(src)
}

// skipTags は、テキストやMarkdownに含めない要素です。
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// blockTags は、終わりで改行を入れる要素です。
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "header": true, "footer": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "dl": true, "dt": true, "dd": true,
	"blockquote": true, "pre": true, "figure": true, "figcaption": true,
	"table": true, "tr": true, "hr": true, "main": true, "aside": true,
}

// HTMLToMarkdown は、HTMLをMarkdownに変換します。3行以上の改行は空行1つに縮めます。
// 変換に失敗した場合は入力をそのまま返します。
func HTMLToMarkdown(src string) string {
	doc, err := dom.Parse(src)
	if err != nil {
		return src
	}
	// 1. 実行されない要素を取り除く
	doc.Find("script, style, noscript, template").Remove()

	// 2. 変換
	md, err := htmltomarkdown.ConvertNode(doc.Get(0))
	if err != nil {
		return src
	}

	// 3. 空行の正規化
	return strings.TrimSpace(reBlankLines.ReplaceAllString(string(md), "\n\n"))
}

// HTMLToText は、HTMLをプレーンテキストに変換します。
// br とブロック要素の終わりを改行とし、連続する改行は1つに、行内の空白は1つに縮めます。
func HTMLToText(src string) string {
	doc, err := dom.Parse(src)
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		case html.ElementNode:
			if skipTags[n.Data] {
				return
			}
			if n.Data == "br" {
				sb.WriteByte('\n')
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			sb.WriteByte('\n')
		}
	}
	walk(doc.Get(0))

	raw := reInlineSpace.ReplaceAllString(sb.String(), " ")
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = textUtils.NormalizeText(strings.TrimSpace(line))
	}
	return strings.TrimSpace(reNewlines.ReplaceAllString(strings.Join(lines, "\n"), "\n"))
}

// Excerpt は、プレーンテキストの先頭 ExcerptLength 文字を抜粋として返します。
func Excerpt(plain string) string {
	return Truncate(plain, ExcerptLength)
}

// Truncate は、s を先頭から n 文字 (バイトではなくルーン) に切り詰めます。
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// WordCount は、空白で区切られた語の数を返します。
func WordCount(plain string) int {
	return len(strings.Fields(plain))
}

// Convert は、サニタイズ済みのHTMLを指定の形式に変換します。
func Convert(src string, ct ContentType) string {
	switch ct {
	case Markdown:
		return HTMLToMarkdown(src)
	case Text:
		return HTMLToText(src)
	default:
		return src
	}
}
