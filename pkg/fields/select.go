// Package fields は、著者・日付・リード画像などの記事フィールドを取り出します。
//
// どのフィールドも、サイト別ルールのセレクタを先に試し、見つからなければ汎用のセレクタ列へ順に戻ります。
// 値が見つからない場合は空文字列を返します。
package fields

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/shouni/go-web-reader/pkg/custom"
	"github.com/shouni/go-web-reader/pkg/dom"
)

// Extractor は、コンパイル済みセレクタのキャッシュを使ってフィールドを取り出します。
type Extractor struct {
	cache *dom.SelectorCache
}

// New は、Extractor を生成します。cache が nil の場合は新しいキャッシュを使います。
func New(cache *dom.SelectorCache) *Extractor {
	if cache == nil {
		cache = dom.NewSelectorCache()
	}
	return &Extractor{cache: cache}
}

// defaultExtractor は、パッケージ関数 ExtractMetadata が使う Extractor です。
var defaultExtractor = New(nil)

// FieldText は、ルールのセレクタを順に試し、最初に値が得られたセレクタの値を返します。
// 属性を指定したセレクタは前後の空白を除いた属性値、それ以外は空白を正規化したテキストを返します。
// 空の値は無視します。AllowMultiple が false の場合は最初の値だけを返します。
func (e *Extractor) FieldText(doc *goquery.Document, fe *custom.FieldExtractor) ([]string, bool) {
	if doc == nil || fe == nil {
		return nil, false
	}
	for _, spec := range fe.Selectors {
		values := e.valuesOf(doc, spec)
		if len(values) == 0 {
			continue
		}
		if !fe.AllowMultiple {
			values = values[:1]
		}
		return values, true
	}
	return nil, false
}

// FieldFirst は、FieldText の最初の値を返します。
func (e *Extractor) FieldFirst(doc *goquery.Document, fe *custom.FieldExtractor) (string, bool) {
	values, ok := e.FieldText(doc, fe)
	if !ok {
		return "", false
	}
	return values[0], true
}

func (e *Extractor) valuesOf(doc *goquery.Document, spec custom.SelectorSpec) []string {
	if strings.TrimSpace(spec.CSS) == "" {
		return nil
	}
	var out []string
	for _, n := range e.cache.Find(doc.Selection, spec.CSS).Nodes {
		var v string
		if spec.IsAttr() {
			v = strings.TrimSpace(dom.AttrOr(n, spec.Attr, ""))
		} else {
			v = NodeText(n)
		}
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// FirstAttr は、セレクタを順に試し、最初に見つかった空でない属性値を返します。
func (e *Extractor) FirstAttr(doc *goquery.Document, attr string, selectors ...string) string {
	for _, css := range selectors {
		for _, n := range e.cache.Find(doc.Selection, css).Nodes {
			if v := strings.TrimSpace(dom.AttrOr(n, attr, "")); v != "" {
				return v
			}
		}
	}
	return ""
}

// FirstText は、セレクタを順に試し、最初に見つかった空でない値を返します。
// "meta[" で始まるセレクタは content 属性を、それ以外は要素のテキストを値とします。
func (e *Extractor) FirstText(doc *goquery.Document, selectors ...string) string {
	for _, css := range selectors {
		if strings.HasPrefix(css, "meta[") {
			if v := e.MetaContent(doc, css); v != "" {
				return v
			}
			continue
		}
		for _, n := range e.cache.Find(doc.Selection, css).Nodes {
			if v := NodeText(n); v != "" {
				return v
			}
		}
	}
	return ""
}

// MetaContent は、セレクタに一致する meta 要素の空でない content 属性を返します。
func (e *Extractor) MetaContent(doc *goquery.Document, css string) string {
	return e.FirstAttr(doc, "content", css)
}

// NodeText は、子孫のテキストノードを空白で連結し、空白を正規化して返します。
func NodeText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			parts = append(parts, c.Data)
			return
		}
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			walk(gc)
		}
	}
	walk(n)
	return dom.NormalizeSpaces(strings.Join(parts, " "))
}

// NormalizeLang は、言語タグを小文字の主言語部分に正規化します。"en_US" は "en" になります。
func NormalizeLang(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if i := strings.IndexAny(v, "-_"); i >= 0 {
		v = v[:i]
	}
	return v
}
