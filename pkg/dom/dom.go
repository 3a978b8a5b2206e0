// Package dom は、HTMLのパースとノード操作の共通ヘルパーを提供します。
//
// パースは常にスクリプト無効で行うため、<noscript> の中身はテキストではなく要素として扱われます。
// ノードの同一性は *html.Node のポインタで表します。
package dom

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Parse は、HTML文字列をスクリプト無効でパースし、goquery ドキュメントを返します。
// 断片を渡した場合は html/head/body が補われ、断片は body の子になります。
func Parse(src string) (*goquery.Document, error) {
	root, err := html.ParseWithOptions(strings.NewReader(src), html.ParseOptionEnableScripting(false))
	if err != nil {
		return nil, fmt.Errorf("HTMLのパースに失敗しました: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// ParseFragment は、HTML断片をパースし、断片を子に持つ body の Selection を返します。
// 作業用のコピーを作る用途で使います。
func ParseFragment(src string) (*goquery.Selection, error) {
	doc, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return doc.Find("body").First(), nil
}

// Body は、ドキュメントの body 要素を返します。存在しない場合は nil です。
func Body(doc *goquery.Document) *html.Node {
	return doc.Find("body").First().Get(0)
}

// FragmentHTML は、Parse で作った作業用ドキュメントを断片のHTMLへ戻します。
// 断片の先頭にある style や meta はパーサによって head へ移されるため、head と body の中身を続けて返します。
func FragmentHTML(doc *goquery.Document) string {
	return InnerHTML(doc.Find("head").First().Get(0)) + InnerHTML(Body(doc))
}

// OuterHTML は、ノード自身を含むHTMLを返します。
func OuterHTML(n *html.Node) string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// InnerHTML は、ノードの子をHTMLとして連結して返します。
func InnerHTML(n *html.Node) string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}

// TagName は、要素ノードの小文字のタグ名を返します。要素以外では空文字列です。
func TagName(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// Attr は、属性値と存在の有無を返します。
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr は、属性値を返します。属性が無い場合は def を返します。
func AttrOr(n *html.Node, key, def string) string {
	if v, ok := Attr(n, key); ok {
		return v
	}
	return def
}

// SetAttr は、属性を設定します。既に存在する場合は値を置き換えます。
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// HasClass は、class 属性に指定のクラスが含まれるかを返します。
func HasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(AttrOr(n, "class", "")) {
		if c == class {
			return true
		}
	}
	return false
}

// Text は、子孫のテキストノードを連結して返します。
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
			return
		}
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			walk(gc)
		}
	}
	walk(n)
	return sb.String()
}

// NormalizeSpaces は、連続する空白を1つの空白にまとめ、前後の空白を取り除きます。
func NormalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// EscapeAttr は、属性値として出力するための最小限のエスケープを行います。
func EscapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")

// IsVoid は、終了タグを持たない要素かどうかを返します。
func IsVoid(tag string) bool {
	return voidElements[strings.ToLower(tag)]
}

// Elements は、ノード配下の要素を文書順 (ノード自身を含む) で返します。
func Elements(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			walk(gc)
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}

// ElementsByTag は、ノード配下 (ノード自身を除く) から指定タグの要素を文書順で返します。
func ElementsByTag(n *html.Node, tags ...string) []*html.Node {
	var out []*html.Node
	for _, e := range Elements(n) {
		if e == n {
			continue
		}
		for _, t := range tags {
			if e.Data == t {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// HasDescendant は、指定タグの子孫要素が存在するかを返します。
func HasDescendant(n *html.Node, tags ...string) bool {
	return len(ElementsByTag(n, tags...)) > 0
}

// Remove は、ノードを親から切り離します。既に切り離されている場合は何もしません。
func Remove(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Unwrap は、ノードを取り除き、その子をノードの位置へ移動します。
func Unwrap(n *html.Node) {
	if n == nil || n.Parent == nil {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		n.Parent.InsertBefore(c, n)
		c = next
	}
	n.Parent.RemoveChild(n)
}

// Rename は、要素のタグ名を変更します。
func Rename(n *html.Node, tag string) {
	n.Data = tag
	n.DataAtom = atom.Lookup([]byte(tag))
}

// PrevElementSibling は、直前の兄弟要素を返します。
func PrevElementSibling(n *html.Node) *html.Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// HasAncestor は、祖先に指定タグの要素が存在するかを返します。
func HasAncestor(n *html.Node, tag string) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == tag {
			return true
		}
	}
	return false
}
