package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/shouni/go-web-reader/pkg/dom"
)

var (
	// defaultCleanTags は、既定の掃除で取り除く要素です。
	defaultCleanTags = []string{
		"script", "style", "noscript", "nav", "header", "footer", "aside", "form", "iframe",
		"button", "input", "select", "textarea",
	}

	// adClassMarkers は、広告などを示す class の部分文字列です。大文字小文字は区別しません。
	adClassMarkers = []string{"ad", "ads", "advert", "sidebar", "related", "sponsored"}
)

func documentNode(doc *goquery.Document) *html.Node {
	return doc.Get(0)
}

// defaultClean は、本文の作業用コピーに既定の掃除を適用します。
//
//  1. script や nav などのノイズ要素を取り除く
//  2. class に広告を示す文字列を含む要素を取り除く
//  3. 連続する <br> を1つにまとめる
//  4. テキストも画像も持たない <p> を取り除く
func defaultClean(root *html.Node) {
	for _, n := range dom.ElementsByTag(root, defaultCleanTags...) {
		dom.Remove(n)
	}

	for _, n := range dom.Elements(root) {
		switch n.Data {
		case "html", "head", "body":
			continue
		}
		if hasAdClass(n) {
			dom.Remove(n)
		}
	}

	collapseBrs(root)
	removeEmptyParagraphs(root)
}

func hasAdClass(n *html.Node) bool {
	class := strings.ToLower(dom.AttrOr(n, "class", ""))
	if class == "" {
		return false
	}
	for _, m := range adClassMarkers {
		if strings.Contains(class, m) {
			return true
		}
	}
	return false
}

// collapseBrs は、空白だけのテキストを挟んで続く <br> を取り除きます。
func collapseBrs(root *html.Node) {
	for _, br := range dom.ElementsByTag(root, "br") {
		if br.Parent == nil {
			continue
		}
		for next := nextSignificant(br); next != nil && dom.TagName(next) == "br"; next = nextSignificant(br) {
			dom.Remove(next)
		}
	}
}

func nextSignificant(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.TextNode && strings.TrimSpace(s.Data) == "" {
			continue
		}
		return s
	}
	return nil
}

func removeEmptyParagraphs(root *html.Node) {
	for _, p := range dom.ElementsByTag(root, "p") {
		if strings.TrimSpace(dom.Text(p)) == "" && !dom.HasDescendant(p, "img") {
			dom.Remove(p)
		}
	}
}

// fixHeadings は、<h1> が複数ある場合に、最初の1つを残して <h2> へ降格します。
func fixHeadings(root *html.Node) {
	h1s := dom.ElementsByTag(root, "h1")
	if len(h1s) <= 1 {
		return
	}
	for _, h := range h1s[1:] {
		dom.Rename(h, "h2")
	}
}

// rewriteEmptyLinks は、href が空か "#" でテキストを持つ <a> を、その子で置き換えます。
func rewriteEmptyLinks(root *html.Node) {
	for _, a := range dom.ElementsByTag(root, "a") {
		href := strings.TrimSpace(dom.AttrOr(a, "href", ""))
		if href != "" && href != "#" {
			continue
		}
		if strings.TrimSpace(dom.Text(a)) == "" {
			continue
		}
		dom.Unwrap(a)
	}
}
