package readability

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/shouni/go-web-reader/pkg/dom"
)

var blockLevelTags = map[string]bool{
	"article": true, "aside": true, "blockquote": true, "body": true, "br": true,
	"button": true, "canvas": true, "caption": true, "col": true, "colgroup": true,
	"dd": true, "div": true, "dl": true, "dt": true, "embed": true, "fieldset": true,
	"figcaption": true, "figure": true, "footer": true, "form": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "header": true,
	"hgroup": true, "hr": true, "li": true, "map": true, "object": true, "ol": true,
	"output": true, "p": true, "pre": true, "progress": true, "section": true,
	"table": true, "tbody": true, "textarea": true, "tfoot": true, "th": true,
	"thead": true, "tr": true, "ul": true, "video": true,
}

// BrsToPs は、連続する <br> (間の空白は無視) を段落の区切りに変換します。
// 連続の最後の <br> を <p> に置き換え、続くインライン要素とテキストをその <p> に移します。
// 移す内容が無い場合は、空白 1 文字の <p> になります。
func BrsToPs(root *html.Node) {
	collapsing := false
	for _, br := range dom.ElementsByTag(root, "br") {
		if br.Parent == nil {
			continue
		}
		if next := nextNonBlankSibling(br); next != nil && dom.TagName(next) == "br" {
			collapsing = true
			removeBlankBetween(br, next)
			dom.Remove(br)
			continue
		}
		if collapsing {
			collapsing = false
			paragraphize(br)
		}
	}
}

// nextNonBlankSibling は、空白のみのテキストノードを飛ばした次の兄弟ノードを返します。
func nextNonBlankSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.TextNode && strings.TrimSpace(s.Data) == "" {
			continue
		}
		if s.Type == html.CommentNode {
			continue
		}
		return s
	}
	return nil
}

func removeBlankBetween(from, to *html.Node) {
	for s := from.NextSibling; s != nil && s != to; {
		next := s.NextSibling
		from.Parent.RemoveChild(s)
		s = next
	}
}

// paragraphize は、<br> を <p> に置き換え、後続のブロック要素でないノードをその中へ移します。
// 親が段落でなければ、<br> より前のインライン部分も <p> で包みます。
func paragraphize(br *html.Node) {
	if dom.TagName(br.Parent) != "p" {
		wrapPreceding(br)
	}

	p := newParagraph()
	for s := br.NextSibling; s != nil; {
		if s.Type == html.ElementNode && blockLevelTags[dom.TagName(s)] {
			break
		}
		next := s.NextSibling
		br.Parent.RemoveChild(s)
		p.AppendChild(s)
		s = next
	}

	if p.FirstChild == nil {
		p.AppendChild(&html.Node{Type: html.TextNode, Data: " "})
	}
	br.Parent.InsertBefore(p, br)
	br.Parent.RemoveChild(br)
}

// wrapPreceding は、<br> の直前にあるブロック要素でないノードの並びを <p> で包みます。
// 空白だけの並びは包みません。
func wrapPreceding(br *html.Node) {
	first := br
	hasContent := false
	for s := br.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && blockLevelTags[dom.TagName(s)] {
			break
		}
		if s.Type == html.ElementNode || strings.TrimSpace(s.Data) != "" {
			hasContent = true
		}
		first = s
	}
	if !hasContent {
		return
	}

	p := newParagraph()
	br.Parent.InsertBefore(p, first)
	for s := first; s != br; {
		next := s.NextSibling
		br.Parent.RemoveChild(s)
		p.AppendChild(s)
		s = next
	}
}

func newParagraph() *html.Node {
	p := &html.Node{Type: html.ElementNode}
	dom.Rename(p, "p")
	return p
}
