package extract

import (
	"html"
	"strings"

	xhtml "golang.org/x/net/html"

	"github.com/shouni/go-web-reader/pkg/custom"
	"github.com/shouni/go-web-reader/pkg/dom"
)

// rawTextParents は、子のテキストをエスケープせずに出力する要素です。
var rawTextParents = map[string]bool{
	"script": true, "style": true, "xmp": true, "iframe": true,
	"noembed": true, "noframes": true, "plaintext": true,
}

var (
	lazyImgSrcAttrs     = []string{"data-src", "data-original", "data-lazy", "data-lazy-src", "data-zoom", "data-zoom-src", "data-href", "data-url"}
	lazySrcsetAttrs     = []string{"data-srcset", "data-original-set", "data-src-set"}
	lazyAnchorHrefAttrs = []string{"data-href", "data-url"}
)

// replaceFunc は、ノードを置き換えるHTMLを返します。false の場合はノードをそのまま出力します。
type replaceFunc func(w *serializer, n *xhtml.Node) (string, bool)

// serializer は、変換規則を適用しながらノードをHTML文字列へ書き出します。
// 元のツリーは変更しません。
type serializer struct {
	sb         strings.Builder
	transforms map[*xhtml.Node]custom.TransformSpec
	replace    map[*xhtml.Node]replaceFunc
	// rewrite が true の場合は、遅延読み込み属性の補正を行います。
	rewrite bool
}

// children は、ノードの子を書き出します。
func (w *serializer) children(n *xhtml.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c)
	}
}

// inner は、ノードの子を書き出した結果を文字列で返します。出力先のバッファは変更しません。
func (w *serializer) inner(n *xhtml.Node) string {
	sub := &serializer{transforms: w.transforms, replace: w.replace, rewrite: w.rewrite}
	sub.children(n)
	return sub.sb.String()
}

func (w *serializer) node(n *xhtml.Node) {
	switch n.Type {
	case xhtml.TextNode:
		if n.Parent != nil && rawTextParents[dom.TagName(n.Parent)] {
			w.sb.WriteString(n.Data)
			return
		}
		w.sb.WriteString(html.EscapeString(n.Data))
	case xhtml.CommentNode:
		w.sb.WriteString("<!--")
		w.sb.WriteString(n.Data)
		w.sb.WriteString("-->")
	case xhtml.DocumentNode:
		w.children(n)
	case xhtml.ElementNode:
		w.element(n)
	}
}

func (w *serializer) element(n *xhtml.Node) {
	if fn, ok := w.replace[n]; ok {
		if out, ok := fn(w, n); ok {
			w.sb.WriteString(out)
			return
		}
	}

	tag := dom.TagName(n)
	t, hasTransform := w.transforms[n]
	if hasTransform && t.Kind == custom.TransformUnwrap {
		w.children(n)
		return
	}

	// noscript の置き換えは NoscriptToDiv が一致したノードに限る
	if hasTransform && t.Kind == custom.TransformNoscriptToDiv && tag == "noscript" {
		// 画像1枚だけを包む noscript は span に置き換える
		if img := soleImage(n); img != nil {
			w.sb.WriteString("<span>")
			w.element(img)
			w.sb.WriteString("</span>")
			return
		}
		w.sb.WriteString("<div>")
		w.children(n)
		w.sb.WriteString("</div>")
		return
	}

	effective := tag
	attrs := copyAttrs(n)
	if hasTransform {
		switch t.Kind {
		case custom.TransformTag:
			effective = strings.ToLower(t.Value)
		case custom.TransformNoscriptToDiv:
			effective = "div"
		case custom.TransformMoveAttr:
			if v, ok := attrValue(attrs, t.From); ok {
				attrs = setAttr(attrs, t.To, v)
			}
		case custom.TransformSetAttr:
			attrs = setAttr(attrs, t.Name, t.Value)
		}
	}

	if w.rewrite {
		switch tag {
		case "img":
			attrs = fixLazy(attrs, "src", lazyImgSrcAttrs)
			attrs = fixLazy(attrs, "srcset", lazySrcsetAttrs)
		case "source":
			attrs = fixLazy(attrs, "srcset", lazySrcsetAttrs)
			attrs = fixLazy(attrs, "src", []string{"data-src"})
		case "a":
			attrs = fixLazy(attrs, "href", lazyAnchorHrefAttrs)
		}
	}

	w.sb.WriteString(openTag(effective, attrs))
	if dom.IsVoid(effective) {
		return
	}
	w.children(n)
	w.sb.WriteString("</" + effective + ">")
}

// openTag は開始タグを組み立てます。空要素は " />" で閉じます。
func openTag(tag string, attrs []xhtml.Attribute) string {
	var sb strings.Builder
	sb.WriteString("<")
	sb.WriteString(tag)
	for _, a := range attrs {
		sb.WriteString(" ")
		sb.WriteString(attrName(a))
		sb.WriteString(`="`)
		sb.WriteString(dom.EscapeAttr(a.Val))
		sb.WriteString(`"`)
	}
	if dom.IsVoid(tag) {
		sb.WriteString(" />")
	} else {
		sb.WriteString(">")
	}
	return sb.String()
}

func attrName(a xhtml.Attribute) string {
	if a.Namespace != "" {
		return a.Namespace + ":" + a.Key
	}
	return a.Key
}

func copyAttrs(n *xhtml.Node) []xhtml.Attribute {
	out := make([]xhtml.Attribute, len(n.Attr))
	copy(out, n.Attr)
	return out
}

func attrValue(attrs []xhtml.Attribute, key string) (string, bool) {
	for _, a := range attrs {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(attrs []xhtml.Attribute, key, val string) []xhtml.Attribute {
	for i, a := range attrs {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			attrs[i].Val = val
			return attrs
		}
	}
	return append(attrs, xhtml.Attribute{Key: key, Val: val})
}

// fixLazy は、target 属性が無いか空の場合に、候補の属性から最初の空でない値を設定します。
func fixLazy(attrs []xhtml.Attribute, target string, candidates []string) []xhtml.Attribute {
	if v, ok := attrValue(attrs, target); ok && strings.TrimSpace(v) != "" {
		return attrs
	}
	for _, c := range candidates {
		if v, ok := attrValue(attrs, c); ok && strings.TrimSpace(v) != "" {
			return setAttr(attrs, target, v)
		}
	}
	return attrs
}

// soleImage は、空白以外の子が img 要素1つだけの場合にその要素を返します。
func soleImage(n *xhtml.Node) *xhtml.Node {
	var img *xhtml.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xhtml.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return nil
			}
		case xhtml.ElementNode:
			if img != nil || dom.TagName(c) != "img" {
				return nil
			}
			img = c
		}
	}
	return img
}
